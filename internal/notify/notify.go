// Package notify fans a notification out to the configured delivery
// channels and reports per-channel outcomes.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"drravalement/site/internal/apperr"
	"drravalement/site/internal/metrics"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelInApp    Channel = "in_app"
	ChannelCalendar Channel = "calendar"
)

// AllChannels is the default fan-out order.
var AllChannels = []Channel{ChannelEmail, ChannelSMS, ChannelInApp, ChannelCalendar}

// ErrNoRecipient is returned by a sender when the notification carries no
// address for its channel; the channel is then skipped.
var ErrNoRecipient = errors.New("no recipient for channel")

type Event struct {
	Title    string
	Start    time.Time
	Duration time.Duration
	Location string
}

type Notification struct {
	Subject string
	Body    string
	Email   string
	Phone   string
	// UserID targets one admin in-app; empty means the shared office feed.
	UserID string
	Event  *Event
	Meta   map[string]string
}

type Sender interface {
	Channel() Channel
	Send(ctx context.Context, n Notification) error
}

type Outcome string

const (
	Delivered Outcome = "delivered"
	Failed    Outcome = "failed"
	Skipped   Outcome = "skipped"
)

type ChannelResult struct {
	Channel Channel
	Outcome Outcome
	Err     error
}

type Report struct {
	Results []ChannelResult
}

func (r Report) with(outcome Outcome) []Channel {
	var out []Channel
	for _, res := range r.Results {
		if res.Outcome == outcome {
			out = append(out, res.Channel)
		}
	}
	return out
}

func (r Report) Delivered() []Channel { return r.with(Delivered) }
func (r Report) Failed() []Channel    { return r.with(Failed) }
func (r Report) Skipped() []Channel   { return r.with(Skipped) }

// Err joins the errors of failed channels. Skipped channels do not count.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Outcome == Failed {
			errs = append(errs, fmt.Errorf("%s: %w", res.Channel, res.Err))
		}
	}
	return errors.Join(errs...)
}

type Dispatcher struct {
	senders map[Channel]Sender
	timeout time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewDispatcher(timeout time.Duration, m *metrics.Metrics, log zerolog.Logger, senders ...Sender) *Dispatcher {
	d := &Dispatcher{
		senders: make(map[Channel]Sender, len(senders)),
		timeout: timeout,
		metrics: m,
		log:     log,
	}
	for _, s := range senders {
		if s != nil {
			d.senders[s.Channel()] = s
		}
	}
	return d
}

// Dispatch delivers n on the given channels concurrently, all channels when
// none are given. Results keep the order of the requested channels.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification, channels ...Channel) Report {
	if len(channels) == 0 {
		channels = AllChannels
	}

	results := make([]ChannelResult, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		sender, ok := d.senders[ch]
		if !ok {
			results[i] = ChannelResult{
				Channel: ch,
				Outcome: Skipped,
				Err:     apperr.ErrServiceUnavailable.WithMessage(fmt.Sprintf("%s channel is not configured", ch)),
			}
			continue
		}

		wg.Add(1)
		go func(i int, ch Channel, sender Sender) {
			defer wg.Done()
			results[i] = d.send(ctx, ch, sender, n)
		}(i, ch, sender)
	}
	wg.Wait()

	for _, res := range results {
		if d.metrics != nil {
			d.metrics.Notifications.WithLabelValues(string(res.Channel), string(res.Outcome)).Inc()
		}
		if res.Outcome == Failed {
			d.log.Warn().Err(res.Err).Str("channel", string(res.Channel)).Msg("notification delivery failed")
		}
	}
	return Report{Results: results}
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, sender Sender, n Notification) (res ChannelResult) {
	res.Channel = ch
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("sender panic: %v", r)
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	err := sender.Send(ctx, n)
	switch {
	case err == nil:
		res.Outcome = Delivered
	case errors.Is(err, ErrNoRecipient):
		res.Outcome = Skipped
		res.Err = err
	default:
		res.Outcome = Failed
		res.Err = err
	}
	return res
}
