package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"drravalement/site/internal/metrics"
	"drravalement/site/internal/notify"
	"drravalement/site/internal/queue"
	"drravalement/site/internal/service"
)

type Notifier interface {
	Dispatch(ctx context.Context, n notify.Notification, channels ...notify.Channel) notify.Report
}

type SessionPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Office struct {
	Email string
	Phone string
}

type Processor struct {
	notifier Notifier
	sessions SessionPurger
	office   Office
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewProcessor(notifier Notifier, sessions SessionPurger, office Office, m *metrics.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		notifier: notifier,
		sessions: sessions,
		office:   office,
		now:      time.Now,
		metrics:  m,
		logger:   logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	jobType, _ := msg.Values["type"].(string)
	data, _ := msg.Values["data"].(string)

	var err error
	switch jobType {
	case queue.JobQuoteCreated:
		err = p.handleQuoteCreated(ctx, data)
	case queue.JobSessionsCleanup:
		err = p.handleSessionsCleanup(ctx, data)
	default:
		p.logger.Warn().Str("type", jobType).Str("message_id", msg.ID).Msg("unknown job type")
		return nil
	}

	if p.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		p.metrics.JobsProcessed.WithLabelValues(jobType, outcome).Inc()
	}
	return err
}

func (p *Processor) handleQuoteCreated(ctx context.Context, data string) error {
	var job service.QuoteCreatedJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		// a malformed payload will never succeed; drop it
		p.logger.Error().Err(err).Msg("decode quote.created payload")
		return nil
	}

	n := p.quoteNotification(job)
	report := p.notifier.Dispatch(ctx, n)

	p.logger.Info().
		Str("quote_id", job.QuoteID).
		Interface("delivered", report.Delivered()).
		Interface("failed", report.Failed()).
		Interface("skipped", report.Skipped()).
		Msg("quote notification dispatched")

	if len(report.Delivered()) == 0 && len(report.Failed()) > 0 {
		return fmt.Errorf("quote %s: %w", job.QuoteID, report.Err())
	}

	// The office copy went out; a failed acknowledgement is not retried so
	// the office is not notified twice.
	if job.Email != "" {
		ack := p.notifier.Dispatch(ctx, acknowledgement(job), notify.ChannelEmail)
		if err := ack.Err(); err != nil {
			p.logger.Warn().Err(err).Str("quote_id", job.QuoteID).Msg("quote acknowledgement not sent")
		}
	}
	return nil
}

func acknowledgement(job service.QuoteCreatedJob) notify.Notification {
	return notify.Notification{
		Subject: "Votre demande de devis DR RAVALEMENT",
		Body: fmt.Sprintf("Bonjour %s,\n\nNous avons bien reçu votre demande de devis et vous recontacterons sous 24 heures ouvrées.\n\nL'équipe DR RAVALEMENT",
			job.Name),
		Email: job.Email,
		Meta:  map[string]string{"quoteId": job.QuoteID},
	}
}

func (p *Processor) quoteNotification(job service.QuoteCreatedJob) notify.Notification {
	label := service.Services[job.Service]
	if label == "" {
		label = job.Service
	}
	subject := fmt.Sprintf("Nouvelle demande de devis : %s", label)
	body := fmt.Sprintf("Client : %s\nEmail : %s\nTéléphone : %s\nPrestation : %s\nSurface : %.0f m²\n\n%s",
		job.Name, job.Email, job.Phone, label, job.SurfaceM2, job.Message)

	return notify.Notification{
		Subject: subject,
		Body:    body,
		Email:   p.office.Email,
		Phone:   p.office.Phone,
		Event: &notify.Event{
			Title:    fmt.Sprintf("Rappeler %s (%s)", job.Name, job.Phone),
			Start:    callbackSlot(p.now()),
			Duration: 30 * time.Minute,
		},
		Meta: map[string]string{"quoteId": job.QuoteID, "service": job.Service},
	}
}

// callbackSlot is 9:00 on the next working day.
func callbackSlot(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

type sessionsCleanupJob struct {
	Before time.Time `json:"before"`
}

// handleSessionsCleanup purges sessions expired before the cutoff stamped by
// the scheduler, or before now when the job carries none.
func (p *Processor) handleSessionsCleanup(ctx context.Context, data string) error {
	var job sessionsCleanupJob
	if data != "" {
		_ = json.Unmarshal([]byte(data), &job)
	}
	before := job.Before
	if before.IsZero() {
		before = p.now()
	}

	n, err := p.sessions.DeleteExpired(ctx, before)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	p.logger.Info().Int64("deleted", n).Msg("expired sessions purged")
	return nil
}
