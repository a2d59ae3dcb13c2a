package notify

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"drravalement/site/internal/config"
	"drravalement/site/internal/metrics"
)

// FromConfig wires a sender for every channel whose provider is configured.
// The in-app channel needs only redis.
func FromConfig(cfg config.NotifyConfig, rdb *redis.Client, m *metrics.Metrics, log zerolog.Logger) *Dispatcher {
	var senders []Sender
	if cfg.EmailEnabled() {
		senders = append(senders, NewEmailSender(cfg.SMTP))
	}
	if cfg.SMSEnabled() {
		senders = append(senders, NewSMSSender(cfg.SMS, &http.Client{Timeout: cfg.Timeout}))
	}
	if rdb != nil {
		senders = append(senders, NewInAppSender(rdb, "drrav:notifications"))
	}
	if cfg.CalendarEnabled() {
		senders = append(senders, NewCalendarSender(cfg.Calendar))
	}
	for _, ch := range AllChannels {
		if !hasSender(senders, ch) {
			log.Info().Str("channel", string(ch)).Msg("notification channel disabled")
		}
	}
	return NewDispatcher(cfg.Timeout, m, log, senders...)
}

func hasSender(senders []Sender, ch Channel) bool {
	for _, s := range senders {
		if s.Channel() == ch {
			return true
		}
	}
	return false
}
