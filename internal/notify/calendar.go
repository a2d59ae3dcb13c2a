package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"drravalement/site/internal/config"
)

// CalendarSender creates events on the office calendar through the
// provider's REST API, authenticated with the client credentials grant.
type CalendarSender struct {
	cfg   config.CalendarConfig
	oauth clientcredentials.Config
}

func NewCalendarSender(cfg config.CalendarConfig) *CalendarSender {
	return &CalendarSender{
		cfg: cfg,
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		},
	}
}

func (s *CalendarSender) Channel() Channel { return ChannelCalendar }

type calendarEvent struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

func (s *CalendarSender) Send(ctx context.Context, n Notification) error {
	if n.Event == nil {
		return ErrNoRecipient
	}
	duration := n.Event.Duration
	if duration <= 0 {
		duration = time.Hour
	}
	body, err := json.Marshal(calendarEvent{
		Summary:     n.Event.Title,
		Description: n.Body,
		Location:    n.Event.Location,
		Start:       n.Event.Start,
		End:         n.Event.Start.Add(duration),
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", s.cfg.EventsURL, url.PathEscape(s.cfg.CalendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.oauth.Client(ctx).Do(req)
	if err != nil {
		return fmt.Errorf("calendar api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("calendar api: status %d", resp.StatusCode)
	}
	return nil
}
