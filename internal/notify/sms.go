package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"drravalement/site/internal/config"
)

// SMSSender posts text messages to the provider's webhook.
type SMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewSMSSender(cfg config.SMSConfig, client *http.Client) *SMSSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &SMSSender{cfg: cfg, client: client}
}

func (s *SMSSender) Channel() Channel { return ChannelSMS }

type smsPayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *SMSSender) Send(ctx context.Context, n Notification) error {
	if n.Phone == "" {
		return ErrNoRecipient
	}
	body, err := json.Marshal(smsPayload{From: s.cfg.Sender, To: n.Phone, Text: n.Body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms webhook: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
