package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drravalement/site/internal/apperr"
	"drravalement/site/internal/config"
	"drravalement/site/internal/metrics"
)

type stubSender struct {
	channel Channel
	err     error
	panics  bool
	got     []Notification
}

func (s *stubSender) Channel() Channel { return s.channel }

func (s *stubSender) Send(_ context.Context, n Notification) error {
	if s.panics {
		panic("boom")
	}
	s.got = append(s.got, n)
	return s.err
}

func TestDispatchAggregatesPartialSuccess(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	email := &stubSender{channel: ChannelEmail}
	sms := &stubSender{channel: ChannelSMS, err: errors.New("provider down")}
	inapp := &stubSender{channel: ChannelInApp, err: ErrNoRecipient}
	d := NewDispatcher(time.Second, m, zerolog.Nop(), email, sms, inapp)

	report := d.Dispatch(context.Background(), Notification{Subject: "s", Body: "b", Email: "a@b.fr"})

	require.Len(t, report.Results, 4)
	assert.Equal(t, []Channel{ChannelEmail}, report.Delivered())
	assert.Equal(t, []Channel{ChannelSMS}, report.Failed())
	assert.Equal(t, []Channel{ChannelInApp, ChannelCalendar}, report.Skipped())

	var apiErr *apperr.APIError
	require.ErrorAs(t, report.Results[3].Err, &apiErr)
	assert.Equal(t, "service_unavailable", apiErr.Code)

	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "sms: provider down")
	assert.Len(t, email.got, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("email", "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("calendar", "skipped")))
}

func TestDispatchSelectedChannelsAndPanics(t *testing.T) {
	bad := &stubSender{channel: ChannelEmail, panics: true}
	d := NewDispatcher(0, nil, zerolog.Nop(), bad)

	report := d.Dispatch(context.Background(), Notification{}, ChannelEmail)

	require.Len(t, report.Results, 1)
	assert.Equal(t, Failed, report.Results[0].Outcome)
	assert.NoError(t, Report{}.Err())
}

func TestSMSSender(t *testing.T) {
	var got smsPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.To == "+33000000000" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid number"))
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSMSSender(config.SMSConfig{Endpoint: srv.URL, APIKey: "key", Sender: "DRRAV"}, srv.Client())

	require.NoError(t, s.Send(context.Background(), Notification{Phone: "+33612345678", Body: "Nouveau devis"}))
	assert.Equal(t, smsPayload{From: "DRRAV", To: "+33612345678", Text: "Nouveau devis"}, got)

	err := s.Send(context.Background(), Notification{Phone: "+33000000000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid number")

	assert.ErrorIs(t, s.Send(context.Background(), Notification{}), ErrNoRecipient)
}

func TestCalendarSenderUsesClientCredentials(t *testing.T) {
	var event calendarEvent
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/calendars/office/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewCalendarSender(config.CalendarConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
		EventsURL:    srv.URL,
		CalendarID:   "office",
	})

	start := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	err := s.Send(context.Background(), Notification{Body: "Visite", Event: &Event{Title: "Rappel devis", Start: start}})
	require.NoError(t, err)
	assert.Equal(t, "Rappel devis", event.Summary)
	assert.True(t, start.Add(time.Hour).Equal(event.End))

	assert.ErrorIs(t, s.Send(context.Background(), Notification{}), ErrNoRecipient)
}

type fakeStream struct {
	args []*redis.XAddArgs
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", nil)
}

func TestInAppSender(t *testing.T) {
	stream := &fakeStream{}
	s := &InAppSender{client: stream, prefix: "drrav:notifications", maxLen: 10}

	require.NoError(t, s.Send(context.Background(), Notification{Subject: "Nouveau devis", Meta: map[string]string{"quoteId": "q1"}}))
	require.NoError(t, s.Send(context.Background(), Notification{Subject: "Rôle modifié", UserID: "u1"}))

	require.Len(t, stream.args, 2)
	assert.Equal(t, "drrav:notifications:office", stream.args[0].Stream)
	assert.Equal(t, `{"quoteId":"q1"}`, stream.args[0].Values.(map[string]any)["meta"])
	assert.Equal(t, "drrav:notifications:u1", stream.args[1].Stream)
}

func TestEmailMessage(t *testing.T) {
	s := NewEmailSender(config.SMTPConfig{Host: "localhost", Port: 25, From: "site@drravalement.fr"})

	msg, err := s.message(Notification{Email: "office@drravalement.fr", Subject: "Nouveau devis", Body: "..."})
	require.NoError(t, err)
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"office@drravalement.fr"}, rcpts)

	_, err = s.message(Notification{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestFromConfigSkipsUnconfiguredProviders(t *testing.T) {
	d := FromConfig(config.NotifyConfig{Timeout: time.Second}, nil, nil, zerolog.Nop())
	report := d.Dispatch(context.Background(), Notification{Email: "a@b.fr"})
	assert.Len(t, report.Skipped(), 4)
	assert.NoError(t, report.Err())
}
