package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const officeFeed = "office"

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// InAppSender appends notifications to a capped redis stream per admin feed.
type InAppSender struct {
	client streamAdder
	prefix string
	maxLen int64
}

func NewInAppSender(client *redis.Client, prefix string) *InAppSender {
	return &InAppSender{client: client, prefix: prefix, maxLen: 1000}
}

func (s *InAppSender) Channel() Channel { return ChannelInApp }

func (s *InAppSender) Stream(userID string) string {
	if userID == "" {
		userID = officeFeed
	}
	return fmt.Sprintf("%s:%s", s.prefix, userID)
}

func (s *InAppSender) Send(ctx context.Context, n Notification) error {
	meta, err := json.Marshal(n.Meta)
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.Stream(n.UserID),
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"subject":   n.Subject,
			"body":      n.Body,
			"meta":      string(meta),
			"createdAt": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
}
