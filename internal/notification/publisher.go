package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Publisher delivers one notification to its recipient.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Message is the JSON payload published for a notification.
type Message struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	RecipientID string  `json:"recipientId"`
	TeamID      *string `json:"teamId,omitempty"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	CreatedAt   string  `json:"createdAt"`
}

// NewMessage converts a notification into its wire form.
func NewMessage(n Notification) Message {
	msg := Message{
		ID:          n.ID.String(),
		Kind:        n.Kind,
		RecipientID: n.RecipientID.String(),
		Title:       n.Title,
		Body:        n.Body,
		CreatedAt:   n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if n.TeamID != nil {
		tid := n.TeamID.String()
		msg.TeamID = &tid
	}
	return msg
}

// RedisPublisher publishes each notification on a per-recipient pub/sub
// channel named "<prefix>:<recipientId>".
type RedisPublisher struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(addr, password string, db int, prefix string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisPublisher{client: client, prefix: prefix, timeout: time.Second}, nil
}

// Channel returns the channel a recipient subscribes to.
func (p *RedisPublisher) Channel(recipient string) string {
	return p.prefix + ":" + recipient
}

// Publish sends n as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(NewMessage(n))
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.Channel(n.RecipientID.String()), payload).Err(); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() {
	if p.client != nil {
		_ = p.client.Close()
	}
}

// LogPublisher writes notifications to the log. It is used when Redis is
// not configured.
type LogPublisher struct{}

// Publish logs n and never fails.
func (LogPublisher) Publish(_ context.Context, n Notification) error {
	slog.Info("notification",
		"id", n.ID,
		"kind", n.Kind,
		"recipient", n.RecipientID,
		"title", n.Title,
	)
	return nil
}
