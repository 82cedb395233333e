package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event describes a document lifecycle change worth telling signers about.
// Delivery mechanics (email, push) live downstream of the channel; this package
// only hands events off after the owning transaction has committed.
type Event struct {
	Type       EventType `json:"type"`
	TenantID   string    `json:"tenant_id"`
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title,omitempty"`

	// Progress at the time of the event. AudienceSize is zero for
	// unrestricted documents (no quorum).
	SignedCount  int `json:"signed_count"`
	AudienceSize int `json:"audience_size"`

	OccurredAt time.Time `json:"occurred_at"`
}

type EventType string

const (
	EventPartiallySigned EventType = "document.partially_signed"
	EventCompleted       EventType = "document.completed"
	EventExpired         EventType = "document.expired"
	EventCancelled       EventType = "document.cancelled"
)

// Sink accepts lifecycle events. Implementations must be safe for concurrent use.
// Publishing is best-effort: a Sink error must never roll back the signature
// that produced the event.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// RedisPublisher fans events out on a Redis pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}
