package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	TopicUsers    = "user_events"
	TopicCatalog  = "catalog_events"
	TopicCart     = "cart_events"
	TopicOrders   = "order_events"
	TopicPayments = "payment_events"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event map[string]any) error
	Close() error
}

// Emit publishes with a bounded timeout and only logs failures: events never
// fail the operation that produced them.
func Emit(ctx context.Context, p Publisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	if _, ok := event["at"]; !ok {
		event["at"] = time.Now().UTC().Format(time.RFC3339)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.Publish(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("event_publish_error", "topic", topic, "type", event["type"], "error", err)
	}
}

// LogPublisher writes events to the structured log when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, topic, key string, event map[string]any) error {
	l := p.Logger
	if l == nil {
		l = logging.FromContext(ctx)
	}
	l.Info("event", "topic", topic, "key", key, "payload", event)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
