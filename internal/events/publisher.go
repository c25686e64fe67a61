package events

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/neuralscale/enhancer/internal/config"
	"github.com/neuralscale/enhancer/internal/store"
)

// Publisher sends item lifecycle snapshots to Kafka so external consumers
// (dashboards, auditing) can follow pipeline state. A nil Publisher is a
// valid no-op, used when eventing is disabled.
type Publisher struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	cfg      *config.Kafka
}

// New creates a Publisher.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(cfg *config.Kafka, s retry.Strategy) *Publisher {
	producer := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)

	return &Publisher{
		Client:   producer,
		cfg:      cfg,
		strategy: s,
	}
}

// Publish serializes the event to JSON and sends it to Kafka. The item ID
// is used as the message key so one item's events stay ordered.
func (p *Publisher) Publish(ctx context.Context, evt store.Event) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}

	key := []byte(evt.Item.ID)

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event: %v", err)
	}

	return nil
}

// Run forwards store events to Kafka until the channel closes or the
// context is canceled. Publish failures are logged and skipped; eventing
// is best effort and must never stall the pipeline.
func (p *Publisher) Run(ctx context.Context, events <-chan store.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := p.Publish(ctx, evt); err != nil {
				zlog.Logger.Err(err).Str("item", evt.Item.ID).Msg("failed to publish item event")
			}
		}
	}
}
