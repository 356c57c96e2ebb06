package kafka

import (
	"context"
	"time"

	"github.com/haebom/tariff/internal/domain/news"
)

// Publisher is the write side of a Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, msgs []*Message) (int, error)
}

// NewsEvents turns news store changes into envelopes on Kafka.
type NewsEvents struct {
	pub           Publisher
	source        string
	ingestedTopic string
	purgedTopic   string
	reloadTopic   string
}

// NewNewsEvents publishes ingestion events to ingestedTopic (TopicNewsIngested
// when empty) and purge and reload events to their default topics.
func NewNewsEvents(pub Publisher, source, ingestedTopic string) *NewsEvents {
	if ingestedTopic == "" {
		ingestedTopic = TopicNewsIngested
	}
	return &NewsEvents{
		pub:           pub,
		source:        source,
		ingestedTopic: ingestedTopic,
		purgedTopic:   TopicNewsPurged,
		reloadTopic:   TopicDatasetReloaded,
	}
}

// NewsIngested publishes one event per item, keyed by item id.
func (e *NewsEvents) NewsIngested(ctx context.Context, items []news.Item) error {
	if len(items) == 0 {
		return nil
	}
	msgs := make([]*Message, 0, len(items))
	for _, it := range items {
		env, err := NewEventEnvelope(EventNewsIngested, e.source, NewsIngestedPayload{
			ID:          it.ID,
			Title:       it.Title,
			URL:         it.URL,
			Source:      it.Source,
			DateStr:     it.DateStr,
			PublishDate: it.PublishDate,
		})
		if err != nil {
			return err
		}
		msg, err := env.ToMessage(e.ingestedTopic, it.ID)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	_, err := e.pub.PublishBatch(ctx, msgs)
	return err
}

// NewsPurged publishes a retention cleanup summary.
func (e *NewsEvents) NewsPurged(ctx context.Context, removed, retentionDays int, cutoff time.Time) error {
	env, err := NewEventEnvelope(EventNewsPurged, e.source, NewsPurgedPayload{
		Removed:       removed,
		Cutoff:        cutoff.UTC(),
		RetentionDays: retentionDays,
	})
	if err != nil {
		return err
	}
	return e.publish(ctx, env, e.purgedTopic, "cleanup")
}

// DatasetReloaded publishes a dataset reload summary.
func (e *NewsEvents) DatasetReloaded(ctx context.Context, p DatasetReloadedPayload) error {
	env, err := NewEventEnvelope(EventDatasetReloaded, e.source, p)
	if err != nil {
		return err
	}
	return e.publish(ctx, env, e.reloadTopic, "datasets")
}

func (e *NewsEvents) publish(ctx context.Context, env *EventEnvelope, topic, key string) error {
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	_, err = e.pub.PublishBatch(ctx, []*Message{msg})
	return err
}
