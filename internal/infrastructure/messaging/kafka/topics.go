package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/haebom/tariff/pkg/errors"
)

// Topic names.  The ingested topic is configurable; these are the defaults.
const (
	TopicNewsIngested    = "tariff.news.ingested"
	TopicNewsPurged      = "tariff.news.purged"
	TopicDatasetReloaded = "tariff.dataset.reloaded"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventNewsIngested    = "news.ingested"
	EventNewsPurged      = "news.purged"
	EventDatasetReloaded = "dataset.reloaded"
)

// EventEnvelope wraps every published payload.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

type NewsIngestedPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	DateStr     string    `json:"date_str,omitempty"`
	PublishDate time.Time `json:"publish_date"`
}

type NewsPurgedPayload struct {
	Removed       int       `json:"removed"`
	Cutoff        time.Time `json:"cutoff"`
	RetentionDays int       `json:"retention_days"`
}

type DatasetReloadedPayload struct {
	PolicyNodes     int      `json:"policy_nodes"`
	PolicyOmissions int      `json:"policy_omissions"`
	Sections        int      `json:"sections"`
	Entries         int      `json:"entries"`
	DroppedRows     int      `json:"dropped_rows"`
	ChangedFiles    []string `json:"changed_files,omitempty"`
}

// NewEventEnvelope marshals payload into a fresh envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeSerialization, "empty payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode payload")
	}
	return nil
}

// ToMessage encodes the envelope as a message on topic.
func (e *EventEnvelope) ToMessage(topic string, key string) (*Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: map[string]string{
			"event_type": e.EventType,
			"event_id":   e.EventID,
		},
		Timestamp: e.Timestamp,
	}, nil
}

// DecodeEnvelope parses a consumed message value.
func DecodeEnvelope(msg *Message) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode envelope")
	}
	return &env, nil
}
