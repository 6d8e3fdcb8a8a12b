// Package publish pushes snapshot documents to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/ChicagoDave/sunnysips/pkg/snapshot"
)

// Header keys set on every message.
const (
	HeaderKind = "kind"
	HeaderCity = "city_id"

	KindArea  = "area"
	KindIndex = "index"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps a Kafka writer for snapshot documents.
type Producer struct {
	writer messageWriter
}

// NewProducer creates a synchronous producer partitioned by message key.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Publish sends every area document followed by the run index in one
// batch. Messages are keyed city/area so one area always lands on the
// same partition.
func (p *Producer) Publish(ctx context.Context, areas []*snapshot.Area, idx snapshot.Index) error {
	msgs := make([]kafka.Message, 0, len(areas)+1)
	for _, a := range areas {
		msg, err := message(a.City+"/"+a.Area, KindArea, a.City, a)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	msg, err := message(idx.City+"/"+snapshot.IndexFile, KindIndex, idx.City, idx)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

func message(key, kind, city string, v any) (kafka.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s %s: %w", kind, key, err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: HeaderKind, Value: []byte(kind)},
			{Key: HeaderCity, Value: []byte(city)},
		},
	}, nil
}
