package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/ChicagoDave/sunnysips/pkg/snapshot"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}
	areas := []*snapshot.Area{
		{ID: "1", City: "copenhagen", Area: "indre-by", Snapshots: []snapshot.Slot{}},
		{ID: "2", City: "copenhagen", Area: "osterbro", Error: "No cafes in bbox", Snapshots: []snapshot.Slot{}},
	}
	idx := snapshot.Index{City: "copenhagen", Areas: []snapshot.IndexEntry{{Area: "indre-by", File: "indre-by.json"}}}

	if err := p.Publish(context.Background(), areas, idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "copenhagen/indre-by" || header(w.msgs[0], HeaderKind) != KindArea {
		t.Errorf("unexpected first message key %q kind %q", w.msgs[0].Key, header(w.msgs[0], HeaderKind))
	}
	last := w.msgs[2]
	if header(last, HeaderKind) != KindIndex || header(last, HeaderCity) != "copenhagen" {
		t.Errorf("expected index message last, got kind %q", header(last, HeaderKind))
	}
	var back snapshot.Area
	if err := json.Unmarshal(w.msgs[1].Value, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Error != "No cafes in bbox" {
		t.Errorf("expected error carried in payload, got %q", back.Error)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("expected writer closed, got %v", err)
	}
}

func TestPublishWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Producer{writer: &fakeWriter{err: boom}}
	err := p.Publish(context.Background(), nil, snapshot.Index{City: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped broker error, got %v", err)
	}
}
