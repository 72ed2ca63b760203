// Package pubsub publishes extracted puzzles to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

// Message is the JSON payload published for each puzzle.
type Message struct {
	RunID    string   `json:"run_id"`
	PuzzleID int      `json:"puzzle_id"`
	Letters  string   `json:"letters"`
	Center   string   `json:"center"`
	Pangrams []string `json:"pangrams"`
}

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	topic *pubsub.Topic
}

// New creates a Publisher for the provided topic.
func New(topic *pubsub.Topic) *Publisher {
	return &Publisher{topic: topic}
}

// Name identifies the exporter in logs.
func (p *Publisher) Name() string {
	return "pubsub"
}

// Publish marshals the payload to JSON and publishes it to the topic.
func (p *Publisher) Publish(ctx context.Context, payload any, attrs map[string]string) (string, error) {
	if p == nil || p.topic == nil {
		return "", fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Export publishes one message per record and waits for each to be acknowledged.
func (p *Publisher) Export(ctx context.Context, runID string, records []puzzle.Record) error {
	for _, rec := range records {
		pangrams := rec.Pangrams
		if pangrams == nil {
			pangrams = []string{}
		}
		msg := Message{
			RunID:    runID,
			PuzzleID: int(rec.ID),
			Letters:  rec.Letters.String(),
			Center:   string(rec.Letters.Center()),
			Pangrams: pangrams,
		}
		attrs := map[string]string{
			"run_id":    runID,
			"puzzle_id": strconv.Itoa(int(rec.ID)),
		}
		if _, err := p.Publish(ctx, msg, attrs); err != nil {
			return fmt.Errorf("puzzle %d: %w", rec.ID, err)
		}
	}
	return nil
}

// Stop flushes pending messages and releases the topic's goroutines.
func (p *Publisher) Stop() {
	if p == nil || p.topic == nil {
		return
	}
	p.topic.Stop()
}
