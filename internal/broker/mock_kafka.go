package appkafka

import (
	"context"
	"encoding/json"
	"errors"

	"example.com/movierecs/internal/models"
	"example.com/movierecs/internal/store"
	"github.com/segmentio/kafka-go"
)

// MockKafka immediately fans out recommendation events to followers' activity
// streams, collapsing the server -> broker -> worker pipeline for tests.
type MockKafka struct {
	Store           *store.MockStore
	WrittenMessages []kafka.Message // stores messages written via WriteMessages
	ReadMessages    []kafka.Message // queue of messages to be read via ReadMessage
	ShouldFail      bool            // flag to simulate failures during write or read operations
}

// WriteMessages simulates publishing a recommendation event, immediately
// writing an activity row for every follower of the author.
func (m *MockKafka) WriteMessages(messages ...kafka.Message) error {
	if m.ShouldFail {
		return errors.New("mock kafka write failed")
	}
	if m.Store == nil {
		return errors.New("store is nil")
	}

	ctx := context.Background()
	for _, msg := range messages {
		m.WrittenMessages = append(m.WrittenMessages, msg)

		if string(msg.Key) != EventRecCreated {
			continue
		}

		var rec models.Recommendation
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			return err
		}

		followers, _ := m.Store.ListFollowers(ctx, rec.AuthorID)
		for _, followerID := range followers {
			_ = m.Store.AddActivity(ctx, models.Activity{
				UserID:    followerID,
				RecID:     rec.ID,
				AuthorID:  rec.AuthorID,
				MovieID:   rec.MovieID,
				Title:     rec.Title,
				CreatedAt: rec.CreatedAt,
			})
		}
	}

	return nil
}

// ReadMessage returns queued messages in order.
func (m *MockKafka) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if m.ShouldFail {
		return kafka.Message{}, errors.New("mock kafka read failed")
	}
	if len(m.ReadMessages) == 0 {
		return kafka.Message{}, errors.New("no messages")
	}
	// Take the first message from the queue and remove it
	msg := m.ReadMessages[0]
	m.ReadMessages = m.ReadMessages[1:]
	return msg, nil
}

// Close is a no-op.
func (m *MockKafka) Close() error { return nil }

// MockKafkaFail always fails.
type MockKafkaFail struct{}

func (m *MockKafkaFail) WriteMessages(messages ...kafka.Message) error {
	return errors.New("mock kafka write failed")
}

func (m *MockKafkaFail) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return kafka.Message{}, errors.New("mock kafka read failed")
}

func (m *MockKafkaFail) Close() error { return nil }
