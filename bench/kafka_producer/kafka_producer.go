package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gocql/gocql"
	"github.com/segmentio/kafka-go"
)

// RecEvent mirrors the recommendation payload the server publishes
// when a recommendation is created.
type RecEvent struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	MovieID   string    `json:"movie_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func main() {
	// --- Command-line flags ---
	var broker string
	var topic string
	var total int
	var batchSize int
	var authorID string

	flag.StringVar(&broker, "broker", "localhost:9092", "kafka broker address")
	flag.StringVar(&topic, "topic", "rec-activity", "kafka topic")
	flag.IntVar(&total, "n", 100000, "total number of events to produce")
	flag.IntVar(&batchSize, "batch", 500, "messages per batch")
	flag.StringVar(&authorID, "author", "", "author id to stamp on events (default: random)")
	flag.Parse()

	if authorID == "" {
		authorID = gocql.TimeUUID().String()
	}

	// Async writer: throughput over per-message acks. The worker side
	// tolerates duplicates, so retries are safe.
	w := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    batchSize,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	}
	defer w.Close()

	fmt.Printf("Producing %d rec_created events to %s (%s)...\n", total, topic, broker)
	start := time.Now()

	sent := 0
	for sent < total {
		n := batchSize
		if total-sent < n {
			n = total - sent
		}

		msgs := make([]kafka.Message, 0, n)
		for i := 0; i < n; i++ {
			now := time.Now().UTC()
			ev := RecEvent{
				ID:        gocql.TimeUUID().String(),
				AuthorID:  authorID,
				MovieID:   fmt.Sprintf("movie-%d", sent+i),
				Title:     fmt.Sprintf("bench movie %d", sent+i),
				CreatedAt: now,
				UpdatedAt: now,
			}
			value, err := json.Marshal(ev)
			if err != nil {
				fmt.Printf("marshal error: %v\n", err)
				os.Exit(1)
			}
			msgs = append(msgs, kafka.Message{
				Key:   []byte("rec_created"),
				Value: value,
			})
		}

		if err := w.WriteMessages(context.Background(), msgs...); err != nil {
			fmt.Printf("write error after %d messages: %v\n", sent, err)
			os.Exit(1)
		}
		sent += n
	}

	elapsed := time.Since(start)
	fmt.Printf("Produced %d events in %v (%.0f events/sec)\n", sent, elapsed, float64(sent)/elapsed.Seconds())
}
