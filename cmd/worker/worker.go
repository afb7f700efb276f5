package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	appkafka "example.com/movierecs/internal/broker"
	"example.com/movierecs/internal/logger"
	"example.com/movierecs/internal/models"
	"example.com/movierecs/internal/store"
	"github.com/segmentio/kafka-go"
)

var logg = logger.New()

// Worker consumes recommendation events and writes activity rows for the
// author's followers. Feed reads never depend on these rows; the feed itself
// stays a per-request computation.
type Worker struct {
	store        store.StoreInterface
	reader       appkafka.KafkaReader
	workerCount  int
	jobQueueSize int
}

// New creates a new concurrent Worker using pre-initialized dependencies.
func New(store store.StoreInterface, reader appkafka.KafkaReader, workerCount, jobQueueSize int) *Worker {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobQueueSize <= 0 {
		jobQueueSize = workerCount * 10
	}
	return &Worker{
		store:        store,
		reader:       reader,
		workerCount:  workerCount,
		jobQueueSize: jobQueueSize,
	}
}

// Run starts message reading and concurrent processing.
func (w *Worker) Run(ctx context.Context) {
	if w.workerCount <= 0 {
		w.workerCount = 1
	}
	if w.jobQueueSize <= 0 {
		w.jobQueueSize = 10
	}

	logg.Info("worker", "Starting "+fmt.Sprint(w.workerCount)+" workers with queue size "+fmt.Sprint(w.jobQueueSize))

	jobs := make(chan kafka.Message, w.jobQueueSize)
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processLoop(ctx, jobs)
		}()
	}

	w.readLoop(ctx, jobs)

	close(jobs)
	wg.Wait()
	logg.Info("worker", "All workers stopped gracefully")
}

// readLoop reads Kafka messages and pushes them into a job queue.
func (w *Worker) readLoop(ctx context.Context, jobs chan<- kafka.Message) {
	var retry int
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				backoff := time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
				logg.Error("worker", "Kafka read error, backing off", err)
				if !waitWithContext(ctx, backoff) {
					return
				}
				retry++
				continue
			}
			retry = 0

			if len(msg.Value) == 0 {
				if !waitWithContext(ctx, 50*time.Millisecond) {
					return
				}
				continue
			}

			select {
			case jobs <- msg:
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
				logg.Info("worker", "Queue full, waiting to enqueue Kafka message")
			}
		}
	}
}

// processLoop decodes recommendation events and fans activity out to
// followers with bounded concurrency.
func (w *Worker) processLoop(ctx context.Context, jobs <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-jobs:
			if !ok {
				return
			}
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg kafka.Message) {
	if string(msg.Key) != appkafka.EventRecCreated {
		logg.Info("worker", "Skipping unknown event key")
		return
	}

	var rec models.Recommendation
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		logg.Error("worker", "Invalid JSON in Kafka message", err)
		return
	}

	followers, err := w.store.ListFollowers(ctx, rec.AuthorID)
	if err != nil {
		logg.Error("worker", "Error fetching followers for recommendation author", err)
		return
	}

	const fanoutLimit = 20
	var fanoutWG sync.WaitGroup
	semaphore := make(chan struct{}, fanoutLimit)

	for _, uid := range followers {
		select {
		case <-ctx.Done():
			return
		default:
			fanoutWG.Add(1)
			semaphore <- struct{}{}

			go func(u string) {
				defer fanoutWG.Done()
				defer func() { <-semaphore }()
				act := models.Activity{
					UserID:    u,
					RecID:     rec.ID,
					AuthorID:  rec.AuthorID,
					MovieID:   rec.MovieID,
					Title:     rec.Title,
					CreatedAt: rec.CreatedAt,
				}
				if err := w.store.AddActivity(ctx, act); err != nil {
					logg.Error("worker", "Failed to add activity for follower", err)
				}
			}(uid)
		}
	}

	fanoutWG.Wait()
	logg.Info("worker", "Recommendation event delivered to followers (rec ID anonymized)")
}

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts down Kafka reader and Cassandra session.
func (w *Worker) Close() error {
	logg.Info("worker", "Closing Kafka reader")
	if err := w.reader.Close(); err != nil {
		logg.Error("worker", "Error closing Kafka reader", err)
		return err
	}

	logg.Info("worker", "Closing Cassandra session")
	w.store.Close()
	return nil
}
