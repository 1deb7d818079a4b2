package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/adapters/memory"
	"github.com/viralforge/academic-records/internal/ports"
)

type recordingPublisher struct {
	mu     sync.Mutex
	fail   bool
	events []string
	keys   []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, partitionKey string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, eventType)
	p.keys = append(p.keys, partitionKey)
	return nil
}

func seedOutbox(t *testing.T, store *memory.Store, eventTypes ...string) {
	t.Helper()
	err := store.WithinTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		for _, eventType := range eventTypes {
			if err := repos.Outbox.Enqueue(ctx, ports.OutboxEvent{
				EventID:      uuid.New(),
				EventType:    eventType,
				PartitionKey: "student-1",
				Payload:      []byte(`{"student_id":"student-1"}`),
				OccurredAt:   time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed outbox: %v", err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOutboxWorkerPublishesInOrder(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedOutbox(t, store, "enrollment.registered", "grade.assigned")
	publisher := &recordingPublisher{}
	worker := NewOutboxWorker(discardLogger(), store.Outbox(), publisher, time.Second, 10, time.Minute, 3)

	result, err := worker.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Published != 2 {
		t.Fatalf("expected 2 published, got %+v", result)
	}
	if publisher.events[0] != "enrollment.registered" || publisher.events[1] != "grade.assigned" {
		t.Fatalf("unexpected publish order %v", publisher.events)
	}
	if publisher.keys[0] != "student-1" {
		t.Fatalf("partition key must be forwarded, got %q", publisher.keys[0])
	}

	again, err := worker.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if again.Claimed != 0 {
		t.Fatalf("published records must not be relayed twice, got %+v", again)
	}
}

func TestOutboxWorkerDeadLettersAfterRetries(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedOutbox(t, store, "gpa.recomputed")
	publisher := &recordingPublisher{fail: true}
	worker := NewOutboxWorker(discardLogger(), store.Outbox(), publisher, time.Second, 10, time.Minute, 2)
	ctx := context.Background()

	first, _ := worker.ProcessOnce(ctx)
	if first.Failed != 1 || first.DeadLettered != 0 {
		t.Fatalf("first failure should schedule a retry, got %+v", first)
	}
	second, _ := worker.ProcessOnce(ctx)
	if second.DeadLettered != 1 {
		t.Fatalf("second failure should dead-letter, got %+v", second)
	}
	third, _ := worker.ProcessOnce(ctx)
	if third.Claimed != 0 {
		t.Fatalf("dead-lettered record must not be claimed again, got %+v", third)
	}
}

func TestKafkaPublisherTopic(t *testing.T) {
	t.Parallel()

	if _, err := NewKafkaPublisher(nil, "records."); err == nil {
		t.Fatalf("expected error without brokers")
	}
	publisher, err := NewKafkaPublisher([]string{"localhost:9092"}, "records.")
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer publisher.Close()
	if got := publisher.TopicFor("grade.assigned"); got != "records.grade.assigned" {
		t.Fatalf("unexpected topic %q", got)
	}
}
