package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/ports"
)

type outboxWriter struct {
	st *state
}

func (w *outboxWriter) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	w.st.outbox = append(w.st.outbox, ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      append([]byte(nil), event.Payload...),
		CreatedAt:    event.OccurredAt,
	})
	return nil
}

// Outbox returns the relay-side view of the store's outbox for the worker.
func (s *Store) Outbox() ports.OutboxRepository {
	return &outboxRelay{store: s}
}

type outboxRelay struct {
	store *Store
}

func (r *outboxRelay) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	token := claimToken
	until := claimUntil
	claimed := make([]ports.OutboxRecord, 0, limit)
	for i := range r.store.state.outbox {
		rec := &r.store.state.outbox[i]
		if rec.PublishedAt != nil || rec.DeadLetteredAt != nil {
			continue
		}
		if rec.ClaimUntil != nil && !rec.ClaimUntil.Before(now) {
			continue
		}
		rec.ClaimToken = &token
		rec.ClaimUntil = &until
		claimed = append(claimed, *rec)
		if len(claimed) == limit {
			break
		}
	}
	return claimed, nil
}

func (r *outboxRelay) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return r.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.PublishedAt = &at
	})
}

func (r *outboxRelay) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
	})
}

func (r *outboxRelay) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
		rec.DeadLetteredAt = &at
	})
}

// update applies fn to the record still held by claimToken and releases the claim.
func (r *outboxRelay) update(outboxID uuid.UUID, claimToken string, fn func(rec *ports.OutboxRecord)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.state.outbox {
		rec := &r.store.state.outbox[i]
		if rec.OutboxID != outboxID {
			continue
		}
		if rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
			return nil
		}
		fn(rec)
		rec.ClaimToken = nil
		rec.ClaimUntil = nil
		return nil
	}
	return nil
}
