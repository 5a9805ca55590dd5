// Package syncq provides queue semantics over the durable pending-sync
// collection. Entries survive process restarts; a crash mid-attempt
// leaves the entry queued with its counter already bumped, which is safe
// under at-least-once delivery.
package syncq

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rpacode/edlsync/internal/logger"
	"github.com/rpacode/edlsync/internal/model"
	"github.com/rpacode/edlsync/internal/store"
)

// Queue manages pending sync entries with at-least-once semantics.
type Queue struct {
	store *store.Store
}

// NewQueue creates a Queue over the given store.
func NewQueue(s *store.Store) *Queue {
	return &Queue{store: s}
}

// Enqueue appends a payload snapshot to the queue with zero attempts and
// a fresh idempotency key. Enqueue is local-only and does not touch the
// network.
func (q *Queue) Enqueue(entryType string, payload interface{}) (*model.PendingSync, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return q.EnqueueSnapshot(entryType, data, uuid.New().String())
}

// EnqueueSnapshot appends an already-serialized payload under a caller
// supplied idempotency key, so a failed immediate delivery and its
// queued redelivery share one key.
func (q *Queue) EnqueueSnapshot(entryType string, data json.RawMessage, idempotencyKey string) (*model.PendingSync, error) {
	entry, err := q.store.InsertPendingSync(entryType, data, idempotencyKey)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("enqueued pending sync entry",
		zap.Int64("id", entry.ID),
		zap.String("type", entry.Type))

	return entry, nil
}

// ListPending returns all queued entries in creation order.
func (q *Queue) ListPending() ([]*model.PendingSync, error) {
	return q.store.ListPendingSyncs()
}

// RecordAttempt increments the attempt counter and stamps the attempt
// time. Recording against an entry removed by a concurrent success is a
// silent no-op.
func (q *Queue) RecordAttempt(id int64) error {
	return q.store.IncrementPendingAttempts(id)
}

// Remove deletes an entry from the queue. Removing twice is a no-op.
func (q *Queue) Remove(id int64) error {
	return q.store.DeletePendingSync(id)
}

// Get returns a queued entry, or (nil, nil) when it no longer exists.
func (q *Queue) Get(id int64) (*model.PendingSync, error) {
	return q.store.GetPendingSync(id)
}

// Size returns the number of queued entries.
func (q *Queue) Size() (int, error) {
	return q.store.CountPendingSyncs()
}
