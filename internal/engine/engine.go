// Package engine reconciles the local store with the remote service. It
// drains the pending-sync queue on connectivity regain and on a periodic
// tick, applying the retry and give-up policy.
package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/logger"
	"github.com/rpacode/edlsync/internal/model"
	"github.com/rpacode/edlsync/internal/remote"
	"github.com/rpacode/edlsync/internal/store"
	"github.com/rpacode/edlsync/internal/syncq"
)

// DefaultAttemptCap is how many delivery attempts an entry gets before
// it is abandoned. Configurable via the config file.
const DefaultAttemptCap = 5

// RemoteClient is the slice of the remote API the engine dispatches to.
type RemoteClient interface {
	CheckStatus(ctx context.Context) bool
	SubmitInspection(ctx context.Context, data json.RawMessage, idempotencyKey string) remote.Result
}

// Events receives sync lifecycle notifications. All methods may be
// called from the sync goroutine.
type Events interface {
	SyncStarted()
	SyncCompleted(delivered, failed, abandoned int, duration time.Duration)
	ItemSynced(entryID int64, entryType string)
	ConnectivityChanged(online bool)
}

type nopEvents struct{}

func (nopEvents) SyncStarted()                               {}
func (nopEvents) SyncCompleted(int, int, int, time.Duration) {}
func (nopEvents) ItemSynced(int64, string)                   {}
func (nopEvents) ConnectivityChanged(bool)                   {}

// Engine is the sync orchestrator.
type Engine struct {
	store      *store.Store
	queue      *syncq.Queue
	client     RemoteClient
	events     Events
	attemptCap int

	mu         sync.Mutex
	online     bool
	inFlight   bool
	lastSync   time.Time
	lastResult *CycleResult
}

// New creates an Engine. attemptCap <= 0 selects the default cap.
func New(s *store.Store, q *syncq.Queue, client RemoteClient, attemptCap int) *Engine {
	if attemptCap <= 0 {
		attemptCap = DefaultAttemptCap
	}
	return &Engine{
		store:      s,
		queue:      q,
		client:     client,
		events:     nopEvents{},
		attemptCap: attemptCap,
	}
}

// SetEvents installs a sync event listener.
func (e *Engine) SetEvents(events Events) {
	if events != nil {
		e.events = events
	}
}

// IsOnline reports the current connectivity assumption.
func (e *Engine) IsOnline() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// SetOnline records a connectivity transition. The offline-to-online
// edge kicks off an immediate sync cycle.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.mu.Lock()
	wasOnline := e.online
	e.online = online
	e.mu.Unlock()

	if wasOnline == online {
		return
	}

	logger.Log.Info("connectivity changed", zap.Bool("online", online))
	e.events.ConnectivityChanged(online)

	if online {
		if _, err := e.SyncCycle(ctx); err != nil {
			logger.Log.Error("sync after connectivity regain failed", zap.Error(err))
		}
	}
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	Inspection *model.Inspection
	// Queued is true when the record was stored locally but not yet
	// confirmed delivered.
	Queued bool
}

// SubmitInspection durably stores the inspection, then tries to deliver
// it: offline submissions are queued immediately, and a failed online
// delivery falls back to the queue rather than losing the record.
func (e *Engine) SubmitInspection(ctx context.Context, insp *model.Inspection) (*SubmitResult, error) {
	stored, err := e.store.CreateInspection(insp)
	if err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(stored)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, "failed to snapshot inspection", err)
	}

	// One idempotency key per submission: the immediate attempt and any
	// queued redelivery look identical to the remote side.
	key := uuid.New().String()

	if !e.IsOnline() {
		if _, err := e.queue.EnqueueSnapshot(model.PendingTypeInspection, snapshot, key); err != nil {
			return nil, err
		}
		return &SubmitResult{Inspection: stored, Queued: true}, nil
	}

	res := e.client.SubmitInspection(ctx, snapshot, key)
	if !res.Success {
		logger.Log.Warn("immediate delivery failed, queueing",
			zap.Int64("inspection_id", stored.ID),
			zap.String("error", res.Error))
		if _, err := e.queue.EnqueueSnapshot(model.PendingTypeInspection, snapshot, key); err != nil {
			return nil, err
		}
		return &SubmitResult{Inspection: stored, Queued: true}, nil
	}

	synced, err := e.store.UpdateInspectionStatus(stored.ID, model.InspectionStatusSynced)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Inspection: synced}, nil
}

// CycleResult summarizes one sync cycle.
type CycleResult struct {
	Skipped   bool
	Processed int
	Delivered int
	Failed    int
	Abandoned int
	Duration  time.Duration
}

// SyncCycle drains the pending queue sequentially in creation order.
// Offline cycles are skipped with no side effects, as is a cycle
// requested while another is in flight; the queue's idempotent remove
// and no-op attempt recording make any residual overlap harmless.
func (e *Engine) SyncCycle(ctx context.Context) (*CycleResult, error) {
	if !e.IsOnline() {
		return &CycleResult{Skipped: true}, nil
	}
	if !e.beginCycle() {
		logger.Log.Debug("sync cycle already in flight, skipping")
		return &CycleResult{Skipped: true}, nil
	}
	defer e.endCycle()

	start := time.Now()
	e.events.SyncStarted()

	entries, err := e.queue.ListPending()
	if err != nil {
		return nil, err
	}

	result := &CycleResult{}
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		result.Processed++

		state := e.processEntry(ctx, entry)
		switch state.Kind {
		case StateDelivered:
			result.Delivered++
		case StateAbandoned:
			result.Abandoned++
		default:
			result.Failed++
		}
	}

	result.Duration = time.Since(start)

	e.mu.Lock()
	e.lastSync = time.Now()
	e.lastResult = result
	e.mu.Unlock()

	e.events.SyncCompleted(result.Delivered, result.Failed, result.Abandoned, result.Duration)
	logger.Log.Info("sync cycle finished",
		zap.Int("processed", result.Processed),
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", result.Failed),
		zap.Int("abandoned", result.Abandoned))

	return result, nil
}

// processEntry runs one delivery attempt and applies the resulting state
// transition.
func (e *Engine) processEntry(ctx context.Context, entry *model.PendingSync) State {
	if err := e.queue.RecordAttempt(entry.ID); err != nil {
		logger.Log.Error("failed to record attempt", zap.Int64("id", entry.ID), zap.Error(err))
	}
	attempts := entry.Attempts + 1

	delivered := e.dispatch(ctx, entry)

	state := nextState(attempts, delivered, e.attemptCap)
	switch state.Kind {
	case StateDelivered:
		if err := e.queue.Remove(entry.ID); err != nil {
			logger.Log.Error("failed to remove delivered entry", zap.Int64("id", entry.ID), zap.Error(err))
		}
		e.advanceSource(entry)
		e.events.ItemSynced(entry.ID, entry.Type)

	case StateAbandoned:
		// The queue entry goes away; the source record stays in its
		// last local status so nothing is lost.
		if err := e.queue.Remove(entry.ID); err != nil {
			logger.Log.Error("failed to remove abandoned entry", zap.Int64("id", entry.ID), zap.Error(err))
		}
		logger.Log.Warn("pending entry abandoned after attempt cap",
			zap.Int64("id", entry.ID),
			zap.String("type", entry.Type),
			zap.Int("attempts", attempts))

	default:
		logger.Log.Info("delivery failed, entry stays queued",
			zap.Int64("id", entry.ID),
			zap.Int("attempts", attempts))
	}

	return state
}

// dispatch routes an entry to the remote endpoint for its type.
// Unrecognized types count as failed attempts so they age out through
// the same cap instead of living in the queue forever.
func (e *Engine) dispatch(ctx context.Context, entry *model.PendingSync) bool {
	switch entry.Type {
	case model.PendingTypeInspection:
		return e.client.SubmitInspection(ctx, entry.Data, entry.IdempotencyKey).Success
	default:
		logger.Log.Warn("unrecognized pending sync type",
			zap.Int64("id", entry.ID),
			zap.String("type", entry.Type))
		return false
	}
}

// advanceSource marks the delivered entry's source record as synced. A
// source record deleted in the meantime is tolerated.
func (e *Engine) advanceSource(entry *model.PendingSync) {
	if entry.Type != model.PendingTypeInspection {
		return
	}

	var snapshot struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(entry.Data, &snapshot); err != nil || snapshot.ID == 0 {
		logger.Log.Warn("delivered entry has no source id", zap.Int64("id", entry.ID))
		return
	}

	if _, err := e.store.UpdateInspectionStatus(snapshot.ID, model.InspectionStatusSynced); err != nil {
		if apperr.IsNotFound(err) {
			return
		}
		logger.Log.Error("failed to mark inspection synced",
			zap.Int64("inspection_id", snapshot.ID), zap.Error(err))
	}
}

func (e *Engine) beginCycle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight {
		return false
	}
	e.inFlight = true
	return true
}

func (e *Engine) endCycle() {
	e.mu.Lock()
	e.inFlight = false
	e.mu.Unlock()
}

// Status is a point-in-time engine summary for the status endpoint.
type Status struct {
	Online     bool         `json:"online"`
	InFlight   bool         `json:"inFlight"`
	Pending    int          `json:"pending"`
	LastSync   *time.Time   `json:"lastSync,omitempty"`
	LastResult *CycleResult `json:"lastResult,omitempty"`
}

// Status reports the engine state and queue depth.
func (e *Engine) Status() (Status, error) {
	pending, err := e.queue.Size()
	if err != nil {
		return Status{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Online:     e.online,
		InFlight:   e.inFlight,
		Pending:    pending,
		LastResult: e.lastResult,
	}
	if !e.lastSync.IsZero() {
		t := e.lastSync
		st.LastSync = &t
	}
	return st, nil
}
