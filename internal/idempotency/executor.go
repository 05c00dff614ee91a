package idempotency

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "custodia/pkg/domain-errors"
)

// Result is what Execute hands back: the cached or freshly produced response
// payload plus replay metadata.
type Result struct {
	ResourceID string
	Response   []byte
	Replayed   bool
}

// Mutation produces the side effect exactly once: it returns the created
// resource id and the response payload to cache.
type Mutation func(ctx context.Context) (resourceID string, response []byte, err error)

// Executor serializes requests per idempotency key and consults the store
// around the mutation. Concurrent requests bearing the same unfulfilled key
// never both execute: the second blocks on the key lock, then replays.
type Executor struct {
	store  Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewExecutor(store Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, logger: logger, locks: make(map[string]*sync.Mutex)}
}

// Execute runs the mutation under idempotency control. An empty key bypasses
// the store entirely.
//
// The store save happens after the mutation durably commits and is
// best-effort: the created resource is authoritative, so a failed save is
// logged and the response still returned. A later retry of the same key then
// re-executes, which callers of this service tolerate because vault creation
// with a fresh id is observable and reconcilable through the audit trail.
func (e *Executor) Execute(ctx context.Context, key, fingerprint string, fn Mutation) (Result, error) {
	if key == "" {
		resourceID, response, err := fn(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{ResourceID: resourceID, Response: response}, nil
	}

	lock := e.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	outcome, rec, err := e.store.Check(ctx, key, fingerprint)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "idempotency check failed")
	}
	switch outcome {
	case Replay:
		return Result{ResourceID: rec.ResourceID, Response: rec.Response, Replayed: true}, nil
	case Conflict:
		return Result{}, dErrors.New(dErrors.CodeConflict,
			"idempotency key was already used with a different request payload")
	}

	resourceID, response, err := fn(ctx)
	if err != nil {
		return Result{}, err
	}

	if err := e.store.Save(ctx, Record{
		Key:         key,
		Fingerprint: fingerprint,
		ResourceID:  resourceID,
		Response:    response,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		e.logger.ErrorContext(ctx, "idempotency record save failed; resource remains authoritative",
			"key", key, "resource_id", resourceID, "error", err)
	}

	return Result{ResourceID: resourceID, Response: response}, nil
}

func (e *Executor) keyLock(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[key] = lock
	}
	return lock
}
