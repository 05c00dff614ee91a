// Package idempotency makes retried mutating requests safe. A client-supplied
// key plus a fingerprint of the normalized payload maps to the response the
// first successful attempt produced; retries replay it without side effects.
package idempotency

import (
	"context"
	"time"
)

// Outcome classifies a Check result.
type Outcome string

const (
	// Fresh: no record for the key. The caller proceeds and saves afterwards.
	Fresh Outcome = "fresh"
	// Replay: record exists with a matching fingerprint. Return the stored
	// response unchanged and perform no side effects.
	Replay Outcome = "replay"
	// Conflict: the key was reused with a materially different payload. Fail
	// loudly rather than silently accepting either request.
	Conflict Outcome = "conflict"
)

// Record maps (key, fingerprint) to the previously computed response and the
// id of the resource it created. It references the vault by value only.
type Record struct {
	Key         string    `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	ResourceID  string    `json:"resourceId"`
	Response    []byte    `json:"response"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store is the persistence port for idempotency records.
type Store interface {
	Check(ctx context.Context, key, fingerprint string) (Outcome, *Record, error)
	Save(ctx context.Context, rec Record) error
}
