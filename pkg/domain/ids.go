// Package domain holds the typed identifiers shared across vault packages.
// Typed IDs prevent cross-type assignment at compile time: a MilestoneID can
// never be passed where a VaultID is expected.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// VaultID identifies a vault aggregate.
type VaultID string

// MilestoneID identifies a milestone within a vault.
type MilestoneID string

// EventID identifies a domain event or validation record.
type EventID string

// ActorID is the opaque identity of a caller (creator, verifier, admin).
// It arrives pre-authenticated from the transport layer and is never parsed.
type ActorID string

func (v VaultID) String() string     { return string(v) }
func (m MilestoneID) String() string { return string(m) }
func (e EventID) String() string     { return string(e) }
func (a ActorID) String() string     { return string(a) }

// Generator produces unique, time-ordered identifiers. It is injected so
// tests can substitute a deterministic sequence.
type Generator interface {
	VaultID() VaultID
	MilestoneID() MilestoneID
	EventID() EventID
}

// UUIDGenerator issues UUIDv7 identifiers. Version 7 IDs sort by creation
// time, which keeps listings and audit trails naturally ordered.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) VaultID() VaultID         { return VaultID(newV7()) }
func (UUIDGenerator) MilestoneID() MilestoneID { return MilestoneID(newV7()) }
func (UUIDGenerator) EventID() EventID         { return EventID(newV7()) }

func newV7() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the randomness source is broken, which is
		// unrecoverable for the process anyway.
		panic(fmt.Sprintf("uuid v7: %v", err))
	}
	return id.String()
}

// SequenceGenerator issues predictable identifiers for tests.
type SequenceGenerator struct {
	prefix string
	n      int
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) next(kind string) string {
	g.n++
	return fmt.Sprintf("%s-%s-%04d", g.prefix, kind, g.n)
}

func (g *SequenceGenerator) VaultID() VaultID         { return VaultID(g.next("vault")) }
func (g *SequenceGenerator) MilestoneID() MilestoneID { return MilestoneID(g.next("ms")) }
func (g *SequenceGenerator) EventID() EventID         { return EventID(g.next("evt")) }
