// Package events delivers vault domain events to external subscribers.
// The lifecycle service emits; delivery is best-effort and decoupled from
// the vault's own persisted event log, which remains the source of truth.
package events

import (
	"context"
	"sync"

	"custodia/internal/vault"
	id "custodia/pkg/domain"
)

// Envelope wraps a domain event with its owning vault id for routing.
type Envelope struct {
	VaultID id.VaultID        `json:"vaultId"`
	Event   vault.DomainEvent `json:"event"`
}

// Publisher fans domain events out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, vaultID id.VaultID, events []vault.DomainEvent) error
	Close()
}

// MemoryPublisher collects envelopes in memory. Used in tests and when no
// broker is configured.
type MemoryPublisher struct {
	mu        sync.Mutex
	published []Envelope
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, vaultID id.VaultID, events []vault.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		p.published = append(p.published, Envelope{VaultID: vaultID, Event: e})
	}
	return nil
}

// Published returns a snapshot of everything published so far.
func (p *MemoryPublisher) Published() []Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Envelope(nil), p.published...)
}

func (p *MemoryPublisher) Close() {}
