// Package service implements the vault lifecycle engine: the only component
// that transitions vault and milestone status. Every mutation runs inside a
// single store Update so the aggregate, its audit trail and its domain
// events commit together or not at all.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/events"
	"custodia/internal/idempotency"
	"custodia/internal/platform/metrics"
	"custodia/internal/settlement"
	"custodia/internal/vault"
	"custodia/internal/vault/store"
	id "custodia/pkg/domain"
)

// Service orchestrates vault lifecycle operations. It keeps business rules
// out of handlers and persistence out of the domain model.
type Service struct {
	vaults    store.VaultStore
	idem      *idempotency.Executor
	adapter   settlement.Adapter
	publisher events.Publisher
	gen       id.Generator
	clock     id.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithGenerator(g id.Generator) Option {
	return func(s *Service) { s.gen = g }
}

func WithClock(c id.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New constructs a Service.
func New(vaults store.VaultStore, idem *idempotency.Executor, adapter settlement.Adapter, opts ...Option) *Service {
	s := &Service{
		vaults:    vaults,
		idem:      idem,
		adapter:   adapter,
		publisher: events.NewMemoryPublisher(),
		gen:       id.NewUUIDGenerator(),
		clock:     id.SystemClock{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("custodia/vault"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publish delivers freshly committed domain events to subscribers. The
// vault's own persisted event log is the source of truth; delivery is
// best-effort and never fails the request.
func (s *Service) publish(ctx context.Context, vaultID id.VaultID, evts []vault.DomainEvent) {
	if len(evts) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, vaultID, evts); err != nil {
		s.logger.ErrorContext(ctx, "domain event publish failed",
			"vault_id", vaultID, "events", len(evts), "error", err)
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable with unmarshalable types, which is a programmer error.
		panic(err)
	}
	return b
}
