// Package store persists vault aggregates. Implementations are
// interface-driven so the lifecycle service can run against an in-memory map
// in tests and PostgreSQL in production without rewiring.
package store

import (
	"context"

	"custodia/internal/vault"
	id "custodia/pkg/domain"
)

// Sort fields accepted by List.
const (
	SortCreatedAt    = "createdAt"
	SortAmount       = "amount"
	SortEndTimestamp = "endTimestamp"
	SortStatus       = "status"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ListFilter narrows and orders a vault listing. Zero values mean "no
// filter" / defaults.
type ListFilter struct {
	Status  vault.Status
	Creator id.ActorID
	SortBy  string
	Order   string
	Page    int
	Limit   int
}

// Normalize bounds pagination and fills sorting defaults.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	switch f.SortBy {
	case SortCreatedAt, SortAmount, SortEndTimestamp, SortStatus:
	default:
		f.SortBy = SortCreatedAt
	}
	if f.Order != OrderDesc {
		f.Order = OrderAsc
	}
	return f
}

// VaultStore is the persistence port for vault aggregates.
//
// Update is the single mutation path for existing vaults: it runs fn against
// the current state and persists the result atomically, serialized per vault
// id (mutex in memory, row lock in PostgreSQL). When fn returns an error the
// vault is left untouched and the error is returned unchanged, so domain
// rejections pass through without partial writes.
type VaultStore interface {
	Create(ctx context.Context, v *vault.Vault) error
	FindByID(ctx context.Context, vaultID id.VaultID) (*vault.Vault, error)
	Update(ctx context.Context, vaultID id.VaultID, fn func(*vault.Vault) error) (*vault.Vault, error)
	List(ctx context.Context, filter ListFilter) ([]*vault.Vault, int, error)
}
