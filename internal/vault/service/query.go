package service

import (
	"context"
	"errors"

	"custodia/internal/vault"
	"custodia/internal/vault/store"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Page describes the slice of results a listing returned.
type Page struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListResult is a filtered, ordered, paginated vault listing.
type ListResult struct {
	Vaults []*vault.Vault
	Page   Page
}

// Get fetches a single vault by id.
func (s *Service) Get(ctx context.Context, vaultID id.VaultID) (*vault.Vault, error) {
	ctx, span := s.tracer.Start(ctx, "vault.Get")
	defer span.End()

	v, err := s.vaults.FindByID(ctx, vaultID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vault not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not load vault")
	}
	return v, nil
}

// List returns vaults matching the filter. Reads take a point-in-time
// snapshot; no cross-vault locking is involved.
func (s *Service) List(ctx context.Context, filter store.ListFilter) (ListResult, error) {
	ctx, span := s.tracer.Start(ctx, "vault.List")
	defer span.End()

	filter = filter.Normalize()
	vaults, total, err := s.vaults.List(ctx, filter)
	if err != nil {
		return ListResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not list vaults")
	}

	totalPages := total / filter.Limit
	if total%filter.Limit != 0 {
		totalPages++
	}
	return ListResult{
		Vaults: vaults,
		Page: Page{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}
