package service

import (
	"context"
	"encoding/json"

	"custodia/internal/idempotency"
	"custodia/internal/settlement"
	"custodia/internal/vault"
	"custodia/internal/vault/validation"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// CreatePayload is the cacheable part of a creation response. The idempotency
// store keeps exactly these bytes so a replayed request returns the original
// response unchanged.
type CreatePayload struct {
	Vault              *vault.Vault           `json:"vault"`
	OnChainInstruction settlement.Instruction `json:"onChainInstruction"`
}

// CreateResult is the outcome of a creation request, replayed or fresh.
type CreateResult struct {
	Payload        CreatePayload
	IdempotencyKey string
	Replayed       bool
}

// Create validates the input, dedupes on the idempotency key, and produces a
// new active vault with all supplied milestones pending.
func (s *Service) Create(ctx context.Context, input vault.CreateVaultInput, idempotencyKey string) (CreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "vault.Create")
	defer span.End()

	cmd, err := validation.NormalizeCreate(input, s.clock.Now())
	if err != nil {
		return CreateResult{}, err
	}

	fingerprint, err := idempotency.Fingerprint(cmd)
	if err != nil {
		return CreateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not fingerprint request")
	}

	res, err := s.idem.Execute(ctx, idempotencyKey, fingerprint, func(ctx context.Context) (string, []byte, error) {
		payload, err := s.createVault(ctx, cmd)
		if err != nil {
			return "", nil, err
		}
		return payload.Vault.ID.String(), mustJSON(payload), nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncIdempotencyConflicts()
		}
		return CreateResult{}, err
	}

	var payload CreatePayload
	if err := json.Unmarshal(res.Response, &payload); err != nil {
		return CreateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not decode stored response")
	}
	if res.Replayed {
		s.metrics.IncIdempotencyReplays()
		s.logger.InfoContext(ctx, "creation request replayed from idempotency store",
			"vault_id", res.ResourceID, "idempotency_key", idempotencyKey)
	}
	return CreateResult{Payload: payload, IdempotencyKey: idempotencyKey, Replayed: res.Replayed}, nil
}

// createVault performs the actual mutation: persist the aggregate with its
// `created` history entry and build the outbound escrow instruction.
func (s *Service) createVault(ctx context.Context, cmd vault.CreateVaultCommand) (CreatePayload, error) {
	now := s.clock.Now()

	v := &vault.Vault{
		ID:                 s.gen.VaultID(),
		Creator:            cmd.Creator,
		Amount:             cmd.Amount,
		StartTimestamp:     now,
		EndTimestamp:       cmd.EndTimestamp,
		SuccessDestination: cmd.SuccessDestination,
		FailureDestination: cmd.FailureDestination,
		Status:             vault.StatusActive,
		CreatedAt:          now,
		Milestones:         make([]vault.Milestone, 0, len(cmd.Milestones)),
		History: []vault.HistoryEntry{{
			Action:     vault.HistoryCreated,
			ActorID:    cmd.Creator,
			Role:       vault.RoleCreator,
			OccurredAt: now,
		}},
		ValidationRecords: []vault.ValidationRecord{},
		DomainEvents:      []vault.DomainEvent{},
	}
	for _, m := range cmd.Milestones {
		msID := id.MilestoneID(m.ID)
		if msID == "" {
			msID = s.gen.MilestoneID()
		}
		v.Milestones = append(v.Milestones, vault.Milestone{
			ID:          msID,
			Title:       m.Title,
			Description: m.Description,
			VerifierID:  m.VerifierID,
			Status:      vault.MilestonePending,
		})
	}

	if err := s.vaults.Create(ctx, v); err != nil {
		return CreatePayload{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not persist vault")
	}

	s.metrics.IncVaultsCreated()
	s.logger.InfoContext(ctx, "vault created",
		"vault_id", v.ID, "creator", v.Creator, "milestones", len(v.Milestones))

	return CreatePayload{
		Vault:              v,
		OnChainInstruction: s.adapter.BuildCreationInstruction(v),
	}, nil
}
