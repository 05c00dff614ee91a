package service

import (
	"context"
	"errors"

	"custodia/internal/settlement"
	"custodia/internal/vault"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// Cancellation summarizes a cancellation decision: who asked, the recorded
// outcome, and the on-chain transaction when one was submitted.
type Cancellation struct {
	RequestedBy id.ActorID                 `json:"requestedBy"`
	Role        vault.Role                 `json:"role"`
	Reason      string                     `json:"reason,omitempty"`
	Record      vault.ValidationRecord     `json:"validationRecord"`
	Transaction *settlement.CancellationTx `json:"transaction,omitempty"`
}

// CancelResult carries the vault after the decision plus the cancellation
// details. On an ineligible request both are still populated so callers can
// surface the rejected validation record alongside the error.
type CancelResult struct {
	Vault        *vault.Vault
	Cancellation Cancellation
}

// RequestCancellation evaluates the eligibility predicate in fixed order and
// either cancels the vault through the settlement adapter or records the
// rejection. Rejections are an expected, audited outcome: the cancel_rejected
// history entry and rejected validation record commit even though the call
// returns an ineligible error.
//
// A settlement failure aborts the whole update: no cancel_requested entry
// survives, the vault stays active, and the request is safe to retry.
func (s *Service) RequestCancellation(ctx context.Context, vaultID id.VaultID, actorID id.ActorID, role vault.Role, reason string) (CancelResult, error) {
	ctx, span := s.tracer.Start(ctx, "vault.RequestCancellation")
	defer span.End()

	if actorID == "" {
		return CancelResult{}, dErrors.New(dErrors.CodeValidation, "caller identity is required")
	}

	var (
		result           CancelResult
		ineligibleReason string
	)
	updated, err := s.vaults.Update(ctx, vaultID, func(v *vault.Vault) error {
		now := s.clock.Now()

		// Fixed evaluation order; the first failing rule wins.
		switch {
		case v.Status != vault.StatusActive:
			ineligibleReason = "vault is " + string(v.Status) + " and can no longer be cancelled"
		case v.FundedAt != nil:
			ineligibleReason = "vault has already been funded"
		case v.MilestoneValidatedAt != nil:
			ineligibleReason = "a milestone has already been validated"
		case role != vault.RoleCreator && role != vault.RoleAdmin:
			ineligibleReason = "only the creator or an administrator may cancel a vault"
		}

		if ineligibleReason != "" {
			record := vault.ValidationRecord{
				ID:         s.gen.EventID(),
				VaultID:    v.ID,
				ActorID:    actorID,
				Outcome:    vault.OutcomeRejected,
				RecordedAt: now,
				Notes:      ineligibleReason,
			}
			v.History = append(v.History, vault.HistoryEntry{
				Action:     vault.HistoryCancelRejected,
				ActorID:    actorID,
				Role:       role,
				OccurredAt: now,
				Note:       ineligibleReason,
			})
			v.ValidationRecords = append(v.ValidationRecords, record)
			result = CancelResult{Cancellation: Cancellation{
				RequestedBy: actorID, Role: role, Reason: reason, Record: record,
			}}
			// Commit the rejection audit trail; the error is raised after.
			return nil
		}

		v.History = append(v.History, vault.HistoryEntry{
			Action:     vault.HistoryCancelRequested,
			ActorID:    actorID,
			Role:       role,
			OccurredAt: now,
			Note:       reason,
		})

		tx, err := s.adapter.SubmitCancellation(ctx, v, reason)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "settlement cancellation failed; vault unchanged")
		}

		cancelledAt := now
		if tx.ConfirmedAt != nil {
			cancelledAt = tx.ConfirmedAt.UTC()
		}
		v.Status = vault.StatusCancelled
		v.CancelledAt = &cancelledAt

		record := vault.ValidationRecord{
			ID:         s.gen.EventID(),
			VaultID:    v.ID,
			ActorID:    actorID,
			Outcome:    vault.OutcomeApproved,
			RecordedAt: cancelledAt,
			Notes:      reason,
		}
		v.History = append(v.History, vault.HistoryEntry{
			Action:     vault.HistoryCancelled,
			ActorID:    actorID,
			Role:       role,
			OccurredAt: cancelledAt,
		})
		v.ValidationRecords = append(v.ValidationRecords, record)

		event := vault.DomainEvent{
			ID:         s.gen.EventID(),
			Type:       vault.EventVaultStateChanged,
			OccurredAt: cancelledAt,
			Payload: map[string]string{
				"vaultId":    v.ID.String(),
				"fromStatus": string(vault.StatusActive),
				"toStatus":   string(vault.StatusCancelled),
			},
		}
		v.DomainEvents = append(v.DomainEvents, event)

		result = CancelResult{Cancellation: Cancellation{
			RequestedBy: actorID, Role: role, Reason: reason,
			Record: record, Transaction: &tx,
		}}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return CancelResult{}, dErrors.New(dErrors.CodeNotFound, "vault not found")
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return CancelResult{}, err
		}
		return CancelResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not process cancellation")
	}

	result.Vault = updated

	if ineligibleReason != "" {
		s.metrics.IncCancellationsRejected()
		s.logger.InfoContext(ctx, "cancellation rejected",
			"vault_id", updated.ID, "actor", actorID, "reason", ineligibleReason)
		return result, dErrors.New(dErrors.CodeIneligible, ineligibleReason)
	}

	s.publish(ctx, updated.ID, updated.DomainEvents[len(updated.DomainEvents)-1:])
	s.metrics.IncVaultsCancelled()
	s.logger.InfoContext(ctx, "vault cancelled",
		"vault_id", updated.ID, "actor", actorID, "tx_id", result.Cancellation.Transaction.TxID)
	return result, nil
}
