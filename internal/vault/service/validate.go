package service

import (
	"context"
	"errors"

	"custodia/internal/vault"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// ValidateResult reports an accepted milestone validation: the milestone as
// validated, the recorded decision, and every domain event the transition
// emitted (one for the milestone, plus one vault.state_changed when the
// validation completed the vault).
type ValidateResult struct {
	VaultID         id.VaultID
	VaultStatus     vault.Status
	Milestone       vault.Milestone
	ValidationEvent vault.ValidationRecord
	EmittedEvents   []vault.DomainEvent
}

// ValidateMilestone transitions one milestone from pending to validated on
// behalf of its assigned verifier. When the last pending milestone validates,
// the vault completes in the same atomic update.
func (s *Service) ValidateMilestone(ctx context.Context, vaultID id.VaultID, milestoneID id.MilestoneID, actorID id.ActorID, role vault.Role, notes string) (ValidateResult, error) {
	ctx, span := s.tracer.Start(ctx, "vault.ValidateMilestone")
	defer span.End()

	if actorID == "" {
		return ValidateResult{}, dErrors.New(dErrors.CodeValidation, "caller identity is required")
	}

	var result ValidateResult
	updated, err := s.vaults.Update(ctx, vaultID, func(v *vault.Vault) error {
		milestone := v.Milestone(milestoneID)
		if milestone == nil {
			return dErrors.New(dErrors.CodeNotFound, "milestone not found in vault")
		}
		if v.Status.Terminal() {
			return dErrors.Newf(dErrors.CodeConflict, "vault is %s; milestones can no longer be validated", v.Status)
		}
		if role != vault.RoleVerifier {
			return dErrors.New(dErrors.CodeForbidden, "only the verifier role can validate milestones")
		}
		if milestone.VerifierID != actorID {
			return dErrors.New(dErrors.CodeForbidden, "verifier is not assigned to this milestone").
				WithDetail("assignedVerifierId", milestone.VerifierID.String())
		}
		switch milestone.Status {
		case vault.MilestoneValidated:
			return dErrors.New(dErrors.CodeConflict, "milestone already validated")
		case vault.MilestoneRejected:
			return dErrors.New(dErrors.CodeConflict, "milestone was rejected and cannot be validated")
		}

		now := s.clock.Now()
		milestone.Status = vault.MilestoneValidated
		milestone.ValidatedAt = &now
		milestone.ValidatedBy = actorID
		if v.MilestoneValidatedAt == nil {
			// First validation: from here on the vault can no longer be cancelled.
			t := now
			v.MilestoneValidatedAt = &t
		}

		record := vault.ValidationRecord{
			ID:          s.gen.EventID(),
			VaultID:     v.ID,
			MilestoneID: milestone.ID,
			ActorID:     actorID,
			Outcome:     vault.OutcomeApproved,
			RecordedAt:  now,
			Notes:       notes,
		}
		v.ValidationRecords = append(v.ValidationRecords, record)

		emitted := []vault.DomainEvent{{
			ID:         s.gen.EventID(),
			Type:       vault.EventMilestoneValidated,
			OccurredAt: now,
			Payload: map[string]string{
				"vaultId":     v.ID.String(),
				"milestoneId": milestone.ID.String(),
				"verifierId":  actorID.String(),
			},
		}}

		if v.AllMilestonesValidated() {
			v.Status = vault.StatusCompleted
			emitted = append(emitted, vault.DomainEvent{
				ID:         s.gen.EventID(),
				Type:       vault.EventVaultStateChanged,
				OccurredAt: now,
				Payload: map[string]string{
					"vaultId":    v.ID.String(),
					"fromStatus": string(vault.StatusActive),
					"toStatus":   string(vault.StatusCompleted),
				},
			})
		}
		v.DomainEvents = append(v.DomainEvents, emitted...)

		result = ValidateResult{
			VaultID:         v.ID,
			VaultStatus:     v.Status,
			Milestone:       *milestone,
			ValidationEvent: record,
			EmittedEvents:   emitted,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ValidateResult{}, dErrors.New(dErrors.CodeNotFound, "vault not found")
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return ValidateResult{}, err
		}
		return ValidateResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not validate milestone")
	}

	s.publish(ctx, updated.ID, result.EmittedEvents)
	s.metrics.IncMilestonesValidated()
	if result.VaultStatus == vault.StatusCompleted {
		s.metrics.IncVaultsCompleted()
	}
	s.logger.InfoContext(ctx, "milestone validated",
		"vault_id", updated.ID, "milestone_id", milestoneID,
		"verifier", actorID, "vault_status", result.VaultStatus)

	return result, nil
}
