// Package vault defines the vault aggregate: an escrow-like conditional
// commitment that holds an amount until milestone validation releases it to
// the success destination, or failure/cancellation diverts it.
package vault

import (
	"time"

	id "custodia/pkg/domain"
)

// Status is the vault lifecycle state. Transitions happen only inside the
// lifecycle service; completed, failed and cancelled are terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// MilestoneStatus is the per-milestone sub-state.
type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneValidated MilestoneStatus = "validated"
	MilestoneRejected  MilestoneStatus = "rejected"
)

// Role is the caller's role as asserted by the transport layer.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleVerifier Role = "verifier"
	RoleAdmin    Role = "admin"
)

// Milestone is a sub-goal requiring sign-off by its assigned verifier.
// It resolves at most once: leaving pending is irreversible.
type Milestone struct {
	ID          id.MilestoneID  `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	VerifierID  id.ActorID      `json:"verifierId"`
	Status      MilestoneStatus `json:"status"`
	ValidatedAt *time.Time      `json:"validatedAt"`
	ValidatedBy id.ActorID      `json:"validatedBy,omitempty"`
}

// ValidationRecord is the immutable record of a validation or cancellation
// decision, approved or rejected.
type ValidationRecord struct {
	ID          id.EventID     `json:"id"`
	VaultID     id.VaultID     `json:"vaultId"`
	MilestoneID id.MilestoneID `json:"milestoneId,omitempty"`
	ActorID     id.ActorID     `json:"actorId"`
	Outcome     string         `json:"outcome"` // approved | rejected
	RecordedAt  time.Time      `json:"recordedAt"`
	Notes       string         `json:"notes,omitempty"`
}

const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
)

// DomainEvent is a typed, machine-consumable fact about the vault. External
// subscribers (settlement, notifications) consume these; the engine only
// emits.
type DomainEvent struct {
	ID         id.EventID        `json:"id"`
	Type       EventType         `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	Payload    map[string]string `json:"payload"`
}

// EventType enumerates emitted domain event types.
type EventType string

const (
	EventMilestoneValidated EventType = "milestone.validated"
	EventVaultStateChanged  EventType = "vault.state_changed"
)

// HistoryEntry is the human-auditable narrative counterpart of DomainEvent.
// Both views are retained: events carry structured payloads for machines,
// history carries actor/role/note lines for auditors.
type HistoryEntry struct {
	Action     HistoryAction `json:"action"`
	ActorID    id.ActorID    `json:"actorId"`
	Role       Role          `json:"role,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
	Note       string        `json:"note,omitempty"`
}

// HistoryAction enumerates recorded lifecycle-adjacent actions.
type HistoryAction string

const (
	HistoryCreated         HistoryAction = "created"
	HistoryCancelRequested HistoryAction = "cancel_requested"
	HistoryCancelled       HistoryAction = "cancelled"
	HistoryCancelRejected  HistoryAction = "cancel_rejected"
)

// Vault is the aggregate root. It exclusively owns its milestones, history,
// validation records and domain events; all of those are append-only except
// for milestone status fields.
type Vault struct {
	ID                 id.VaultID `json:"id"`
	Creator            id.ActorID `json:"creator"`
	Amount             string     `json:"amount"` // decimal string, never a float
	StartTimestamp     time.Time  `json:"startTimestamp"`
	EndTimestamp       time.Time  `json:"endTimestamp"`
	SuccessDestination string     `json:"successDestination"`
	FailureDestination string     `json:"failureDestination"`
	Status             Status     `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`

	// Irreversibility markers. Presence gates future transitions: a funded
	// vault, or one with a validated milestone, can no longer be cancelled.
	FundedAt             *time.Time `json:"fundedAt"`
	MilestoneValidatedAt *time.Time `json:"milestoneValidatedAt"`
	CancelledAt          *time.Time `json:"cancelledAt"`

	Milestones        []Milestone        `json:"milestones"`
	History           []HistoryEntry     `json:"history"`
	ValidationRecords []ValidationRecord `json:"validationRecords"`
	DomainEvents      []DomainEvent      `json:"domainEvents"`
}

// Milestone returns a pointer to the milestone with the given id, or nil.
func (v *Vault) Milestone(milestoneID id.MilestoneID) *Milestone {
	for i := range v.Milestones {
		if v.Milestones[i].ID == milestoneID {
			return &v.Milestones[i]
		}
	}
	return nil
}

// AllMilestonesValidated reports whether every milestone has been validated.
// A vault with no milestones never auto-completes.
func (v *Vault) AllMilestonesValidated() bool {
	if len(v.Milestones) == 0 {
		return false
	}
	for _, m := range v.Milestones {
		if m.Status != MilestoneValidated {
			return false
		}
	}
	return true
}

// Clone deep-copies the vault so stores can hand out snapshots without
// exposing internal slices to mutation.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	out := *v
	out.FundedAt = cloneTime(v.FundedAt)
	out.MilestoneValidatedAt = cloneTime(v.MilestoneValidatedAt)
	out.CancelledAt = cloneTime(v.CancelledAt)
	out.Milestones = make([]Milestone, len(v.Milestones))
	for i, m := range v.Milestones {
		m.ValidatedAt = cloneTime(m.ValidatedAt)
		out.Milestones[i] = m
	}
	out.History = append([]HistoryEntry(nil), v.History...)
	out.ValidationRecords = append([]ValidationRecord(nil), v.ValidationRecords...)
	out.DomainEvents = make([]DomainEvent, len(v.DomainEvents))
	for i, e := range v.DomainEvents {
		payload := make(map[string]string, len(e.Payload))
		for k, val := range e.Payload {
			payload[k] = val
		}
		e.Payload = payload
		out.DomainEvents[i] = e
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
