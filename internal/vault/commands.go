package vault

import (
	"time"

	id "custodia/pkg/domain"
)

// CreateVaultInput is the raw creation payload as received from the
// transport layer, before validation and normalization.
type CreateVaultInput struct {
	Creator            string           `json:"creator"`
	Amount             string           `json:"amount"`
	EndTimestamp       string           `json:"endTimestamp"`
	SuccessDestination string           `json:"successDestination"`
	FailureDestination string           `json:"failureDestination"`
	Milestones         []MilestoneInput `json:"milestones,omitempty"`
}

// MilestoneInput is a raw milestone in the creation payload. ID is optional;
// the engine generates one when absent.
type MilestoneInput struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	VerifierID  string `json:"verifierId"`
}

// CreateVaultCommand is the normalized, validated form of CreateVaultInput.
// Timestamps are canonical UTC; the lifecycle service never re-parses input.
// The idempotency fingerprint is computed over this shape, so semantically
// identical retries match regardless of incidental formatting.
type CreateVaultCommand struct {
	Creator            id.ActorID         `json:"creator"`
	Amount             string             `json:"amount"`
	EndTimestamp       time.Time          `json:"endTimestamp"`
	SuccessDestination string             `json:"successDestination"`
	FailureDestination string             `json:"failureDestination"`
	Milestones         []MilestoneCommand `json:"milestones"`
}

// MilestoneCommand is a validated milestone within a CreateVaultCommand.
type MilestoneCommand struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	VerifierID  id.ActorID `json:"verifierId"`
}
