// Package settlement is the single point of contact with the external
// ledger. It translates lifecycle decisions into outbound instruction
// payloads and interprets confirmations; it never moves funds itself.
package settlement

import (
	"context"
	"time"

	"custodia/internal/vault"
	id "custodia/pkg/domain"
)

//go:generate mockgen -source=adapter.go -destination=mocks/mock_adapter.go -package=mocks Adapter

// TxStatus is the state of an outbound ledger transaction.
type TxStatus string

const (
	TxSubmitted TxStatus = "submitted"
	TxConfirmed TxStatus = "confirmed"
)

// Instruction is the escrow creation payload handed to the external ledger.
// Building it is a pure, deterministic mapping of vault fields.
type Instruction struct {
	Type               string     `json:"type"`
	VaultID            id.VaultID `json:"vaultId"`
	Amount             string     `json:"amount"`
	SuccessDestination string     `json:"successDestination"`
	FailureDestination string     `json:"failureDestination"`
	StartTimestamp     time.Time  `json:"startTimestamp"`
	EndTimestamp       time.Time  `json:"endTimestamp"`
}

// CancellationTx reports the outcome of an on-chain cancellation submission.
// ConfirmedAt is nil while the transaction is still in flight; the lifecycle
// service then stamps cancelledAt from the request time instead.
type CancellationTx struct {
	TxID        string     `json:"txId"`
	Status      TxStatus   `json:"status"`
	SubmittedAt time.Time  `json:"submittedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt"`
}

// Adapter is the settlement port. SubmitCancellation must honor ctx
// cancellation/deadline; a timeout surfaces as an error, never as a state
// transition.
type Adapter interface {
	BuildCreationInstruction(v *vault.Vault) Instruction
	SubmitCancellation(ctx context.Context, v *vault.Vault, reason string) (CancellationTx, error)
}
