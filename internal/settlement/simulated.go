package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"custodia/internal/vault"
	id "custodia/pkg/domain"
)

const instructionTypeEscrowCreate = "escrow.create"

// Simulated fulfils the Adapter contract without a real ledger. By default
// cancellations confirm synchronously; WithDeferredConfirmation models the
// production submitted -> confirmed progression by returning an unconfirmed
// transaction.
type Simulated struct {
	clock    id.Clock
	deferred bool
}

// SimulatedOption configures the Simulated adapter.
type SimulatedOption func(*Simulated)

// WithDeferredConfirmation makes SubmitCancellation return status submitted
// with no confirmation time.
func WithDeferredConfirmation() SimulatedOption {
	return func(s *Simulated) { s.deferred = true }
}

func NewSimulated(clock id.Clock, opts ...SimulatedOption) *Simulated {
	s := &Simulated{clock: clock}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Simulated) BuildCreationInstruction(v *vault.Vault) Instruction {
	return Instruction{
		Type:               instructionTypeEscrowCreate,
		VaultID:            v.ID,
		Amount:             v.Amount,
		SuccessDestination: v.SuccessDestination,
		FailureDestination: v.FailureDestination,
		StartTimestamp:     v.StartTimestamp,
		EndTimestamp:       v.EndTimestamp,
	}
}

func (s *Simulated) SubmitCancellation(ctx context.Context, v *vault.Vault, _ string) (CancellationTx, error) {
	if err := ctx.Err(); err != nil {
		return CancellationTx{}, fmt.Errorf("submit cancellation for vault %s: %w", v.ID, err)
	}
	now := s.clock.Now()
	tx := CancellationTx{
		TxID:        "0x" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:      TxSubmitted,
		SubmittedAt: now,
	}
	if !s.deferred {
		tx.Status = TxConfirmed
		tx.ConfirmedAt = &now
	}
	return tx, nil
}
