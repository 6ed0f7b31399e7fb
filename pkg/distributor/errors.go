package distributor

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrAlreadyClaimed is returned when the index bit is already set
	ErrAlreadyClaimed = errors.New("already claimed")
	// ErrInvalidProof is returned when the proof does not rebuild the root
	ErrInvalidProof = errors.New("invalid proof")
	// ErrInvalidAccount is returned when a distributor record cannot be decoded
	ErrInvalidAccount = errors.New("invalid distributor account")
	// ErrTransferUnconfirmed is wrapped by vaults when a transfer was sent
	// but its outcome could not be determined
	ErrTransferUnconfirmed = errors.New("transfer outcome unknown")
)

// TransferError wraps a failure of the vault transfer. The claim it belongs
// to has been rolled back, unless Err wraps ErrTransferUnconfirmed: then
// the index stays claimed until an operator reconciles it.
type TransferError struct {
	Index     uint64
	Recipient solana.PublicKey
	Amount    uint64
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %d to %s for index %d failed: %v", e.Amount, e.Recipient, e.Index, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Unconfirmed reports whether the transfer may still land
func (e *TransferError) Unconfirmed() bool {
	return errors.Is(e.Err, ErrTransferUnconfirmed)
}
