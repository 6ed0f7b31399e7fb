package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrTransactionFailed means the cluster executed the transaction and it errored
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrTransactionExpired means the blockhash expired before the transaction landed
	ErrTransactionExpired = errors.New("transaction expired before confirmation")
	// ErrConfirmationTimeout means no final outcome was observed in time and
	// the transaction may still land
	ErrConfirmationTimeout = errors.New("timed out waiting for confirmation")
)

type statusSource interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

// WaitForConfirmation polls the signature status until the transaction is
// confirmed, fails, or can no longer land because lastValidBlockHeight has
// passed. Only ErrTransactionFailed and ErrTransactionExpired are final
// failures; ErrConfirmationTimeout means the transaction may still land.
// RPC errors are retried until ctx is done.
func WaitForConfirmation(ctx context.Context, node statusSource, sig solana.Signature, lastValidBlockHeight uint64, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		expired bool
		lastErr error
	)
	for {
		status, err := signatureStatus(ctx, node, sig)
		switch {
		case err != nil:
			lastErr = err
		case status != nil:
			if status.Err != nil {
				return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		case expired:
			// absent after expiry was observed, it cannot land anymore
			return ErrTransactionExpired
		case lastValidBlockHeight > 0:
			height, err := node.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
			if err != nil {
				lastErr = fmt.Errorf("failed to get block height: %w", err)
			} else if height > lastValidBlockHeight {
				// it may have landed between the status query and now
				expired = true
				continue
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%w: %s: %v (last error: %v)", ErrConfirmationTimeout, sig, ctx.Err(), lastErr)
			}
			return fmt.Errorf("%w: %s: %v", ErrConfirmationTimeout, sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func signatureStatus(ctx context.Context, node statusSource, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	out, err := node.GetSignatureStatuses(ctx, true, sig)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}
