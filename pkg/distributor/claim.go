package distributor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"airdrop-distributor/pkg/merkle"
)

// ClaimRequest is one claim attempt. Recipient is the authenticated caller;
// it is hashed into the leaf, so a proof only works for its own recipient.
type ClaimRequest struct {
	Index     uint64
	Recipient solana.PublicKey
	Amount    uint64
	Proof     []merkle.Digest
}

// TransferResult describes a completed vault transfer
type TransferResult struct {
	Destination solana.PublicKey `json:"destination"`
	Signature   string           `json:"signature,omitempty"`
}

// Vault moves tokens out of the pre-funded holding account controlled by
// the distributor. Implementations provision the destination on first use.
type Vault interface {
	Transfer(ctx context.Context, recipient solana.PublicKey, amount uint64) (TransferResult, error)
}

// Checkpointer persists the distributor record. Claim calls it after
// marking the index and before transferring, and again after a rollback.
type Checkpointer interface {
	Checkpoint(ctx context.Context, account Account) error
}

// Receipt is returned for a successful claim
type Receipt struct {
	ID        uuid.UUID      `json:"id"`
	Event     Claimed        `json:"event"`
	Leaf      merkle.Digest  `json:"leaf"`
	Transfer  TransferResult `json:"transfer"`
	ClaimedAt time.Time      `json:"claimed_at"`
}

// Claim runs one claim to completion or not at all:
//
//  1. reject if the index is already claimed
//  2. compute the leaf for (index, recipient, amount)
//  3. reject if the proof does not rebuild the root
//  4. mark the index claimed (and checkpoint it, if cp is set)
//  5. transfer amount from the vault to the recipient
//  6. return the receipt carrying the Claimed event
//
// Marking happens before the transfer. If the transfer fails the mark is
// undone before the lock is released, so nobody observes a claimed index
// without funds moved. A transfer whose outcome is unknown
// (ErrTransferUnconfirmed) keeps the mark: reopening the index while the
// transaction can still land would pay it twice.
func (d *Distributor) Claim(ctx context.Context, req ClaimRequest, vault Vault, cp Checkpointer) (*Receipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.claims.IsClaimed(req.Index) {
		return nil, ErrAlreadyClaimed
	}

	leaf := merkle.LeafDigest(req.Index, req.Recipient, req.Amount)
	if !merkle.Verify(req.Proof, d.root, leaf) {
		return nil, ErrInvalidProof
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := d.claims.SnapshotFor(req.Index)
	d.claims.MarkClaimed(req.Index)

	if cp != nil {
		if err := cp.Checkpoint(ctx, d.accountLocked()); err != nil {
			d.claims.Restore(snapshot)
			return nil, fmt.Errorf("failed to persist claim for index %d: %w", req.Index, err)
		}
	}

	result, err := vault.Transfer(ctx, req.Recipient, req.Amount)
	if err != nil {
		transferErr := &TransferError{
			Index:     req.Index,
			Recipient: req.Recipient,
			Amount:    req.Amount,
			Err:       err,
		}
		if transferErr.Unconfirmed() {
			return nil, transferErr
		}
		d.claims.Restore(snapshot)
		if cp != nil {
			// the restore must reach storage too, otherwise the index stays
			// claimed after a restart
			if cpErr := cp.Checkpoint(context.WithoutCancel(ctx), d.accountLocked()); cpErr != nil {
				return nil, errors.Join(transferErr, fmt.Errorf("failed to persist rollback for index %d: %w", req.Index, cpErr))
			}
		}
		return nil, transferErr
	}

	return &Receipt{
		ID: uuid.New(),
		Event: Claimed{
			Index:   req.Index,
			Account: req.Recipient,
			Amount:  req.Amount,
		},
		Leaf:      leaf,
		Transfer:  result,
		ClaimedAt: time.Now().UTC(),
	}, nil
}
