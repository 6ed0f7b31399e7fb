// Package distributor holds the state of one Merkle airdrop distribution and
// the claim state machine that runs against it.
package distributor

import (
	"sync"

	"airdrop-distributor/pkg/bitmap"
	"airdrop-distributor/pkg/merkle"
)

// Distributor is one distribution instance: an immutable root plus the
// claim bitmap. All access goes through its mutex, so claims on the same
// instance are serialized while separate instances never contend.
type Distributor struct {
	mu     sync.Mutex
	root   merkle.Digest
	claims *bitmap.Bitmap
}

// Init creates a distributor for root with nothing claimed
func Init(root merkle.Digest) *Distributor {
	return &Distributor{
		root:   root,
		claims: bitmap.New(),
	}
}

// FromAccount restores a distributor from its persisted record
func FromAccount(account Account) *Distributor {
	return &Distributor{
		root:   account.Root,
		claims: bitmap.FromBytes(account.Bitmap),
	}
}

// Root returns the committed Merkle root
func (d *Distributor) Root() merkle.Digest {
	return d.root
}

// IsClaimed reports whether index has been claimed
func (d *Distributor) IsClaimed(index uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.claims.IsClaimed(index)
}

// ClaimedCount returns how many indices have been claimed
func (d *Distributor) ClaimedCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.claims.Count()
}

// Account returns a snapshot of the persisted record
func (d *Distributor) Account() Account {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accountLocked()
}

func (d *Distributor) accountLocked() Account {
	return Account{
		Root:   d.root,
		Bitmap: d.claims.Bytes(),
	}
}
