package solana

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"airdrop-distributor/pkg/distributor"
)

// ErrInsufficientFunds is returned when the ledger cannot cover a transfer
var ErrInsufficientFunds = errors.New("insufficient vault balance")

// LedgerVault keeps balances in memory. It pays into the same associated
// token account addresses the SPL vault would, which makes it a drop-in
// replacement for local runs and tests.
type LedgerVault struct {
	mu       sync.Mutex
	mint     solana.PublicKey
	balance  uint64
	accounts map[solana.PublicKey]uint64
}

func NewLedgerVault(mint solana.PublicKey, balance uint64) *LedgerVault {
	return &LedgerVault{
		mint:     mint,
		balance:  balance,
		accounts: make(map[solana.PublicKey]uint64),
	}
}

func (l *LedgerVault) Transfer(ctx context.Context, recipient solana.PublicKey, amount uint64) (distributor.TransferResult, error) {
	if amount == 0 {
		return distributor.TransferResult{}, ErrZeroAmount
	}
	if err := ctx.Err(); err != nil {
		return distributor.TransferResult{}, err
	}
	destination, err := FindDestinationAddress(recipient, l.mint)
	if err != nil {
		return distributor.TransferResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance < amount {
		return distributor.TransferResult{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, l.balance, amount)
	}
	l.balance -= amount
	// created on first credit, reused afterwards
	l.accounts[destination] += amount

	return distributor.TransferResult{Destination: destination}, nil
}

// Balance returns what is left in the vault
func (l *LedgerVault) Balance() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// BalanceOf returns the token balance credited to the recipient
func (l *LedgerVault) BalanceOf(recipient solana.PublicKey) uint64 {
	destination, err := FindDestinationAddress(recipient, l.mint)
	if err != nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[destination]
}
