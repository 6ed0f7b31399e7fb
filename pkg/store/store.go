// Package store persists distributor records and claim receipts
package store

import (
	"encoding/binary"
	"errors"

	"github.com/gagliardetto/solana-go"

	"airdrop-distributor/pkg/distributor"
)

var (
	ErrDistributorNotFound = errors.New("distributor not found")
	ErrDistributorExists   = errors.New("distributor already exists")
	ErrReceiptNotFound     = errors.New("receipt not found")
)

// Store is the persistence layer for distribution instances
type Store interface {
	// CreateDistributor fails with ErrDistributorExists if address is taken
	CreateDistributor(address solana.PublicKey, account distributor.Account) error
	GetDistributor(address solana.PublicKey) (distributor.Account, error)
	// SaveDistributor overwrites an existing record
	SaveDistributor(address solana.PublicKey, account distributor.Account) error
	ListDistributors() ([]solana.PublicKey, error)
	SaveReceipt(address solana.PublicKey, receipt distributor.Receipt) error
	GetReceipt(address solana.PublicKey, index uint64) (distributor.Receipt, error)
	Close() error
}

func receiptKey(address solana.PublicKey, index uint64) []byte {
	key := make([]byte, solana.PublicKeyLength+8)
	copy(key, address.Bytes())
	binary.BigEndian.PutUint64(key[solana.PublicKeyLength:], index)
	return key
}
