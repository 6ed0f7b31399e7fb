package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"airdrop-distributor/pkg/distributor"
)

type receiptID struct {
	address solana.PublicKey
	index   uint64
}

// inMemoryStore is a map-backed Store for tests and ephemeral runs
type inMemoryStore struct {
	mu           sync.RWMutex
	distributors map[solana.PublicKey]distributor.Account
	receipts     map[receiptID]distributor.Receipt
}

// NewInMemoryStore creates an empty in-memory store
func NewInMemoryStore() Store {
	return &inMemoryStore{
		distributors: make(map[solana.PublicKey]distributor.Account),
		receipts:     make(map[receiptID]distributor.Receipt),
	}
}

func cloneAccount(a distributor.Account) distributor.Account {
	out := distributor.Account{Root: a.Root, Bitmap: make([]byte, len(a.Bitmap))}
	copy(out.Bitmap, a.Bitmap)
	return out
}

func (s *inMemoryStore) CreateDistributor(address solana.PublicKey, account distributor.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.distributors[address]; exists {
		return fmt.Errorf("%w: %s", ErrDistributorExists, address)
	}
	s.distributors[address] = cloneAccount(account)
	return nil
}

func (s *inMemoryStore) GetDistributor(address solana.PublicKey) (distributor.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, exists := s.distributors[address]
	if !exists {
		return distributor.Account{}, fmt.Errorf("%w: %s", ErrDistributorNotFound, address)
	}
	return cloneAccount(account), nil
}

func (s *inMemoryStore) SaveDistributor(address solana.PublicKey, account distributor.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.distributors[address]; !exists {
		return fmt.Errorf("%w: %s", ErrDistributorNotFound, address)
	}
	s.distributors[address] = cloneAccount(account)
	return nil
}

func (s *inMemoryStore) ListDistributors() ([]solana.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]solana.PublicKey, 0, len(s.distributors))
	for address := range s.distributors {
		out = append(out, address)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (s *inMemoryStore) SaveReceipt(address solana.PublicKey, receipt distributor.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[receiptID{address: address, index: receipt.Event.Index}] = receipt
	return nil
}

func (s *inMemoryStore) GetReceipt(address solana.PublicKey, index uint64) (distributor.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receipt, exists := s.receipts[receiptID{address: address, index: index}]
	if !exists {
		return distributor.Receipt{}, fmt.Errorf("%w: %s/%d", ErrReceiptNotFound, address, index)
	}
	return receipt, nil
}

func (s *inMemoryStore) Close() error {
	return nil
}
