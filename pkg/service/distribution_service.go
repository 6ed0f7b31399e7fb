package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/gagliardetto/solana-go"

	"airdrop-distributor/pkg/distributor"
	"airdrop-distributor/pkg/merkle"
	sol "airdrop-distributor/pkg/solana"
	"airdrop-distributor/pkg/store"
)

// Status summarizes one distributor
type Status struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Root    merkle.Digest    `json:"root"`
	Claimed uint64           `json:"claimed"`
}

// DistributionService runs distribution rounds of one token. Each round is
// a Distributor stored under its program derived address.
type DistributionService struct {
	store     store.Store
	vault     distributor.Vault
	mint      solana.PublicKey
	programID solana.PublicKey
	sinks     []distributor.EventSink
	logger    *log.Logger

	mu        sync.Mutex
	instances map[solana.PublicKey]*distributor.Distributor
}

// NewDistributionService creates a new service with the provided dependencies
func NewDistributionService(st store.Store, vault distributor.Vault, mint, programID solana.PublicKey, logger *log.Logger, sinks ...distributor.EventSink) *DistributionService {
	return &DistributionService{
		store:     st,
		vault:     vault,
		mint:      mint,
		programID: programID,
		sinks:     sinks,
		logger:    logger,
		instances: make(map[solana.PublicKey]*distributor.Distributor),
	}
}

// Mint returns the token this service distributes
func (s *DistributionService) Mint() solana.PublicKey {
	return s.mint
}

// Address returns the distributor address for root without creating it
func (s *DistributionService) Address(root merkle.Digest) (solana.PublicKey, error) {
	addr, _, err := sol.FindDistributorPDA(s.mint, root, s.programID)
	return addr, err
}

// Init creates a distributor for root with nothing claimed. It fails with
// store.ErrDistributorExists if the round was already initialized.
func (s *DistributionService) Init(ctx context.Context, root merkle.Digest) (solana.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return solana.PublicKey{}, err
	}
	addr, err := s.Address(root)
	if err != nil {
		return solana.PublicKey{}, err
	}

	d := distributor.Init(root)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.CreateDistributor(addr, d.Account()); err != nil {
		return solana.PublicKey{}, err
	}
	s.instances[addr] = d

	s.logger.Printf("Initialized distributor %s with root %s", addr, root)
	return addr, nil
}

// instance returns the live distributor for address, loading it once
func (s *DistributionService) instance(address solana.PublicKey) (*distributor.Distributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.instances[address]; ok {
		return d, nil
	}

	account, err := s.store.GetDistributor(address)
	if err != nil {
		return nil, err
	}
	d := distributor.FromAccount(account)
	s.instances[address] = d
	return d, nil
}

// storeCheckpointer writes claim progress of one distributor to the store
type storeCheckpointer struct {
	store   store.Store
	address solana.PublicKey
}

func (c storeCheckpointer) Checkpoint(ctx context.Context, account distributor.Account) error {
	return c.store.SaveDistributor(c.address, account)
}

// Claim runs a claim against the distributor at address. After the
// transfer succeeded, receipt storage and event delivery failures are only
// logged; the claim itself has already happened.
func (s *DistributionService) Claim(ctx context.Context, address solana.PublicKey, req distributor.ClaimRequest) (*distributor.Receipt, error) {
	d, err := s.instance(address)
	if err != nil {
		return nil, err
	}

	s.logger.Printf("Claiming index %d of %s for %s, amount %d", req.Index, address, req.Recipient, req.Amount)

	receipt, err := d.Claim(ctx, req, s.vault, storeCheckpointer{store: s.store, address: address})
	if errors.Is(err, distributor.ErrTransferUnconfirmed) {
		s.logger.Printf("WARNING: Index %d on %s stays claimed pending reconciliation: %v", req.Index, address, err)
		return nil, err
	}
	if err != nil {
		s.logger.Printf("Claim of index %d on %s rejected: %v", req.Index, address, err)
		return nil, err
	}

	s.logger.Printf("Claim of index %d on %s complete. Destination: %s, Signature: %s",
		req.Index, address, receipt.Transfer.Destination, receipt.Transfer.Signature)

	if err := s.store.SaveReceipt(address, *receipt); err != nil {
		s.logger.Printf("WARNING: Failed to save receipt for index %d on %s: %v", req.Index, address, err)
	}

	publishCtx := context.WithoutCancel(ctx)
	for _, sink := range s.sinks {
		if err := sink.Publish(publishCtx, address, receipt.Event); err != nil {
			s.logger.Printf("WARNING: Failed to publish claim event: %v", err)
		}
	}

	return receipt, nil
}

// IsClaimed reports whether index has been claimed on the distributor
func (s *DistributionService) IsClaimed(address solana.PublicKey, index uint64) (bool, error) {
	d, err := s.instance(address)
	if err != nil {
		return false, err
	}
	return d.IsClaimed(index), nil
}

// Status returns the root and claim count of a distributor
func (s *DistributionService) Status(address solana.PublicKey) (Status, error) {
	d, err := s.instance(address)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Address: address,
		Mint:    s.mint,
		Root:    d.Root(),
		Claimed: d.ClaimedCount(),
	}, nil
}

// Receipt returns the stored receipt of a claimed index
func (s *DistributionService) Receipt(address solana.PublicKey, index uint64) (distributor.Receipt, error) {
	return s.store.GetReceipt(address, index)
}

// List returns the addresses of all known distributors
func (s *DistributionService) List() ([]solana.PublicKey, error) {
	return s.store.ListDistributors()
}
