package service

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sln "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-distributor/pkg/distributor"
	"airdrop-distributor/pkg/merkle"
	sol "airdrop-distributor/pkg/solana"
	"airdrop-distributor/pkg/store"
)

var testMint = sln.MustPublicKeyFromBase58("BuNonfvszzm6dJuzigNbde7qGNmcSYxT64erw3Wboop")

type recordingSink struct {
	mu     sync.Mutex
	events []distributor.Claimed
	err    error
}

func (r *recordingSink) Publish(ctx context.Context, addr sln.PublicKey, event distributor.Claimed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

type failingVault struct{}

func (failingVault) Transfer(ctx context.Context, recipient sln.PublicKey, amount uint64) (distributor.TransferResult, error) {
	return distributor.TransferResult{}, errors.New("vault offline")
}

func testTree(t *testing.T) *merkle.Tree {
	t.Helper()
	var allocations []merkle.Allocation
	for i := 0; i < 5; i++ {
		allocations = append(allocations, merkle.Allocation{
			Index:     uint64(i),
			Recipient: sln.NewWallet().PublicKey(),
			Amount:    uint64(100 * (i + 1)),
		})
	}
	tree, err := merkle.NewTree(allocations)
	require.NoError(t, err)
	return tree
}

func claimRequest(t *testing.T, tree *merkle.Tree, index uint64) distributor.ClaimRequest {
	t.Helper()
	alloc, ok := tree.Allocation(index)
	require.True(t, ok)
	proof, err := tree.Proof(index)
	require.NoError(t, err)
	return distributor.ClaimRequest{
		Index:     alloc.Index,
		Recipient: alloc.Recipient,
		Amount:    alloc.Amount,
		Proof:     proof,
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestInitDerivesAddressAndRejectsReinit(t *testing.T) {
	tree := testTree(t)
	svc := NewDistributionService(store.NewInMemoryStore(), sol.NewLedgerVault(testMint, 10_000), testMint, sol.DefaultProgramID, quietLogger())

	addr, err := svc.Init(context.Background(), tree.Root())
	require.NoError(t, err)

	expected, _, err := sol.FindDistributorPDA(testMint, tree.Root(), sol.DefaultProgramID)
	require.NoError(t, err)
	assert.Equal(t, expected, addr)

	_, err = svc.Init(context.Background(), tree.Root())
	assert.ErrorIs(t, err, store.ErrDistributorExists)

	status, err := svc.Status(addr)
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), status.Root)
	assert.Equal(t, testMint, status.Mint)
	assert.Zero(t, status.Claimed)
}

func TestClaimFlow(t *testing.T) {
	tree := testTree(t)
	vault := sol.NewLedgerVault(testMint, 10_000)
	sink := &recordingSink{err: errors.New("sink down")}
	st := store.NewInMemoryStore()
	svc := NewDistributionService(st, vault, testMint, sol.DefaultProgramID, quietLogger(), sink)

	addr, err := svc.Init(context.Background(), tree.Root())
	require.NoError(t, err)

	req := claimRequest(t, tree, 2)
	receipt, err := svc.Claim(context.Background(), addr, req)
	require.NoError(t, err, "sink failures do not fail the claim")

	assert.Equal(t, distributor.Claimed{Index: 2, Account: req.Recipient, Amount: 300}, receipt.Event)
	assert.Equal(t, uint64(300), vault.BalanceOf(req.Recipient))
	assert.Equal(t, uint64(9_700), vault.Balance())
	assert.Len(t, sink.events, 1)

	claimed, err := svc.IsClaimed(addr, 2)
	require.NoError(t, err)
	assert.True(t, claimed)

	stored, err := svc.Receipt(addr, 2)
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, stored.ID)

	account, err := st.GetDistributor(addr)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04}, account.Bitmap)

	_, err = svc.Claim(context.Background(), addr, req)
	assert.ErrorIs(t, err, distributor.ErrAlreadyClaimed)
	assert.Equal(t, uint64(300), vault.BalanceOf(req.Recipient))
}

func TestClaimUnknownDistributor(t *testing.T) {
	svc := NewDistributionService(store.NewInMemoryStore(), sol.NewLedgerVault(testMint, 1), testMint, sol.DefaultProgramID, quietLogger())

	_, err := svc.Claim(context.Background(), sln.NewWallet().PublicKey(), distributor.ClaimRequest{})
	assert.ErrorIs(t, err, store.ErrDistributorNotFound)

	_, err = svc.Status(sln.NewWallet().PublicKey())
	assert.ErrorIs(t, err, store.ErrDistributorNotFound)
}

func TestFailedTransferIsPersistedAsUnclaimed(t *testing.T) {
	tree := testTree(t)
	st := store.NewInMemoryStore()
	svc := NewDistributionService(st, failingVault{}, testMint, sol.DefaultProgramID, quietLogger())

	addr, err := svc.Init(context.Background(), tree.Root())
	require.NoError(t, err)

	_, err = svc.Claim(context.Background(), addr, claimRequest(t, tree, 0))
	var transferErr *distributor.TransferError
	require.ErrorAs(t, err, &transferErr)

	account, err := st.GetDistributor(addr)
	require.NoError(t, err)
	assert.Empty(t, account.Bitmap)

	_, err = svc.Receipt(addr, 0)
	assert.ErrorIs(t, err, store.ErrReceiptNotFound)
}

func TestClaimsSurviveRestart(t *testing.T) {
	tree := testTree(t)
	dbPath := filepath.Join(t.TempDir(), "distributor.db")
	vault := sol.NewLedgerVault(testMint, 10_000)

	st, err := store.NewBoltStore(dbPath)
	require.NoError(t, err)
	svc := NewDistributionService(st, vault, testMint, sol.DefaultProgramID, quietLogger())
	addr, err := svc.Init(context.Background(), tree.Root())
	require.NoError(t, err)
	_, err = svc.Claim(context.Background(), addr, claimRequest(t, tree, 4))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reopened, err := store.NewBoltStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	restarted := NewDistributionService(reopened, vault, testMint, sol.DefaultProgramID, quietLogger())

	_, err = restarted.Claim(context.Background(), addr, claimRequest(t, tree, 4))
	assert.ErrorIs(t, err, distributor.ErrAlreadyClaimed)

	_, err = restarted.Claim(context.Background(), addr, claimRequest(t, tree, 1))
	assert.NoError(t, err)

	status, err := restarted.Status(addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.Claimed)
}

func TestConcurrentClaimsPayOnce(t *testing.T) {
	tree := testTree(t)
	vault := sol.NewLedgerVault(testMint, 10_000)
	svc := NewDistributionService(store.NewInMemoryStore(), vault, testMint, sol.DefaultProgramID, quietLogger())
	addr, err := svc.Init(context.Background(), tree.Root())
	require.NoError(t, err)

	req := claimRequest(t, tree, 3)
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Claim(context.Background(), addr, req); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, uint64(400), vault.BalanceOf(req.Recipient))
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports map[sln.PublicKey]int
}

func (r *recordingNotifier) SendStatusMessage(ctx context.Context, addr sln.PublicKey, claimed int, uptime time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[addr] = claimed
	return nil
}

func TestStatusMonitorReportsProgress(t *testing.T) {
	tree := testTree(t)
	svc := NewDistributionService(store.NewInMemoryStore(), sol.NewLedgerVault(testMint, 10_000), testMint, sol.DefaultProgramID, quietLogger())
	addr, err := svc.Init(context.Background(), tree.Root())
	require.NoError(t, err)

	notifier := &recordingNotifier{reports: make(map[sln.PublicKey]int)}
	monitor := NewStatusMonitor(svc, notifier, time.Hour, quietLogger())

	monitor.report(context.Background())
	assert.Empty(t, notifier.reports, "nothing claimed yet")

	_, err = svc.Claim(context.Background(), addr, claimRequest(t, tree, 0))
	require.NoError(t, err)
	monitor.report(context.Background())
	assert.Equal(t, 1, notifier.reports[addr])

	monitor.Start(context.Background())
	monitor.Stop()
}

func TestStatusMonitorStopTwice(t *testing.T) {
	svc := NewDistributionService(store.NewInMemoryStore(), sol.NewLedgerVault(testMint, 10_000), testMint, sol.DefaultProgramID, quietLogger())
	monitor := NewStatusMonitor(svc, nil, time.Hour, quietLogger())

	monitor.Start(context.Background())
	assert.NotPanics(t, func() {
		monitor.Stop()
		monitor.Stop()
	})
}

func TestStatusMonitorNonPositiveIntervalDisabled(t *testing.T) {
	svc := NewDistributionService(store.NewInMemoryStore(), sol.NewLedgerVault(testMint, 10_000), testMint, sol.DefaultProgramID, quietLogger())

	for _, interval := range []time.Duration{0, -time.Second} {
		monitor := NewStatusMonitor(svc, nil, interval, quietLogger())
		assert.NotPanics(t, func() {
			monitor.Start(context.Background())
			monitor.Stop()
		})
	}
}
