package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-distributor/pkg/distributor"
	"airdrop-distributor/pkg/merkle"
)

var (
	distA = solana.MustPublicKeyFromBase58("J7cV46t2BLkoHWvmrcG1nK3wgB2D1EmHLko29bEDbnpV")
	distB = solana.MustPublicKeyFromBase58("7EJfcAv4EkAxRtg9QG8xRHWKdmg74BS4JyckKqXBuriw")
	alice = solana.MustPublicKeyFromBase58("SkatebLAUZ9cmbayrLE3wWao3VuFsb1eGE3R7mCs2X2")
)

func stores(t *testing.T) map[string]Store {
	bolt, err := NewBoltStore(filepath.Join(t.TempDir(), "data", "distributor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	return map[string]Store{
		"bolt":   bolt,
		"memory": NewInMemoryStore(),
	}
}

func TestDistributorRecords(t *testing.T) {
	root := merkle.LeafDigest(0, alice, 100)

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetDistributor(distA)
			assert.ErrorIs(t, err, ErrDistributorNotFound)

			err = s.SaveDistributor(distA, distributor.Account{Root: root})
			assert.ErrorIs(t, err, ErrDistributorNotFound, "save never creates")

			require.NoError(t, s.CreateDistributor(distA, distributor.Account{Root: root, Bitmap: []byte{}}))
			err = s.CreateDistributor(distA, distributor.Account{Root: root})
			assert.ErrorIs(t, err, ErrDistributorExists)

			require.NoError(t, s.SaveDistributor(distA, distributor.Account{Root: root, Bitmap: []byte{0x00, 0x04}}))
			account, err := s.GetDistributor(distA)
			require.NoError(t, err)
			assert.Equal(t, root, account.Root)
			assert.Equal(t, []byte{0x00, 0x04}, account.Bitmap)

			require.NoError(t, s.CreateDistributor(distB, distributor.Account{Root: root}))
			list, err := s.ListDistributors()
			require.NoError(t, err)
			assert.ElementsMatch(t, []solana.PublicKey{distA, distB}, list)
		})
	}
}

func TestReceipts(t *testing.T) {
	receipt := distributor.Receipt{
		ID:        uuid.New(),
		Event:     distributor.Claimed{Index: 3, Account: alice, Amount: 77},
		Leaf:      merkle.LeafDigest(3, alice, 77),
		Transfer:  distributor.TransferResult{Destination: alice, Signature: "5sig"},
		ClaimedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetReceipt(distA, 3)
			assert.ErrorIs(t, err, ErrReceiptNotFound)

			require.NoError(t, s.SaveReceipt(distA, receipt))

			got, err := s.GetReceipt(distA, 3)
			require.NoError(t, err)
			assert.Equal(t, receipt, got)

			_, err = s.GetReceipt(distB, 3)
			assert.ErrorIs(t, err, ErrReceiptNotFound, "receipts are scoped per distributor")
		})
	}
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distributor.db")
	root := merkle.LeafDigest(1, alice, 5)

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateDistributor(distA, distributor.Account{Root: root, Bitmap: []byte{0x02}}))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	account, err := s.GetDistributor(distA)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, account.Bitmap)
}
