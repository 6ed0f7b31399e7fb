package merkle

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/treeout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = solana.MustPublicKeyFromBase58("SkatebLAUZ9cmbayrLE3wWao3VuFsb1eGE3R7mCs2X2")
	bob   = solana.MustPublicKeyFromBase58("EeNF8G475Y7NGYJasMiB3c1u51JfzJKKYqzXmvTb3GTf")
	carol = solana.MustPublicKeyFromBase58("J7cV46t2BLkoHWvmrcG1nK3wgB2D1EmHLko29bEDbnpV")
)

func TestHashIsLegacyKeccak(t *testing.T) {
	// keccak256("") differs from sha3-256("")
	empty := Hash()
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", empty.String())
}

func TestLeafDigestLayout(t *testing.T) {
	var idx, amt [8]byte
	binary.LittleEndian.PutUint64(idx[:], 7)
	binary.LittleEndian.PutUint64(amt[:], 1_000)

	var preimage []byte
	preimage = append(preimage, idx[:]...)
	preimage = append(preimage, alice.Bytes()...)
	preimage = append(preimage, amt[:]...)

	assert.Equal(t, Hash(preimage), LeafDigest(7, alice, 1_000))
	assert.NotEqual(t, LeafDigest(7, alice, 1_000), LeafDigest(7, bob, 1_000))
}

func TestHashPairIsOrderIndependent(t *testing.T) {
	a := LeafDigest(0, alice, 100)
	b := LeafDigest(1, bob, 50)

	assert.Equal(t, HashPair(a, b), HashPair(b, a))

	lo, hi := a, b
	if bytes.Compare(a[:], b[:]) > 0 {
		lo, hi = b, a
	}
	assert.Equal(t, Hash(lo[:], hi[:]), HashPair(a, b))
}

func TestVerifyTwoLeafScenario(t *testing.T) {
	l0 := LeafDigest(0, alice, 100)
	l1 := LeafDigest(1, bob, 50)
	root := HashPair(l0, l1)

	assert.True(t, Verify([]Digest{l1}, root, l0))
	assert.True(t, Verify([]Digest{l0}, root, l1))
	assert.False(t, Verify([]Digest{l1}, root, l1), "wrong sibling must be rejected")
	assert.False(t, Verify(nil, root, l0))
}

func TestVerifyEmptyProof(t *testing.T) {
	leaf := LeafDigest(0, alice, 100)

	assert.True(t, Verify(nil, leaf, leaf))
	assert.True(t, Verify([]Digest{}, leaf, leaf))
	assert.False(t, Verify(nil, LeafDigest(0, alice, 101), leaf))
}

func buildAllocations(n int) []Allocation {
	recipients := []solana.PublicKey{alice, bob, carol}
	out := make([]Allocation, n)
	for i := range out {
		out[i] = Allocation{
			Index:     uint64(i),
			Recipient: recipients[i%len(recipients)],
			Amount:    uint64(1_000 + i*37),
		}
	}
	return out
}

func TestTreeProofCompleteness(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 13, 64, 100} {
		allocations := buildAllocations(n)
		tree, err := NewTree(allocations)
		require.NoError(t, err)

		root := tree.Root()
		for _, a := range allocations {
			proof, err := tree.Proof(a.Index)
			require.NoError(t, err)
			assert.True(t, Verify(proof, root, a.Leaf()), "n=%d index=%d", n, a.Index)
		}
	}
}

func TestTreeSingleLeafRootIsLeaf(t *testing.T) {
	tree, err := NewTree([]Allocation{{Index: 0, Recipient: alice, Amount: 100}})
	require.NoError(t, err)

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	assert.Empty(t, proof)
	assert.Equal(t, LeafDigest(0, alice, 100), tree.Root())
}

func TestTreeMatchesTwoLeafRoot(t *testing.T) {
	tree, err := NewTree([]Allocation{
		{Index: 0, Recipient: alice, Amount: 100},
		{Index: 1, Recipient: bob, Amount: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, HashPair(LeafDigest(0, alice, 100), LeafDigest(1, bob, 50)), tree.Root())
}

func TestTamperSensitivity(t *testing.T) {
	allocations := buildAllocations(9)
	tree, err := NewTree(allocations)
	require.NoError(t, err)
	root := tree.Root()

	target := allocations[4]
	proof, err := tree.Proof(target.Index)
	require.NoError(t, err)
	require.True(t, Verify(proof, root, target.Leaf()))

	assert.False(t, Verify(proof, root, LeafDigest(target.Index+1, target.Recipient, target.Amount)), "index")
	assert.False(t, Verify(proof, root, LeafDigest(target.Index, target.Recipient, target.Amount+1)), "amount")
	assert.False(t, Verify(proof, root, LeafDigest(target.Index, target.Recipient, target.Amount^(1<<56))), "amount high byte")

	tamperedRecipient := target.Recipient
	tamperedRecipient[31] ^= 0x01
	assert.False(t, Verify(proof, root, LeafDigest(target.Index, tamperedRecipient, target.Amount)), "recipient")

	for i := range proof {
		for _, pos := range []int{0, 17, 31} {
			tampered := make([]Digest, len(proof))
			copy(tampered, proof)
			tampered[i][pos] ^= 0x80
			assert.False(t, Verify(tampered, root, target.Leaf()), "sibling %d byte %d", i, pos)
		}
	}

	assert.False(t, Verify(proof[:len(proof)-1], root, target.Leaf()), "truncated proof")
}

func TestProofFromDifferentTreeIsRejected(t *testing.T) {
	first, err := NewTree(buildAllocations(6))
	require.NoError(t, err)

	other := buildAllocations(6)
	other[5].Amount++
	second, err := NewTree(other)
	require.NoError(t, err)

	a := other[2]
	proof, err := second.Proof(a.Index)
	require.NoError(t, err)
	assert.False(t, Verify(proof, first.Root(), a.Leaf()))
}

func TestNewTreeErrors(t *testing.T) {
	_, err := NewTree(nil)
	assert.ErrorIs(t, err, ErrEmptyTree)

	_, err = NewTree([]Allocation{
		{Index: 3, Recipient: alice, Amount: 1},
		{Index: 3, Recipient: bob, Amount: 2},
	})
	assert.ErrorIs(t, err, ErrDuplicateIndex)

	tree, err := NewTree(buildAllocations(2))
	require.NoError(t, err)
	_, err = tree.Proof(42)
	assert.ErrorIs(t, err, ErrUnknownIndex)
}

func TestSparseIndices(t *testing.T) {
	allocations := []Allocation{
		{Index: 1_000_000, Recipient: alice, Amount: 5},
		{Index: 3, Recipient: bob, Amount: 6},
		{Index: 77, Recipient: carol, Amount: 7},
	}
	tree, err := NewTree(allocations)
	require.NoError(t, err)

	for _, a := range allocations {
		proof, err := tree.Proof(a.Index)
		require.NoError(t, err)
		assert.True(t, Verify(proof, tree.Root(), a.Leaf()))

		got, ok := tree.Allocation(a.Index)
		assert.True(t, ok)
		assert.Equal(t, a, got)
	}
}

func TestParseDigest(t *testing.T) {
	d := LeafDigest(1, bob, 50)

	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	parsed, err = ParseDigest("0x" + d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = ParseDigest("abcd")
	assert.Error(t, err)
	_, err = ParseDigest("zz")
	assert.Error(t, err)
}

func TestEncodeToTree(t *testing.T) {
	tree, err := NewTree(buildAllocations(3))
	require.NoError(t, err)

	out := treeout.New("distribution")
	tree.EncodeToTree(out)
	rendered := out.String()

	assert.Contains(t, rendered, tree.Root().String())
	assert.Equal(t, 3, strings.Count(rendered, "leaf "))
}
