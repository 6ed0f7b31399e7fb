package merkle

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/treeout"
)

var (
	ErrEmptyTree      = errors.New("allocation list is empty")
	ErrDuplicateIndex = errors.New("duplicate allocation index")
	ErrUnknownIndex   = errors.New("index is not part of the tree")
)

// Allocation is one entry of the distribution list
type Allocation struct {
	Index     uint64           `json:"index"`
	Recipient solana.PublicKey `json:"recipient"`
	Amount    uint64           `json:"amount"`
}

// Leaf returns the leaf digest for the allocation
func (a Allocation) Leaf() Digest {
	return LeafDigest(a.Index, a.Recipient, a.Amount)
}

// Tree is a sorted-pair Merkle tree over a fixed allocation list.
// Levels[0] holds the leaves in input order, the last level holds the root.
// A node without a sibling is promoted to the next level unchanged.
type Tree struct {
	Levels      [][]Digest
	allocations []Allocation
	positions   map[uint64]int
}

// NewTree builds the tree for allocations
func NewTree(allocations []Allocation) (*Tree, error) {
	if len(allocations) == 0 {
		return nil, ErrEmptyTree
	}

	t := &Tree{
		allocations: make([]Allocation, len(allocations)),
		positions:   make(map[uint64]int, len(allocations)),
	}
	copy(t.allocations, allocations)

	leaves := make([]Digest, len(allocations))
	for i, a := range allocations {
		if _, exists := t.positions[a.Index]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateIndex, a.Index)
		}
		t.positions[a.Index] = i
		leaves[i] = a.Leaf()
	}
	t.Levels = append(t.Levels, leaves)

	for level := leaves; len(level) > 1; {
		next := make([]Digest, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		t.Levels = append(t.Levels, next)
		level = next
	}

	return t, nil
}

// Root returns the committed root
func (t *Tree) Root() Digest {
	return t.Levels[len(t.Levels)-1][0]
}

// Allocations returns the allocation list in leaf order
func (t *Tree) Allocations() []Allocation {
	out := make([]Allocation, len(t.allocations))
	copy(out, t.allocations)
	return out
}

// Allocation looks up the entry for index
func (t *Tree) Allocation(index uint64) (Allocation, bool) {
	pos, ok := t.positions[index]
	if !ok {
		return Allocation{}, false
	}
	return t.allocations[pos], true
}

// Proof returns the sibling path for the allocation with the given index
func (t *Tree) Proof(index uint64) ([]Digest, error) {
	pos, ok := t.positions[index]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndex, index)
	}

	proof := make([]Digest, 0, len(t.Levels)-1)
	for _, level := range t.Levels[:len(t.Levels)-1] {
		sibling := pos ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		pos /= 2
	}
	return proof, nil
}

// EncodeToTree renders the tree top-down, root first
func (t *Tree) EncodeToTree(parent treeout.Branches) {
	top := len(t.Levels) - 1
	parent.Child(fmt.Sprintf("root %s", t.Root())).ParentFunc(func(branch treeout.Branches) {
		t.encodeNode(branch, top, 0)
	})
}

func (t *Tree) encodeNode(branch treeout.Branches, level, pos int) {
	if level == 0 {
		return
	}
	below := t.Levels[level-1]
	for _, child := range []int{pos * 2, pos*2 + 1} {
		if child >= len(below) {
			continue
		}
		label := below[child].String()
		if level-1 == 0 {
			a := t.allocations[child]
			label = fmt.Sprintf("leaf %s [index=%d recipient=%s amount=%d]", label, a.Index, a.Recipient, a.Amount)
		}
		childLevel, childPos := level-1, child
		branch.Child(label).ParentFunc(func(sub treeout.Branches) {
			t.encodeNode(sub, childLevel, childPos)
		})
	}
}
