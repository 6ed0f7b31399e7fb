package merkle

// Verify reports whether leaf is included under root via proof.
// Siblings are consumed leaf to root; each step hashes the pair in sorted
// order. An empty proof is valid only when leaf == root.
func Verify(proof []Digest, root Digest, leaf Digest) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = HashPair(computed, sibling)
	}
	return computed == root
}
