// Package merkle implements the keccak-256 sorted-pair Merkle scheme used by
// the distributor: leaf digests, proof verification and an off-chain tree
// builder that produces roots and proofs for an allocation list.
package merkle

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/sha3"
)

// HashSize is the size of every digest in the tree
const HashSize = 32

// Digest is a 32-byte keccak-256 digest
type Digest [HashSize]byte

// String returns the hex encoding of the digest
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText encodes the digest as hex
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a hex digest, with or without a 0x prefix
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest decodes a hex string into a Digest
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("invalid digest hex: %w", err)
	}
	if len(raw) != HashSize {
		return d, fmt.Errorf("invalid digest length: expected %d bytes, got %d", HashSize, len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// Hash returns keccak256 over the concatenation of parts.
// This is the legacy (pre-NIST) keccak used by the Solana keccak syscall.
func Hash(parts ...[]byte) Digest {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out Digest
	h.Sum(out[:0])
	return out
}

// LeafDigest computes keccak256(index_le || recipient || amount_le)
func LeafDigest(index uint64, recipient solana.PublicKey, amount uint64) Digest {
	var idx, amt [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)
	binary.LittleEndian.PutUint64(amt[:], amount)
	return Hash(idx[:], recipient.Bytes(), amt[:])
}

// HashPair combines two nodes in sorted order, so the parent does not depend
// on which side each child was on.
func HashPair(a, b Digest) Digest {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return Hash(a[:], b[:])
	}
	return Hash(b[:], a[:])
}
