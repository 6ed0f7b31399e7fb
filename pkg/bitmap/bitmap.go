// Package bitmap tracks claimed allocation indices as a lazily grown bit
// vector. Storage is proportional to the highest claimed index.
package bitmap

import "math/bits"

// Bitmap addresses index i as bit i%8 of byte i/8.
// Indices beyond the current length read as unclaimed.
type Bitmap struct {
	bits []byte
}

// New returns an empty bitmap
func New() *Bitmap {
	return &Bitmap{}
}

// FromBytes wraps a copy of raw as a bitmap
func FromBytes(raw []byte) *Bitmap {
	b := &Bitmap{bits: make([]byte, len(raw))}
	copy(b.bits, raw)
	return b
}

func locate(index uint64) (uint64, byte) {
	return index / 8, byte(1) << (index % 8)
}

// IsClaimed reports whether index has been marked
func (b *Bitmap) IsClaimed(index uint64) bool {
	byteIdx, mask := locate(index)
	if byteIdx >= uint64(len(b.bits)) {
		return false
	}
	return b.bits[byteIdx]&mask != 0
}

// MarkClaimed sets the bit for index, growing the bitmap to byteIdx+1
// zero-filled bytes first when needed. Marking a set bit is a no-op.
func (b *Bitmap) MarkClaimed(index uint64) {
	byteIdx, mask := locate(index)
	if byteIdx >= uint64(len(b.bits)) {
		grown := make([]byte, byteIdx+1)
		copy(grown, b.bits)
		b.bits = grown
	}
	b.bits[byteIdx] |= mask
}

// Len returns the bitmap length in bytes
func (b *Bitmap) Len() int {
	return len(b.bits)
}

// Bytes returns a copy of the underlying bytes
func (b *Bitmap) Bytes() []byte {
	out := make([]byte, len(b.bits))
	copy(out, b.bits)
	return out
}

// Count returns the number of claimed indices
func (b *Bitmap) Count() uint64 {
	var n uint64
	for _, v := range b.bits {
		n += uint64(bits.OnesCount8(v))
	}
	return n
}

// Snapshot captures what MarkClaimed(index) is about to change
type Snapshot struct {
	index  uint64
	length int
	prior  byte
}

// SnapshotFor records the state touched by marking index
func (b *Bitmap) SnapshotFor(index uint64) Snapshot {
	byteIdx, _ := locate(index)
	s := Snapshot{index: index, length: len(b.bits)}
	if byteIdx < uint64(len(b.bits)) {
		s.prior = b.bits[byteIdx]
	}
	return s
}

// Restore undoes a MarkClaimed taken after s was captured.
// It is only valid while the caller still holds exclusive access and no
// other mark happened in between.
func (b *Bitmap) Restore(s Snapshot) {
	byteIdx, _ := locate(s.index)
	if byteIdx >= uint64(s.length) {
		b.bits = b.bits[:s.length:s.length]
		return
	}
	b.bits[byteIdx] = s.prior
}
