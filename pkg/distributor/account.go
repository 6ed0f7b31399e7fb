package distributor

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"airdrop-distributor/pkg/merkle"
)

// AccountDiscriminator prefixes every encoded distributor record, the same
// way Anchor tags its accounts.
var AccountDiscriminator = anchorDiscriminator("account:Distributor")

// Account is the persisted distributor record: root plus bitmap bytes
type Account struct {
	Root   merkle.Digest
	Bitmap []byte
}

func anchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// MarshalWithEncoder writes discriminator || root || u32 len || bitmap
func (a Account) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(AccountDiscriminator[:], false); err != nil {
		return err
	}

	if err := encoder.WriteBytes(a.Root[:], false); err != nil {
		return fmt.Errorf("unable to encode Root: %w", err)
	}

	if err := encoder.WriteUint32(uint32(len(a.Bitmap)), bin.LE); err != nil {
		return fmt.Errorf("unable to encode Bitmap length: %w", err)
	}
	if err := encoder.WriteBytes(a.Bitmap, false); err != nil {
		return fmt.Errorf("unable to encode Bitmap: %w", err)
	}

	return nil
}

// UnmarshalWithDecoder reads a record written by MarshalWithEncoder
func (a *Account) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	discriminator, err := decoder.ReadNBytes(8)
	if err != nil {
		return fmt.Errorf("unable to decode discriminator: %w", err)
	}
	if !bytes.Equal(discriminator, AccountDiscriminator[:]) {
		return fmt.Errorf("%w: unexpected discriminator %x", ErrInvalidAccount, discriminator)
	}

	root, err := decoder.ReadNBytes(merkle.HashSize)
	if err != nil {
		return fmt.Errorf("unable to decode Root: %w", err)
	}
	copy(a.Root[:], root)

	length, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return fmt.Errorf("unable to decode Bitmap length: %w", err)
	}
	if int(length) > decoder.Remaining() {
		return fmt.Errorf("%w: bitmap length %d exceeds %d remaining bytes", ErrInvalidAccount, length, decoder.Remaining())
	}
	raw, err := decoder.ReadNBytes(int(length))
	if err != nil {
		return fmt.Errorf("unable to decode Bitmap: %w", err)
	}
	a.Bitmap = make([]byte, len(raw))
	copy(a.Bitmap, raw)

	return nil
}

// EncodeAccount serializes a record with Borsh
func EncodeAccount(a Account) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(a); err != nil {
		return nil, fmt.Errorf("unable to encode distributor account: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeAccount parses a record produced by EncodeAccount
func DecodeAccount(data []byte) (Account, error) {
	var a Account
	if err := bin.NewBorshDecoder(data).Decode(&a); err != nil {
		return Account{}, fmt.Errorf("unable to decode distributor account: %w", err)
	}
	return a, nil
}
