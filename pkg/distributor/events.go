package distributor

import (
	"bytes"
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ClaimedDiscriminator tags an encoded Claimed event
var ClaimedDiscriminator = anchorDiscriminator("event:Claimed")

// Claimed is emitted once per successful claim
type Claimed struct {
	Index   uint64           `json:"index"`
	Account solana.PublicKey `json:"account"`
	Amount  uint64           `json:"amount"`
}

// EventSink receives Claimed events after a claim commits
type EventSink interface {
	Publish(ctx context.Context, distributor solana.PublicKey, event Claimed) error
}

func (e Claimed) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(ClaimedDiscriminator[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(e.Index, bin.LE); err != nil {
		return fmt.Errorf("unable to encode Index: %w", err)
	}
	if err := encoder.WriteBytes(e.Account.Bytes(), false); err != nil {
		return fmt.Errorf("unable to encode Account: %w", err)
	}
	if err := encoder.WriteUint64(e.Amount, bin.LE); err != nil {
		return fmt.Errorf("unable to encode Amount: %w", err)
	}
	return nil
}

func (e *Claimed) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	discriminator, err := decoder.ReadNBytes(8)
	if err != nil {
		return fmt.Errorf("unable to decode event discriminator: %w", err)
	}
	if !bytes.Equal(discriminator, ClaimedDiscriminator[:]) {
		return fmt.Errorf("unexpected event discriminator %x", discriminator)
	}

	if e.Index, err = decoder.ReadUint64(bin.LE); err != nil {
		return fmt.Errorf("unable to decode Index: %w", err)
	}
	account, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("unable to decode Account: %w", err)
	}
	e.Account = solana.PublicKeyFromBytes(account)
	if e.Amount, err = decoder.ReadUint64(bin.LE); err != nil {
		return fmt.Errorf("unable to decode Amount: %w", err)
	}
	return nil
}

// EncodeEvent serializes the event the way an Anchor program logs it
func EncodeEvent(e Claimed) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(e); err != nil {
		return nil, fmt.Errorf("unable to encode Claimed event: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeEvent parses an encoded Claimed event
func DecodeEvent(data []byte) (Claimed, error) {
	var e Claimed
	if err := bin.NewBorshDecoder(data).Decode(&e); err != nil {
		return Claimed{}, err
	}
	return e, nil
}
