// Package ata extends the associated-token-account program bindings with
// the CreateIdempotent instruction, which solana-go does not ship.
//
// The decoder is not registered with solana.RegisterInstructionDecoder:
// solana-go's associated-token-account package registers the same program
// id in its init and a second registration panics. Callers that need to
// read ATA instructions back use DecodeInstruction.
package ata

import (
	"bytes"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/text"
	"github.com/gagliardetto/treeout"
)

var ProgramID = solana.SPLAssociatedTokenAccountProgramID

const ProgramName = "AssociatedTokenAccount"

// Instruction ids, written as the first data byte
const (
	Instruction_Create uint8 = iota
	Instruction_CreateIdempotent
)

var variants = bin.NewVariantDefinition(
	bin.Uint8TypeIDEncoding,
	[]bin.VariantType{
		{Name: "Create", Type: (*associatedtokenaccount.Create)(nil)},
		{Name: "CreateIdempotent", Type: (*CreateIdempotent)(nil)},
	},
)

// Instruction is one built or decoded ATA program instruction
type Instruction struct {
	bin.BaseVariant
}

var _ solana.Instruction = (*Instruction)(nil)

func (inst *Instruction) ProgramID() solana.PublicKey {
	return ProgramID
}

func (inst *Instruction) Accounts() []*solana.AccountMeta {
	return inst.Impl.(solana.AccountsGettable).GetAccounts()
}

func (inst *Instruction) Data() ([]byte, error) {
	var buf bytes.Buffer
	if err := bin.NewBinEncoder(&buf).Encode(inst); err != nil {
		return nil, fmt.Errorf("failed to encode %s instruction: %w", ProgramName, err)
	}
	return buf.Bytes(), nil
}

// EncodeToTree renders the instruction for debug output
func (inst *Instruction) EncodeToTree(parent treeout.Branches) {
	if impl, ok := inst.Impl.(text.EncodableToTree); ok {
		impl.EncodeToTree(parent)
		return
	}
	parent.Child(spew.Sdump(inst.Impl))
}

func (inst Instruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(inst.TypeID.Uint8()); err != nil {
		return fmt.Errorf("failed to write instruction id: %w", err)
	}
	return encoder.Encode(inst.Impl)
}

func (inst *Instruction) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return inst.BaseVariant.UnmarshalBinaryVariant(decoder, variants)
}

// DecodeInstruction reads compiled instruction data back into an Instruction
// and attaches its accounts
func DecodeInstruction(accounts []*solana.AccountMeta, data []byte) (*Instruction, error) {
	inst := new(Instruction)
	if err := bin.NewBinDecoder(data).Decode(inst); err != nil {
		return nil, fmt.Errorf("failed to decode %s instruction: %w", ProgramName, err)
	}
	if settable, ok := inst.Impl.(solana.AccountsSettable); ok {
		if err := settable.SetAccounts(accounts); err != nil {
			return nil, fmt.Errorf("failed to attach accounts: %w", err)
		}
	}
	return inst, nil
}
