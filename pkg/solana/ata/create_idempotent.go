package ata

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/treeout"
)

// CreateIdempotent creates the associated token account for (wallet, mint)
// unless it already exists, in which case it succeeds without changes.
type CreateIdempotent struct {
	Payer  solana.PublicKey `bin:"-" borsh_skip:"true"`
	Wallet solana.PublicKey `bin:"-" borsh_skip:"true"`
	Mint   solana.PublicKey `bin:"-" borsh_skip:"true"`

	// [0] = [WRITE, SIGNER] Payer
	// [1] = [WRITE] AssociatedTokenAccount
	// [2] = [] Wallet
	// [3] = [] TokenMint
	// [4] = [] SystemProgram
	// [5] = [] TokenProgram
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

// NewCreateIdempotentInstruction declares the instruction for wallet's ATA
func NewCreateIdempotentInstruction(payer, wallet, mint solana.PublicKey) *CreateIdempotent {
	return &CreateIdempotent{
		Payer:  payer,
		Wallet: wallet,
		Mint:   mint,
	}
}

func (inst *CreateIdempotent) Validate() error {
	if inst.Payer.IsZero() {
		return errors.New("Payer not set")
	}
	if inst.Wallet.IsZero() {
		return errors.New("Wallet not set")
	}
	if inst.Mint.IsZero() {
		return errors.New("Mint not set")
	}
	return nil
}

func (inst CreateIdempotent) Build() *Instruction {
	associatedTokenAddress, _, _ := solana.FindAssociatedTokenAddress(inst.Wallet, inst.Mint)

	inst.AccountMetaSlice = solana.AccountMetaSlice{
		solana.Meta(inst.Payer).WRITE().SIGNER(),
		solana.Meta(associatedTokenAddress).WRITE(),
		solana.Meta(inst.Wallet),
		solana.Meta(inst.Mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	}

	return &Instruction{BaseVariant: bin.BaseVariant{
		Impl:   &inst,
		TypeID: bin.TypeIDFromUint8(Instruction_CreateIdempotent),
	}}
}

func (inst CreateIdempotent) ValidateAndBuild() (*Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

// SetAccounts attaches decoded accounts and restores the named fields
func (inst *CreateIdempotent) SetAccounts(accounts []*solana.AccountMeta) error {
	if len(accounts) < 6 {
		return fmt.Errorf("CreateIdempotent needs 6 accounts, got %d", len(accounts))
	}
	inst.AccountMetaSlice = accounts
	inst.Payer = accounts[0].PublicKey
	inst.Wallet = accounts[2].PublicKey
	inst.Mint = accounts[3].PublicKey
	return nil
}

func (inst *CreateIdempotent) EncodeToTree(parent treeout.Branches) {
	parent.Child("Program: " + ProgramName).ParentFunc(func(programBranch treeout.Branches) {
		programBranch.Child("Instruction: CreateIdempotent").ParentFunc(func(instructionBranch treeout.Branches) {
			instructionBranch.Child("Accounts").ParentFunc(func(accountsBranch treeout.Branches) {
				names := []string{"payer", "associatedTokenAddress", "wallet", "tokenMint", "systemProgram", "tokenProgram"}
				for i, name := range names {
					if meta := inst.AccountMetaSlice.Get(i); meta != nil {
						accountsBranch.Child(name + ": " + meta.PublicKey.String())
					}
				}
			})
		})
	})
}

func (inst CreateIdempotent) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteBytes([]byte{}, false)
}

func (inst *CreateIdempotent) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return nil
}
