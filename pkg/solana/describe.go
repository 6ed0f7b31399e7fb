package solana

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/text"
	"github.com/gagliardetto/treeout"

	"airdrop-distributor/pkg/solana/ata"
)

// DescribeInstructions renders instructions as a tree for debug logs.
// Associated-token-account instructions are decoded with the local
// bindings, the registered solana-go decoder does not know CreateIdempotent.
func DescribeInstructions(instrs []solana.Instruction) string {
	doc := treeout.New(fmt.Sprintf("%d instruction(s)", len(instrs)))
	for i, inst := range instrs {
		encodeInstruction(doc.Child(fmt.Sprintf("#%d %s", i, inst.ProgramID())), inst)
	}
	return doc.String()
}

func encodeInstruction(branch treeout.Branches, inst solana.Instruction) {
	if inst.ProgramID().Equals(ata.ProgramID) {
		if data, err := inst.Data(); err == nil {
			if decoded, err := ata.DecodeInstruction(inst.Accounts(), data); err == nil {
				decoded.EncodeToTree(branch)
				return
			}
		}
	}
	if enc, ok := inst.(text.EncodableToTree); ok {
		enc.EncodeToTree(branch)
		return
	}
	branch.Child(spew.Sdump(inst))
}
