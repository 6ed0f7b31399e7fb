package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DefaultProgramID is the distribution program address distributors are
// derived under
var DefaultProgramID = solana.MustPublicKeyFromBase58("Fdrop11111111111111111111111111111111111111")

// FindDistributorPDA derives the distributor address for a distribution
// round of a token. The root is part of the seeds, so one tree maps to
// exactly one address.
func FindDistributorPDA(mint solana.PublicKey, root [32]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		[]byte("dist"),
		mint.Bytes(),
		root[:],
	}

	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to find program address: %w", err)
	}

	return addr, bump, nil
}

// FindDestinationAddress returns the associated token account that receives
// a recipient's allocation
func FindDestinationAddress(recipient solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find associated token address: %w", err)
	}
	return addr, nil
}
