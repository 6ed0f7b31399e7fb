package solana

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"airdrop-distributor/pkg/distributor"
	"airdrop-distributor/pkg/solana/ata"
)

// ErrZeroAmount is returned for transfers of nothing
var ErrZeroAmount = errors.New("transfer amount must be positive")

// RPCClient is the subset of *rpc.Client the vault needs
type RPCClient interface {
	blockhashSource
	statusSource
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// VaultConfig tunes transaction building and confirmation
type VaultConfig struct {
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
	ConfirmTimeout   time.Duration
	PollInterval     time.Duration
	SkipPreflight    bool
	// Debug logs every transaction as an instruction tree before sending
	Debug bool
}

// DefaultVaultConfig provides default settings for vault transfers
var DefaultVaultConfig = VaultConfig{
	ComputeUnitLimit: 80_000,
	ComputeUnitPrice: 50_000,
	ConfirmTimeout:   90 * time.Second,
	PollInterval:     2 * time.Second,
}

// SPLVault pays allocations from a token account owned by the vault
// authority. The authority signs and pays fees, including rent for
// destination accounts it has to create.
type SPLVault struct {
	client      RPCClient
	authority   solana.PrivateKey
	mint        solana.PublicKey
	source      solana.PublicKey
	config      VaultConfig
	blockhashes *BlockhashCache
	logger      *log.Logger
}

// NewSPLVault creates a vault paying out of the authority's associated
// token account for mint
func NewSPLVault(client RPCClient, authority solana.PrivateKey, mint solana.PublicKey, cfg VaultConfig, logger *log.Logger) (*SPLVault, error) {
	if len(authority) == 0 {
		return nil, fmt.Errorf("vault authority key not configured")
	}
	source, err := FindDestinationAddress(authority.PublicKey(), mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault token account: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultVaultConfig.PollInterval
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultVaultConfig.ConfirmTimeout
	}

	return &SPLVault{
		client:      client,
		authority:   authority,
		mint:        mint,
		source:      source,
		config:      cfg,
		blockhashes: NewBlockhashCache(20 * time.Second),
		logger:      logger,
	}, nil
}

// Source returns the token account allocations are paid from
func (v *SPLVault) Source() solana.PublicKey {
	return v.source
}

// BuildTransferInstructions returns the instructions moving amount to the
// recipient's associated token account, creating it if it does not exist
func (v *SPLVault) BuildTransferInstructions(recipient solana.PublicKey, amount uint64) ([]solana.Instruction, solana.PublicKey, error) {
	if amount == 0 {
		return nil, solana.PublicKey{}, ErrZeroAmount
	}
	destination, err := FindDestinationAddress(recipient, v.mint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	payer := v.authority.PublicKey()

	var instrs []solana.Instruction
	if v.config.ComputeUnitLimit > 0 {
		instrs = append(instrs, computebudget.NewSetComputeUnitLimitInstruction(v.config.ComputeUnitLimit).Build())
	}
	if v.config.ComputeUnitPrice > 0 {
		instrs = append(instrs, computebudget.NewSetComputeUnitPriceInstruction(v.config.ComputeUnitPrice).Build())
	}

	createATA, err := ata.NewCreateIdempotentInstruction(payer, recipient, v.mint).ValidateAndBuild()
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to build create account instruction: %w", err)
	}
	instrs = append(instrs, createATA)

	transfer, err := token.NewTransferInstruction(
		amount,
		v.source,
		destination,
		payer,
		nil,
	).ValidateAndBuild()
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to build transfer instruction: %w", err)
	}
	instrs = append(instrs, transfer)

	return instrs, destination, nil
}

// Transfer sends amount to the recipient and waits until the transaction is
// confirmed. An error wrapping distributor.ErrTransferUnconfirmed means the
// transaction was sent and may still land; any other error means it did not.
func (v *SPLVault) Transfer(ctx context.Context, recipient solana.PublicKey, amount uint64) (distributor.TransferResult, error) {
	instrs, destination, err := v.BuildTransferInstructions(recipient, amount)
	if err != nil {
		return distributor.TransferResult{}, err
	}

	block, err := v.blockhashes.Get(ctx, v.client)
	if err != nil {
		return distributor.TransferResult{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	if v.config.Debug {
		v.logger.Printf("Transfer of %d to %s:\n%s", amount, destination, DescribeInstructions(instrs))
	}

	payer := v.authority.PublicKey()
	tx, err := solana.NewTransaction(
		instrs,
		block.Blockhash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return distributor.TransferResult{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	if _, err = tx.Sign(
		func(key solana.PublicKey) *solana.PrivateKey {
			if payer.Equals(key) {
				return &v.authority
			}
			return nil
		},
	); err != nil {
		return distributor.TransferResult{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := v.client.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       v.config.SkipPreflight,
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return distributor.TransferResult{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	v.logger.Printf("Transfer of %d to %s sent. Signature: %s", amount, destination, sig)

	// the transaction is in flight, a cancelled caller must not cut the wait short
	confirmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.config.ConfirmTimeout)
	defer cancel()

	result := distributor.TransferResult{
		Destination: destination,
		Signature:   sig.String(),
	}
	if err := WaitForConfirmation(confirmCtx, v.client, sig, block.LastValidBlockHeight, v.config.PollInterval); err != nil {
		if errors.Is(err, ErrConfirmationTimeout) {
			v.logger.Printf("WARNING: Transfer %s to %s has no final outcome, leaving it for reconciliation", sig, destination)
			return result, fmt.Errorf("transfer %s: %w: %w", sig, distributor.ErrTransferUnconfirmed, err)
		}
		return distributor.TransferResult{}, fmt.Errorf("transfer %s not confirmed: %w", sig, err)
	}

	return result, nil
}
