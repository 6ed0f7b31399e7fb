package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"

	"airdrop-distributor/pkg/api"
	"airdrop-distributor/pkg/models"
)

func main() {
	var (
		serverURL   string
		address     string
		proofsPath  string
		onlyIndex   int64
		statusOnly  bool
		waitTimeout time.Duration
	)
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "distribution service URL")
	flag.StringVar(&address, "distributor", "", "distributor address")
	flag.StringVar(&proofsPath, "proofs", "", "proof file produced by the merkle tool")
	flag.Int64Var(&onlyIndex, "index", -1, "claim only this allocation index (default: every allocation of the wallet)")
	flag.BoolVar(&statusOnly, "status", false, "only report whether the allocations were claimed")
	flag.DurationVar(&waitTimeout, "timeout", 2*time.Minute, "request timeout")
	flag.Parse()

	logger := log.New(os.Stdout, "[CLAIM] ", log.LstdFlags)

	privateKey := os.Getenv("WALLET_PRIVATE_KEY")
	if address == "" || proofsPath == "" || privateKey == "" {
		fmt.Println("Usage: WALLET_PRIVATE_KEY=<key> claim -distributor <address> -proofs <proofs.json> [-index N] [-server URL] [-status]")
		os.Exit(1)
	}

	wallet, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil {
		logger.Fatalf("Invalid private key: %v", err)
	}

	raw, err := os.ReadFile(proofsPath)
	if err != nil {
		logger.Fatalf("Failed to read proof file: %v", err)
	}
	var proofs models.ProofFile
	if err := json.Unmarshal(raw, &proofs); err != nil {
		logger.Fatalf("Failed to parse proof file: %v", err)
	}

	entries := selectEntries(proofs.Entries(wallet.PublicKey().String()), onlyIndex)
	if len(entries) == 0 {
		logger.Fatalf("Wallet %s has no matching allocation in %s", wallet.PublicKey(), proofsPath)
	}
	logger.Printf("Found %d allocation(s) for %s", len(entries), wallet.PublicKey())

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()

	client := api.NewClient(serverURL, logger)

	failed := 0
	for _, entry := range entries {
		if err := claimEntry(ctx, client, wallet, address, entry, statusOnly, logger); err != nil {
			logger.Printf("Claim of index %d failed: %v", entry.Index, err)
			failed++
		}
	}
	if failed > 0 {
		logger.Fatalf("%d of %d claim(s) failed", failed, len(entries))
	}
}

// selectEntries keeps only index when it is not negative
func selectEntries(entries []models.ProofEntry, index int64) []models.ProofEntry {
	if index < 0 {
		return entries
	}
	for _, entry := range entries {
		if entry.Index == uint64(index) {
			return []models.ProofEntry{entry}
		}
	}
	return nil
}

func claimEntry(ctx context.Context, client *api.Client, wallet solana.PrivateKey, address string, entry models.ProofEntry, statusOnly bool, logger *log.Logger) error {
	logger.Printf("Allocation: index %d, amount %d", entry.Index, entry.Amount)

	status, err := client.GetClaim(ctx, address, entry.Index)
	if err != nil {
		return fmt.Errorf("failed to get claim status: %w", err)
	}
	if status.Claimed {
		logger.Printf("Allocation %d already claimed", entry.Index)
		if status.Receipt != nil {
			logger.Printf("Destination: %s, Transaction: %s", status.Receipt.Destination, status.Receipt.TxHash)
		}
		return nil
	}
	if statusOnly {
		logger.Printf("Allocation %d not claimed yet", entry.Index)
		return nil
	}

	req, err := api.NewSignedClaim(wallet, address, entry, time.Now())
	if err != nil {
		return fmt.Errorf("failed to sign claim: %w", err)
	}

	resp, err := client.Claim(ctx, address, req)
	if err != nil {
		return err
	}
	logger.Printf("Claimed %d tokens into %s. Receipt: %s, Transaction: %s",
		entry.Amount, resp.Destination, resp.ReceiptID, resp.TxHash)
	return nil
}
