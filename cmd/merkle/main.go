package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/treeout"

	"airdrop-distributor/pkg/merkle"
	"airdrop-distributor/pkg/models"
)

func main() {
	var (
		inPath   string
		outPath  string
		showTree bool
		debug    bool
	)
	flag.StringVar(&inPath, "in", "", "allocations CSV: [index,]recipient,amount")
	flag.StringVar(&outPath, "out", "", "write the proof file here instead of stdout")
	flag.BoolVar(&showTree, "tree", false, "print the tree to stderr")
	flag.BoolVar(&debug, "debug", false, "dump parsed allocations to stderr")
	flag.Parse()

	logger := log.New(os.Stderr, "[MERKLE] ", log.LstdFlags)

	if inPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: merkle -in allocations.csv [-out proofs.json] [-tree] [-debug]")
		os.Exit(1)
	}

	file, err := os.Open(inPath)
	if err != nil {
		logger.Fatalf("Failed to open allocations: %v", err)
	}
	defer file.Close()

	allocations, err := readAllocations(file)
	if err != nil {
		logger.Fatalf("Failed to read allocations: %v", err)
	}
	if debug {
		spew.Fdump(os.Stderr, allocations)
	}

	tree, err := merkle.NewTree(allocations)
	if err != nil {
		logger.Fatalf("Failed to build tree: %v", err)
	}
	logger.Printf("Built tree over %d allocation(s), root %s", len(allocations), tree.Root())

	if showTree {
		doc := treeout.New("distribution")
		tree.EncodeToTree(doc)
		fmt.Fprintln(os.Stderr, doc.String())
	}

	proofFile, err := buildProofFile(tree)
	if err != nil {
		logger.Fatalf("Failed to build proofs: %v", err)
	}

	out := io.Writer(os.Stdout)
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			logger.Fatalf("Failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(proofFile); err != nil {
		logger.Fatalf("Failed to write proofs: %v", err)
	}
}

// readAllocations parses rows of "index,recipient,amount" or
// "recipient,amount". Without an index column rows are numbered from 0.
// A first row whose amount is not a number is treated as a header.
func readAllocations(r io.Reader) ([]merkle.Allocation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV data: %w", err)
	}

	var allocations []merkle.Allocation
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		var alloc merkle.Allocation
		var recipient, amount string
		switch len(row) {
		case 2:
			alloc.Index = uint64(len(allocations))
			recipient, amount = row[0], row[1]
		case 3:
			index, err := strconv.ParseUint(strings.TrimSpace(row[0]), 10, 64)
			if err != nil {
				if i == 0 {
					continue
				}
				return nil, fmt.Errorf("row %d: invalid index: %w", i+1, err)
			}
			alloc.Index = index
			recipient, amount = row[1], row[2]
		default:
			return nil, fmt.Errorf("row %d: expected 2 or 3 columns, got %d", i+1, len(row))
		}

		alloc.Amount, err = strconv.ParseUint(strings.TrimSpace(amount), 10, 64)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: invalid amount: %w", i+1, err)
		}
		alloc.Recipient, err = solana.PublicKeyFromBase58(strings.TrimSpace(recipient))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid recipient: %w", i+1, err)
		}
		allocations = append(allocations, alloc)
	}

	if len(allocations) == 0 {
		return nil, errors.New("no allocations found")
	}
	return allocations, nil
}

func buildProofFile(tree *merkle.Tree) (models.ProofFile, error) {
	out := models.ProofFile{Root: tree.Root().String()}
	for _, alloc := range tree.Allocations() {
		proof, err := tree.Proof(alloc.Index)
		if err != nil {
			return models.ProofFile{}, err
		}
		entry := models.ProofEntry{
			Index:     alloc.Index,
			Recipient: alloc.Recipient.String(),
			Amount:    alloc.Amount,
			Leaf:      alloc.Leaf().String(),
			Proof:     make([]string, len(proof)),
		}
		for i, p := range proof {
			entry.Proof[i] = p.String()
		}
		if out.Total > math.MaxUint64-alloc.Amount {
			return models.ProofFile{}, fmt.Errorf("total allocation overflows uint64 at index %d", alloc.Index)
		}
		out.Total += alloc.Amount
		out.Claims = append(out.Claims, entry)
	}
	return out, nil
}
