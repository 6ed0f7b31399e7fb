package notifications

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"airdrop-distributor/pkg/distributor"
)

var claimHeader = []string{"Timestamp", "Distributor", "Index", "Recipient", "Amount"}

// ClaimRecord is one row of the claim log
type ClaimRecord struct {
	Timestamp   time.Time
	Distributor solana.PublicKey
	Event       distributor.Claimed
}

// ClaimRecorder appends Claimed events to monthly CSV files
type ClaimRecorder struct {
	dataDir string
	mu      sync.Mutex
	now     func() time.Time
}

// NewClaimRecorder creates a new claim recorder
func NewClaimRecorder(dataDir string) (*ClaimRecorder, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &ClaimRecorder{
		dataDir: dataDir,
		now:     time.Now,
	}, nil
}

// Publish writes the event to the current month's file
func (s *ClaimRecorder) Publish(ctx context.Context, distributorAddr solana.PublicKey, event distributor.Claimed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	filename := fmt.Sprintf("claims_%s.csv", now.Format("2006-01"))
	path := filepath.Join(s.dataDir, filename)

	fileExists := false
	if _, err := os.Stat(path); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open claims file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if !fileExists {
		if err := writer.Write(claimHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	record := []string{
		now.Format(time.RFC3339),
		distributorAddr.String(),
		strconv.FormatUint(event.Index, 10),
		event.Account.String(),
		strconv.FormatUint(event.Amount, 10),
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	writer.Flush()
	return writer.Error()
}

// Records reads back every recorded claim, oldest file first
func (s *ClaimRecorder) Records() ([]ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(s.dataDir, "claims_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to find claim files: %w", err)
	}

	var out []ClaimRecord
	for _, path := range files {
		records, err := readClaimFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func readClaimFile(path string) ([]ClaimRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open claims file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV data: %w", err)
	}

	var out []ClaimRecord
	// Skip header row
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < len(claimHeader) {
			continue
		}
		timestamp, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			continue
		}
		distributorAddr, err := solana.PublicKeyFromBase58(row[1])
		if err != nil {
			continue
		}
		index, err := strconv.ParseUint(row[2], 10, 64)
		if err != nil {
			continue
		}
		recipient, err := solana.PublicKeyFromBase58(row[3])
		if err != nil {
			continue
		}
		amount, err := strconv.ParseUint(row[4], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, ClaimRecord{
			Timestamp:   timestamp,
			Distributor: distributorAddr,
			Event: distributor.Claimed{
				Index:   index,
				Account: recipient,
				Amount:  amount,
			},
		})
	}
	return out, nil
}
