package models

import "time"

// InitRequest asks the service to create a distributor for a root
type InitRequest struct {
	Root string `json:"root" binding:"required"`
}

// DistributorResponse describes one distributor
type DistributorResponse struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Root    string `json:"root"`
	Claimed uint64 `json:"claimed"`
}

// ClaimRequest represents a request to claim an allocation. The wallet
// proves ownership by signing the claim message.
type ClaimRequest struct {
	Index           uint64    `json:"index"`
	Wallet          string    `json:"wallet" binding:"required"`
	Amount          uint64    `json:"amount" binding:"required"`
	Proof           []string  `json:"proof"`
	IssuedAt        time.Time `json:"issuedAt" binding:"required"`
	Signature       string    `json:"signature" binding:"required"`
	SignatureFormat string    `json:"signatureFormat,omitempty"`
}

// ClaimResponse represents a response from the claim API
type ClaimResponse struct {
	Success     bool      `json:"success"`
	ReceiptID   string    `json:"receiptId,omitempty"`
	Destination string    `json:"destination,omitempty"`
	TxHash      string    `json:"txHash,omitempty"`
	ClaimedAt   time.Time `json:"claimedAt,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// ClaimStatusResponse reports whether an index was claimed
type ClaimStatusResponse struct {
	Index   uint64         `json:"index"`
	Claimed bool           `json:"claimed"`
	Receipt *ClaimResponse `json:"receipt,omitempty"`
}

// ErrorResponse is returned by every failing endpoint
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ProofEntry is one allocation with its proof, as published to claimants
type ProofEntry struct {
	Index     uint64   `json:"index"`
	Recipient string   `json:"recipient"`
	Amount    uint64   `json:"amount"`
	Leaf      string   `json:"leaf"`
	Proof     []string `json:"proof"`
}

// ProofFile is the output of the merkle tool
type ProofFile struct {
	Root   string       `json:"root"`
	Total  uint64       `json:"total"`
	Claims []ProofEntry `json:"claims"`
}

// Entries returns every allocation of recipient, in file order
func (f *ProofFile) Entries(recipient string) []ProofEntry {
	var out []ProofEntry
	for _, entry := range f.Claims {
		if entry.Recipient == recipient {
			out = append(out, entry)
		}
	}
	return out
}
