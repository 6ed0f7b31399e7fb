package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Signature formats accepted in claim requests
const (
	SignatureFormatBase64 = "base64"
	SignatureFormatBase58 = "base58"
)

var (
	ErrBadSignature     = errors.New("signature does not match wallet")
	ErrExpiredSignature = errors.New("claim signature expired")
)

// ClaimMessage is the text a wallet signs to claim an allocation. It binds
// the signature to one distributor, index and amount.
func ClaimMessage(distributor string, index uint64, wallet string, amount uint64, issuedAt time.Time) string {
	return fmt.Sprintf(
		"airdrop-distributor wants you to claim with your Solana account:\n"+
			"%s\n\n"+
			"Distributor: %s\n"+
			"Index: %d\n"+
			"Amount: %d\n"+
			"Issued At: %s",
		wallet,
		distributor,
		index,
		amount,
		issuedAt.UTC().Format(time.RFC3339),
	)
}

// SignClaim signs a claim message with a private key
func SignClaim(privateKey solana.PrivateKey, message string) (string, error) {
	signature, err := privateKey.Sign([]byte(message))
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature[:]), nil
}

// VerifyClaim checks that signature is the wallet's signature of message
func VerifyClaim(wallet solana.PublicKey, message, signature, format string) error {
	var sig solana.Signature
	switch format {
	case "", SignatureFormatBase64:
		raw, err := base64.StdEncoding.DecodeString(signature)
		if err != nil {
			return fmt.Errorf("invalid signature encoding: %w", err)
		}
		if len(raw) != len(sig) {
			return fmt.Errorf("invalid signature length %d", len(raw))
		}
		copy(sig[:], raw)
	case SignatureFormatBase58:
		parsed, err := solana.SignatureFromBase58(signature)
		if err != nil {
			return fmt.Errorf("invalid signature encoding: %w", err)
		}
		sig = parsed
	default:
		return fmt.Errorf("unsupported signature format %q", format)
	}

	if !sig.Verify(wallet, []byte(message)) {
		return ErrBadSignature
	}
	return nil
}

// checkIssuedAt rejects messages outside maxAge of now, in either direction
func checkIssuedAt(issuedAt, now time.Time, maxAge time.Duration) error {
	age := now.Sub(issuedAt)
	if age > maxAge || age < -maxAge {
		return fmt.Errorf("%w: issued at %s", ErrExpiredSignature, issuedAt.UTC().Format(time.RFC3339))
	}
	return nil
}
