package infrastructure

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// Ed25519Signer signs spin transactions with a session key held in memory.
// Production custody sits outside this module behind the WalletSigner
// interface; this implementation serves embedded hosts and tests.
type Ed25519Signer struct {
	key     ed25519.PrivateKey
	address string
}

// NewEd25519Signer builds a signer from a hex-encoded private key
func NewEd25519Signer(hexKey string) (*Ed25519Signer, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet key: %w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet key must be %d bytes, got %d", ed25519.SeedSize, len(raw))
	}
	key := ed25519.NewKeyFromSeed(raw)
	pub := key.Public().(ed25519.PublicKey)
	return &Ed25519Signer{
		key:     key,
		address: hex.EncodeToString(pub),
	}, nil
}

// Address returns the hex public key used as the wallet address
func (s *Ed25519Signer) Address() string {
	return s.address
}

// Sign signs the payload with the session key
func (s *Ed25519Signer) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.key, payload), nil
}
