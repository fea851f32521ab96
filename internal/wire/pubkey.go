// Package wire implements the on-chain binary formats this pipeline must
// produce and parse bit-exactly (spec §6 "Wire requirements"): addresses,
// versioned transactions, address lookup tables, and the AMM swap
// instruction layouts. None of the corpus's example repos touch this chain
// family, so the encodings here are hand-rolled against spec §6/§4.4
// rather than grounded on a pack file; see DESIGN.md.
package wire

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Pubkey is a 32-byte Solana address.
type Pubkey [32]byte

// String base58-encodes the address.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether p is the zero address.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// PubkeyFromBase58 decodes a base58 address string into a Pubkey.
func PubkeyFromBase58(s string) (Pubkey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("base58 decode: %w", err)
	}
	if len(b) != 32 {
		return Pubkey{}, fmt.Errorf("decoded address is %d bytes, want 32", len(b))
	}
	var p Pubkey
	copy(p[:], b)
	return p, nil
}

// MustPubkeyFromBase58 panics on a malformed address; used for constants.
func MustPubkeyFromBase58(s string) Pubkey {
	p, err := PubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PubkeyFromPublicKey converts an ed25519 public key into a Pubkey.
func PubkeyFromPublicKey(pub ed25519.PublicKey) (Pubkey, error) {
	if len(pub) != ed25519.PublicKeySize {
		return Pubkey{}, errors.New("wrong ed25519 public key size")
	}
	var p Pubkey
	copy(p[:], pub)
	return p, nil
}

// SystemProgramID is the Solana system program address.
var SystemProgramID = MustPubkeyFromBase58("11111111111111111111111111111111")

// ComputeBudgetProgramID is the compute-budget program address.
var ComputeBudgetProgramID = MustPubkeyFromBase58("ComputeBudget111111111111111111111111111111")
