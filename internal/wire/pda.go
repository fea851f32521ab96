package wire

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

// Program-derived-address seed/field constants for edwards25519, the curve
// ed25519 keys live on. A PDA is valid precisely when the 32 candidate
// bytes do NOT decode to a point on this curve.
var (
	ed25519P = mustBigFromHex("7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffed")
	ed25519D = mustBigFromHex("52036cee2b6ffe738cc740797779e89800700a4d4141d8ab75eb4dca135978a")
	sqrtM1   = mustBigFromHex("2b8324804fc1df0b2b4d00993dfbd7a72f431806ad2fe478c4ee1b274a0ea0b")
)

func mustBigFromHex(h string) *big.Int {
	n, ok := new(big.Int).SetString(h, 16)
	if !ok {
		panic("bad hex constant: " + h)
	}
	return n
}

var pdaMarker = []byte("ProgramDerivedAddress")

// FindProgramAddress derives the canonical PDA for the given seeds and
// program, scanning bump seeds from 255 down to 0 and returning the first
// candidate that decodes to a point NOT on the ed25519 curve (the
// off-curve requirement that makes a PDA unspendable by any keypair).
func FindProgramAddress(seeds [][]byte, program Pubkey) (Pubkey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, s := range seeds {
			h.Write(s)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program[:])
		h.Write(pdaMarker)
		sum := h.Sum(nil)

		var candidate Pubkey
		copy(candidate[:], sum)
		if !isOnCurve(candidate) {
			return candidate, uint8(bump), nil
		}
	}
	return Pubkey{}, 0, fmt.Errorf("unable to find a valid program address for seeds under program %s", program)
}

// isOnCurve reports whether the compressed-point bytes decode to a valid
// point on edwards25519 (i.e. are NOT usable as a PDA).
func isOnCurve(p Pubkey) bool {
	yBytes := make([]byte, 32)
	copy(yBytes, p[:])
	signBit := yBytes[31] >> 7
	yBytes[31] &= 0x7f

	y := leBytesToBig(yBytes)
	if y.Cmp(ed25519P) >= 0 {
		return false
	}

	y2 := new(big.Int).Mul(y, y)
	y2.Mod(y2, ed25519P)

	num := new(big.Int).Sub(y2, big.NewInt(1))
	num.Mod(num, ed25519P)

	den := new(big.Int).Mul(ed25519D, y2)
	den.Add(den, big.NewInt(1))
	den.Mod(den, ed25519P)

	if den.Sign() == 0 {
		return false
	}

	denInv := new(big.Int).ModInverse(den, ed25519P)
	if denInv == nil {
		return false
	}
	x2 := new(big.Int).Mul(num, denInv)
	x2.Mod(x2, ed25519P)

	x, ok := sqrtMod(x2)
	if !ok {
		return false
	}

	// Reconcile the recovered x's sign bit with the encoded one; either
	// x or p-x satisfies the equation, exactly one matches signBit.
	xParity := uint8(new(big.Int).And(x, big.NewInt(1)).Int64())
	if xParity != signBit {
		x.Sub(ed25519P, x)
	}

	check := new(big.Int).Mul(x, x)
	check.Mod(check, ed25519P)
	return check.Cmp(x2) == 0
}

// sqrtMod computes a modular square root of a mod ed25519P using the
// standard ed25519 two-candidate method (p ≡ 5 mod 8).
func sqrtMod(a *big.Int) (*big.Int, bool) {
	if a.Sign() == 0 {
		return big.NewInt(0), true
	}
	exp := new(big.Int).Add(ed25519P, big.NewInt(3))
	exp.Div(exp, big.NewInt(8))
	cand := new(big.Int).Exp(a, exp, ed25519P)

	sq := new(big.Int).Mul(cand, cand)
	sq.Mod(sq, ed25519P)
	if sq.Cmp(a) == 0 {
		return cand, true
	}

	cand2 := new(big.Int).Mul(cand, sqrtM1)
	cand2.Mod(cand2, ed25519P)
	sq2 := new(big.Int).Mul(cand2, cand2)
	sq2.Mod(sq2, ed25519P)
	if sq2.Cmp(a) == 0 {
		return cand2, true
	}
	return nil, false
}

func leBytesToBig(b []byte) *big.Int {
	rev := make([]byte, len(b))
	for i, v := range b {
		rev[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(rev)
}

// DeriveAssociatedTokenAddress derives the canonical ATA for owner+mint
// under the given token program, following the SPL associated-token-
// account program's fixed seed order [owner, token_program, mint].
func DeriveAssociatedTokenAddress(owner, mint, tokenProgram, associatedTokenProgram Pubkey) (Pubkey, error) {
	addr, _, err := FindProgramAddress([][]byte{owner[:], tokenProgram[:], mint[:]}, associatedTokenProgram)
	return addr, err
}
