package wire

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
)

// Signature is a raw 64-byte ed25519 signature.
type Signature [64]byte

// Transaction pairs a compiled v0 Message with its signatures, one per
// entry in Header.NumRequiredSignatures, in account-key order.
type Transaction struct {
	Signatures []Signature
	Message    *Message
}

// NewTransaction allocates a Transaction with an empty signature slot per
// required signer.
func NewTransaction(msg *Message) *Transaction {
	return &Transaction{
		Signatures: make([]Signature, msg.Header.NumRequiredSignatures),
		Message:    msg,
	}
}

// Sign signs the transaction's message with priv and fills the signature
// slot matching the signer's position in the account-key list. It returns
// an error if the signer's public key is not among the message's required
// signers — callers must compile the message with the signer included.
func (tx *Transaction) Sign(priv ed25519.PrivateKey) error {
	pub, err := PubkeyFromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return err
	}
	idx := -1
	for i := 0; i < int(tx.Message.Header.NumRequiredSignatures); i++ {
		if tx.Message.AccountKeys[i] == pub {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("signer %s is not a required signer of this message", pub)
	}

	msgBytes, err := tx.Message.Serialize()
	if err != nil {
		return err
	}
	sig := ed25519.Sign(priv, msgBytes)
	var s Signature
	copy(s[:], sig)
	tx.Signatures[idx] = s
	return nil
}

// Serialize encodes the full wire transaction: a compact signature array
// followed by the serialized message.
func (tx *Transaction) Serialize() ([]byte, error) {
	msgBytes, err := tx.Message.Serialize()
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := writeCompactArray(buf, len(tx.Signatures), func(w *bytes.Buffer, i int) error {
		_, err := w.Write(tx.Signatures[i][:])
		return err
	}); err != nil {
		return nil, err
	}
	buf.Write(msgBytes)
	return buf.Bytes(), nil
}

// FullySigned reports whether every required signature slot is non-zero.
func (tx *Transaction) FullySigned() bool {
	for _, s := range tx.Signatures {
		if s == (Signature{}) {
			return false
		}
	}
	return len(tx.Signatures) > 0
}
