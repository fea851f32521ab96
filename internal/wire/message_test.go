package wire

import (
	"bytes"
	"crypto/ed25519"
	"testing"
)

func randomPubkey(t *testing.T, seed byte) Pubkey {
	t.Helper()
	var p Pubkey
	for i := range p {
		p[i] = seed + byte(i)
	}
	return p
}

func TestCompileMessage_PayerLeadsSignerWritable(t *testing.T) {
	payer := randomPubkey(t, 1)
	other := randomPubkey(t, 50)
	prog := randomPubkey(t, 100)

	msg, err := CompileMessage(payer, []Instruction{
		{
			ProgramID: prog,
			Accounts: []AccountMeta{
				{PubKey: payer, IsSigner: true, IsWritable: true},
				{PubKey: other, IsSigner: false, IsWritable: true},
			},
			Data: []byte{1, 2, 3},
		},
	}, [32]byte{9, 9, 9}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if msg.AccountKeys[0] != payer {
		t.Fatalf("expected payer first, got %v", msg.AccountKeys[0])
	}
	if msg.Header.NumRequiredSignatures != 1 {
		t.Errorf("expected 1 required signature, got %d", msg.Header.NumRequiredSignatures)
	}
}

func TestCompileMessage_RoutesLookupTableAccountsOutOfStaticKeys(t *testing.T) {
	payer := randomPubkey(t, 1)
	prog := randomPubkey(t, 100)
	altAccount := randomPubkey(t, 200)
	altKey := randomPubkey(t, 210)

	msg, err := CompileMessage(payer, []Instruction{
		{
			ProgramID: prog,
			Accounts: []AccountMeta{
				{PubKey: payer, IsSigner: true, IsWritable: true},
				{PubKey: altAccount, IsSigner: false, IsWritable: true},
			},
		},
	}, [32]byte{}, []AddressLookupTableAccount{
		{Key: altKey, Writable: []Pubkey{altAccount}},
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, k := range msg.AccountKeys {
		if k == altAccount {
			t.Fatal("ALT-resolved account must not appear in static account keys")
		}
	}
	if len(msg.AddressTableLookups) != 1 {
		t.Fatalf("expected 1 lookup table reference, got %d", len(msg.AddressTableLookups))
	}
	if len(msg.AddressTableLookups[0].WritableIndexes) != 1 {
		t.Fatalf("expected 1 writable lookup index")
	}
}

func TestTransaction_SerializeRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	payer, err := PubkeyFromPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	prog := randomPubkey(t, 77)

	msg, err := CompileMessage(payer, []Instruction{
		{ProgramID: prog, Accounts: []AccountMeta{{PubKey: payer, IsSigner: true, IsWritable: true}}, Data: []byte{1}},
	}, [32]byte{1, 2, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}

	tx := NewTransaction(msg)
	if err := tx.Sign(priv); err != nil {
		t.Fatal(err)
	}
	if !tx.FullySigned() {
		t.Fatal("expected transaction to be fully signed")
	}

	wire1, err := tx.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	wire2, err := tx.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(wire1, wire2) {
		t.Error("serialization is not deterministic")
	}
	if wire1[0] != 1 {
		t.Errorf("expected compact-u16 signature count prefix 1, got %d", wire1[0])
	}
}

func TestTransaction_SignRejectsNonSigner(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	payer := randomPubkey(t, 3)
	prog := randomPubkey(t, 4)
	msg, err := CompileMessage(payer, []Instruction{
		{ProgramID: prog, Accounts: []AccountMeta{{PubKey: payer, IsSigner: true, IsWritable: true}}},
	}, [32]byte{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tx := NewTransaction(msg)
	if err := tx.Sign(priv); err == nil {
		t.Error("expected error signing with a key that is not a required signer")
	}
}
