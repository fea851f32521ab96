package wire

import "testing"

func TestPubkeyFromBase58_RoundTrip(t *testing.T) {
	p, err := PubkeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	if err != nil {
		t.Fatal(err)
	}
	if p.String() != "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin" {
		t.Errorf("round trip mismatch: got %s", p.String())
	}
}

func TestPubkeyFromBase58_RejectsWrongLength(t *testing.T) {
	if _, err := PubkeyFromBase58("abc"); err == nil {
		t.Error("expected error for too-short address")
	}
}

func TestSystemProgramID_IsWellKnown(t *testing.T) {
	if SystemProgramID.String() != "11111111111111111111111111111111" {
		t.Errorf("unexpected system program id: %s", SystemProgramID.String())
	}
}
