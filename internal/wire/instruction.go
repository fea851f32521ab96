package wire

// AccountMeta describes one account reference inside an instruction, before
// compilation into a message's flat account-key table.
type AccountMeta struct {
	PubKey     Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is an uncompiled program invocation: a program id, the
// accounts it touches, and opaque instruction data.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// CompiledInstruction is an Instruction with its accounts rewritten as
// indexes into a Message's flattened account-key list, ready for wire
// serialization.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// MessageHeader records how many of a message's static account keys are
// signers / read-only, per Solana's legacy+v0 message layout.
type MessageHeader struct {
	NumRequiredSignatures      uint8
	NumReadonlySignedAccounts  uint8
	NumReadonlyUnsignedAccounts uint8
}

// AddressLookupTableAccount is a resolved on-chain ALT: the table's own
// address plus its writable/readonly address lists in table order. The
// cache package (internal/cache) is responsible for keeping these current.
type AddressLookupTableAccount struct {
	Key      Pubkey
	Writable []Pubkey
	Readonly []Pubkey
}

// MessageAddressTableLookup is the compiled, index-only reference to an ALT
// that gets embedded in a v0 message.
type MessageAddressTableLookup struct {
	AccountKey      Pubkey
	WritableIndexes []uint8
	ReadonlyIndexes []uint8
}
