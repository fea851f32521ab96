package txbuilder

import "github.com/BrowningVC/Migratorrr-sub000/internal/wire"

// systemProgramID is referenced by several instruction builders in this
// package.
var systemProgramID = wire.SystemProgramID

// CreateAssociatedTokenAccountIdempotent returns a CreateIdempotent
// instruction (tag 1) against the associated-token-account program: a
// no-op if the ATA already exists, which is what lets step 4/5 of the
// builder run unconditionally instead of probing account existence first.
func CreateAssociatedTokenAccountIdempotent(payer, ata, owner, mint, tokenProgram wire.Pubkey) wire.Instruction {
	return wire.Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []wire.AccountMeta{
			{PubKey: payer, IsSigner: true, IsWritable: true},
			{PubKey: ata, IsSigner: false, IsWritable: true},
			{PubKey: owner, IsSigner: false, IsWritable: false},
			{PubKey: mint, IsSigner: false, IsWritable: false},
			{PubKey: systemProgramID, IsSigner: false, IsWritable: false},
			{PubKey: tokenProgram, IsSigner: false, IsWritable: false},
		},
		Data: []byte{1},
	}
}
