package txbuilder

import "github.com/BrowningVC/Migratorrr-sub000/internal/wire"

const (
	splTokenSyncNativeTag  = byte(17)
	splTokenCloseAccountTag = byte(9)
)

// WrapSol funds the user's wrapped-SOL ATA with exactly lamports and syncs
// its native-SOL balance into the token account's recorded amount (spec
// §4.4 step 5: "wrapping exactly max_sol_spend"). The ATA must already
// exist (via CreateAssociatedTokenAccountIdempotent) before these run.
func WrapSol(payer, wsolATA wire.Pubkey, lamports uint64, tokenProgram wire.Pubkey) []wire.Instruction {
	transfer := wire.SystemTransfer(payer, wsolATA, lamports)
	sync := wire.Instruction{
		ProgramID: tokenProgram,
		Accounts: []wire.AccountMeta{
			{PubKey: wsolATA, IsSigner: false, IsWritable: true},
		},
		Data: []byte{splTokenSyncNativeTag},
	}
	return []wire.Instruction{transfer, sync}
}

// CloseWrappedSolAccount closes the wSOL ATA, releasing rent and any
// residual unwrapped SOL back to owner (spec §4.4 step 9).
func CloseWrappedSolAccount(wsolATA, owner, tokenProgram wire.Pubkey) wire.Instruction {
	return wire.Instruction{
		ProgramID: tokenProgram,
		Accounts: []wire.AccountMeta{
			{PubKey: wsolATA, IsSigner: false, IsWritable: true},
			{PubKey: owner, IsSigner: false, IsWritable: true},
			{PubKey: owner, IsSigner: true, IsWritable: false},
		},
		Data: []byte{splTokenCloseAccountTag},
	}
}
