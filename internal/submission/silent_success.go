package submission

import (
	"context"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/txbuilder"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// SilentSuccessParams names the wallet and mint a sell's silent-success
// check probes after every submission attempt has failed.
type SilentSuccessParams struct {
	Owner wire.Pubkey
	Mint  wire.Pubkey
}

// checkSilentSuccess implements spec §4.5 "Silent-success recovery": if
// the wallet's token balance on either token program is now zero, the
// sell landed after our own confirmation polling gave up, so we attribute
// it to the wallet's most recent transaction signature as a best effort.
func (e *Engine) checkSilentSuccess(ctx context.Context, p SilentSuccessParams) (signature string, landed bool) {
	for _, tokenProgram := range []wire.Pubkey{txbuilder.TokenProgramStandardID, txbuilder.TokenProgramExtendedID} {
		ata, err := wire.DeriveAssociatedTokenAddress(p.Owner, p.Mint, tokenProgram, txbuilder.AssociatedTokenProgramID)
		if err != nil {
			continue
		}
		balance, _, err := e.PrimaryRPC.GetTokenAccountBalance(ctx, ata)
		if err != nil {
			continue
		}
		if balance == 0 {
			sig := mostRecentSignature(ctx, e.PrimaryRPC, p.Owner)
			return sig, true
		}
	}
	return "", false
}

func mostRecentSignature(ctx context.Context, rpc port.RPCClient, owner wire.Pubkey) string {
	sigs, err := rpc.GetSignaturesForAddress(ctx, owner, 1)
	if err != nil || len(sigs) == 0 {
		return ""
	}
	return sigs[0]
}
