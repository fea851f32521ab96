package detector

import (
	"fmt"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/model"
	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/txbuilder"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// Migrate-instruction account indices (spec §4.1 step 6).
const (
	migrateMintIndex         = 2
	migratePoolIndex         = 9
	migrateTokenProgramIndex = 19
	ammCoinCreatorIndex      = 18
)

// extractedAccounts carries the fields pulled from a parsed migration
// transaction before a Migration is built.
type extractedAccounts struct {
	Mint         wire.Pubkey
	Pool         wire.Pubkey
	CoinCreator  wire.Pubkey // zero if no matching AMM instruction was found
	TokenProgram model.TokenProgram
}

// extractAccounts walks tx's top-level instructions for the launchpad
// program's migrate instruction, then its inner-instruction groups for
// the AMM's createPool instruction, guarding the latter's account[0]
// against the migrate instruction's own pool (spec §4.1 step 6: "guards
// against multi-hop routing artifacts").
func extractAccounts(tx *port.DecodedTransaction, launchpadProgram, ammProgram wire.Pubkey) (*extractedAccounts, error) {
	var migrate *port.DecodedInstruction
	for i := range tx.Instructions {
		if tx.Instructions[i].ProgramID == launchpadProgram {
			migrate = &tx.Instructions[i]
			break
		}
	}
	if migrate == nil {
		return nil, fmt.Errorf("no migrate instruction from program %s in tx %s", launchpadProgram, tx.Signature)
	}
	if len(migrate.Accounts) <= migrateTokenProgramIndex {
		return nil, fmt.Errorf("migrate instruction has %d accounts, need at least %d", len(migrate.Accounts), migrateTokenProgramIndex+1)
	}

	result := &extractedAccounts{
		Mint: migrate.Accounts[migrateMintIndex],
		Pool: migrate.Accounts[migratePoolIndex],
	}

	switch migrate.Accounts[migrateTokenProgramIndex] {
	case txbuilder.TokenProgramExtendedID:
		result.TokenProgram = model.TokenProgramExtended
	default:
		result.TokenProgram = model.TokenProgramStandard
	}

	for _, inner := range tx.InnerInstructions {
		if inner.ProgramID != ammProgram {
			continue
		}
		if len(inner.Accounts) <= ammCoinCreatorIndex {
			continue
		}
		if inner.Accounts[0] != result.Pool {
			continue
		}
		result.CoinCreator = inner.Accounts[ammCoinCreatorIndex]
		break
	}

	return result, nil
}

// isEligible reports whether mint qualifies as belonging to the
// bonding-curve family this pipeline watches (spec §4.1 step 7): its
// address ends in the launchpad suffix, or it uses the extended token
// program.
func isEligible(mint wire.Pubkey, tokenProgram model.TokenProgram) bool {
	if tokenProgram == model.TokenProgramExtended {
		return true
	}
	return hasEligibleSuffix(mint.String())
}

func hasEligibleSuffix(addr string) bool {
	suffix := model.EligibleSuffix
	if len(addr) < len(suffix) {
		return false
	}
	return addr[len(addr)-len(suffix):] == suffix
}
