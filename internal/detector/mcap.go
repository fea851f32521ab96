package detector

import (
	"encoding/binary"

	"github.com/BrowningVC/Migratorrr-sub000/internal/domain/port"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// graduationDefaultMcap is the standard estimate used when a migration tx
// carries no native transfer large enough to infer liquidity from (spec
// §4.1 step 8: "else a standard graduation default").
const graduationDefaultMcap = 69_000.0

// systemTransferTag and systemTransferDataLen match wire.SystemTransfer's
// own encoding (tag u32 LE == 2, followed by a u64 LE lamports amount).
const (
	systemTransferTag     = uint32(2)
	systemTransferDataLen = 12
)

// estimateMcap implements spec §4.1 step 8: find the largest native SOL
// transfer in the transaction (top-level or inner), and if present,
// convert it through solPriceUSD and fdvMultiplier into a market-cap
// estimate; otherwise fall back to the graduation default.
func estimateMcap(tx *port.DecodedTransaction, solPriceUSD, fdvMultiplier float64) float64 {
	largest := largestNativeTransferLamports(tx)
	if largest == 0 {
		return graduationDefaultMcap
	}
	sol := float64(largest) / 1e9
	return sol * solPriceUSD * fdvMultiplier
}

func largestNativeTransferLamports(tx *port.DecodedTransaction) uint64 {
	var largest uint64
	consider := func(ix port.DecodedInstruction) {
		if ix.ProgramID != wire.SystemProgramID || len(ix.Data) != systemTransferDataLen {
			return
		}
		if binary.LittleEndian.Uint32(ix.Data[0:4]) != systemTransferTag {
			return
		}
		lamports := binary.LittleEndian.Uint64(ix.Data[4:12])
		if lamports > largest {
			largest = lamports
		}
	}
	for _, ix := range tx.Instructions {
		consider(ix)
	}
	for _, ix := range tx.InnerInstructions {
		consider(ix)
	}
	return largest
}
