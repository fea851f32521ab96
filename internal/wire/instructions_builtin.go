package wire

import "encoding/binary"

// Swap instruction discriminators (first 8 bytes of instruction data),
// fixed by the AMM program's Anchor IDL (spec §4.4).
var (
	BuyDiscriminator  = [8]byte{0x66, 0x06, 0x3D, 0x12, 0x01, 0xDA, 0xEB, 0xEA}
	SellDiscriminator = [8]byte{0x33, 0xE6, 0x85, 0xA4, 0x01, 0x7F, 0x83, 0xAD}
)

// ComputeBudgetSetUnitLimit returns a SetComputeUnitLimit instruction for
// the compute budget program (instruction tag 2, u32 little-endian units).
func ComputeBudgetSetUnitLimit(units uint32) Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}

// ComputeBudgetSetUnitPrice returns a SetComputeUnitPrice instruction
// (instruction tag 3, u64 little-endian micro-lamports per unit).
func ComputeBudgetSetUnitPrice(microLamports uint64) Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return Instruction{ProgramID: ComputeBudgetProgramID, Data: data}
}

// SystemTransfer returns a system-program lamport transfer instruction
// (instruction tag 2, u64 little-endian lamports), used for MEV tip
// transfers and wSOL funding.
func SystemTransfer(from, to Pubkey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], 2)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PubKey: from, IsSigner: true, IsWritable: true},
			{PubKey: to, IsSigner: false, IsWritable: true},
		},
		Data: data,
	}
}

// BuildSwapInstructionData packs the Anchor swap discriminator with the
// u64 minOut and u64 maxIn arguments used by both the buy and sell
// instructions, in that order (spec §6 wire requirements: "both followed
// by two little-endian u64s (min_out, max_in)"). For a buy, minOut is
// min_tokens_out and maxIn is max_sol_spend; for a sell, minOut is
// min_sol_out and maxIn is the exact token_amount being sold.
func BuildSwapInstructionData(discriminator [8]byte, minOut, maxIn uint64) []byte {
	data := make([]byte, 24)
	copy(data[0:8], discriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], minOut)
	binary.LittleEndian.PutUint64(data[16:24], maxIn)
	return data
}
