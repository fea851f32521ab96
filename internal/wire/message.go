package wire

import (
	"bytes"
	"fmt"
)

// Message is a v0 Solana message: a legacy-compatible header and static
// account list, plus address table lookups for ALT-resolved accounts.
type Message struct {
	Header              MessageHeader
	AccountKeys         []Pubkey
	RecentBlockhash     [32]byte
	Instructions        []CompiledInstruction
	AddressTableLookups []MessageAddressTableLookup
}

type accountEntry struct {
	key        Pubkey
	isSigner   bool
	isWritable bool
}

type tableRef struct {
	table    Pubkey
	writable bool
}

// CompileMessage flattens a fee payer plus a list of instructions into a v0
// Message. Any non-signer account present in a supplied lookup table is
// routed out of the static key list and into an address-table-lookup index
// instead (spec §6.2: "transactions MUST use ALTs for any account present
// in one", which is what makes the 64-account swap path fit under the
// transaction size limit).
func CompileMessage(payer Pubkey, instructions []Instruction, recentBlockhash [32]byte, lookupTables []AddressLookupTableAccount) (*Message, error) {
	merged := map[Pubkey]*accountEntry{}
	var order []Pubkey

	upsert := func(k Pubkey, signer, writable bool) {
		e, ok := merged[k]
		if !ok {
			e = &accountEntry{key: k}
			merged[k] = e
			order = append(order, k)
		}
		if signer {
			e.isSigner = true
		}
		if writable {
			e.isWritable = true
		}
	}

	upsert(payer, true, true)
	for _, ix := range instructions {
		upsert(ix.ProgramID, false, false)
		for _, a := range ix.Accounts {
			upsert(a.PubKey, a.IsSigner, a.IsWritable)
		}
	}

	lookupIndex := map[Pubkey]tableRef{}
	for _, t := range lookupTables {
		for _, k := range t.Writable {
			lookupIndex[k] = tableRef{t.Key, true}
		}
		for _, k := range t.Readonly {
			if _, exists := lookupIndex[k]; !exists {
				lookupIndex[k] = tableRef{t.Key, false}
			}
		}
	}

	var signersWritable, signersReadonly, staticWritable, staticReadonly []Pubkey
	tableWritableByTable := map[Pubkey][]Pubkey{}
	tableReadonlyByTable := map[Pubkey][]Pubkey{}
	var tableOrder []Pubkey

	for _, k := range order {
		e := merged[k]
		if e.isSigner {
			if e.isWritable {
				signersWritable = append(signersWritable, k)
			} else {
				signersReadonly = append(signersReadonly, k)
			}
			continue
		}
		if lk, ok := lookupIndex[k]; ok {
			if _, seen := tableWritableByTable[lk.table]; !seen {
				if _, seenR := tableReadonlyByTable[lk.table]; !seenR {
					tableOrder = append(tableOrder, lk.table)
				}
			}
			if lk.writable {
				tableWritableByTable[lk.table] = append(tableWritableByTable[lk.table], k)
			} else {
				tableReadonlyByTable[lk.table] = append(tableReadonlyByTable[lk.table], k)
			}
			continue
		}
		if e.isWritable {
			staticWritable = append(staticWritable, k)
		} else {
			staticReadonly = append(staticReadonly, k)
		}
	}

	signersWritable = movePayerFirst(signersWritable, payer)

	staticKeys := make([]Pubkey, 0, len(signersWritable)+len(signersReadonly)+len(staticWritable)+len(staticReadonly))
	staticKeys = append(staticKeys, signersWritable...)
	staticKeys = append(staticKeys, signersReadonly...)
	staticKeys = append(staticKeys, staticWritable...)
	staticKeys = append(staticKeys, staticReadonly...)

	indexOf := map[Pubkey]uint8{}
	for i, k := range staticKeys {
		indexOf[k] = uint8(i)
	}

	next := uint8(len(staticKeys))
	lookups := make([]MessageAddressTableLookup, len(tableOrder))
	for i, t := range tableOrder {
		lookups[i].AccountKey = t
	}
	for i, t := range tableOrder {
		for _, k := range tableWritableByTable[t] {
			indexOf[k] = next
			next++
			lookups[i].WritableIndexes = append(lookups[i].WritableIndexes, findTableOffset(lookupTables, t, k, true))
		}
	}
	for i, t := range tableOrder {
		for _, k := range tableReadonlyByTable[t] {
			indexOf[k] = next
			next++
			lookups[i].ReadonlyIndexes = append(lookups[i].ReadonlyIndexes, findTableOffset(lookupTables, t, k, false))
		}
	}

	compiled := make([]CompiledInstruction, 0, len(instructions))
	for _, ix := range instructions {
		ci := CompiledInstruction{Data: append([]byte{}, ix.Data...)}
		pidx, ok := indexOf[ix.ProgramID]
		if !ok {
			return nil, fmt.Errorf("program id %s missing from compiled account table", ix.ProgramID)
		}
		ci.ProgramIDIndex = pidx
		for _, a := range ix.Accounts {
			aidx, ok := indexOf[a.PubKey]
			if !ok {
				return nil, fmt.Errorf("account %s missing from compiled account table", a.PubKey)
			}
			ci.AccountIndexes = append(ci.AccountIndexes, aidx)
		}
		compiled = append(compiled, ci)
	}

	return &Message{
		Header: MessageHeader{
			NumRequiredSignatures:       uint8(len(signersWritable) + len(signersReadonly)),
			NumReadonlySignedAccounts:   uint8(len(signersReadonly)),
			NumReadonlyUnsignedAccounts: uint8(len(staticReadonly)),
		},
		AccountKeys:         staticKeys,
		RecentBlockhash:     recentBlockhash,
		Instructions:        compiled,
		AddressTableLookups: lookups,
	}, nil
}

func movePayerFirst(keys []Pubkey, payer Pubkey) []Pubkey {
	out := make([]Pubkey, 0, len(keys))
	out = append(out, payer)
	for _, k := range keys {
		if k != payer {
			out = append(out, k)
		}
	}
	return out
}

func findTableOffset(tables []AddressLookupTableAccount, table, key Pubkey, writable bool) uint8 {
	for _, t := range tables {
		if t.Key != table {
			continue
		}
		list := t.Readonly
		if writable {
			list = t.Writable
		}
		for i, k := range list {
			if k == key {
				return uint8(i)
			}
		}
	}
	return 0
}

// Serialize encodes the message per Solana's v0 wire format: a 0x80-flagged
// version byte, the 3-byte header, a compact account-key array, the 32-byte
// blockhash, a compact instruction array, and a compact address-table-lookup
// array.
func (m *Message) Serialize() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(0x80) // v0 prefix: high bit set, low 7 bits = version 0

	buf.WriteByte(m.Header.NumRequiredSignatures)
	buf.WriteByte(m.Header.NumReadonlySignedAccounts)
	buf.WriteByte(m.Header.NumReadonlyUnsignedAccounts)

	if err := writeCompactArray(buf, len(m.AccountKeys), func(w *bytes.Buffer, i int) error {
		_, err := w.Write(m.AccountKeys[i][:])
		return err
	}); err != nil {
		return nil, err
	}

	buf.Write(m.RecentBlockhash[:])

	if err := writeCompactArray(buf, len(m.Instructions), func(w *bytes.Buffer, i int) error {
		ix := m.Instructions[i]
		w.WriteByte(ix.ProgramIDIndex)
		if err := writeCompactArray(w, len(ix.AccountIndexes), func(w2 *bytes.Buffer, j int) error {
			w2.WriteByte(ix.AccountIndexes[j])
			return nil
		}); err != nil {
			return err
		}
		return writeCompactArray(w, len(ix.Data), func(w2 *bytes.Buffer, j int) error {
			w2.WriteByte(ix.Data[j])
			return nil
		})
	}); err != nil {
		return nil, err
	}

	if err := writeCompactArray(buf, len(m.AddressTableLookups), func(w *bytes.Buffer, i int) error {
		lk := m.AddressTableLookups[i]
		w.Write(lk.AccountKey[:])
		if err := writeCompactArray(w, len(lk.WritableIndexes), func(w2 *bytes.Buffer, j int) error {
			w2.WriteByte(lk.WritableIndexes[j])
			return nil
		}); err != nil {
			return err
		}
		return writeCompactArray(w, len(lk.ReadonlyIndexes), func(w2 *bytes.Buffer, j int) error {
			w2.WriteByte(lk.ReadonlyIndexes[j])
			return nil
		})
	}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeCompactArray(buf *bytes.Buffer, n int, writeElem func(*bytes.Buffer, int) error) error {
	prefix, err := encodeCompactU16(n)
	if err != nil {
		return err
	}
	buf.Write(prefix)
	for i := 0; i < n; i++ {
		if err := writeElem(buf, i); err != nil {
			return err
		}
	}
	return nil
}
