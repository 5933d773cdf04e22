// Package emu provides the RV32I architectural reference model.
package emu

import (
	"fmt"

	"github.com/sarchlab/rvtrace/insts"
)

// Direction is the direction of a data-bus transaction.
type Direction uint8

// Transaction directions.
const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "write"
	}
	return "read"
}

// Width is the access size of a data-bus transaction in bytes.
type Width uint8

// Access widths.
const (
	WidthByte Width = 1
	WidthHalf Width = 2
	WidthWord Width = 4
)

// MemTransaction is the data-bus access a load or store step expects the
// design under test to perform.
type MemTransaction struct {
	Addr      uint32
	Direction Direction
	Width     Width
	// Signed selects sign extension of narrow loads (LB, LH).
	Signed bool
	// Mask is the byte-enable pattern, one bit per byte lane.
	Mask uint8
	// Data is the lane-replicated store value (stores only).
	Data uint32
	// Rd is the destination register of a load.
	Rd uint8
}

// IsLoad reports whether the transaction is a read.
func (t MemTransaction) IsLoad() bool {
	return t.Direction == DirRead
}

func (t MemTransaction) String() string {
	return fmt.Sprintf("%s%d @ 0x%08X mask 0x%X", t.Direction, t.Width*8, t.Addr, t.Mask)
}

// ByteMask returns the byte-enable pattern of a naturally aligned access of
// width bytes at addr.
func ByteMask(addr uint32, width Width) uint8 {
	return uint8((1<<width)-1) << (addr & 3)
}

// Replicate copies the low width bytes of value across the 32-bit lane.
func Replicate(value uint32, width Width) uint32 {
	switch width {
	case WidthByte:
		return (value & 0xFF) * 0x01010101
	case WidthHalf:
		return (value & 0xFFFF) * 0x00010001
	default:
		return value
	}
}

// LoadStoreUnit implements RV32I loads and stores. Memory itself lives in
// the design under test: a load or store only records the single
// transaction the bus is expected to carry next.
type LoadStoreUnit struct {
	regFile *RegFile

	pending    MemTransaction
	hasPending bool
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file.
func NewLoadStoreUnit(regFile *RegFile) *LoadStoreUnit {
	return &LoadStoreUnit{regFile: regFile}
}

// Pending returns the outstanding transaction, if any.
func (lsu *LoadStoreUnit) Pending() (MemTransaction, bool) {
	return lsu.pending, lsu.hasPending
}

// Load computes the transaction of a load instruction. A misaligned
// address raises a load-address exception and issues nothing.
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction) (MemTransaction, *Exception) {
	addr := lsu.regFile.ReadReg(inst.Rs1) + inst.ImmI
	tx := MemTransaction{Addr: addr, Direction: DirRead, Rd: inst.Rd}

	switch inst.Funct3 {
	case insts.Funct3LB:
		tx.Width, tx.Signed = WidthByte, true
	case insts.Funct3LBU:
		tx.Width = WidthByte
	case insts.Funct3LH:
		tx.Width, tx.Signed = WidthHalf, true
	case insts.Funct3LHU:
		tx.Width = WidthHalf
	case insts.Funct3LW:
		tx.Width = WidthWord
	default:
		return MemTransaction{}, raise(CauseIllegalInstruction, inst.Raw)
	}

	if addr&uint32(tx.Width-1) != 0 {
		return MemTransaction{}, raise(CauseLoadAddrMisaligned, addr)
	}

	tx.Mask = ByteMask(addr, tx.Width)
	return tx, nil
}

// Store computes the transaction of a store instruction. A misaligned
// address raises a store-address exception and issues nothing.
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction) (MemTransaction, *Exception) {
	addr := lsu.regFile.ReadReg(inst.Rs1) + inst.ImmS
	tx := MemTransaction{Addr: addr, Direction: DirWrite}

	switch inst.Funct3 {
	case insts.Funct3SB:
		tx.Width = WidthByte
	case insts.Funct3SH:
		tx.Width = WidthHalf
	case insts.Funct3SW:
		tx.Width = WidthWord
	default:
		return MemTransaction{}, raise(CauseIllegalInstruction, inst.Raw)
	}

	if addr&uint32(tx.Width-1) != 0 {
		return MemTransaction{}, raise(CauseStoreAddrMisaligned, addr)
	}

	tx.Mask = ByteMask(addr, tx.Width)
	tx.Data = Replicate(lsu.regFile.ReadReg(inst.Rs2), tx.Width)
	return tx, nil
}

// Issue makes tx the outstanding transaction. If a previous transaction
// was never consumed it is returned as dropped.
func (lsu *LoadStoreUnit) Issue(tx MemTransaction) (dropped *MemTransaction) {
	if lsu.hasPending {
		prev := lsu.pending
		dropped = &prev
	}
	lsu.pending = tx
	lsu.hasPending = true
	return dropped
}

// CompleteLoad resolves the outstanding load with the word observed on the
// data bus and writes the extracted value to its destination register.
// ok is false when no load was outstanding; the outstanding transaction is
// cleared either way.
func (lsu *LoadStoreUnit) CompleteLoad(data uint32) (tx MemTransaction, ok bool) {
	tx, ok = lsu.pending, lsu.hasPending && lsu.pending.IsLoad()
	lsu.pending, lsu.hasPending = MemTransaction{}, false

	if ok {
		lsu.regFile.WriteReg(tx.Rd, ExtractLoad(tx, data))
	}
	return tx, ok
}

// CompleteStore retires the outstanding store. ok is false when no store
// was outstanding; the outstanding transaction is cleared either way.
func (lsu *LoadStoreUnit) CompleteStore() (tx MemTransaction, ok bool) {
	tx, ok = lsu.pending, lsu.hasPending && !lsu.pending.IsLoad()
	lsu.pending, lsu.hasPending = MemTransaction{}, false
	return tx, ok
}

// ExtractLoad selects the byte lanes of a load from the observed bus word
// and sign- or zero-extends them.
func ExtractLoad(tx MemTransaction, data uint32) uint32 {
	value := data >> ((tx.Addr & 3) * 8)

	switch tx.Width {
	case WidthByte:
		if tx.Signed {
			return uint32(int32(int8(value)))
		}
		return value & 0xFF
	case WidthHalf:
		if tx.Signed {
			return uint32(int32(int16(value)))
		}
		return value & 0xFFFF
	default:
		return data
	}
}
