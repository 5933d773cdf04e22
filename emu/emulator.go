// Package emu provides the RV32I architectural reference model.
//
// The model does not own memory or fetch instructions: the design under
// test does. Each Step is handed the instruction word the design fetched
// and advances the architectural state by exactly one instruction. Loads
// and stores leave one outstanding MemTransaction that the caller
// resolves with the data the design put on its bus.
package emu

import (
	"github.com/sarchlab/rvtrace/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Inst is the decoded instruction.
	Inst insts.Instruction

	// PC is the model address the instruction was executed from.
	PC uint32

	// FetchMismatch is true when the observed fetch address differs from PC.
	FetchMismatch bool

	// Rd is the destination register index the design is expected to
	// write back.
	Rd uint8

	// Transaction is the data-bus access requested by a load or store.
	Transaction *MemTransaction

	// Dropped is a previous transaction that was never consumed.
	Dropped *MemTransaction

	// Exception is set if the instruction trapped.
	Exception *Exception
}

// Emulator executes RV32I instructions in lockstep with a design under test.
type Emulator struct {
	regFile *RegFile
	decoder *insts.Decoder

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit
	sysUnit    *SystemUnit

	// Destination register of the last stepped instruction
	rd uint8

	// Execution state
	instructionCount uint64
	exceptionCount   uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithTrapVector sets the initial value of mtvec.
func WithTrapVector(mtvec uint32) EmulatorOption {
	return func(e *Emulator) {
		e.regFile.WriteCSR(insts.CSRMTVec, mtvec)
	}
}

// NewEmulator creates a new RV32I emulator whose PC is the reset vector
// rounded down to a 4-byte boundary.
func NewEmulator(resetVector uint32, opts ...EmulatorOption) *Emulator {
	e := &Emulator{decoder: insts.NewDecoder()}
	e.init(resetVector)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Emulator) init(resetVector uint32) {
	e.regFile = &RegFile{PC: resetVector &^ 0x3}
	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile)
	e.branchUnit = NewBranchUnit(e.regFile)
	e.sysUnit = NewSystemUnit(e.regFile)
	e.rd = 0
	e.instructionCount = 0
	e.exceptionCount = 0
}

// Reset resets the emulator to its initial state.
func (e *Emulator) Reset(resetVector uint32) {
	e.init(resetVector)
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// PredictedRd returns the destination register of the last stepped
// instruction.
func (e *Emulator) PredictedRd() uint8 {
	return e.rd
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// ExceptionCount returns the number of exceptions taken.
func (e *Emulator) ExceptionCount() uint64 {
	return e.exceptionCount
}

// Pending returns the outstanding memory transaction, if any.
func (e *Emulator) Pending() (MemTransaction, bool) {
	return e.lsu.Pending()
}

// CompleteLoad resolves the outstanding load with the observed bus data.
func (e *Emulator) CompleteLoad(data uint32) (MemTransaction, bool) {
	return e.lsu.CompleteLoad(data)
}

// CompleteStore retires the outstanding store.
func (e *Emulator) CompleteStore() (MemTransaction, bool) {
	return e.lsu.CompleteStore()
}

// Step executes word, the instruction fetched from fetchAddr. Execution
// always proceeds from the model PC; a differing fetch address is only
// reported.
func (e *Emulator) Step(fetchAddr, word uint32) StepResult {
	pc := e.regFile.PC
	inst := e.decoder.Decode(word)

	result := StepResult{
		Inst:          *inst,
		PC:            pc,
		FetchMismatch: fetchAddr != pc,
		Rd:            inst.Rd,
	}
	e.rd = inst.Rd

	exc := e.execute(inst, pc, &result)
	if exc != nil {
		exc.PC = pc
		trap(e.regFile, exc)
		result.Exception = exc
		e.exceptionCount++
	}

	e.instructionCount++

	return result
}

// execute dispatches and executes a decoded instruction.
func (e *Emulator) execute(inst *insts.Instruction, pc uint32, result *StepResult) *Exception {
	switch inst.Opcode {
	case insts.OpcodeLoad:
		tx, exc := e.lsu.Load(inst)
		if exc != nil {
			return exc
		}
		e.issue(tx, result)
		e.regFile.PC = pc + 4

	case insts.OpcodeStore:
		tx, exc := e.lsu.Store(inst)
		if exc != nil {
			return exc
		}
		e.issue(tx, result)
		e.regFile.PC = pc + 4

	case insts.OpcodeMiscMem:
		// FENCE and FENCE.I are NOPs for a single in-order hart.
		e.regFile.PC = pc + 4

	case insts.OpcodeOpImm:
		e.alu.ExecOpImm(inst)
		e.regFile.PC = pc + 4

	case insts.OpcodeOp:
		e.alu.ExecOp(inst)
		e.regFile.PC = pc + 4

	case insts.OpcodeAUIPC:
		e.regFile.WriteReg(inst.Rd, pc+inst.ImmU)
		e.regFile.PC = pc + 4

	case insts.OpcodeLUI:
		e.regFile.WriteReg(inst.Rd, inst.ImmU)
		e.regFile.PC = pc + 4

	case insts.OpcodeBranch:
		return e.branchUnit.Branch(inst, pc)

	case insts.OpcodeJAL:
		return e.branchUnit.JAL(inst, pc)

	case insts.OpcodeJALR:
		return e.branchUnit.JALR(inst, pc)

	case insts.OpcodeSystem:
		return e.sysUnit.Execute(inst, pc)

	default:
		return raise(CauseIllegalInstruction, inst.Raw)
	}

	return nil
}

func (e *Emulator) issue(tx MemTransaction, result *StepResult) {
	result.Dropped = e.lsu.Issue(tx)
	result.Transaction = &tx
}
