// Package emu provides the RV32I architectural reference model.
package emu

import (
	"fmt"

	"github.com/sarchlab/rvtrace/insts"
)

// Cause is a machine-mode exception code as written to mcause.
type Cause uint32

// Synchronous exception causes raised by the step simulator.
const (
	CauseInstAddrMisaligned  Cause = 0x0
	CauseIllegalInstruction  Cause = 0x2
	CauseBreakpoint          Cause = 0x3
	CauseLoadAddrMisaligned  Cause = 0x4
	CauseStoreAddrMisaligned Cause = 0x6
	CauseECallM              Cause = 0xB
)

func (c Cause) String() string {
	switch c {
	case CauseInstAddrMisaligned:
		return "instruction address misaligned"
	case CauseIllegalInstruction:
		return "illegal instruction"
	case CauseBreakpoint:
		return "breakpoint"
	case CauseLoadAddrMisaligned:
		return "load address misaligned"
	case CauseStoreAddrMisaligned:
		return "store address misaligned"
	case CauseECallM:
		return "environment call"
	}
	return fmt.Sprintf("cause 0x%X", uint32(c))
}

// Exception describes a trap taken by a step.
type Exception struct {
	Cause Cause
	// PC is the address of the faulting instruction (written to mepc).
	PC uint32
	// TVal is the trap value written to mtval.
	TVal uint32
}

func (e *Exception) String() string {
	return fmt.Sprintf("%s at 0x%08X (tval 0x%08X)", e.Cause, e.PC, e.TVal)
}

func raise(cause Cause, tval uint32) *Exception {
	return &Exception{Cause: cause, TVal: tval}
}

// trap records exc in the machine trap CSRs and redirects the PC to mtvec.
func trap(regFile *RegFile, exc *Exception) {
	regFile.WriteCSR(insts.CSRMEPC, exc.PC)
	regFile.WriteCSR(insts.CSRMTVal, exc.TVal)
	regFile.WriteCSR(insts.CSRMCause, uint32(exc.Cause))
	regFile.PC = regFile.ReadCSR(insts.CSRMTVec)
}
