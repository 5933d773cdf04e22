// Package emu provides the RV32I architectural reference model.
package emu

import "github.com/sarchlab/rvtrace/insts"

// SystemUnit implements the SYSTEM opcode group: Zicsr read-modify-write
// instructions and the machine-mode privileged instructions.
type SystemUnit struct {
	regFile *RegFile
}

// NewSystemUnit creates a new SystemUnit connected to the given register
// file.
func NewSystemUnit(regFile *RegFile) *SystemUnit {
	return &SystemUnit{regFile: regFile}
}

// Execute runs a SYSTEM instruction located at pc.
func (s *SystemUnit) Execute(inst *insts.Instruction, pc uint32) *Exception {
	if inst.Funct3 == insts.Funct3Priv {
		return s.privileged(inst, pc)
	}
	return s.csr(inst, pc)
}

func (s *SystemUnit) privileged(inst *insts.Instruction, pc uint32) *Exception {
	if inst.Rd != 0 {
		s.regFile.PC = pc + 4
		return nil
	}

	switch inst.CSR() {
	case insts.SysECALL:
		return raise(CauseECallM, 0)
	case insts.SysEBREAK:
		return raise(CauseBreakpoint, 0)
	case insts.SysMRET:
		s.regFile.PC = s.regFile.ReadCSR(insts.CSRMEPC)
	default:
		// WFI and everything else retire as a NOP.
		s.regFile.PC = pc + 4
	}
	return nil
}

// csr performs the read-modify-write: the old CSR value lands in rd and
// the CSR is written, set or cleared with rs1 or the Z-immediate.
func (s *SystemUnit) csr(inst *insts.Instruction, pc uint32) *Exception {
	src := s.regFile.ReadReg(inst.Rs1)
	if inst.Funct3&4 != 0 {
		src = inst.ImmZ
	}

	index := inst.CSR()
	old := s.regFile.ReadCSR(index)

	var value uint32
	switch inst.Funct3 {
	case insts.Funct3CSRRW, insts.Funct3CSRRWI:
		value = src
	case insts.Funct3CSRRS, insts.Funct3CSRRSI:
		value = old | src
	case insts.Funct3CSRRC, insts.Funct3CSRRCI:
		value = old &^ src
	default:
		return raise(CauseIllegalInstruction, inst.Raw)
	}

	s.regFile.WriteReg(inst.Rd, old)
	s.regFile.WriteCSR(index, value)
	s.regFile.PC = pc + 4
	return nil
}
