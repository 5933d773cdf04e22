// Package emu provides the RV32I architectural reference model.
package emu

import "github.com/sarchlab/rvtrace/insts"

// ALU implements RV32I arithmetic and logic operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// ExecOp executes a register-register instruction: rd = rs1 op rs2.
// Bit 30 selects SUB over ADD and SRA over SRL.
func (a *ALU) ExecOp(inst *insts.Instruction) {
	op1 := a.regFile.ReadReg(inst.Rs1)
	op2 := a.regFile.ReadReg(inst.Rs2)
	a.regFile.WriteReg(inst.Rd, Compute(inst.Funct3, inst.Alt, op1, op2))
}

// ExecOpImm executes a register-immediate instruction: rd = rs1 op imm.
// Bit 30 only matters for SRAI; for ADDI it is part of the immediate.
func (a *ALU) ExecOpImm(inst *insts.Instruction) {
	op1 := a.regFile.ReadReg(inst.Rs1)
	alt := inst.Funct3 == insts.Funct3SRLSRA && inst.Alt
	a.regFile.WriteReg(inst.Rd, Compute(inst.Funct3, alt, op1, inst.ImmI))
}

// Compute evaluates one RV32I ALU function. Shift amounts are masked to
// 5 bits.
func Compute(funct3 uint8, alt bool, op1, op2 uint32) uint32 {
	switch funct3 {
	case insts.Funct3AddSub:
		if alt {
			return op1 - op2
		}
		return op1 + op2
	case insts.Funct3SLL:
		return op1 << (op2 & 0x1F)
	case insts.Funct3SLT:
		if int32(op1) < int32(op2) {
			return 1
		}
		return 0
	case insts.Funct3SLTU:
		if op1 < op2 {
			return 1
		}
		return 0
	case insts.Funct3XOR:
		return op1 ^ op2
	case insts.Funct3SRLSRA:
		if alt {
			return uint32(int32(op1) >> (op2 & 0x1F))
		}
		return op1 >> (op2 & 0x1F)
	case insts.Funct3OR:
		return op1 | op2
	default:
		return op1 & op2
	}
}
