// Package emu provides the RV32I architectural reference model.
package emu

import "github.com/sarchlab/rvtrace/insts"

// BranchUnit implements RV32I branch and jump operations.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// CheckCondition evaluates the comparison predicate of a conditional
// branch. ok is false for the two reserved funct3 encodings.
func (b *BranchUnit) CheckCondition(inst *insts.Instruction) (taken, ok bool) {
	op1 := b.regFile.ReadReg(inst.Rs1)
	op2 := b.regFile.ReadReg(inst.Rs2)

	switch inst.Funct3 {
	case insts.Funct3BEQ:
		return op1 == op2, true
	case insts.Funct3BNE:
		return op1 != op2, true
	case insts.Funct3BLT:
		return int32(op1) < int32(op2), true
	case insts.Funct3BGE:
		return int32(op1) >= int32(op2), true
	case insts.Funct3BLTU:
		return op1 < op2, true
	case insts.Funct3BGEU:
		return op1 >= op2, true
	default:
		return false, false
	}
}

// Branch executes a conditional branch located at pc. A taken branch to
// an address that is not 4-byte aligned raises an exception and leaves
// the PC unchanged.
func (b *BranchUnit) Branch(inst *insts.Instruction, pc uint32) *Exception {
	taken, ok := b.CheckCondition(inst)
	if !ok {
		return raise(CauseIllegalInstruction, inst.Raw)
	}

	if !taken {
		b.regFile.PC = pc + 4
		return nil
	}

	return b.jump(pc + inst.ImmB)
}

// JAL performs a jump and link: rd = pc + 4; pc += J-immediate.
func (b *BranchUnit) JAL(inst *insts.Instruction, pc uint32) *Exception {
	b.regFile.WriteReg(inst.Rd, pc+4)
	return b.jump(pc + inst.ImmJ)
}

// JALR performs an indirect jump and link:
// rd = pc + 4; pc = (rs1 + I-immediate) & ~1.
func (b *BranchUnit) JALR(inst *insts.Instruction, pc uint32) *Exception {
	// Read base first (in case rd == rs1)
	target := (b.regFile.ReadReg(inst.Rs1) + inst.ImmI) &^ 1

	b.regFile.WriteReg(inst.Rd, pc+4)
	return b.jump(target)
}

func (b *BranchUnit) jump(target uint32) *Exception {
	if target&3 != 0 {
		return raise(CauseInstAddrMisaligned, target)
	}
	b.regFile.PC = target
	return nil
}
