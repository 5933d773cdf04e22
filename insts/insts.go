// Package insts provides RV32I instruction definitions, decoding and
// disassembly.
//
// This package turns raw 32-bit RISC-V machine words into structured
// instruction fields. It supports:
//   - RV32I base integer instructions (loads, stores, ALU, branches, jumps)
//   - Zicsr control/status register instructions
//   - Machine-mode system instructions (ECALL, EBREAK, MRET, WFI)
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00500093) // addi x1,x0,5
//	fmt.Printf("Opcode: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Opcode, inst.Rd, inst.Rs1, int32(inst.ImmI))
//	fmt.Println(insts.Disassemble(0x00500093, 0x80000000)) // addi    ra,x0,$005
package insts
