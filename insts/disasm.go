package insts

import (
	"fmt"
	"strings"
)

var loadMnemonics = [8]string{"lb", "lh", "lw", "l???", "lbu", "lhu", "l???", "l???"}

var storeMnemonics = [8]string{"sb", "sh", "sw", "s???", "s???", "s???", "s???", "s???"}

var opImmMnemonics = [8]string{"addi", "slli", "slti", "sltiu", "xori", "srli", "ori", "andi"}

var opMnemonics = [8]string{"add", "sll", "slt", "sltu", "xor", "srl", "or", "and"}

var branchMnemonics = [8]string{"beq", "bne", "b???", "b???", "blt", "bge", "bltu", "bgeu"}

var csrMnemonics = [8]string{"csr???", "csrrw", "csrrs", "csrrc", "csr???", "csrrwi", "csrrsi", "csrrci"}

var regNames = [32]string{
	"x0", "ra", "sp", "x3", "x4", "x5", "x6", "x7",
	"x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15",
	"x16", "x17", "x18", "x19", "x20", "x21", "x22", "x23",
	"x24", "x25", "x26", "x27", "x28", "x29", "x30", "x31",
}

// RegName returns the assembler name of a general-purpose register.
func RegName(reg uint8) string {
	return regNames[reg&0x1F]
}

// HexU formats the low digits hex digits of val as an unsigned "$"
// prefixed value.
func HexU(val uint32, digits int) string {
	return "$" + fmt.Sprintf("%0*X", digits, val&digitMask(digits))
}

// HexS formats val as a signed value of digits hex digits: when the top
// bit of the field is set the magnitude is printed after a "-".
func HexS(val uint32, digits int) string {
	mask := digitMask(digits)
	sign := (mask >> 1) + 1
	if val&sign != 0 {
		return "-" + HexU(-val, digits)
	}
	return HexU(val, digits)
}

func digitMask(digits int) uint32 {
	if digits >= 8 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << (uint(digits) * 4)) - 1
}

func line(mnemonic, operands string) string {
	return fmt.Sprintf("%-7s %s", mnemonic, operands)
}

// Disassemble returns the assembler text of word located at pc.
// Branch and jump targets are printed as absolute addresses.
func Disassemble(word, pc uint32) string {
	inst := Decode(word)
	return inst.Disassemble(pc)
}

// Disassemble decodes word and returns its assembler text at pc.
func (d *Decoder) Disassemble(word, pc uint32) string {
	return Disassemble(word, pc)
}

// Disassemble returns the assembler text of the instruction located at pc.
func (i *Instruction) Disassemble(pc uint32) string {
	rd, rs1, rs2 := RegName(i.Rd), RegName(i.Rs1), RegName(i.Rs2)

	switch i.Opcode {
	case OpcodeLoad:
		return line(loadMnemonics[i.Funct3],
			fmt.Sprintf("%s,%s(%s)", rd, HexS(i.ImmI, 3), rs1))

	case OpcodeMiscMem:
		switch i.Funct3 {
		case 0:
			return line("fence", fenceSet(i.ImmI>>4)+","+fenceSet(i.ImmI))
		case 1:
			return "fence.i"
		default:
			return "f???   " + HexU(i.Raw, 8)
		}

	case OpcodeOpImm:
		mnemonic := opImmMnemonics[i.Funct3]
		imm := i.ImmI
		if i.Funct3 == Funct3SLL || i.Funct3 == Funct3SRLSRA {
			imm = i.ShiftAmount()
			if i.Funct3 == Funct3SRLSRA && i.Alt {
				mnemonic = "srai"
			}
		}
		return line(mnemonic, fmt.Sprintf("%s,%s,%s", rd, rs1, HexS(imm, 3)))

	case OpcodeAUIPC:
		return line("auipc", rd+","+HexU(i.ImmU, 8))

	case OpcodeStore:
		return line(storeMnemonics[i.Funct3],
			fmt.Sprintf("%s,%s(%s)", rs2, HexS(i.ImmS, 3), rs1))

	case OpcodeOp:
		mnemonic := opMnemonics[i.Funct3]
		if i.Alt {
			switch i.Funct3 {
			case Funct3AddSub:
				mnemonic = "sub"
			case Funct3SRLSRA:
				mnemonic = "sra"
			}
		}
		return line(mnemonic, fmt.Sprintf("%s,%s,%s", rd, rs1, rs2))

	case OpcodeLUI:
		return line("lui", rd+","+HexU(i.ImmU, 8))

	case OpcodeBranch:
		return line(branchMnemonics[i.Funct3],
			fmt.Sprintf("%s,%s,%s", rs1, rs2, HexU(pc+i.ImmB, 8)))

	case OpcodeJALR:
		return line("jalr", fmt.Sprintf("%s,%s(%s)", rd, HexS(i.ImmI, 3), rs1))

	case OpcodeJAL:
		return line("jal", rd+","+HexU(pc+i.ImmJ, 8))

	case OpcodeSystem:
		return i.disassembleSystem()
	}

	return "op???   " + HexU(i.Raw, 8)
}

func (i *Instruction) disassembleSystem() string {
	if i.Funct3 != Funct3Priv {
		src := RegName(i.Rs1)
		if i.Funct3&4 != 0 {
			src = HexU(i.ImmZ, 2)
		}
		return line(csrMnemonics[i.Funct3],
			fmt.Sprintf("%s,%s,%s", RegName(i.Rd), CSRName(i.CSR()), src))
	}

	switch i.CSR() {
	case SysECALL:
		return "ecall"
	case SysEBREAK:
		return "ebreak"
	case SysURET:
		return "uret"
	case SysSRET:
		return "sret"
	case SysWFI:
		return "wfi"
	case SysMRET:
		return "mret"
	}
	return "csr??? " + HexU(i.Raw, 8)
}

// fenceSet renders the low four bits of set as a subset of "iorw".
func fenceSet(set uint32) string {
	var sb strings.Builder
	for bit, c := range "iorw" {
		if set&(8>>uint(bit)) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
