package insts

// Opcode represents a 7-bit RISC-V major opcode group.
type Opcode uint8

// RISC-V major opcode groups.
const (
	OpcodeLoad    Opcode = 0x03
	OpcodeLoadFP  Opcode = 0x07
	OpcodeMiscMem Opcode = 0x0F // FENCE, FENCE.I
	OpcodeOpImm   Opcode = 0x13
	OpcodeAUIPC   Opcode = 0x17
	OpcodeOpImm32 Opcode = 0x1B
	OpcodeStore   Opcode = 0x23
	OpcodeStoreFP Opcode = 0x27
	OpcodeAMO     Opcode = 0x2F
	OpcodeOp      Opcode = 0x33
	OpcodeLUI     Opcode = 0x37
	OpcodeOp32    Opcode = 0x3B
	OpcodeMAdd    Opcode = 0x43
	OpcodeMSub    Opcode = 0x47
	OpcodeNMSub   Opcode = 0x4B
	OpcodeNMAdd   Opcode = 0x4F
	OpcodeOpFP    Opcode = 0x53
	OpcodeBranch  Opcode = 0x63
	OpcodeJALR    Opcode = 0x67
	OpcodeJAL     Opcode = 0x6F
	OpcodeSystem  Opcode = 0x73
)

// Funct3 values shared by the execution units and the disassembler.
const (
	Funct3LB  = 0
	Funct3LH  = 1
	Funct3LW  = 2
	Funct3LBU = 4
	Funct3LHU = 5

	Funct3SB = 0
	Funct3SH = 1
	Funct3SW = 2

	Funct3AddSub = 0
	Funct3SLL    = 1
	Funct3SLT    = 2
	Funct3SLTU   = 3
	Funct3XOR    = 4
	Funct3SRLSRA = 5
	Funct3OR     = 6
	Funct3AND    = 7

	Funct3BEQ  = 0
	Funct3BNE  = 1
	Funct3BLT  = 4
	Funct3BGE  = 5
	Funct3BLTU = 6
	Funct3BGEU = 7

	Funct3Priv   = 0
	Funct3CSRRW  = 1
	Funct3CSRRS  = 2
	Funct3CSRRC  = 3
	Funct3CSRRWI = 5
	Funct3CSRRSI = 6
	Funct3CSRRCI = 7
)

// System function codes carried in the I-immediate when funct3 is zero.
const (
	SysECALL  = 0x000
	SysEBREAK = 0x001
	SysURET   = 0x002
	SysSRET   = 0x102
	SysWFI    = 0x105
	SysMRET   = 0x302
)

// Instruction holds every field of a decoded RV32I instruction word.
// All immediates are computed up front; sign-extended ones are extended
// from bit 31 of the raw word.
type Instruction struct {
	Raw    uint32 // Raw instruction word
	Opcode Opcode // Major opcode group, bits [6:0]
	Funct3 uint8  // bits [14:12]
	Alt    bool   // bit 30: SUB/SRA/SRAI discriminator
	Rd     uint8  // bits [11:7]
	Rs1    uint8  // bits [19:15]
	Rs2    uint8  // bits [24:20]

	ImmI uint32 // I-type, sign-extended 12-bit
	ImmS uint32 // S-type, sign-extended 12-bit split field
	ImmU uint32 // U-type, upper 20 bits
	ImmB uint32 // B-type branch offset, sign-extended 13-bit
	ImmJ uint32 // J-type jump offset, sign-extended 21-bit
	ImmZ uint32 // 5-bit unsigned CSR immediate (rs1 field)
}

// CSR returns the 12-bit CSR index of a SYSTEM instruction.
func (i *Instruction) CSR() uint16 {
	return uint16(i.ImmI & 0xFFF)
}

// ShiftAmount returns the 5-bit shift amount of a shift-immediate.
func (i *Instruction) ShiftAmount() uint32 {
	return i.ImmI & 0x1F
}

// Decoder decodes RV32I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32I instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := Decode(word)
	return &inst
}

// Decode extracts every field and immediate encoding from word.
func Decode(word uint32) Instruction {
	inst := Instruction{
		Raw:    word,
		Opcode: Opcode(word & 0x7F),
		Rd:     uint8((word >> 7) & 0x1F),
		Funct3: uint8((word >> 12) & 0x07),
		Rs1:    uint8((word >> 15) & 0x1F),
		Rs2:    uint8((word >> 20) & 0x1F),
		Alt:    (word>>30)&1 == 1,
	}

	inst.ImmI = (word >> 20) & 0x00000FFF
	inst.ImmS = ((word >> 20) & 0x00000FE0) | ((word >> 7) & 0x0000001F)
	inst.ImmU = word & 0xFFFFF000
	// imm[12|10:5] in [31:25], imm[4:1|11] in [11:7]
	inst.ImmB = ((word >> 19) & 0x00001000) |
		((word >> 20) & 0x000007E0) |
		((word >> 7) & 0x0000001E) |
		((word << 4) & 0x00000800)
	// imm[20|10:1|11|19:12] in [31:12]
	inst.ImmJ = ((word >> 11) & 0x00100000) |
		((word >> 20) & 0x000007FE) |
		((word >> 9) & 0x00000800) |
		(word & 0x000FF000)
	inst.ImmZ = (word >> 15) & 0x0000001F

	if word&0x80000000 != 0 {
		inst.ImmI |= 0xFFFFF000
		inst.ImmS |= 0xFFFFF000
		inst.ImmB |= 0xFFFFE000
		inst.ImmJ |= 0xFFE00000
	}

	return inst
}
