package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvtrace/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Register fields", func() {
		// add x3, x1, x2 -> 0x002081B3
		It("should decode ADD x3, x1, x2", func() {
			inst := decoder.Decode(0x002081B3)

			Expect(inst.Opcode).To(Equal(insts.OpcodeOp))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Funct3).To(Equal(uint8(0)))
			Expect(inst.Alt).To(BeFalse())
			Expect(inst.Raw).To(Equal(uint32(0x002081B3)))
		})

		// sub x3, x1, x2 -> 0x402081B3
		It("should flag bit 30 for SUB", func() {
			inst := decoder.Decode(0x402081B3)

			Expect(inst.Opcode).To(Equal(insts.OpcodeOp))
			Expect(inst.Alt).To(BeTrue())
		})
	})

	Describe("Immediates", func() {
		// addi x1, x0, 5 -> 0x00500093
		It("should decode a positive I-immediate", func() {
			inst := decoder.Decode(0x00500093)

			Expect(inst.Opcode).To(Equal(insts.OpcodeOpImm))
			Expect(inst.ImmI).To(Equal(uint32(5)))
		})

		// addi x1, x0, -1 -> 0xFFF00093
		It("should sign-extend a negative I-immediate", func() {
			inst := decoder.Decode(0xFFF00093)

			Expect(inst.ImmI).To(Equal(uint32(0xFFFFFFFF)))
		})

		// sw x2, -4(x1) -> 0xFE20AE23
		It("should reassemble and sign-extend the S-immediate", func() {
			inst := decoder.Decode(0xFE20AE23)

			Expect(inst.Opcode).To(Equal(insts.OpcodeStore))
			Expect(inst.ImmS).To(Equal(uint32(0xFFFFFFFC)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
		})

		// lui x5, 0x12345 -> 0x123452B7
		It("should keep the upper 20 bits for the U-immediate", func() {
			inst := decoder.Decode(0x123452B7)

			Expect(inst.Opcode).To(Equal(insts.OpcodeLUI))
			Expect(inst.ImmU).To(Equal(uint32(0x12345000)))
			Expect(inst.Rd).To(Equal(uint8(5)))
		})

		// beq x1, x2, +8 -> 0x00208463
		It("should unscramble a forward B-immediate", func() {
			inst := decoder.Decode(0x00208463)

			Expect(inst.Opcode).To(Equal(insts.OpcodeBranch))
			Expect(inst.ImmB).To(Equal(uint32(8)))
		})

		// bne x1, x0, -4 -> 0xFE009EE3
		It("should sign-extend a backward B-immediate", func() {
			inst := decoder.Decode(0xFE009EE3)

			Expect(inst.ImmB).To(Equal(uint32(0xFFFFFFFC)))
		})

		// beq x0, x0, +2048 -> 0x00000063 | imm[11] in bit 7
		It("should place B-immediate bit 11 from instruction bit 7", func() {
			inst := decoder.Decode(0x00000063 | 1<<7)

			Expect(inst.ImmB).To(Equal(uint32(0x800)))
		})

		// jal x1, +2048 -> 0x001000EF
		It("should unscramble a J-immediate", func() {
			inst := decoder.Decode(0x001000EF)

			Expect(inst.Opcode).To(Equal(insts.OpcodeJAL))
			Expect(inst.ImmJ).To(Equal(uint32(0x800)))
			Expect(inst.Rd).To(Equal(uint8(1)))
		})

		// jal x0, -8 -> 0xFF9FF06F
		It("should sign-extend a backward J-immediate", func() {
			inst := decoder.Decode(0xFF9FF06F)

			Expect(inst.ImmJ).To(Equal(uint32(0xFFFFFFF8)))
		})

		// csrrwi x0, mscratch, 31 -> 0x340FD073
		It("should decode the CSR index and Z-immediate", func() {
			inst := decoder.Decode(0x340FD073)

			Expect(inst.Opcode).To(Equal(insts.OpcodeSystem))
			Expect(inst.CSR()).To(Equal(uint16(insts.CSRMScratch)))
			Expect(inst.ImmZ).To(Equal(uint32(31)))
			Expect(inst.Funct3).To(Equal(uint8(insts.Funct3CSRRWI)))
		})

		// srai x1, x1, 3 -> 0x4030D093
		It("should mask shift amounts to 5 bits", func() {
			inst := decoder.Decode(0x4030D093)

			Expect(inst.Alt).To(BeTrue())
			Expect(inst.ShiftAmount()).To(Equal(uint32(3)))
		})
	})

	It("should agree with the package-level Decode", func() {
		Expect(*decoder.Decode(0xFE20AE23)).To(Equal(insts.Decode(0xFE20AE23)))
	})
})
