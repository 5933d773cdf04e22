package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvtrace/emu"
	"github.com/sarchlab/rvtrace/insts"
)

var _ = Describe("Loads and stores", func() {
	var (
		e    *emu.Emulator
		regs *emu.RegFile
	)

	step := func(word uint32) emu.StepResult {
		return e.Step(regs.PC, word)
	}

	BeforeEach(func() {
		e = emu.NewEmulator(resetVector, emu.WithTrapVector(trapVector))
		regs = e.RegFile()
		regs.WriteReg(1, 0x1000)
	})

	Describe("Loads", func() {
		It("should issue a word read and defer the register write", func() {
			result := step(lw(5, 1, 4))

			Expect(result.Exception).To(BeNil())
			Expect(result.Transaction).NotTo(BeNil())
			Expect(result.Transaction.Addr).To(Equal(uint32(0x1004)))
			Expect(result.Transaction.Direction).To(Equal(emu.DirRead))
			Expect(result.Transaction.Mask).To(Equal(uint8(0xF)))
			Expect(regs.PC).To(Equal(resetVector + 4))
			Expect(regs.ReadReg(5)).To(BeZero())

			tx, ok := e.CompleteLoad(0xDEADBEEF)
			Expect(ok).To(BeTrue())
			Expect(tx.Rd).To(Equal(uint8(5)))
			Expect(regs.ReadReg(5)).To(Equal(uint32(0xDEADBEEF)))

			_, pending := e.Pending()
			Expect(pending).To(BeFalse())
		})

		DescribeTable("extracts and extends the addressed lanes",
			func(f3 uint32, offset int32, mask uint8, data, expected uint32) {
				result := step(encI(0x03, 5, f3, 1, offset))

				Expect(result.Transaction.Mask).To(Equal(mask))
				e.CompleteLoad(data)
				Expect(regs.ReadReg(5)).To(Equal(expected))
			},
			Entry("LB lane 3 negative", uint32(0), int32(3), uint8(0x8), uint32(0x80000000), uint32(0xFFFFFF80)),
			Entry("LB lane 1 positive", uint32(0), int32(1), uint8(0x2), uint32(0x00007F00), uint32(0x0000007F)),
			Entry("LBU lane 3", uint32(4), int32(3), uint8(0x8), uint32(0x80000000), uint32(0x00000080)),
			Entry("LH upper half negative", uint32(1), int32(2), uint8(0xC), uint32(0x80010000), uint32(0xFFFF8001)),
			Entry("LH lower half", uint32(1), int32(0), uint8(0x3), uint32(0xFFFF1234), uint32(0x00001234)),
			Entry("LHU upper half", uint32(5), int32(2), uint8(0xC), uint32(0x80010000), uint32(0x00008001)),
		)

		It("should trap on a misaligned word load without issuing it", func() {
			result := step(lw(5, 1, 3))

			Expect(result.Transaction).To(BeNil())
			Expect(result.Exception.Cause).To(Equal(emu.CauseLoadAddrMisaligned))
			Expect(regs.ReadCSR(insts.CSRMCause)).To(Equal(uint32(4)))
			Expect(regs.ReadCSR(insts.CSRMTVal)).To(Equal(uint32(0x1003)))
			Expect(regs.ReadCSR(insts.CSRMEPC)).To(Equal(resetVector))
			Expect(regs.PC).To(Equal(trapVector))

			_, pending := e.Pending()
			Expect(pending).To(BeFalse())
		})

		It("should report a load completion with nothing outstanding", func() {
			_, ok := e.CompleteLoad(0x1234)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Stores", func() {
		BeforeEach(func() {
			regs.WriteReg(2, 0x123456AB)
		})

		DescribeTable("replicates the value across the enabled lanes",
			func(f3 uint32, offset int32, mask uint8, data uint32) {
				result := step(encS(0x23, f3, 1, 2, offset))

				Expect(result.Exception).To(BeNil())
				Expect(result.Transaction.Direction).To(Equal(emu.DirWrite))
				Expect(result.Transaction.Addr).To(Equal(0x1000 + uint32(offset)))
				Expect(result.Transaction.Mask).To(Equal(mask))
				Expect(result.Transaction.Data).To(Equal(data))
				Expect(regs.PC).To(Equal(resetVector + 4))
			},
			Entry("SB lane 1", uint32(0), int32(1), uint8(0x2), uint32(0xABABABAB)),
			Entry("SH upper half", uint32(1), int32(2), uint8(0xC), uint32(0x56AB56AB)),
			Entry("SW", uint32(2), int32(8), uint8(0xF), uint32(0x123456AB)),
			Entry("SW negative offset", uint32(2), int32(-4), uint8(0xF), uint32(0x123456AB)),
		)

		It("should trap on a misaligned halfword store", func() {
			result := step(encS(0x23, 1, 1, 2, 1))

			Expect(result.Transaction).To(BeNil())
			Expect(result.Exception.Cause).To(Equal(emu.CauseStoreAddrMisaligned))
			Expect(regs.ReadCSR(insts.CSRMTVal)).To(Equal(uint32(0x1001)))
		})

		It("should retire the outstanding store", func() {
			step(sw(2, 1, 0))

			tx, ok := e.CompleteStore()
			Expect(ok).To(BeTrue())
			Expect(tx.Addr).To(Equal(uint32(0x1000)))
		})

		It("should not retire a load as a store", func() {
			step(lw(5, 1, 0))

			_, ok := e.CompleteStore()
			Expect(ok).To(BeFalse())

			_, pending := e.Pending()
			Expect(pending).To(BeFalse())
		})
	})

	Describe("Alignment", func() {
		It("should issue a transaction exactly when the address is aligned", func() {
			widths := map[uint32]uint32{0: 1, 1: 2, 2: 4}

			for f3, width := range widths {
				for offset := int32(0); offset < 8; offset++ {
					e = emu.NewEmulator(resetVector, emu.WithTrapVector(trapVector))
					regs = e.RegFile()
					regs.WriteReg(1, 0x2000)

					aligned := uint32(offset)%width == 0

					load := step(encI(0x03, 5, f3, 1, offset))
					Expect(load.Transaction != nil).To(Equal(aligned))
					Expect(load.Exception != nil).To(Equal(!aligned))

					regs.PC = resetVector
					store := step(encS(0x23, f3, 1, 2, offset))
					Expect(store.Transaction != nil).To(Equal(aligned))
					Expect(store.Exception != nil).To(Equal(!aligned))
				}
			}
		})
	})

	Describe("Outstanding transactions", func() {
		It("should report a transaction replaced before it was consumed", func() {
			first := step(lw(5, 1, 0))
			Expect(first.Dropped).To(BeNil())

			second := step(sw(2, 1, 8))
			Expect(second.Dropped).NotTo(BeNil())
			Expect(second.Dropped.Addr).To(Equal(uint32(0x1000)))
			Expect(second.Dropped.IsLoad()).To(BeTrue())

			tx, pending := e.Pending()
			Expect(pending).To(BeTrue())
			Expect(tx.Addr).To(Equal(uint32(0x1008)))
		})
	})

	Describe("Helpers", func() {
		It("should compute byte masks", func() {
			Expect(emu.ByteMask(0x1003, emu.WidthByte)).To(Equal(uint8(0x8)))
			Expect(emu.ByteMask(0x1002, emu.WidthHalf)).To(Equal(uint8(0xC)))
			Expect(emu.ByteMask(0x1000, emu.WidthWord)).To(Equal(uint8(0xF)))
		})

		It("should replicate narrow values", func() {
			Expect(emu.Replicate(0x1234_56AB, emu.WidthByte)).To(Equal(uint32(0xABABABAB)))
			Expect(emu.Replicate(0x1234_56AB, emu.WidthHalf)).To(Equal(uint32(0x56AB56AB)))
			Expect(emu.Replicate(0x1234_56AB, emu.WidthWord)).To(Equal(uint32(0x123456AB)))
		})

		It("should format a transaction", func() {
			tx := emu.MemTransaction{Addr: 0x1000, Direction: emu.DirWrite, Width: emu.WidthHalf, Mask: 0x3}
			Expect(tx.String()).To(Equal("write16 @ 0x00001000 mask 0x3"))
		})
	})
})
