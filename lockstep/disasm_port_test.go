package lockstep_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvtrace/lockstep"
)

var _ = Describe("DisasmPort", func() {
	var port *lockstep.DisasmPort

	read := func(inst, pc uint32) string {
		var text []byte
		for idx := 0; idx < lockstep.DisasmPortSize; idx++ {
			ch := port.Char(inst, pc, idx)
			if ch == 0 {
				break
			}
			text = append(text, ch)
		}
		return string(text)
	}

	BeforeEach(func() {
		port = &lockstep.DisasmPort{}
	})

	It("should serve the line one character at a time", func() {
		Expect(read(0x00500093, 0x80000000)).To(Equal("addi    ra,x0,$005"))
	})

	It("should read zero past the end of the line", func() {
		port.Char(0x00500093, 0x80000000, 0)
		Expect(port.Char(0x00500093, 0x80000000, 25)).To(BeZero())
	})

	It("should only recompute on index 0", func() {
		port.Char(0x00500093, 0x80000000, 0)
		Expect(port.Char(0x00000073, 0x80000000, 1)).To(Equal(byte('d')))

		Expect(port.Char(0x00000073, 0x80000000, 0)).To(Equal(byte('e')))
		Expect(port.Char(0x00500093, 0x80000000, 1)).To(Equal(byte('c')))
	})

	It("should be reachable through the checker", func() {
		c := lockstep.New(0x80000000, 0, 0)
		Expect(c.DisasmChar(0x30200073, 0, 0)).To(Equal(byte('m')))
		Expect(c.Disassemble(0x30200073, 0)).To(Equal("mret"))
	})
})
