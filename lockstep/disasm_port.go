package lockstep

import "github.com/sarchlab/rvtrace/insts"

// DisasmPortSize is the capacity of the DisasmPort line buffer.
const DisasmPortSize = 32

// DisasmPort serves a disassembled line one character per call, for
// callers that cannot receive strings.
//
// Index 0 disassembles (inst, pc) into the buffer; other indices read the
// buffered line. Characters past the end of the line read as 0. A
// DisasmPort is not safe for interleaved callers.
type DisasmPort struct {
	buf [DisasmPortSize]byte
}

// Char returns character idx of the disassembly of inst at pc.
func (p *DisasmPort) Char(inst, pc uint32, idx int) byte {
	if idx == 0 {
		p.buf = [DisasmPortSize]byte{}
		copy(p.buf[:DisasmPortSize-1], insts.Disassemble(inst, pc))
	}
	return p.buf[idx&(DisasmPortSize-1)]
}
