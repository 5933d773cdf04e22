// Package emu provides the RV32I architectural reference model.
package emu

// NumCSRs is the size of the 12-bit CSR address space.
const NumCSRs = 4096

// RegFile represents the RV32I architectural state: 32 general-purpose
// registers, the program counter, and the control/status register bank.
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is hard-wired to zero and is never written.
	X [32]uint32

	// PC is the program counter.
	PC uint32

	// CSR is a dense bank indexed by the 12-bit CSR address.
	CSR [NumCSRs]uint32
}

// ReadReg reads a register value. Register 0 always reads as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// ReadCSR reads a control/status register.
func (r *RegFile) ReadCSR(csr uint16) uint32 {
	return r.CSR[csr&(NumCSRs-1)]
}

// WriteCSR writes a control/status register.
func (r *RegFile) WriteCSR(csr uint16, value uint32) {
	r.CSR[csr&(NumCSRs-1)] = value
}
