// Package elftest builds small in-memory ELF images for tests.
package elftest

import (
	"bytes"
	"encoding/binary"
)

// Machine types accepted by Build32.
const (
	MachineRISCV = 243
	Machine386   = 3
)

// Program header flags.
const (
	FlagX = 0x1
	FlagW = 0x2
	FlagR = 0x4
)

// Segment describes one PT_LOAD segment.
type Segment struct {
	Addr    uint32
	Data    []byte
	MemSize uint32
	Flags   uint32
}

// Symbol is a global absolute symbol.
type Symbol struct {
	Name  string
	Value uint32
}

// Build32 assembles a little-endian ELF32 executable with the given
// PT_LOAD segments and, if any symbols are given, a .symtab/.strtab pair.
func Build32(machine uint16, entry uint32, segs []Segment, syms []Symbol) []byte {
	const (
		ehsize    = 52
		phentsize = 32
		shentsize = 40
		symsize   = 16
	)

	le := binary.LittleEndian
	phoff := uint32(ehsize)
	off := phoff + uint32(len(segs))*phentsize

	var body bytes.Buffer
	phdrs := make([]byte, len(segs)*phentsize)
	for i, seg := range segs {
		ph := phdrs[i*phentsize:]
		le.PutUint32(ph[0:], 1) // PT_LOAD
		le.PutUint32(ph[4:], off+uint32(body.Len()))
		le.PutUint32(ph[8:], seg.Addr)
		le.PutUint32(ph[12:], seg.Addr)
		le.PutUint32(ph[16:], uint32(len(seg.Data)))
		le.PutUint32(ph[20:], seg.MemSize)
		le.PutUint32(ph[24:], seg.Flags)
		le.PutUint32(ph[28:], 4)
		body.Write(seg.Data)
	}

	var shdrs []byte
	var shoff uint32
	var shnum, shstrndx uint16
	if len(syms) > 0 {
		for body.Len()%4 != 0 {
			body.WriteByte(0)
		}

		strtab := []byte("\x00.symtab\x00.strtab\x00")
		symtab := make([]byte, symsize, symsize*(len(syms)+1))
		for _, sym := range syms {
			entry := make([]byte, symsize)
			le.PutUint32(entry[0:], uint32(len(strtab)))
			le.PutUint32(entry[4:], sym.Value)
			entry[12] = 0x10 // STB_GLOBAL, STT_NOTYPE
			le.PutUint16(entry[14:], 0xFFF1)
			symtab = append(symtab, entry...)
			strtab = append(append(strtab, sym.Name...), 0)
		}

		symOff := off + uint32(body.Len())
		body.Write(symtab)
		strOff := off + uint32(body.Len())
		body.Write(strtab)
		for body.Len()%4 != 0 {
			body.WriteByte(0)
		}
		shoff = off + uint32(body.Len())

		shdrs = make([]byte, 3*shentsize)
		sh := shdrs[shentsize:]
		le.PutUint32(sh[0:], 1) // ".symtab"
		le.PutUint32(sh[4:], 2) // SHT_SYMTAB
		le.PutUint32(sh[16:], symOff)
		le.PutUint32(sh[20:], uint32(len(symtab)))
		le.PutUint32(sh[24:], 2) // link to .strtab
		le.PutUint32(sh[28:], 1)
		le.PutUint32(sh[32:], 4)
		le.PutUint32(sh[36:], symsize)
		sh = shdrs[2*shentsize:]
		le.PutUint32(sh[0:], 9) // ".strtab"
		le.PutUint32(sh[4:], 3) // SHT_STRTAB
		le.PutUint32(sh[16:], strOff)
		le.PutUint32(sh[20:], uint32(len(strtab)))
		le.PutUint32(sh[32:], 1)

		shnum, shstrndx = 3, 2
	}

	hdr := make([]byte, ehsize)
	copy(hdr[0:4], []byte{0x7f, 'E', 'L', 'F'})
	hdr[4] = 1 // ELFCLASS32
	hdr[5] = 1 // little endian
	hdr[6] = 1 // version
	le.PutUint16(hdr[16:], 2) // executable
	le.PutUint16(hdr[18:], machine)
	le.PutUint32(hdr[20:], 1)
	le.PutUint32(hdr[24:], entry)
	if len(segs) > 0 {
		le.PutUint32(hdr[28:], phoff)
	}
	le.PutUint32(hdr[32:], shoff)
	le.PutUint16(hdr[40:], ehsize)
	le.PutUint16(hdr[42:], phentsize)
	le.PutUint16(hdr[44:], uint16(len(segs)))
	le.PutUint16(hdr[46:], shentsize)
	le.PutUint16(hdr[48:], shnum)
	le.PutUint16(hdr[50:], shstrndx)

	out := append(hdr, phdrs...)
	out = append(out, body.Bytes()...)
	return append(out, shdrs...)
}

// Build64 creates a minimal 64-bit RISC-V ELF header to test rejection.
func Build64() []byte {
	hdr := make([]byte, 64)
	copy(hdr[0:4], []byte{0x7f, 'E', 'L', 'F'})
	hdr[4] = 2 // ELFCLASS64
	hdr[5] = 1
	hdr[6] = 1
	binary.LittleEndian.PutUint16(hdr[16:18], 2)
	binary.LittleEndian.PutUint16(hdr[18:20], MachineRISCV)
	binary.LittleEndian.PutUint32(hdr[20:24], 1)
	binary.LittleEndian.PutUint16(hdr[52:54], 64)
	binary.LittleEndian.PutUint16(hdr[54:56], 56)
	return hdr
}
