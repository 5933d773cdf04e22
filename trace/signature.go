// Package trace manages the output artifacts of a lockstep run: the
// human-readable trace stream and the compliance signature file.
package trace

import (
	"fmt"
	"io"
)

// signatureLine is the number of bytes serialized per signature line.
const signatureLine = 16

// Signature captures store traffic that falls inside the window
// [begin, end).
type Signature struct {
	begin uint32
	end   uint32

	// buf is rounded up to a whole number of lines; bytes past end stay
	// zero.
	buf []byte
}

// NewSignature creates a capture buffer for [begin, end). An empty or
// inverted window disables capture.
func NewSignature(begin, end uint32) *Signature {
	s := &Signature{begin: begin, end: end}
	if end > begin {
		size := end - begin
		lines := (uint64(size) + signatureLine - 1) / signatureLine
		s.buf = make([]byte, lines*signatureLine)
	} else {
		s.end = begin
	}
	return s
}

// Begin returns the first address of the window.
func (s *Signature) Begin() uint32 { return s.begin }

// End returns the address one past the window.
func (s *Signature) End() uint32 { return s.end }

// Size returns the size of the window in bytes.
func (s *Signature) Size() uint32 { return s.end - s.begin }

// Enabled reports whether the window is non-empty.
func (s *Signature) Enabled() bool { return s.buf != nil }

// Contains reports whether addr falls inside the window.
func (s *Signature) Contains(addr uint32) bool {
	return addr >= s.begin && addr < s.end
}

// Capture copies the byte lanes of a bus write selected by mask into the
// buffer. Writes whose address is outside the window are ignored. The
// lanes belong to the word containing addr and are clipped at the end of
// the window. It reports whether any byte was captured.
func (s *Signature) Capture(addr uint32, mask uint8, data uint32) bool {
	if s.buf == nil || !s.Contains(addr) {
		return false
	}

	word := addr &^ 3
	captured := false
	for lane := uint32(0); lane < 4; lane++ {
		if mask&(1<<lane) == 0 {
			continue
		}

		a := word + lane
		if !s.Contains(a) {
			continue
		}

		s.buf[a-s.begin] = byte(data >> (8 * lane))
		captured = true
	}

	return captured
}

// Bytes returns a copy of the captured window.
func (s *Signature) Bytes() []byte {
	out := make([]byte, s.Size())
	copy(out, s.buf)
	return out
}

// Reset zeroes the buffer.
func (s *Signature) Reset() {
	for i := range s.buf {
		s.buf[i] = 0
	}
}

// WriteTo serializes the buffer 16 bytes per line, highest offset first,
// as lowercase hex.
func (s *Signature) WriteTo(w io.Writer) (int64, error) {
	var total int64
	line := make([]byte, 0, 2*signatureLine+1)

	for off := 0; off < len(s.buf); off += signatureLine {
		line = line[:0]
		for i := signatureLine - 1; i >= 0; i-- {
			line = fmt.Appendf(line, "%02x", s.buf[off+i])
		}
		line = append(line, '\n')

		n, err := w.Write(line)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("failed to write signature: %w", err)
		}
	}

	return total, nil
}
