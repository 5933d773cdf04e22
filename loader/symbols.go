package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Symbols that delimit the compliance signature.
const (
	BeginSignatureSymbol = "begin_signature"
	EndSignatureSymbol   = "end_signature"
)

// ErrSymbolNotFound is returned when a signature symbol is missing.
var ErrSymbolNotFound = errors.New("signature symbol not found")

// SignatureWindow is the address range [Begin, End) of the compliance
// signature.
type SignatureWindow struct {
	Begin uint32
	End   uint32
}

// SignatureFromELF reads the signature window from the symbol table of the
// RV32 ELF file at path.
func SignatureFromELF(path string) (SignatureWindow, error) {
	f, err := os.Open(path)
	if err != nil {
		return SignatureWindow{}, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return SignatureFromReader(f)
}

// SignatureFromReader reads the signature window from the symbol table of
// an RV32 ELF image.
func SignatureFromReader(r io.ReaderAt) (SignatureWindow, error) {
	f, err := newFile(r)
	if err != nil {
		return SignatureWindow{}, err
	}

	syms, err := f.Symbols()
	if err != nil {
		return SignatureWindow{}, fmt.Errorf("%w: %v", ErrSymbolNotFound, err)
	}

	var w SignatureWindow
	var found int
	for _, sym := range syms {
		switch sym.Name {
		case BeginSignatureSymbol:
			w.Begin = uint32(sym.Value)
			found |= 1
		case EndSignatureSymbol:
			w.End = uint32(sym.Value)
			found |= 2
		}
	}

	return w, checkFound(found)
}

// LoadSymbolTable reads the signature window from a symbol listing file;
// see ParseSymbolTable.
func LoadSymbolTable(path string) (SignatureWindow, error) {
	f, err := os.Open(path)
	if err != nil {
		return SignatureWindow{}, fmt.Errorf("failed to open symbol file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseSymbolTable(f)
}

// ParseSymbolTable scans an `objdump -t` listing for the signature
// symbols. Only global, zero-size symbols in .data are considered, e.g.
//
//	80002000 g       .data	00000000 begin_signature
func ParseSymbolTable(r io.Reader) (SignatureWindow, error) {
	var w SignatureWindow
	var found int

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}

		n := len(fields)
		name, size, section := fields[n-1], fields[n-2], fields[n-3]
		if fields[1] != "g" || section != ".data" {
			continue
		}

		if sz, err := strconv.ParseUint(size, 16, 32); err != nil || sz != 0 {
			continue
		}

		addr, err := strconv.ParseUint(fields[0], 16, 32)
		if err != nil {
			continue
		}

		switch name {
		case BeginSignatureSymbol:
			w.Begin = uint32(addr)
			found |= 1
		case EndSignatureSymbol:
			w.End = uint32(addr)
			found |= 2
		}
	}

	if err := scanner.Err(); err != nil {
		return SignatureWindow{}, fmt.Errorf("failed to read symbol table: %w", err)
	}

	return w, checkFound(found)
}

func checkFound(found int) error {
	if found&1 == 0 {
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, BeginSignatureSymbol)
	}
	if found&2 == 0 {
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, EndSignatureSymbol)
	}
	return nil
}
