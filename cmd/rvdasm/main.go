// Package main provides rvdasm, a standalone RV32I disassembler.
//
// Usage:
//
//	rvdasm [-pc addr] [file]     disassemble hex words, one or more per line
//	rvdasm -elf program.elf      disassemble the executable segments
//
// Text after '#' on an input line is ignored. Words are read from stdin when
// no file is given.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/sarchlab/rvtrace/insts"
	"github.com/sarchlab/rvtrace/loader"
)

func main() {
	os.Exit(run(afero.NewOsFs(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(fs afero.Fs, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		pcFlag  string
		elfPath string
	)

	flags := flag.NewFlagSet("rvdasm", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&pcFlag, "pc", "0", "Address of the first word")
	flags.StringVar(&elfPath, "elf", "", "Disassemble the executable segments of an RV32 ELF file")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: rvdasm [options] [file]\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return 2
	}

	w := bufio.NewWriter(stdout)
	defer func() { _ = w.Flush() }()

	if elfPath != "" {
		if err := disassembleELF(w, fs, elfPath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	pc, err := strconv.ParseUint(pcFlag, 0, 32)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid pc %q: %v\n", pcFlag, err)
		return 2
	}

	in := stdin
	if flags.NArg() > 0 {
		f, err := fs.Open(flags.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	if err := disassembleWords(w, in, uint32(pc)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printLine(w io.Writer, pc, word uint32) {
	fmt.Fprintf(w, "%08X : %08X %s\n", pc, word, insts.Disassemble(word, pc))
}

func disassembleWords(w io.Writer, r io.Reader, pc uint32) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++

		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}

		for _, field := range strings.Fields(text) {
			word, err := strconv.ParseUint(strings.TrimPrefix(field, "0x"), 16, 32)
			if err != nil {
				return fmt.Errorf("line %d: invalid word %q", line, field)
			}
			printLine(w, pc, uint32(word))
			pc += 4
		}
	}

	return scanner.Err()
}

func disassembleELF(w io.Writer, fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := loader.Read(f)
	if err != nil {
		return err
	}

	for _, seg := range prog.Segments {
		if seg.Flags&loader.SegmentFlagExecute == 0 {
			continue
		}

		fmt.Fprintf(w, "# segment @ %08X, %d bytes\n", seg.VirtAddr, len(seg.Data))
		for off := uint32(0); off+4 <= uint32(len(seg.Data)); off += 4 {
			addr := seg.VirtAddr + off
			word, _ := prog.ReadWord(addr)
			printLine(w, addr, word)
		}
	}

	return nil
}
