// Package main provides the entry point for rvtrace.
// rvtrace checks an RV32I design against a reference model by replaying
// its recorded bus activity in lockstep.
//
// For the full CLI, use: go run ./cmd/rvtrace
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvtrace - RV32I lockstep trace checker")
	fmt.Println("")
	fmt.Println("Usage: rvtrace [options] <recording>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to run configuration JSON file")
	fmt.Println("  -elf       RV32 ELF holding the signature symbols")
	fmt.Println("  -syms      objdump -t listing holding the signature symbols")
	fmt.Println("  -trc       Base name of the trace and signature files")
	fmt.Println("  -reset     Reset vector")
	fmt.Println("  -shadow    Check reads against earlier observed writes")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvtrace' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/rvdasm' to disassemble instruction words.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvtrace' instead.")
	}
}
