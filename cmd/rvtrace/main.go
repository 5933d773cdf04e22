// Package main provides rvtrace, which replays a recorded bus trace of an
// RV32I design through the lockstep checker.
//
// The trace is written to <trc>.out32 and the compliance signature to
// <trc>_signature.output. Divergences only show up in the trace: the exit
// status is nonzero only for host errors such as unreadable files.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/afero"

	"github.com/sarchlab/rvtrace/config"
	"github.com/sarchlab/rvtrace/lockstep"
	"github.com/sarchlab/rvtrace/loader"
)

func main() {
	os.Exit(run(afero.NewOsFs(), os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	symsPath   string
	elfPath    string
	traceName  string
	reset      string
	shadow     bool
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{}

	fs := flag.NewFlagSet("rvtrace", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to run configuration JSON file")
	fs.StringVar(&opts.symsPath, "syms", "", "objdump -t listing holding begin_signature/end_signature")
	fs.StringVar(&opts.elfPath, "elf", "", "RV32 ELF holding begin_signature/end_signature")
	fs.StringVar(&opts.traceName, "trc", "", "Base name of the output files (default from config)")
	fs.StringVar(&opts.reset, "reset", "", "Reset vector, e.g. 0x80000000 (default from config)")
	fs.BoolVar(&opts.shadow, "shadow", false, "Check reads against earlier observed writes")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: rvtrace [options] <recording>\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return opts, fs.Args(), nil
}

// loadConfig merges the config file, the signature symbols and the flags,
// in that order of increasing precedence.
func loadConfig(fs afero.Fs, opts *options, stdout io.Writer) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(fs, opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	var (
		window loader.SignatureWindow
		found  bool
	)
	switch {
	case opts.elfPath != "":
		f, err := fs.Open(opts.elfPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ELF file: %w", err)
		}
		defer func() { _ = f.Close() }()

		w, err := loader.SignatureFromReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to locate signature: %w", err)
		}
		window, found = w, true
	case opts.symsPath != "":
		f, err := fs.Open(opts.symsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open symbol file: %w", err)
		}
		defer func() { _ = f.Close() }()

		w, err := loader.ParseSymbolTable(f)
		if err != nil {
			return nil, fmt.Errorf("failed to locate signature: %w", err)
		}
		window, found = w, true
	}
	if found {
		cfg.SignatureBegin = config.Address(window.Begin)
		cfg.SignatureEnd = config.Address(window.End)
		if opts.verbose {
			fmt.Fprintf(stdout, "%s = %08X\n", loader.BeginSignatureSymbol, window.Begin)
			fmt.Fprintf(stdout, "%s = %08X\n", loader.EndSignatureSymbol, window.End)
		}
	}

	if opts.traceName != "" {
		cfg.TraceName = opts.traceName
	}
	if opts.reset != "" {
		v, err := strconv.ParseUint(opts.reset, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid reset vector %q: %w", opts.reset, err)
		}
		cfg.ResetVector = config.Address(v)
	}
	if opts.shadow {
		cfg.ShadowMemory.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func run(fs afero.Fs, args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	if len(rest) < 1 {
		fmt.Fprintf(stderr, "Usage: rvtrace [options] <recording>\n")
		return 2
	}
	recordingPath := rest[0]

	cfg, err := loadConfig(fs, opts, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	recording, err := fs.Open(recordingPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening recording: %v\n", err)
		return 1
	}
	defer func() { _ = recording.Close() }()

	logWriter := io.Discard
	if opts.verbose {
		logWriter = stdout
	}

	checker := lockstep.New(
		uint32(cfg.ResetVector),
		uint32(cfg.SignatureBegin),
		uint32(cfg.SignatureEnd),
		lockstep.WithFs(fs),
		lockstep.WithFallback(stdout),
		lockstep.WithLog(logWriter),
		lockstep.WithTrapVector(uint32(cfg.TrapVector)),
		lockstep.WithShadowMemory(cfg.ShadowMemory.Shadow()),
	)

	if err := checker.Open(cfg.TraceName); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	n, replayErr := checker.Replay(recording)

	if err := checker.Close(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if replayErr != nil {
		fmt.Fprintf(stderr, "Error replaying %s: %v\n", recordingPath, replayErr)
		return 1
	}

	printSummary(stdout, recordingPath, n, checker.Stats(), opts.verbose)
	return 0
}

func printSummary(w io.Writer, path string, samples int, stats lockstep.Stats, verbose bool) {
	fmt.Fprintf(w, "Recording: %s\n", path)
	fmt.Fprintf(w, "Samples: %d\n", samples)
	fmt.Fprintf(w, "Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(w, "Exceptions: %d\n", stats.Exceptions)
	fmt.Fprintf(w, "Divergences: %d\n", stats.Divergences())

	if !verbose {
		return
	}

	fmt.Fprintf(w, "\nRising edges: %d\n", stats.Edges)
	fmt.Fprintf(w, "Memory reads: %d\n", stats.Reads)
	fmt.Fprintf(w, "Memory writes: %d\n", stats.Writes)
	for kind := lockstep.DiagnosticKind(0); kind < lockstep.NumDiagnosticKinds; kind++ {
		if n := stats.Diagnostics[kind]; n > 0 {
			fmt.Fprintf(w, "  %-28s %d\n", kind, n)
		}
	}
}
