package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// File name suffixes and the prefix lengths the base name is cut to.
const (
	TraceSuffix     = ".out32"
	SignatureSuffix = "_signature.output"

	traceNameLimit     = 249
	signatureNameLimit = 238
)

// ErrNotOpened is returned by Reopen when no file name was ever set.
var ErrNotOpened = errors.New("trace session was never opened")

// TracePath returns the trace file name derived from base.
func TracePath(base string) string {
	return truncate(base, traceNameLimit) + TraceSuffix
}

// SignaturePath returns the signature file name derived from base.
func SignaturePath(base string) string {
	return truncate(base, signatureNameLimit) + SignatureSuffix
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Session owns the trace stream and the signature output file.
//
// While no trace file is open, trace text goes to the fallback writer.
type Session struct {
	fs       afero.Fs
	fallback io.Writer

	signature *Signature

	tracePath     string
	signaturePath string

	traceFile     afero.File
	traceWriter   *bufio.Writer
	signatureFile afero.File
}

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*Session)

// WithFs sets the file system the artifacts are created on.
func WithFs(fs afero.Fs) SessionOption {
	return func(s *Session) {
		s.fs = fs
	}
}

// WithFallback sets the writer used while no trace file is open.
func WithFallback(w io.Writer) SessionOption {
	return func(s *Session) {
		s.fallback = w
	}
}

// NewSession creates a closed session that serializes signature on close.
func NewSession(signature *Signature, opts ...SessionOption) *Session {
	s := &Session{
		fs:        afero.NewOsFs(),
		fallback:  os.Stdout,
		signature: signature,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Signature returns the capture buffer.
func (s *Session) Signature() *Signature {
	return s.signature
}

// TraceName returns the path of the trace file, or "" if none was set.
func (s *Session) TraceName() string {
	return s.tracePath
}

// SignatureName returns the path of the signature file, or "" if none
// was set.
func (s *Session) SignatureName() string {
	return s.signaturePath
}

// IsOpen reports whether a trace file is open.
func (s *Session) IsOpen() bool {
	return s.traceFile != nil
}

// Open closes any open artifacts and creates the two files derived from
// base, truncating existing contents.
func (s *Session) Open(base string) error {
	if err := s.Close(); err != nil {
		return err
	}

	s.tracePath = TracePath(base)
	s.signaturePath = SignaturePath(base)

	return s.create()
}

// Reopen closes the artifacts and creates them again under the same
// names.
func (s *Session) Reopen() error {
	if err := s.Close(); err != nil {
		return err
	}

	if s.tracePath == "" {
		return ErrNotOpened
	}

	return s.create()
}

func (s *Session) create() error {
	f, err := s.fs.Create(s.tracePath)
	if err != nil {
		s.tracePath = ""
		s.signaturePath = ""
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	s.traceFile = f
	s.traceWriter = bufio.NewWriter(f)

	f, err = s.fs.Create(s.signaturePath)
	if err != nil {
		_ = s.traceFile.Close()
		s.traceFile = nil
		s.traceWriter = nil
		s.tracePath = ""
		s.signaturePath = ""
		return fmt.Errorf("failed to create signature file: %w", err)
	}
	s.signatureFile = f

	return nil
}

// Close flushes the trace, writes the signature file if one is open and
// releases both files. Closing a closed session does nothing.
func (s *Session) Close() error {
	var errs []error

	if s.traceFile != nil {
		if err := s.traceWriter.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush trace file: %w", err))
		}
		if err := s.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close trace file: %w", err))
		}
		s.traceFile = nil
		s.traceWriter = nil
	}

	if s.signatureFile != nil {
		if _, err := s.signature.WriteTo(s.signatureFile); err != nil {
			errs = append(errs, err)
		}
		if err := s.signatureFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close signature file: %w", err))
		}
		s.signatureFile = nil
	}

	return errors.Join(errs...)
}

// Writer returns the destination of trace text.
func (s *Session) Writer() io.Writer {
	if s.traceWriter != nil {
		return s.traceWriter
	}
	return s.fallback
}

// Printf appends formatted text to the trace stream. Write errors are
// dropped; the trace is best effort.
func (s *Session) Printf(format string, args ...any) {
	fmt.Fprintf(s.Writer(), format, args...)
}
