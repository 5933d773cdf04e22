package lockstep

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/sarchlab/rvtrace/emu"
	"github.com/sarchlab/rvtrace/insts"
	"github.com/sarchlab/rvtrace/shadow"
	"github.com/sarchlab/rvtrace/trace"
)

// Checker compares a design under test against the RV32I reference model
// one rising clock edge at a time.
type Checker struct {
	emulator   *emu.Emulator
	session    *trace.Session
	signature  *trace.Signature
	scoreboard *shadow.Scoreboard
	port       DisasmPort

	log       io.Writer
	prevClock bool
	stats     Stats

	// Construction-time settings
	sessionOpts []trace.SessionOption
	emuOpts     []emu.EmulatorOption
	shadowCfg   shadow.Config
}

// Option is a functional option for configuring a Checker.
type Option func(*Checker)

// WithFs sets the file system the trace artifacts are created on.
func WithFs(fs afero.Fs) Option {
	return func(c *Checker) {
		c.sessionOpts = append(c.sessionOpts, trace.WithFs(fs))
	}
}

// WithFallback sets the writer trace text goes to while no trace file is
// open.
func WithFallback(w io.Writer) Option {
	return func(c *Checker) {
		c.sessionOpts = append(c.sessionOpts, trace.WithFallback(w))
	}
}

// WithLog sets the writer for operational messages.
func WithLog(w io.Writer) Option {
	return func(c *Checker) {
		c.log = w
	}
}

// WithTrapVector sets the initial value of mtvec.
func WithTrapVector(mtvec uint32) Option {
	return func(c *Checker) {
		c.emuOpts = append(c.emuOpts, emu.WithTrapVector(mtvec))
	}
}

// WithShadowMemory configures the read-back scoreboard. It is only built
// when config.Enabled is set and the geometry is valid; an invalid geometry
// is reported to the log and leaves read checking off.
func WithShadowMemory(config shadow.Config) Option {
	return func(c *Checker) {
		c.shadowCfg = config
	}
}

// New creates a checker whose model starts at resetVector and whose
// signature window is [sigBegin, sigEnd).
func New(resetVector, sigBegin, sigEnd uint32, opts ...Option) *Checker {
	c := &Checker{
		log:       io.Discard,
		shadowCfg: shadow.DefaultConfig(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.emulator = emu.NewEmulator(resetVector, c.emuOpts...)
	c.signature = trace.NewSignature(sigBegin, sigEnd)
	c.session = trace.NewSession(c.signature, c.sessionOpts...)
	if c.shadowCfg.Enabled {
		if err := c.shadowCfg.Validate(); err != nil {
			fmt.Fprintf(c.log, "Shadow memory disabled: %v\n", err)
		} else {
			c.scoreboard = shadow.New(c.shadowCfg)
		}
	}

	return c
}

// Emulator returns the reference model.
func (c *Checker) Emulator() *emu.Emulator {
	return c.emulator
}

// Signature returns the signature capture buffer.
func (c *Checker) Signature() *trace.Signature {
	return c.signature
}

// Scoreboard returns the shadow memory, or nil if it is disabled.
func (c *Checker) Scoreboard() *shadow.Scoreboard {
	return c.scoreboard
}

// Stats returns lockstep statistics.
func (c *Checker) Stats() Stats {
	s := c.stats
	s.Instructions = c.emulator.InstructionCount()
	s.Exceptions = c.emulator.ExceptionCount()
	return s
}

// Open starts a trace session writing base.out32 and
// base_signature.output.
func (c *Checker) Open(base string) error {
	if err := c.session.Open(base); err != nil {
		return fmt.Errorf("failed to open trace session: %w", err)
	}

	fmt.Fprintf(c.log, "Tracing to %s\n", c.session.TraceName())
	return nil
}

// Reopen closes the session and opens the same two files again.
func (c *Checker) Reopen() error {
	if err := c.session.Reopen(); err != nil {
		return fmt.Errorf("failed to reopen trace session: %w", err)
	}

	fmt.Fprintf(c.log, "Tracing to %s\n", c.session.TraceName())
	return nil
}

// Close writes the signature file and closes the session. It is safe to
// call more than once.
func (c *Checker) Close() error {
	wasOpen := c.session.IsOpen()

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close trace session: %w", err)
	}

	if wasOpen {
		fmt.Fprintf(c.log, "Signature written to %s\n", c.session.SignatureName())
	}
	return nil
}

// Disassemble returns the trace text for inst located at pc.
func (c *Checker) Disassemble(inst, pc uint32) string {
	return insts.Disassemble(inst, pc)
}

// DisasmChar returns one character of the disassembly of inst at pc; see
// DisasmPort.
func (c *Checker) DisasmChar(inst, pc uint32, idx int) byte {
	return c.port.Char(inst, pc, idx)
}

// Dump processes one clock sample. Only a low to high clock transition
// does any work.
func (c *Checker) Dump(obs BusObservation) {
	rising := obs.Clock && !c.prevClock
	c.prevClock = obs.Clock
	if !rising {
		return
	}

	c.stats.Edges++

	if obs.WritebackAck {
		c.checkWriteback(obs)
	}
	if obs.ReadAck {
		c.dataRead(obs)
	}
	if obs.WriteAck {
		c.dataWrite(obs)
	}
	if obs.FetchAck {
		c.fetch(obs)
	}
}

func (c *Checker) diagnose(kind DiagnosticKind, format string, args ...any) {
	c.stats.Diagnostics[kind]++
	c.session.Printf("%s\n", kind.Banner())
	if format != "" {
		c.session.Printf(format, args...)
	}
}

func (c *Checker) checkWriteback(obs BusObservation) {
	rd := c.emulator.PredictedRd()
	if obs.WritebackIdx != rd {
		c.diagnose(WritebackIndexMismatch, "Observed : %2d, Predicted : %2d\n",
			obs.WritebackIdx, rd)
		return
	}

	predicted := c.emulator.RegFile().ReadReg(rd)
	if rd != 0 && obs.WritebackData != predicted {
		c.diagnose(WritebackDataMismatch, "Observed : %08X, Predicted : %08X\n",
			obs.WritebackData, predicted)
	}
}

func (c *Checker) dataRead(obs BusObservation) {
	c.stats.Reads++
	c.session.Printf("Memory read @ $%08X : %08X\n", obs.DataAddr, obs.ReadData)

	tx, pending := c.emulator.Pending()
	if pending && obs.DataAddr != tx.Addr {
		c.diagnose(DataAddressMismatch, "Observed : %08X, Predicted : %08X\n",
			obs.DataAddr, tx.Addr)
	}
	if pending && tx.IsLoad() {
		c.checkShadow(obs, tx.Mask)
	}

	if _, ok := c.emulator.CompleteLoad(obs.ReadData); !ok {
		c.diagnose(DataTransferTypeMismatch, "")
	}
}

func (c *Checker) checkShadow(obs BusObservation, mask uint8) {
	if c.scoreboard == nil {
		return
	}

	result := c.scoreboard.Check(obs.DataAddr, mask, obs.ReadData)
	if result.Mismatch {
		c.diagnose(DataReadMismatch, "Observed : %08X, Predicted : %08X\n",
			obs.ReadData, result.Predicted)
	}
}

func (c *Checker) dataWrite(obs BusObservation) {
	c.stats.Writes++
	c.session.Printf("Memory write @ $%08X : $%s\n",
		obs.DataAddr, laneString(obs.WriteData, obs.ByteEnable))

	c.signature.Capture(obs.DataAddr, obs.ByteEnable, obs.WriteData)
	if c.scoreboard != nil {
		c.scoreboard.Record(obs.DataAddr, obs.ByteEnable, obs.WriteData)
	}

	tx, pending := c.emulator.Pending()
	if pending && !tx.IsLoad() {
		if obs.DataAddr != tx.Addr {
			c.diagnose(DataAddressMismatch, "Observed : %08X, Predicted : %08X\n",
				obs.DataAddr, tx.Addr)
		}
		if obs.WriteData != tx.Data {
			c.diagnose(DataValueMismatch, "Observed : %08X, Predicted : %08X\n",
				obs.WriteData, tx.Data)
		}
		if obs.ByteEnable != tx.Mask {
			c.diagnose(DataMaskMismatch, "Observed : %1X, Predicted : %1X\n",
				obs.ByteEnable, tx.Mask)
		}
	}

	if _, ok := c.emulator.CompleteStore(); !ok {
		c.diagnose(DataTransferTypeMismatch, "")
	}
}

func (c *Checker) fetch(obs BusObservation) {
	regs := c.emulator.RegFile()

	c.session.Printf("%s", registerDump(regs))
	c.session.Printf("(%14d ps) %08X : %08X %s\n",
		obs.Stamp, obs.FetchAddr, obs.FetchData,
		c.Disassemble(obs.FetchData, regs.PC))

	if obs.FetchAddr != regs.PC {
		c.diagnose(InstAddressMismatch, "Observed : %08X, Predicted : %08X\n",
			obs.FetchAddr, regs.PC)
	}

	result := c.emulator.Step(obs.FetchAddr, obs.FetchData)
	if result.Dropped != nil {
		c.diagnose(DataTransferNotObserved, "Address : %08X\n", result.Dropped.Addr)
	}
}

// registerDump formats the general-purpose registers as four rows of
// eight, followed by a blank line.
func registerDump(regs *emu.RegFile) string {
	var sb strings.Builder

	for row := 0; row < 4; row++ {
		fmt.Fprintf(&sb, "%3s :", fmt.Sprintf("x%d", row*8))
		for col := 0; col < 8; col++ {
			fmt.Fprintf(&sb, " %08X", regs.X[row*8+col])
		}
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	return sb.String()
}

// laneString renders the bytes of a bus write, most significant lane
// first, with disabled lanes shown as XX.
func laneString(data uint32, mask uint8) string {
	var sb strings.Builder

	for lane := 3; lane >= 0; lane-- {
		if mask&(1<<lane) == 0 {
			sb.WriteString("XX")
			continue
		}
		fmt.Fprintf(&sb, "%02X", byte(data>>(8*lane)))
	}

	return sb.String()
}
