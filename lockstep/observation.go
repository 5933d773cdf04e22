// Package lockstep drives the RV32I reference model in lockstep with a
// design under test.
//
// A Checker is fed one BusObservation per sampled clock level. On every
// rising edge it checks what the design did during the previous cycle
// against what the model predicted, traces the fetched instruction and
// then steps the model. Divergences are written to the trace as
// diagnostics and never stop the run.
package lockstep

// BusObservation is a snapshot of the design's bus signals at one clock
// sample.
type BusObservation struct {
	// Stamp is the simulation time in picoseconds.
	Stamp uint64
	Clock bool

	// Instruction fetch
	FetchAck  bool
	FetchAddr uint32
	FetchData uint32

	// Data bus
	ReadAck    bool
	WriteAck   bool
	DataAddr   uint32
	ByteEnable uint8
	ReadData   uint32
	WriteData  uint32

	// Register writeback
	WritebackAck  bool
	WritebackIdx  uint8
	WritebackData uint32
}
