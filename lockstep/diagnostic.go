package lockstep

import "fmt"

// DiagnosticKind identifies a divergence between the design and the model.
type DiagnosticKind int

// Diagnostic kinds.
const (
	WritebackIndexMismatch DiagnosticKind = iota
	WritebackDataMismatch
	InstAddressMismatch
	DataAddressMismatch
	DataValueMismatch
	DataMaskMismatch
	DataTransferTypeMismatch
	DataTransferNotObserved
	DataReadMismatch

	NumDiagnosticKinds
)

var diagnosticNames = [NumDiagnosticKinds]string{
	WritebackIndexMismatch:   "WRITEBACK INDEX MISMATCH",
	WritebackDataMismatch:    "WRITEBACK DATA MISMATCH",
	InstAddressMismatch:      "INST ADDRESS MISMATCH",
	DataAddressMismatch:      "DATA ADDRESS MISMATCH",
	DataValueMismatch:        "DATA VALUE MISMATCH",
	DataMaskMismatch:         "DATA MASK MISMATCH",
	DataTransferTypeMismatch: "DATA TRANSFER TYPE MISMATCH",
	DataTransferNotObserved:  "DATA TRANSFER NOT OBSERVED",
	DataReadMismatch:         "DATA READ MISMATCH",
}

func (k DiagnosticKind) String() string {
	if k < 0 || k >= NumDiagnosticKinds {
		return fmt.Sprintf("DIAGNOSTIC %d", int(k))
	}
	return diagnosticNames[k]
}

// Banner returns the trace line that opens a diagnostic of this kind.
func (k DiagnosticKind) Banner() string {
	return "!!! " + k.String() + " !!!"
}

// Stats holds lockstep statistics.
type Stats struct {
	// Edges is the number of rising clock edges processed.
	Edges        uint64
	Instructions uint64
	Exceptions   uint64
	Reads        uint64
	Writes       uint64

	// Diagnostics counts the diagnostics emitted per kind.
	Diagnostics [NumDiagnosticKinds]uint64
}

// Divergences returns the total number of diagnostics emitted.
func (s Stats) Divergences() uint64 {
	var total uint64
	for _, n := range s.Diagnostics {
		total += n
	}
	return total
}
