package lockstep

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A recording holds one BusObservation per line as whitespace-separated
// fields in this order. Text after '#' is a comment.
var recordFields = [...]string{
	"stamp", "clk",
	"i_ack", "i_addr", "i_data",
	"d_rd_ack", "d_wr_ack", "d_addr", "d_be", "d_rdata", "d_wdata",
	"wb_ack", "wb_idx", "wb_data",
}

// ParseObservation parses one recording line. ok is false for blank and
// comment-only lines.
func ParseObservation(line string) (obs BusObservation, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return obs, false, nil
	}
	if len(fields) != len(recordFields) {
		return obs, false, fmt.Errorf("expected %d fields, got %d",
			len(recordFields), len(fields))
	}

	p := fieldParser{fields: fields}
	obs.Stamp = p.number(0, 64)
	obs.Clock = p.flag(1)
	obs.FetchAck = p.flag(2)
	obs.FetchAddr = p.word(3)
	obs.FetchData = p.word(4)
	obs.ReadAck = p.flag(5)
	obs.WriteAck = p.flag(6)
	obs.DataAddr = p.word(7)
	obs.ByteEnable = uint8(p.number(8, 4))
	obs.ReadData = p.word(9)
	obs.WriteData = p.word(10)
	obs.WritebackAck = p.flag(11)
	obs.WritebackIdx = uint8(p.number(12, 5))
	obs.WritebackData = p.word(13)

	if p.err != nil {
		return BusObservation{}, false, p.err
	}
	return obs, true, nil
}

// fieldParser keeps the first error so ParseObservation reads linearly.
type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) parse(i int, s string, base, bits int) uint64 {
	if p.err != nil {
		return 0
	}

	v, err := strconv.ParseUint(s, base, bits)
	if err != nil {
		p.err = fmt.Errorf("field %s: %w", recordFields[i], err)
	}
	return v
}

// number parses a decimal or 0x-prefixed field.
func (p *fieldParser) number(i, bits int) uint64 {
	return p.parse(i, p.fields[i], 0, bits)
}

func (p *fieldParser) flag(i int) bool {
	return p.number(i, 1) != 0
}

// word parses a hexadecimal field, with or without 0x.
func (p *fieldParser) word(i int) uint32 {
	s := strings.TrimPrefix(strings.TrimPrefix(p.fields[i], "0x"), "0X")
	return uint32(p.parse(i, s, 16, 32))
}

// FormatObservation renders obs as a recording line.
func FormatObservation(obs BusObservation) string {
	return fmt.Sprintf("%d %d %d %08X %08X %d %d %08X 0x%X %08X %08X %d %d %08X",
		obs.Stamp, bit(obs.Clock),
		bit(obs.FetchAck), obs.FetchAddr, obs.FetchData,
		bit(obs.ReadAck), bit(obs.WriteAck), obs.DataAddr, obs.ByteEnable,
		obs.ReadData, obs.WriteData,
		bit(obs.WritebackAck), obs.WritebackIdx, obs.WritebackData)
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RecordReader reads observations from a recording.
type RecordReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewRecordReader creates a RecordReader over r.
func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{scanner: bufio.NewScanner(r)}
}

// Next returns the next observation, skipping blank and comment lines. It
// returns io.EOF at the end of the recording.
func (r *RecordReader) Next() (BusObservation, error) {
	for r.scanner.Scan() {
		r.line++

		obs, ok, err := ParseObservation(r.scanner.Text())
		if err != nil {
			return BusObservation{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		if ok {
			return obs, nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return BusObservation{}, fmt.Errorf("failed to read recording: %w", err)
	}
	return BusObservation{}, io.EOF
}

// Replay feeds every observation of a recording to the checker and
// returns how many were processed.
func (c *Checker) Replay(r io.Reader) (int, error) {
	reader := NewRecordReader(r)

	n := 0
	for {
		obs, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		c.Dump(obs)
		n++
	}
}
