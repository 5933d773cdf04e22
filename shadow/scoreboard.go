// Package shadow keeps a bounded record of the bytes the design under test
// has written, so that later reads of the same bytes can be checked.
//
// The scoreboard is organized like a set-associative cache using Akita's
// directory for tag and replacement management. There is no backing store:
// an evicted block simply forgets what it knew.
package shadow

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds scoreboard configuration parameters.
type Config struct {
	// Enabled turns read checking on.
	Enabled bool
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes; a multiple of 4
	BlockSize int
}

// DefaultConfig returns a disabled 64KB, 4-way scoreboard with 64B blocks.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		Size:          64 * 1024,
		Associativity: 4,
		BlockSize:     64,
	}
}

// Validate checks that the geometry describes a whole number of sets.
func (c Config) Validate() error {
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0, got %d", c.Associativity)
	}
	if c.BlockSize < 4 || c.BlockSize%4 != 0 {
		return fmt.Errorf("block size must be a positive multiple of 4, got %d", c.BlockSize)
	}
	if c.Size <= 0 || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size %d is not a positive multiple of %d",
			c.Size, c.Associativity*c.BlockSize)
	}
	return nil
}

// Statistics holds scoreboard statistics.
type Statistics struct {
	Writes     uint64
	Reads      uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Mismatches uint64
}

// CheckResult is the outcome of checking one observed read.
type CheckResult struct {
	// Predicted holds the recorded bytes in their lanes.
	Predicted uint32
	// Known is the subset of the read's byte lanes the scoreboard had a
	// record of.
	Known uint8
	// Mismatch is true when a known lane differs from the observed data.
	Mismatch bool
}

// Scoreboard remembers observed store data per byte.
type Scoreboard struct {
	config Config

	directory *akitacache.DirectoryImpl

	// Indexed by (setID * associativity + wayID)
	dataStore  [][]byte
	validStore [][]bool

	stats Statistics
}

// New creates a scoreboard with the given configuration, which must pass
// Validate.
func New(config Config) *Scoreboard {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	validStore := make([][]bool, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
		validStore[i] = make([]bool, config.BlockSize)
	}

	return &Scoreboard{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore:  dataStore,
		validStore: validStore,
	}
}

// Config returns the scoreboard configuration.
func (s *Scoreboard) Config() Config {
	return s.config
}

// Stats returns scoreboard statistics.
func (s *Scoreboard) Stats() Statistics {
	return s.stats
}

func (s *Scoreboard) blockIndex(block *akitacache.Block) int {
	return block.SetID*s.config.Associativity + block.WayID
}

func (s *Scoreboard) blockAddr(addr uint32) uint64 {
	return (uint64(addr) / uint64(s.config.BlockSize)) * uint64(s.config.BlockSize)
}

// Record stores the enabled byte lanes of a completed bus write to the
// word containing addr.
func (s *Scoreboard) Record(addr uint32, mask uint8, data uint32) {
	s.stats.Writes++

	blockAddr := s.blockAddr(addr)
	block := s.directory.Lookup(0, blockAddr)
	if block == nil || !block.IsValid {
		block = s.allocate(blockAddr)
		if block == nil {
			return
		}
	}
	s.directory.Visit(block)

	index := s.blockIndex(block)
	base := uint64(addr&^3) - blockAddr
	for lane := uint64(0); lane < 4; lane++ {
		if mask&(1<<lane) == 0 {
			continue
		}
		s.dataStore[index][base+lane] = byte(data >> (8 * lane))
		s.validStore[index][base+lane] = true
	}
}

// allocate claims a block for blockAddr, forgetting its previous contents.
func (s *Scoreboard) allocate(blockAddr uint64) *akitacache.Block {
	victim := s.directory.FindVictim(blockAddr)
	if victim == nil {
		return nil
	}

	if victim.IsValid {
		s.stats.Evictions++
	}

	index := s.blockIndex(victim)
	for i := range s.dataStore[index] {
		s.dataStore[index][i] = 0
		s.validStore[index][i] = false
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false

	return victim
}

// Check compares an observed bus read against the recorded bytes. Lanes
// that were never recorded, or were evicted, are not checked.
func (s *Scoreboard) Check(addr uint32, mask uint8, data uint32) CheckResult {
	s.stats.Reads++

	var result CheckResult

	block := s.directory.Lookup(0, s.blockAddr(addr))
	if block == nil || !block.IsValid {
		s.stats.Misses++
		return result
	}
	s.stats.Hits++
	s.directory.Visit(block)

	index := s.blockIndex(block)
	base := uint64(addr&^3) - s.blockAddr(addr)
	var laneMask uint32
	for lane := uint64(0); lane < 4; lane++ {
		if mask&(1<<lane) == 0 || !s.validStore[index][base+lane] {
			continue
		}
		result.Known |= 1 << lane
		result.Predicted |= uint32(s.dataStore[index][base+lane]) << (8 * lane)
		laneMask |= 0xFF << (8 * lane)
	}

	if (result.Predicted^data)&laneMask != 0 {
		result.Mismatch = true
		s.stats.Mismatches++
	}

	return result
}

// Reset forgets every recorded byte and clears statistics.
func (s *Scoreboard) Reset() {
	s.directory.Reset()
	for i := range s.validStore {
		for j := range s.validStore[i] {
			s.validStore[i][j] = false
		}
	}
	s.stats = Statistics{}
}
