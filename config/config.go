// Package config holds the run configuration of a lockstep session.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/sarchlab/rvtrace/shadow"
)

// Address is a 32-bit address that reads from JSON as a number or as a
// hex string such as "0x80000000", and is written as a hex string.
type Address uint32

// MarshalJSON writes the address as a hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%08X", uint32(a)))
}

// UnmarshalJSON accepts a number or a decimal/0x-prefixed string.
func (a *Address) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(data), `"`)

	v, err := strconv.ParseUint(text, 0, 32)
	if err != nil {
		return fmt.Errorf("invalid address %s: %w", data, err)
	}

	*a = Address(v)
	return nil
}

// ShadowMemory configures the read-back scoreboard.
type ShadowMemory struct {
	// Enabled turns read checking on. Default: false.
	Enabled bool `json:"enabled"`

	// Size is the capacity in bytes. Default: 64KB.
	Size int `json:"size"`

	// Associativity is the number of ways. Default: 4.
	Associativity int `json:"associativity"`

	// BlockSize is the block size in bytes. Default: 64.
	BlockSize int `json:"block_size"`
}

// Shadow converts the section to a scoreboard configuration.
func (s ShadowMemory) Shadow() shadow.Config {
	return shadow.Config{
		Enabled:       s.Enabled,
		Size:          s.Size,
		Associativity: s.Associativity,
		BlockSize:     s.BlockSize,
	}
}

// Config holds the settings of a lockstep run.
type Config struct {
	// ResetVector is the address of the first instruction.
	// Default: 0x80000000.
	ResetVector Address `json:"reset_vector"`

	// TrapVector is the initial value of mtvec. Default: 0.
	TrapVector Address `json:"trap_vector"`

	// SignatureBegin and SignatureEnd bound the compliance signature
	// window. An empty window disables capture.
	SignatureBegin Address `json:"signature_begin"`
	SignatureEnd   Address `json:"signature_end"`

	// TraceName is the base name of the output files. Default: "riscv".
	TraceName string `json:"trace_name"`

	ShadowMemory ShadowMemory `json:"shadow_memory"`
}

// Default returns a Config with default values.
func Default() *Config {
	sc := shadow.DefaultConfig()

	return &Config{
		ResetVector: 0x80000000,
		TraceName:   "riscv",
		ShadowMemory: ShadowMemory{
			Enabled:       sc.Enabled,
			Size:          sc.Size,
			Associativity: sc.Associativity,
			BlockSize:     sc.BlockSize,
		},
	}
}

// Load reads a Config from a JSON file. Fields missing from the file keep
// their default values.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// Save writes the Config to a JSON file.
func (c *Config) Save(fs afero.Fs, path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the settings are consistent.
func (c *Config) Validate() error {
	if c.SignatureEnd < c.SignatureBegin {
		return fmt.Errorf("signature_end must be >= signature_begin")
	}
	if c.TraceName == "" {
		return fmt.Errorf("trace_name must not be empty")
	}

	if !c.ShadowMemory.Enabled {
		return nil
	}

	s := c.ShadowMemory
	if s.Associativity <= 0 {
		return fmt.Errorf("shadow_memory.associativity must be > 0")
	}
	if s.BlockSize < 4 || s.BlockSize%4 != 0 {
		return fmt.Errorf("shadow_memory.block_size must be a positive multiple of 4")
	}
	if s.Size <= 0 || s.Size%(s.Associativity*s.BlockSize) != 0 {
		return fmt.Errorf("shadow_memory.size must be a positive multiple of associativity * block_size")
	}

	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
