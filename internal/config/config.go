// Package config parses and validates the client's four required
// positional parameters plus a small set of optional tuning flags.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultTimeout is the nominal retransmission deadline (§4.F).
const DefaultTimeout = 1000 * time.Millisecond

// Config is the fully parsed, validated set of parameters the downloader
// needs to run.
type Config struct {
	ServerAddr net.IP
	ServerPort uint16
	OutputFile string
	FileSize   uint64
	Timeout    time.Duration
	LogLevel   string
	LogFile    string
}

// Parse validates and assembles a Config from the four required positional
// arguments. Any missing or malformed field is reported as an error; the
// caller is expected to print it to standard error and exit nonzero.
func Parse(serverAddr, serverPort, outputFile, fileSize string) (*Config, error) {
	ip := net.ParseIP(serverAddr)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("config: %q is not a valid IPv4 address", serverAddr)
	}

	port, err := strconv.ParseUint(serverPort, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("config: invalid server port %q: %w", serverPort, err)
	}

	if outputFile == "" {
		return nil, fmt.Errorf("config: output file name is required")
	}

	size, err := strconv.ParseUint(fileSize, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config: invalid file size %q: %w", fileSize, err)
	}

	cfg := &Config{
		ServerAddr: ip.To4(),
		ServerPort: uint16(port),
		OutputFile: outputFile,
		FileSize:   size,
		Timeout:    DefaultTimeout,
		LogLevel:   "info",
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate re-checks field-level invariants that survive construction
// (useful after flags like --timeout mutate a parsed Config).
func (c *Config) Validate() error {
	if c.ServerPort == 0 {
		return fmt.Errorf("config: server port must be nonzero")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("config: output file name is required")
	}
	if c.FileSize == 0 {
		return fmt.Errorf("config: file size must be greater than zero")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive")
	}
	return nil
}
