package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/edqs/lib/codec"
	"github.com/ValentinKolb/edqs/lib/repo"
	"github.com/ValentinKolb/edqs/lib/version"
)

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// Config holds all configuration parameters of an edqs node.
type Config struct {
	// Storage
	DataDir   string // directory of the snapshot store, empty for an in-memory store
	SyncWrite bool   // fsync every snapshot write

	// Working set
	CompressionThreshold int
	VersionTTL           time.Duration
	SnapshotInterval     time.Duration
	StringInterning      bool

	// Logging configuration
	LogLevel           string
	ComponentLogLevels map[string]string // component name to level, overrides LogLevel
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		DataDir:              "./edqs-data",
		CompressionThreshold: codec.DefaultCompressionThreshold,
		VersionTTL:           version.DefaultTTL,
		SnapshotInterval:     repo.DefaultSnapshotInterval,
		LogLevel:             "info",
	}
}

// Validate reports the first invalid parameter.
func (c *Config) Validate() error {
	if c.CompressionThreshold <= 0 {
		return fmt.Errorf("compression threshold must be positive, got %d", c.CompressionThreshold)
	}
	if c.VersionTTL <= 0 {
		return fmt.Errorf("version ttl must be positive, got %s", c.VersionTTL)
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot interval must be positive, got %s", c.SnapshotInterval)
	}
	if _, err := componentLevels(*c); err != nil {
		return err
	}
	return nil
}

// RepoOptions converts the working set parameters to repo.Options.
func (c *Config) RepoOptions() repo.Options {
	return repo.Options{
		CompressionThreshold: c.CompressionThreshold,
		VersionTTL:           c.VersionTTL,
		StringInterning:      c.StringInterning,
	}
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Storage")
	if c.DataDir == "" {
		addField("Data Directory", "(in-memory)")
	} else {
		addField("Data Directory", c.DataDir)
	}
	addField("Sync Writes", fmt.Sprintf("%t", c.SyncWrite))

	addSection("Working Set")
	addField("Compression Threshold", fmt.Sprintf("%d chars", c.CompressionThreshold))
	addField("Version TTL", c.VersionTTL.String())
	addField("Snapshot Interval", c.SnapshotInterval.String())
	addField("String Interning", fmt.Sprintf("%t", c.StringInterning))

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Component Log Levels", formatComponentLevels(c.ComponentLogLevels))

	return sb.String()
}
