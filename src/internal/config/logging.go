// FILE: kibanalog/src/internal/config/logging.go
package config

// LogConfig configures the diagnostic logger of kibanalog itself.
// Canonical records never go through it.
type LogConfig struct {
	// Output mode: "stdout", "stderr", "split", "none"
	Output string `toml:"output"`

	// Log level: "debug", "info", "warn", "error"
	Level string `toml:"level"`

	// Format: "txt" or "json"
	Format string `toml:"format"`
}

// DefaultLogConfig returns sensible logging defaults
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Output: "stderr",
		Level:  "warn",
		Format: "txt",
	}
}
