// FILE: kibanalog/src/internal/config/config.go
package config

// Config is the complete process configuration, loaded once at startup
type Config struct {
	// Status report interval in seconds, 0 disables the periodic report
	StatusIntervalSeconds int64 `toml:"status_interval_seconds"`

	Logging   *LogConfig       `toml:"logging"`
	Sink      *SinkConfig      `toml:"sink"`
	Timestamp *TimestampConfig `toml:"timestamp"`
	Ingest    *IngestConfig    `toml:"ingest"`
}

// SinkConfig configures the console sink and the optional rotating file sink.
// An empty Directory means console only.
type SinkConfig struct {
	// Most verbose level accepted: error, warn, info, http, verbose, debug, silly
	Level string `toml:"level"`

	Directory        string `toml:"directory"`
	Filename         string `toml:"filename"`
	MaxFileSizeBytes int64  `toml:"max_file_size_bytes"`
	MaxFiles         int64  `toml:"max_files"`
	ArchiveOnRotate  bool   `toml:"archive_on_rotate"`
	Tailable         bool   `toml:"tailable"`

	// "gzip" or "zstd", used when ArchiveOnRotate is set
	Compression string `toml:"compression"`

	// "stdout", "stderr", "split"
	ConsoleTarget string `toml:"console_target"`

	// Passthrough options, carried but not interpreted
	Options map[string]any `toml:"options"`
}

// TimestampConfig controls how timestamps without a zone are read
type TimestampConfig struct {
	// "Local", "UTC" or an IANA zone name
	Location string `toml:"location"`
}

// IngestConfig selects the input adapters feeding the logger
type IngestConfig struct {
	Stdin *StdinIngestConfig `toml:"stdin"`
	HTTP  *HTTPIngestConfig  `toml:"http"`
	TCP   *TCPIngestConfig   `toml:"tcp"`
}

type StdinIngestConfig struct {
	Enabled bool `toml:"enabled"`
	// Maximum accepted line length in bytes
	MaxLineBytes int64 `toml:"max_line_bytes"`
}

type HTTPIngestConfig struct {
	Enabled           bool    `toml:"enabled"`
	Host              string  `toml:"host"`
	Port              int64   `toml:"port"`
	Path              string  `toml:"path"`
	MaxBodyBytes      int64   `toml:"max_body_bytes"`
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 disables limiting
	Burst             int64   `toml:"burst"`
	ReadTimeoutMs     int64   `toml:"read_timeout_ms"`
	WriteTimeoutMs    int64   `toml:"write_timeout_ms"`
}

// TCPIngestConfig accepts newline-delimited entries on a plain TCP port
type TCPIngestConfig struct {
	Enabled      bool   `toml:"enabled"`
	Host         string `toml:"host"`
	Port         int64  `toml:"port"`
	MaxLineBytes int64  `toml:"max_line_bytes"`

	// New connections per second per remote address, 0 disables limiting
	ConnectionsPerSecond float64 `toml:"connections_per_second"`
	Burst                int64   `toml:"burst"`
}

func defaults() *Config {
	return &Config{
		StatusIntervalSeconds: 30,
		Logging:               DefaultLogConfig(),
		Sink:                  DefaultSinkConfig(),
		Timestamp: &TimestampConfig{
			Location: "Local",
		},
		Ingest: &IngestConfig{
			Stdin: &StdinIngestConfig{
				Enabled:      true,
				MaxLineBytes: 1024 * 1024,
			},
			HTTP: &HTTPIngestConfig{
				Enabled:           false,
				Host:              "127.0.0.1",
				Port:              8088,
				Path:              "/log",
				MaxBodyBytes:      4 * 1024 * 1024,
				RequestsPerSecond: 0,
				Burst:             10,
				ReadTimeoutMs:     5000,
				WriteTimeoutMs:    5000,
			},
			TCP: &TCPIngestConfig{
				Enabled:      false,
				Host:         "127.0.0.1",
				Port:         8089,
				MaxLineBytes: 1024 * 1024,
				Burst:        10,
			},
		},
	}
}

// DefaultSinkConfig returns the console-only sink set at info level
func DefaultSinkConfig() *SinkConfig {
	return &SinkConfig{
		Level:            "info",
		Directory:        "",
		Filename:         "kibanalog.log",
		MaxFileSizeBytes: 10 * 1024 * 1024,
		MaxFiles:         5,
		ArchiveOnRotate:  false,
		Tailable:         true,
		Compression:      "gzip",
		ConsoleTarget:    "stdout",
	}
}
