package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for kv.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Payloads   PayloadConfig    `toml:"payloads"`
	Encryption EncryptionConfig `toml:"encryption"`
	Clipboard  ClipboardConfig  `toml:"clipboard"`
	Download   DownloadConfig   `toml:"download"`
}

// DatabaseConfig represents configuration for the import history.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// PayloadConfig represents configuration for the store holding imported files.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type PayloadConfig struct {
	Type string `toml:"type"` // "filesystem", "memory" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	// S3Endpoint points at an S3-compatible service such as MinIO. Path-style
	// addressing is used when it is set.
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// EncryptionConfig selects how stored payloads are sealed at rest.
type EncryptionConfig struct {
	Type         string `toml:"type"` // "none", "age" or "test"
	IdentityPath string `toml:"identity_path,omitempty"`
}

// ClipboardConfig selects the clipboard backend.
type ClipboardConfig struct {
	Type string `toml:"type"` // "system" or "memory"
}

// DownloadConfig holds settings for fetching database files.
type DownloadConfig struct {
	Timeout  Duration `toml:"timeout"`
	MaxSize  int64    `toml:"max_size"` // bytes; must be positive
	S3Region string   `toml:"s3_region,omitempty"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

const (
	// DefaultDownloadTimeout bounds a single fetch.
	DefaultDownloadTimeout = 30 * time.Second
	// DefaultMaxDownloadSize is 64 MiB.
	DefaultMaxDownloadSize = 64 << 20
)

// NewConfig creates a new Config rooted at baseDir with local storage and
// the system clipboard.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Payloads: PayloadConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "imports"),
		},
		Encryption: EncryptionConfig{
			Type:         "age",
			IdentityPath: filepath.Join(baseDir, "keys", "kv.key"),
		},
		Clipboard: ClipboardConfig{Type: "system"},
		Download: DownloadConfig{
			Timeout: Duration{DefaultDownloadTimeout},
			MaxSize: DefaultMaxDownloadSize,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
