package xxhverify

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the xxhv configuration
type Config struct {
	configPath string // empty for an in-memory config
	ini        *ini.File
}

// HashConfig represents hash engine configuration
type HashConfig struct {
	BufferSize string // Read chunk size, human readable (default: "32K")
}

// PerformanceConfig represents concurrency configuration
type PerformanceConfig struct {
	HashWorkers  int // Files hashed concurrently (default: 16)
	ResultBuffer int // Result channel capacity (default: 64)
}

// ManifestConfig represents manifest decoding configuration
type ManifestConfig struct {
	MalformedLines string // error, warn or skip (default: error)
}

// VerifyConfig represents check configuration
type VerifyConfig struct {
	FailFast bool // Stop at the first mismatch or missing file (default: true)
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// ScanConfig represents enumeration configuration
type ScanConfig struct {
	IgnoreFile string // File of regular expressions to skip (default: none)
}

// AllConfig represents all configuration options
type AllConfig struct {
	Hash        *HashConfig
	Performance *PerformanceConfig
	Manifest    *ManifestConfig
	Verify      *VerifyConfig
	Verbose     *VerboseConfig
	Scan        *ScanConfig
}

// configKey locates one setting in the ini file
type configKey struct {
	section string
	key     string
	value   string // default
}

// configKeys lists every setting in file order. Override keys are the key names.
var configKeys = []configKey{
	{"hash", "buffer_size", "32K"},
	{"performance", "hash_workers", strconv.Itoa(DefaultHashWorkers)},
	{"performance", "result_buffer", strconv.Itoa(DefaultResultBuffer)},
	{"manifest", "malformed_lines", MalformedError},
	{"verify", "fail_fast", "true"},
	{"verbose", "level", "0"},
	{"verbose", "debug", ""},
	{"scan", "ignore_file", ""},
}

func lookupConfigKey(key string) (configKey, bool) {
	for _, k := range configKeys {
		if k.key == key {
			return k, true
		}
	}
	return configKey{}, false
}

// DefaultConfig returns an in-memory configuration holding the defaults
func DefaultConfig() *Config {
	cfg := &Config{ini: ini.Empty()}
	if err := cfg.setDefaults(); err != nil {
		// Section and key names are constants; failure here is a programming error
		panic(err)
	}
	return cfg
}

// LoadConfig loads configuration from configPath, creating it with
// defaults if it does not exist
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		configPath: configPath,
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.ini = ini.Empty()
		if err := cfg.setDefaults(); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
		if dir := filepath.Dir(configPath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create config directory: %w", err)
			}
		}
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		VerboseLog(1, "Created default config at %s", configPath)
	} else {
		iniFile, err := ini.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg.ini = iniFile
	}

	return cfg, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	for _, k := range configKeys {
		section, err := c.ini.NewSection(k.section)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", k.section, err)
		}
		if _, err := section.NewKey(k.key, k.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", k.section, k.key, err)
		}
	}
	return nil
}

// Path returns the file the configuration was loaded from, or "" if none
func (c *Config) Path() string {
	return c.configPath
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	hashConfig := &HashConfig{
		BufferSize: "32K", // fallback default
	}

	if c.ini.HasSection("hash") {
		section := c.ini.Section("hash")
		if section.HasKey("buffer_size") {
			if size := section.Key("buffer_size").String(); size != "" {
				hashConfig.BufferSize = size
			}
		}
	}

	return hashConfig
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		HashWorkers:  DefaultHashWorkers,  // fallback default
		ResultBuffer: DefaultResultBuffer, // fallback default
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("hash_workers") {
			if workers, err := section.Key("hash_workers").Int(); err == nil {
				performanceConfig.HashWorkers = workers
			}
		}
		if section.HasKey("result_buffer") {
			if capacity, err := section.Key("result_buffer").Int(); err == nil {
				performanceConfig.ResultBuffer = capacity
			}
		}
	}

	return performanceConfig
}

// GetManifestConfig returns the manifest configuration
func (c *Config) GetManifestConfig() *ManifestConfig {
	manifestConfig := &ManifestConfig{
		MalformedLines: MalformedError, // fallback default
	}

	if c.ini.HasSection("manifest") {
		section := c.ini.Section("manifest")
		if section.HasKey("malformed_lines") {
			if policy := section.Key("malformed_lines").String(); policy != "" {
				manifestConfig.MalformedLines = strings.ToLower(policy)
			}
		}
	}

	return manifestConfig
}

// GetVerifyConfig returns the verify configuration
func (c *Config) GetVerifyConfig() *VerifyConfig {
	verifyConfig := &VerifyConfig{
		FailFast: true, // fallback default
	}

	if c.ini.HasSection("verify") {
		section := c.ini.Section("verify")
		if section.HasKey("fail_fast") {
			if failFast, err := section.Key("fail_fast").Bool(); err == nil {
				verifyConfig.FailFast = failFast
			}
		}
	}

	return verifyConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetScanConfig returns the scan configuration
func (c *Config) GetScanConfig() *ScanConfig {
	scanConfig := &ScanConfig{}

	if c.ini.HasSection("scan") {
		section := c.ini.Section("scan")
		if section.HasKey("ignore_file") {
			scanConfig.IgnoreFile = section.Key("ignore_file").String()
		}
	}

	return scanConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Hash:        c.GetHashConfig(),
		Performance: c.GetPerformanceConfig(),
		Manifest:    c.GetManifestConfig(),
		Verify:      c.GetVerifyConfig(),
		Verbose:     c.GetVerboseConfig(),
		Scan:        c.GetScanConfig(),
	}
}

// Set stores value under an override key name without saving
func (c *Config) Set(key, value string) error {
	k, ok := lookupConfigKey(key)
	if !ok {
		return fmt.Errorf("unsupported config key '%s' (supported: %s)", key, supportedKeys())
	}
	c.ini.Section(k.section).Key(k.key).SetValue(value)
	return nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("config has no file to save to")
	}
	return c.ini.SaveTo(c.configPath)
}

// ApplyOverrides applies command-line overrides to the configuration.
// Accepts strings like "hash_workers:8", "buffer_size:1M", "fail_fast:false".
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := c.Set(key, value); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks every setting and returns the first problem found
func (c *Config) Validate() error {
	all := c.GetAllConfig()
	if _, err := ValidateBufferSize(all.Hash.BufferSize); err != nil {
		return err
	}
	if err := ValidateHashWorkers(all.Performance.HashWorkers); err != nil {
		return err
	}
	if err := ValidateResultBuffer(all.Performance.ResultBuffer); err != nil {
		return err
	}
	if err := ValidateMalformedPolicy(all.Manifest.MalformedLines); err != nil {
		return err
	}
	if err := ValidateVerboseLevel(all.Verbose.Level); err != nil {
		return err
	}
	return nil
}

func supportedKeys() string {
	names := make([]string, len(configKeys))
	for i, k := range configKeys {
		names[i] = k.key
	}
	return strings.Join(names, ", ")
}

// ValidateBufferSize parses a human readable chunk size and checks its range
func ValidateBufferSize(size string) (int, error) {
	n, err := ParseHumanSize(size)
	if err != nil {
		return 0, fmt.Errorf("invalid buffer size: %w", err)
	}
	if n < 512 || n > 64*1024*1024 {
		return 0, fmt.Errorf("buffer size must be between 512 and 64M, got: %s", size)
	}
	return n, nil
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > MaxHashWorkers {
		return fmt.Errorf("hash workers should not exceed %d, got: %d", MaxHashWorkers, workers)
	}
	return nil
}

// ValidateResultBuffer validates the result channel capacity
func ValidateResultBuffer(capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("result buffer must be at least 1, got: %d", capacity)
	}
	return nil
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}
