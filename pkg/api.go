package xxhverify

import "fmt"

// Settings is the resolved configuration for one run, after the config file
// and command-line overrides have been merged
type Settings struct {
	BufferSize     int
	Workers        int
	ResultBuffer   int
	Malformed      string
	KeepGoing      bool
	VerboseLevel   int
	Debug          string
	IgnoreFile     string
	IgnorePatterns []string
}

// SettingsFromConfig validates c and resolves it into Settings
func SettingsFromConfig(c *Config) (*Settings, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	all := c.GetAllConfig()
	bufferSize, err := ValidateBufferSize(all.Hash.BufferSize)
	if err != nil {
		return nil, err
	}
	return &Settings{
		BufferSize:   bufferSize,
		Workers:      all.Performance.HashWorkers,
		ResultBuffer: all.Performance.ResultBuffer,
		Malformed:    all.Manifest.MalformedLines,
		KeepGoing:    !all.Verify.FailFast,
		VerboseLevel: all.Verbose.Level,
		Debug:        all.Verbose.Debug,
		IgnoreFile:   all.Scan.IgnoreFile,
	}, nil
}

// InitLogging applies the verbose level and debug flags globally
func (s *Settings) InitLogging() {
	SetVerboseLevel(s.VerboseLevel)
	SetDebugFlags(s.Debug)
	if s.VerboseLevel > 1 {
		VerboseLog(2, "Settings: workers=%d buffer=%s result_buffer=%d malformed=%s keep_going=%t",
			s.Workers, FormatHumanSize(s.BufferSize), s.ResultBuffer, s.Malformed, s.KeepGoing)
	}
}

// NewIgnoreManager builds the ignore manager from the ignore file and
// extra patterns, or returns nil when there is nothing to ignore
func (s *Settings) NewIgnoreManager() (*IgnoreManager, error) {
	if s.IgnoreFile == "" && len(s.IgnorePatterns) == 0 {
		return nil, nil
	}
	im := NewIgnoreManager(s.IgnoreFile)
	for _, p := range s.IgnorePatterns {
		if err := im.AddPattern(p); err != nil {
			return nil, fmt.Errorf("bad --ignore pattern: %w", err)
		}
	}
	return im, nil
}

// GenerateOptions returns the options for a generate run
func (s *Settings) GenerateOptions(onResult func(Result)) (GenerateOptions, error) {
	ignore, err := s.NewIgnoreManager()
	if err != nil {
		return GenerateOptions{}, err
	}
	return GenerateOptions{
		Workers:      s.Workers,
		ResultBuffer: s.ResultBuffer,
		BufferSize:   s.BufferSize,
		Ignore:       ignore,
		OnResult:     onResult,
	}, nil
}

// CheckOptions returns the options for a check run
func (s *Settings) CheckOptions(reporter Reporter) CheckOptions {
	return CheckOptions{
		VerifyOptions: VerifyOptions{
			Workers:    s.Workers,
			BufferSize: s.BufferSize,
			KeepGoing:  s.KeepGoing,
			Reporter:   reporter,
		},
		Malformed: s.Malformed,
	}
}
