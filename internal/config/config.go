package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnvVar is the environment variable consulted when the config file
// does not carry the remote service credential.
const APIKeyEnvVar = "VOI_API_KEY"

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Voice     VoiceConfig     `yaml:"voice"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int    `yaml:"port"`
	Address         string `yaml:"address"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
}

// AudioConfig describes the audio formats on both sides of the session:
// the priming input we send and the PCM stream the service returns.
type AudioConfig struct {
	OutputSampleRate  int `yaml:"output_sample_rate"`
	OutputChannels    int `yaml:"output_channels"`
	OutputBitDepth    int `yaml:"output_bit_depth"`
	PrimingSampleRate int `yaml:"priming_sample_rate"`
	PrimingSamples    int `yaml:"priming_samples"`
	ResultTTL         int `yaml:"result_ttl"` // seconds
}

// SynthesisConfig contains remote synthesis service configuration
type SynthesisConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxTextLength int    `yaml:"max_text_length"`
}

// VoiceConfig contains voice analysis configuration
type VoiceConfig struct {
	AnalysisDuration float64 `yaml:"analysis_duration"` // seconds
	MaxUploadBytes   int64   `yaml:"max_upload_bytes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. The synthesis API key falls
// back to the environment so the credential never has to live on disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if config.Synthesis.APIKey == "" {
		config.Synthesis.APIKey = os.Getenv(APIKeyEnvVar)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs validation of the complete configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	if err := c.Voice.Validate(); err != nil {
		return fmt.Errorf("voice config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if s.ShutdownTimeout < 1 {
		return fmt.Errorf("shutdown_timeout must be at least 1 second, got %d", s.ShutdownTimeout)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.OutputSampleRate <= 0 {
		return fmt.Errorf("output_sample_rate must be positive, got %d", a.OutputSampleRate)
	}

	if a.OutputChannels < 1 {
		return fmt.Errorf("output_channels must be at least 1, got %d", a.OutputChannels)
	}

	if a.OutputBitDepth <= 0 || a.OutputBitDepth%8 != 0 {
		return fmt.Errorf("output_bit_depth must be a positive multiple of 8, got %d", a.OutputBitDepth)
	}

	if a.PrimingSampleRate <= 0 {
		return fmt.Errorf("priming_sample_rate must be positive, got %d", a.PrimingSampleRate)
	}

	if a.PrimingSamples < 1 {
		return fmt.Errorf("priming_samples must be at least 1, got %d", a.PrimingSamples)
	}

	if a.ResultTTL < 1 {
		return fmt.Errorf("result_ttl must be at least 1 second, got %d", a.ResultTTL)
	}

	return nil
}

// Validate validates synthesis configuration
func (s *SynthesisConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if s.APIKey == "" {
		return fmt.Errorf("api_key missing: set it in the config file or via %s", APIKeyEnvVar)
	}

	if s.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	if s.MaxTextLength < 1 {
		return fmt.Errorf("max_text_length must be at least 1, got %d", s.MaxTextLength)
	}

	return nil
}

// Validate validates voice analysis configuration
func (v *VoiceConfig) Validate() error {
	if v.AnalysisDuration <= 0 {
		return fmt.Errorf("analysis_duration must be positive, got %f", v.AnalysisDuration)
	}

	if v.MaxUploadBytes < 1 {
		return fmt.Errorf("max_upload_bytes must be at least 1, got %d", v.MaxUploadBytes)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	switch l.Format {
	case "json", "text", "":
	default:
		return fmt.Errorf("invalid log format: %s", l.Format)
	}

	return nil
}

// GetShutdownTimeout returns the shutdown timeout as a time.Duration
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// GetResultTTL returns the result retention period as a time.Duration
func (a *AudioConfig) GetResultTTL() time.Duration {
	return time.Duration(a.ResultTTL) * time.Second
}

// GetTimeout returns the synthesis request timeout as a time.Duration
func (s *SynthesisConfig) GetTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetAnalysisDuration returns the simulated analysis time as a time.Duration
func (v *VoiceConfig) GetAnalysisDuration() time.Duration {
	return time.Duration(v.AnalysisDuration * float64(time.Second))
}
