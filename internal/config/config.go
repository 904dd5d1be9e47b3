package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/groovebox-go/internal/timing"
)

// Config holds application settings. Zero fields in a loaded file keep
// their defaults.
type Config struct {
	SampleRate   int               `yaml:"sampleRate"`
	Tempo        int               `yaml:"tempo"`
	Resolution   timing.Resolution `yaml:"resolution"`
	Groove       string            `yaml:"groove"`
	Loop         *bool             `yaml:"loop,omitempty"`
	LookaheadMs  int               `yaml:"lookaheadMs"`
	MasterVolume float64           `yaml:"masterVolume"`
	LogLevel     string            `yaml:"logLevel"`
	SongDir      string            `yaml:"songDir,omitempty"`
}

func Default() *Config {
	loop := true
	return &Config{
		SampleRate:   48000,
		Tempo:        120,
		Resolution:   timing.Res16n,
		Groove:       "none",
		Loop:         &loop,
		LookaheadMs:  100,
		MasterVolume: 1,
		LogLevel:     "info",
	}
}

func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "groovebox"), nil
}

// Path is ~/.config/groovebox/config.yaml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.merge(file)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) merge(f Config) {
	if f.SampleRate != 0 {
		c.SampleRate = f.SampleRate
	}
	if f.Tempo != 0 {
		c.Tempo = f.Tempo
	}
	if f.Resolution != "" {
		c.Resolution = f.Resolution
	}
	if f.Groove != "" {
		c.Groove = f.Groove
	}
	if f.Loop != nil {
		c.Loop = f.Loop
	}
	if f.LookaheadMs != 0 {
		c.LookaheadMs = f.LookaheadMs
	}
	if f.MasterVolume != 0 {
		c.MasterVolume = f.MasterVolume
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	if f.SongDir != "" {
		c.SongDir = f.SongDir
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sampleRate %d out of range", c.SampleRate)
	}
	if !c.Resolution.StepValid() {
		return fmt.Errorf("unknown resolution %q", c.Resolution)
	}
	if c.LookaheadMs <= 0 {
		return fmt.Errorf("lookaheadMs must be positive, got %d", c.LookaheadMs)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Looping() bool { return c.Loop == nil || *c.Loop }

// Level parses LogLevel (debug, info, warn, error).
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logLevel: %w", err)
	}
	return l, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
