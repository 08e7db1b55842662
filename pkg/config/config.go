// Package config loads rewind settings from rewind.yaml.
//
// Settings are resolved in layers: built-in defaults, then the user file in
// the config directory, then any file given explicitly. A missing file is
// not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up in the config directory.
	FileName = "rewind.yaml"
	// DirEnv overrides the config directory.
	DirEnv = "REWIND_CONFIG_DIR"

	defaultDirName = ".rewind"
)

// Config holds resolved settings.
type Config struct {
	EvaluationTimeout time.Duration
	HistoryEnabled    bool
	HistoryCapacity   int
	LiveDebounce      time.Duration
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		EvaluationTimeout: time.Second,
		HistoryEnabled:    true,
		HistoryCapacity:   100,
		LiveDebounce:      500 * time.Millisecond,
	}
}

// File mirrors rewind.yaml. Unset fields leave lower layers untouched.
type File struct {
	Evaluation *EvaluationSection `yaml:"evaluation,omitempty"`
	History    *HistorySection    `yaml:"history,omitempty"`
	Live       *LiveSection       `yaml:"live,omitempty"`
}

type EvaluationSection struct {
	Timeout string `yaml:"timeout,omitempty"`
}

type HistorySection struct {
	Enabled  *bool `yaml:"enabled,omitempty"`
	Capacity int   `yaml:"capacity,omitempty"`
}

type LiveSection struct {
	Debounce string `yaml:"debounce,omitempty"`
}

// Dir returns the config directory: $REWIND_CONFIG_DIR if set, else ~/.rewind.
func Dir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, defaultDirName), nil
}

// Load reads and validates a config file. It returns nil, nil when the file
// does not exist.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates and decodes config file contents. path is only used in errors.
func Parse(path string, data []byte) (*File, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if raw == nil {
		// Empty document.
		return &File{}, nil
	}
	if err := validate(raw); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := f.checkDurations(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &f, nil
}

func (f *File) checkDurations() error {
	if f.Evaluation != nil && f.Evaluation.Timeout != "" {
		d, err := time.ParseDuration(f.Evaluation.Timeout)
		if err != nil {
			return fmt.Errorf("evaluation.timeout: %w", err)
		}
		if d <= 0 {
			return errors.New("evaluation.timeout: must be positive")
		}
	}
	if f.Live != nil && f.Live.Debounce != "" {
		if _, err := time.ParseDuration(f.Live.Debounce); err != nil {
			return fmt.Errorf("live.debounce: %w", err)
		}
	}
	return nil
}

// Merge applies files over base in order; later files take precedence.
// Nil files are skipped.
func Merge(base Config, files ...*File) Config {
	result := base
	for _, f := range files {
		if f == nil {
			continue
		}
		if f.Evaluation != nil && f.Evaluation.Timeout != "" {
			if d, err := time.ParseDuration(f.Evaluation.Timeout); err == nil && d > 0 {
				result.EvaluationTimeout = d
			}
		}
		if f.History != nil {
			if f.History.Enabled != nil {
				result.HistoryEnabled = *f.History.Enabled
			}
			if f.History.Capacity > 0 {
				result.HistoryCapacity = f.History.Capacity
			}
		}
		if f.Live != nil && f.Live.Debounce != "" {
			if d, err := time.ParseDuration(f.Live.Debounce); err == nil {
				result.LiveDebounce = d
			}
		}
	}
	return result
}

// LoadDir resolves the settings for a config directory: defaults overlaid
// with dir/rewind.yaml when present.
func LoadDir(dir string) (Config, error) {
	f, err := Load(filepath.Join(dir, FileName))
	if err != nil {
		return Config{}, err
	}
	return Merge(Defaults(), f), nil
}

// WriteDefault creates dir and writes a rewind.yaml holding the defaults,
// unless the file already exists.
func WriteDefault(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := yaml.Marshal(FromConfig(Defaults()))
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// FromConfig converts resolved settings back into file form.
func FromConfig(c Config) *File {
	enabled := c.HistoryEnabled
	return &File{
		Evaluation: &EvaluationSection{Timeout: c.EvaluationTimeout.String()},
		History:    &HistorySection{Enabled: &enabled, Capacity: c.HistoryCapacity},
		Live:       &LiveSection{Debounce: c.LiveDebounce.String()},
	}
}

// ParseError is returned when a config file exists but is malformed or
// does not match the schema.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
