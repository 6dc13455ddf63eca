// Package config loads evaluation settings from YAML or JSON files.
//
// A settings file looks like:
//
//	max_depth: 64
//	keywords: false
//	fold: true
//	builtins: last
//	vars:
//	  g: 9.80665
//	  c: 299792458
//
// Omitted limits keep the parser's defaults.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/fastexpr"
)

// Settings configures how programs are prepared and evaluated.
type Settings struct {
	MaxDepth  int `yaml:"max_depth" json:"max_depth"`
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
	MaxArgs   int `yaml:"max_args" json:"max_args"`
	MaxLength int `yaml:"max_length" json:"max_length"`
	// Keywords enables the keyword aliases. Nil leaves the parser default.
	Keywords *bool `yaml:"keywords" json:"keywords"`
	// Fold enables constant folding.
	Fold bool `yaml:"fold" json:"fold"`
	// Builtins is "first", "last", or "none". Empty means first.
	Builtins string `yaml:"builtins" json:"builtins"`
	// Vars are constant variables made available to every evaluation.
	Vars map[string]float64 `yaml:"vars" json:"vars"`
}

// ErrInvalid is wrapped by errors describing invalid settings.
var ErrInvalid = errors.New("invalid settings")

// Default returns settings with every default.
func Default() Settings {
	return Settings{}
}

// FromFile loads settings from a file, choosing the format by extension.
// Supported extensions are .yaml, .yml, and .json.
func FromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Settings{}, fmt.Errorf("unsupported config file extension: %q", ext)
	}
}

// FromYAML parses YAML settings. Unknown keys are an error.
func FromYAML(data []byte) (Settings, error) {
	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	return s, s.Validate()
}

// FromJSON parses JSON settings. Unknown keys are an error.
func FromJSON(data []byte) (Settings, error) {
	var s Settings
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("parse json: %w", err)
	}
	return s, s.Validate()
}

// Validate reports whether the settings are usable.
func (s Settings) Validate() error {
	lims := []struct {
		name string
		n    int
	}{
		{"max_depth", s.MaxDepth},
		{"max_tokens", s.MaxTokens},
		{"max_args", s.MaxArgs},
		{"max_length", s.MaxLength},
	}
	for _, l := range lims {
		if l.n < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalid, l.name, l.n)
		}
	}
	if _, _, err := s.order(); err != nil {
		return err
	}
	for name := range s.Vars {
		if !validName(name) {
			return fmt.Errorf("%w: %q is not a variable name", ErrInvalid, name)
		}
	}
	return nil
}

func (s Settings) order() (fastexpr.BuiltinOrder, bool, error) {
	switch strings.ToLower(s.Builtins) {
	case "", "first":
		return fastexpr.BuiltinsFirst, true, nil
	case "last":
		return fastexpr.BuiltinsLast, true, nil
	case "none":
		return fastexpr.BuiltinsFirst, false, nil
	default:
		return 0, false, fmt.Errorf("%w: builtins must be first, last, or none, got %q", ErrInvalid, s.Builtins)
	}
}

// validName reports whether name lexes as a single identifier.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && '0' <= c && c <= '9':
		default:
			return false
		}
	}
	return true
}

// ParseOptions returns the parse options the settings describe.
func (s Settings) ParseOptions() []fastexpr.ParseOption {
	var opts []fastexpr.ParseOption
	if s.MaxDepth > 0 {
		opts = append(opts, fastexpr.MaxDepth(s.MaxDepth))
	}
	if s.MaxTokens > 0 {
		opts = append(opts, fastexpr.MaxTokens(s.MaxTokens))
	}
	if s.MaxArgs > 0 {
		opts = append(opts, fastexpr.MaxArgs(s.MaxArgs))
	}
	if s.MaxLength > 0 {
		opts = append(opts, fastexpr.MaxLength(s.MaxLength))
	}
	if s.Keywords != nil {
		opts = append(opts, fastexpr.Keywords(*s.Keywords))
	}
	return opts
}

// ProgramOptions returns the options for fastexpr.Prepare that the settings
// describe. The settings should be valid.
func (s Settings) ProgramOptions() []fastexpr.ProgramOption {
	opts := []fastexpr.ProgramOption{
		fastexpr.WithParseOptions(s.ParseOptions()...),
		fastexpr.WithFolding(s.Fold),
	}
	order, builtins, _ := s.order()
	if builtins {
		opts = append(opts, fastexpr.WithBuiltinOrder(order))
	} else {
		opts = append(opts, fastexpr.WithoutBuiltins())
	}
	return opts
}

// Namespace returns the configured variables. The result is a copy.
func (s Settings) Namespace() fastexpr.MapNamespace {
	m := make(fastexpr.MapNamespace, len(s.Vars))
	for k, v := range s.Vars {
		m[k] = v
	}
	return m
}
