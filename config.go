package conduit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/petrijr/conduit/pkg/api"
	"gopkg.in/yaml.v3"
)

// Config holds the file-configurable settings of a Context:
//
//	name: checkout
//	mode: parallel
//	overwrite: false
//	resolveOnError: true
type Config struct {
	Name           string `yaml:"name"`
	Mode           string `yaml:"mode"`
	Overwrite      *bool  `yaml:"overwrite"`
	ResolveOnError bool   `yaml:"resolveOnError"`
}

// LoadConfig reads a YAML Config from path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("conduit: read config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig decodes a YAML Config. Unknown fields are rejected.
func ParseConfig(raw []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("conduit: parse config: %w", err)
	}
	if _, err := api.ParseMode(cfg.Mode); err != nil {
		return Config{}, fmt.Errorf("conduit: parse config: %w", err)
	}
	return cfg, nil
}

// Options converts cfg to options for New. Unset fields keep the defaults.
func (cfg Config) Options() ([]Option, error) {
	mode, err := api.ParseMode(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("conduit: config: %w", err)
	}

	opts := []Option{WithMode(mode), WithResolveOnError(cfg.ResolveOnError)}
	if cfg.Name != "" {
		opts = append(opts, WithName(cfg.Name))
	}
	if cfg.Overwrite != nil {
		opts = append(opts, WithOverwrite(*cfg.Overwrite))
	}
	return opts, nil
}

// NewFromConfig creates a Context from cfg. opts are applied afterwards
// and take precedence.
func NewFromConfig(cfg Config, opts ...Option) (*Context, error) {
	base, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return New(append(base, opts...)...), nil
}
