// Package config handles concatrt.toml runtime configuration.
package config

import (
	"io/ioutil"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// FileName is the configuration file looked for by default.
const FileName = "concatrt.toml"

// Config is the runtime configuration of one machine.
type Config struct {
	Stack   Stack   `toml:"stack"`
	Heap    Heap    `toml:"heap"`
	Context Context `toml:"context"`
	Trace   Trace   `toml:"trace"`

	// Path is the file the configuration came from, empty for defaults.
	Path string `toml:"-"`
}

// Stack sizes the operand stack.
type Stack struct {
	Capacity int `toml:"capacity"`
	Limit    int `toml:"limit"`
}

// Heap sizes the deep type and block pools.
type Heap struct {
	Types  int `toml:"types"`
	Blocks int `toml:"blocks"`
	Limit  int `toml:"limit"`
}

// Context sizes scope hash tables.
type Context struct {
	Buckets int `toml:"buckets"`
	MaxName int `toml:"max-name"`
}

// Trace controls diagnostics.
type Trace struct {
	Enabled  bool   `toml:"enabled"`
	Snapshot string `toml:"snapshot"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Stack.Capacity <= 0 {
		cfg.Stack.Capacity = 1024
	}
	if cfg.Heap.Types <= 0 {
		cfg.Heap.Types = 16
	}
	if cfg.Heap.Blocks <= 0 {
		cfg.Heap.Blocks = 16
	}
	if cfg.Context.Buckets <= 0 {
		cfg.Context.Buckets = 16
	}
	if cfg.Context.MaxName <= 0 {
		cfg.Context.MaxName = 64
	}
}

// Parse decodes a configuration document and fills in defaults. Unknown keys
// are an error, so that typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.Wrap(err, "parse error")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, errors.Errorf("unknown keys: %v", strings.Join(keys, ", "))
	}
	if cfg.Stack.Limit < 0 || cfg.Heap.Limit < 0 {
		return nil, errors.New("limits must not be negative")
	}
	if cfg.Stack.Limit > 0 && cfg.Stack.Capacity > cfg.Stack.Limit {
		return nil, errors.Errorf("stack capacity %v exceeds limit %v", cfg.Stack.Capacity, cfg.Stack.Limit)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	cfg.Path = path
	return cfg, nil
}
