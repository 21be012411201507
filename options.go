package main

import (
	"os"

	"github.com/concatlang/concatrt/internal/config"
	"github.com/concatlang/concatrt/internal/vm"
)

// configOptions translates a runtime configuration into machine options.
func configOptions(cfg *config.Config) vm.Option {
	if cfg == nil {
		cfg = config.Default()
	}
	return vm.Options(
		vm.WithStackCapacity(cfg.Stack.Capacity),
		vm.WithStackLimit(cfg.Stack.Limit),
		vm.WithHeapCapacity(cfg.Heap.Types, cfg.Heap.Blocks),
		vm.WithHeapLimit(cfg.Heap.Limit),
		vm.WithContext(cfg.Context.Buckets, cfg.Context.MaxName),
	)
}

// loadConfig loads the file at path; with no path it falls back to
// config.FileName in the working directory, then to the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.FileName); err == nil {
		return config.Load(config.FileName)
	}
	return config.Default(), nil
}
