package main

import (
	"context"
	"io/ioutil"

	"github.com/pkg/errors"

	"github.com/concatlang/concatrt/internal/config"
	"github.com/concatlang/concatrt/internal/vm"
)

// New creates a machine sized by cfg, further configured by opts, with the
// demo program's types, constants and procedures loaded into it.
func New(ctx context.Context, cfg *config.Config, opts ...vm.Option) (*vm.Machine, error) {
	m := vm.New(configOptions(cfg), vm.Options(opts...))
	if _, err := newProgram(ctx, m); err != nil {
		return nil, errors.Wrap(err, "cannot load program")
	}
	return m, nil
}

// Run runs the procedure registered under entry to completion.
func Run(m *vm.Machine, entry string) error {
	p := m.Lookup(entry)
	if p == nil {
		return errors.Errorf("no procedure named %q", entry)
	}
	return m.Run(p)
}

// WriteSnapshot writes a canonical CBOR snapshot of m to path.
func WriteSnapshot(m *vm.Machine, path string) error {
	data, err := vm.MarshalSnapshot(m.Snapshot())
	if err != nil {
		return err
	}
	return errors.Wrapf(ioutil.WriteFile(path, data, 0644), "cannot write snapshot %s", path)
}

// ReadSnapshot reads back a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*vm.Snapshot, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read snapshot %s", path)
	}
	snap, err := vm.UnmarshalSnapshot(data)
	return snap, errors.Wrapf(err, "invalid snapshot %s", path)
}
