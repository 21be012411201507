package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/concatlang/concatrt/internal/config"
	"github.com/concatlang/concatrt/internal/logio"
	"github.com/concatlang/concatrt/internal/vm"
)

type vmTestCases []vmTestCase

func (vmts vmTestCases) run(t *testing.T) {
	{
		var exclusive []vmTestCase
		for _, vmt := range vmts {
			if vmt.exclusive {
				exclusive = append(exclusive, vmt)
			}
		}
		if len(exclusive) > 0 {
			vmts = exclusive
		}
	}
	for _, vmt := range vmts {
		if !t.Run(vmt.name, vmt.run) {
			return
		}
	}
}

func vmTest(name string) (vmt vmTestCase) {
	vmt.name = name
	return vmt
}

type vmTestCase struct {
	name    string
	cfg     *config.Config
	entry   string
	opts    []interface{}
	setup   []func(m *vm.Machine) error
	ops     []func(m *vm.Machine)
	expect  []func(t *testing.T, m *vm.Machine)
	timeout time.Duration
	wantErr error

	exclusive bool
}

func (vmt vmTestCase) apply(wraps ...func(vmTestCase) vmTestCase) vmTestCase {
	for _, wrap := range wraps {
		vmt = wrap(vmt)
	}
	return vmt
}

func (vmt vmTestCase) exclusiveTest() vmTestCase {
	vmt.exclusive = true
	return vmt
}

func (vmt vmTestCase) withOptions(opts ...vm.Option) vmTestCase {
	for _, opt := range opts {
		vmt.opts = append(vmt.opts, opt)
	}
	return vmt
}

func (vmt vmTestCase) withConfig(cfg *config.Config) vmTestCase {
	vmt.cfg = cfg
	return vmt
}

func (vmt vmTestCase) withEntry(name string) vmTestCase {
	vmt.entry = name
	return vmt
}

func (vmt vmTestCase) withStackLimit(limit int) vmTestCase {
	vmt.opts = append(vmt.opts, vm.WithStackLimit(limit))
	return vmt
}

func (vmt vmTestCase) withStack(values ...vm.Value) vmTestCase {
	vmt.setup = append(vmt.setup, func(m *vm.Machine) error {
		return m.Push(values...)
	})
	return vmt
}

func (vmt vmTestCase) withGlobal(name string, typ vm.Type, values ...vm.Value) vmTestCase {
	vmt.setup = append(vmt.setup, func(m *vm.Machine) error {
		_, err := m.Globals().Declare(name, typ, false, values...)
		return err
	})
	return vmt
}

func (vmt vmTestCase) do(ops ...func(m *vm.Machine)) vmTestCase {
	vmt.ops = append(vmt.ops, ops...)
	return vmt
}

func (vmt vmTestCase) withTimeout(timeout time.Duration) vmTestCase {
	vmt.timeout = timeout
	return vmt
}

func (vmt vmTestCase) expectError(err error) vmTestCase {
	vmt.wantErr = err
	return vmt
}

func (vmt vmTestCase) expectStack(values ...vm.Value) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, m *vm.Machine) {
		assertValues(t, values, m.Values(), "expected stack values")
	})
	return vmt
}

func (vmt vmTestCase) expectGlobal(name string, values ...vm.Value) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, m *vm.Machine) {
		got, err := m.Globals().Load(name)
		if assert.NoError(t, err, "expected global %q", name) {
			assertValues(t, values, got, "expected global %q values", name)
		}
	})
	return vmt
}

func (vmt vmTestCase) expectDepth(depth int) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, m *vm.Machine) {
		assert.Equal(t, depth, m.Depth(), "expected call depth")
	})
	return vmt
}

func (vmt vmTestCase) expectLiveBlocks(n int) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, m *vm.Machine) {
		assert.Equal(t, n, m.Heap().LiveBlocks(), "expected live heap blocks")
	})
	return vmt
}

func (vmt vmTestCase) expectOutput(output string) vmTestCase {
	var out strings.Builder
	// output goes first so that any tee added along the chain survives it
	vmt.opts = append([]interface{}{vm.WithOutput(&out)}, vmt.opts...)
	vmt.expect = append(vmt.expect, func(t *testing.T, m *vm.Machine) {
		assert.Equal(t, output, out.String(), "expected output")
	})
	return vmt
}

func (vmt vmTestCase) expectDump(dump string) vmTestCase {
	vmt.expect = append(vmt.expect, func(t *testing.T, m *vm.Machine) {
		var out strings.Builder
		m.Dump(&out)
		assert.Equal(t, dump, out.String(), "expected dump")
	})
	return vmt
}

func (vmt vmTestCase) withTestDump() vmTestCase {
	vmt.expect = append(vmt.expect, vmt.dumpToTest)
	return vmt
}

func (vmt vmTestCase) withTestOutput() vmTestCase {
	vmt.opts = append(vmt.opts, func(t *testing.T) vm.Option {
		return vm.WithTee(&logio.Writer{Logf: t.Logf, Prefix: "out: "})
	})
	return vmt
}

func (vmt vmTestCase) run(t *testing.T) {
	defer func(then time.Time) {
		label := "PASS"
		if t.Failed() {
			label = "FAIL"
		}
		t.Logf("%v\t%v\t%v", label, t.Name(), time.Now().Sub(then))
	}(time.Now())

	if testFails(func(t *testing.T) {
		vmt.runVMTest(context.Background(), t)
	}) {
		vmt.runVMTest(context.Background(), t, vm.WithLogf(t.Logf))
	}
}

func (vmt vmTestCase) runVMTest(ctx context.Context, t *testing.T, extra ...vm.Option) {
	const defaultTimeout = time.Second
	timeout := vmt.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m := vmt.buildVM(ctx, t, extra...)
	if m == nil {
		return
	}

	defer func() {
		if t.Failed() {
			vmt.dumpToTest(t, m)
		}
	}()

	if err := vmt.runVM(ctx, m); vmt.wantErr != nil {
		assert.True(t, errors.Is(err, vmt.wantErr), "expected error: %v\ngot: %+v", vmt.wantErr, err)
	} else {
		assert.NoError(t, err, "unexpected machine halt")
	}

	if !t.Failed() {
		for _, expect := range vmt.expect {
			expect(t, m)
		}
	}
}

func (vmt vmTestCase) runVM(ctx context.Context, m *vm.Machine) error {
	for _, setup := range vmt.setup {
		if err := setup(m); err != nil {
			return err
		}
	}

	if len(vmt.ops) == 0 {
		entry := vmt.entry
		if entry == "" {
			entry = "main"
		}
		return Run(m, entry)
	}

	return m.Run(func(m *vm.Machine, _ vm.Ref) error {
		for _, op := range vmt.ops {
			op(m)
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (vmt vmTestCase) buildVM(ctx context.Context, t *testing.T, extra ...vm.Option) *vm.Machine {
	var opts []vm.Option
	for _, o := range vmt.opts {
		switch impl := o.(type) {
		case func(t *testing.T) vm.Option:
			opts = append(opts, impl(t))
		case vm.Option:
			opts = append(opts, impl)
		default:
			t.Logf("unsupported vmTestCase opt type %T", o)
			t.FailNow()
		}
	}
	opts = append(opts, extra...)

	cfg := vmt.cfg
	if cfg == nil {
		cfg = config.Default()
	}
	m, err := New(ctx, cfg, opts...)
	if !assert.NoError(t, err, "unable to build machine") {
		return nil
	}
	return m
}

func (vmt vmTestCase) dumpToTest(t *testing.T, m *vm.Machine) {
	lw := logio.Writer{Logf: t.Logf}
	defer lw.Close()
	m.Dump(&lw)
}

//// utilities

func testFails(fn func(t *testing.T)) bool {
	var fakeT testing.T
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(&fakeT)
	}()
	<-done
	return fakeT.Failed()
}

// assertValues compares slot runs by Value.Equal, since procedure slots do
// not compare under reflection.
func assertValues(t *testing.T, want, got []vm.Value, msgAndArgs ...interface{}) bool {
	t.Helper()
	if len(want) == len(got) {
		same := true
		for i := range want {
			if !want[i].Equal(got[i]) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return assert.Equal(t, valueStrings(want), valueStrings(got), msgAndArgs...)
}

func valueStrings(vals []vm.Value) []string {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = v.String()
	}
	return strs
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}
