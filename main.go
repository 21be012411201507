package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/concatlang/concatrt/internal/logio"
	"github.com/concatlang/concatrt/internal/vm"
)

func main() {
	ctx := context.Background()
	log := logio.NewLogger(os.Stderr)

	var (
		configPath string
		entry      string
		timeout    time.Duration
		trace      bool
		stackLimit int
		snapshot   string
	)
	flag.StringVar(&configPath, "config", "", "load runtime configuration from this TOML file")
	flag.StringVar(&entry, "entry", "main", "name of the procedure to run")
	flag.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flag.BoolVar(&trace, "trace", false, "enable trace logging")
	flag.IntVar(&stackLimit, "stack-limit", 0, "cap the operand stack at this many slots")
	flag.StringVar(&snapshot, "snapshot", "", "write a CBOR machine snapshot here after the run")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Errorf("%+v", err)
		os.Exit(log.ExitCode())
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trace":
			cfg.Trace.Enabled = trace
		case "stack-limit":
			cfg.Stack.Limit = stackLimit
		case "snapshot":
			cfg.Trace.Snapshot = snapshot
		}
	})

	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts := []vm.Option{
		vm.WithOutput(os.Stdout),
		vm.WithFatalHandler(func(err error) {
			log.Printf(logio.LevelError, "%v", err)
		}),
	}
	if cfg.Trace.Enabled {
		log.Wrap(func(base io.Writer) io.WriteCloser {
			return logio.NewElapsedWriter(base, nil)
		})
		opts = append(opts,
			vm.WithLineOutput(os.Stdout),
			vm.WithLogf(log.Tracef()))
	}

	m, err := New(ctx, cfg, opts...)
	if err != nil {
		log.Errorf("%+v", err)
		os.Exit(log.ExitCode())
	}

	runErr := Run(m, entry)
	if path := cfg.Trace.Snapshot; path != "" {
		log.ErrorIf(WriteSnapshot(m, path))
	}
	if runErr != nil {
		log.Close()
		os.Exit(vm.ExitStatus(runErr))
	}
	os.Exit(log.ExitCode())
}
