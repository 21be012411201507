package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"text/template"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

// gen_vm_expects writes a free function wrapper for every with* and expect*
// method of the test case builder, so that options can be passed around as
// plain values to vmTestCase.apply.

type namedReader interface {
	io.ReadCloser
	Name() string
}

var (
	in  namedReader    = os.Stdin
	out io.WriteCloser = os.Stdout
)

func parseFlags() {
	flag.Parse()

	args := flag.Args()

	if len(args) > 0 {
		name := args[0]
		f, err := os.Open(name)
		if err != nil {
			log.Fatalf("failed to open %v: %v", name, err)
		}
		args = args[1:]
		in = f
	}

	if len(args) > 0 {
		name := args[0]
		f, err := os.Create(name)
		if err != nil {
			log.Fatalf("failed to create %v: %v", name, err)
		}
		args = args[1:]
		out = f
	}
}

func main() {
	ctx := context.Background()
	parseFlags()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	ready := make(chan struct{})

	eg.Go(func() error {
		gofmt := exec.CommandContext(ctx, "goimports")
		fmtPipe, err := gofmt.StdinPipe()
		if err != nil {
			return err
		}

		defer out.Close()
		gofmt.Stdout = out
		gofmt.Stderr = os.Stderr

		out = fmtPipe

		close(ready)
		if err := gofmt.Run(); err != nil {
			return fmt.Errorf("gofmt run failed: %w", err)
		}
		return nil
	})

	eg.Go(func() (rerr error) {
		select {
		case <-ctx.Done():
		case <-ready:
		}

		defer func() {
			if cerr := in.Close(); rerr == nil {
				rerr = cerr
			}
			if cerr := out.Close(); rerr == nil {
				rerr = cerr
			}
		}()

		return run(ctx)
	})

	if err := eg.Wait(); err != nil {
		log.Fatalln(err)
	}
}

var (
	typeName = flag.String("type", "vmTestCase", "builder type whose with/expect methods get wrapped")
	wrapTag  = flag.String("tag", "VM", "infix inserted after with/expect in wrapper names")
)

var wrapper = template.Must(template.New("wrapper").Parse(`
func {{.Base}}{{.Tag}}{{.What}}({{.Params}}) func({{.Type}}) {{.Type}} {
	return func(vmt {{.Type}}) {{.Type}} {
		return vmt.{{.Base}}{{.What}}({{.Args}})
	}
}
`))

type wrapperData struct {
	Type, Tag    string
	Base, What   string
	Params, Args string
}

func builderMethod() *regexp.Regexp {
	name := regexp.QuoteMeta(*typeName)
	return regexp.MustCompile(`func \(vmt ` + name + `\) (expect|with)(.+?)\((.+?)\) ` + name)
}

// callArgs turns a parameter list into the matching argument list,
// spreading any variadic parameter.
func callArgs(params string) string {
	var args []string
	for _, part := range strings.Split(params, ",") {
		fields := strings.Fields(part)
		arg := fields[0]
		if len(fields) > 1 && strings.HasPrefix(fields[1], "...") {
			arg += "..."
		}
		args = append(args, arg)
	}
	return strings.Join(args, ", ")
}

func run(ctx context.Context) error {
	var buf bytes.Buffer
	buf.Grow(1024)
	buf.WriteString("package main\n\n")

	buf.WriteString("// @generated from ")
	buf.WriteString(in.Name())
	buf.WriteString("\n\n")

	if args := flag.Args(); len(args) >= 2 {
		buf.WriteString("//go:generate go run scripts/gen_vm_expects.go --")
		for _, arg := range args {
			buf.WriteByte(' ')
			buf.WriteString(arg)
		}
		buf.WriteString("\n")
	}

	method := builderMethod()
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if match := method.FindStringSubmatch(sc.Text()); len(match) > 0 {
			if err := wrapper.Execute(&buf, wrapperData{
				Type:   *typeName,
				Tag:    *wrapTag,
				Base:   match[1],
				What:   match[2],
				Params: match[3],
				Args:   callArgs(match[3]),
			}); err != nil {
				return err
			}
		}

		if buf.Len() > 0 {
			if _, err := buf.WriteTo(out); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return sc.Err()
}
