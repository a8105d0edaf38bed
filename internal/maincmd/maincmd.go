package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"

	"github.com/mna/wisp/internal/config"
	"github.com/mna/wisp/internal/driver"
)

const binName = "wisp"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>]
       %[1]s -h|--help
       %[1]s -v|--version

Bytecode compiler and virtual machine for the %[1]s scripting language.

The <command> can be one of:
       run <path>                Compile and execute the script at <path>.
       repl                      Start an interactive read-eval-print loop.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --stress-gc               Collect before every run-time allocation.

More information on the %[1]s repository:
       https://github.com/mna/wisp
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help     bool `flag:"h,help"`
	Version  bool `flag:"v,version"`
	StressGC bool `flag:"stress-gc"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	if cmdName == "run" && len(c.args[1:]) != 1 {
		return errors.New("run: exactly one script path must be provided")
	}
	if cmdName == "repl" && len(c.args[1:]) != 0 {
		return errors.New("repl: no arguments expected")
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		if exitErr, ok := err.(exitCoder); ok {
			return mainer.ExitCode(exitErr.ExitCode())
		}
		return mainer.Failure
	}
	return mainer.Success
}

// exitCoder lets a command communicate a specific process exit code (the
// file driver's 65/70/74 distinctions) through the ordinary error return
// that buildCmds requires.
type exitCoder interface {
	error
	ExitCode() int
}

type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }
func (e exitError) ExitCode() int { return e.code }

// Run executes the script named by args[0] to completion.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return exitError{code: driver.ExitIOError}
	}

	code := driver.RunFile(args[0], stdio.Stdout, stdio.Stderr, cfg, c.StressGC)
	if code != driver.ExitOK {
		return exitError{code: code}
	}
	return nil
}

// Repl starts an interactive session reading from stdio.Stdin.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return exitError{code: driver.ExitIOError}
	}

	driver.REPL(stdio.Stdin, stdio.Stdout, stdio.Stderr, cfg, c.StressGC)
	return nil
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
