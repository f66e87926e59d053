package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"avrsim/emu/log"
)

type mode byte

const (
	runMode     mode = iota // Run scenarios
	pinsMode                // List device pins
	dumpMode                // Run a scenario and dump the final device state
	versionMode             // Show avrsim version
)

type (
	CLI struct {
		Run     Run     `cmd:"" help:"Run scenarios."`
		Pins    Pins    `cmd:"" help:"List the pins of a device model."`
		Dump    Dump    `cmd:"" help:"Run a scenario and print the final device state."`
		Version Version `cmd:"" help:"Show avrsim version."`

		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`
		Config string     `name:"config" help:"${config_help}" type:"existingfile"`

		mode mode
	}

	Run struct {
		Scenarios []string `arg:"" name:"scenario" help:"Scenario files." type:"existingfile"`

		Jobs  int      `name:"jobs" short:"j" help:"${jobs_help}" default:"4"`
		Trace *outfile `name:"trace" help:"${trace_help}" placeholder:"FILE|stdout|stderr"`
	}

	Pins struct {
		Model string `name:"model" help:"Device model." default:"attiny85"`
	}

	Dump struct {
		Scenario string `arg:"" name:"scenario" help:"Scenario file." type:"existingfile"`

		JSON    bool `name:"json" help:"Dump the state as JSON."`
		NoColor bool `name:"no-color" help:"Disable colored output."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"log_help":    "Enable logging for specified modules.",
	"config_help": "Configuration file. (default: avrsim config directory)",
	"jobs_help":   "Number of scenarios run concurrently. Tracing forces one.",
	"trace_help":  "Write register and pin trace.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("avrsim"),
		kong.Description("Peripheral-level AVR microcontroller simulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch ctx.Command() {
	case "pins":
		cfg.mode = pinsMode
	case "dump <scenario>":
		cfg.mode = dumpMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	if strings.HasPrefix(ctx.Command(), "run") || strings.HasPrefix(ctx.Command(), "dump") {
		loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
		var strs []string
		for _, m := range log.ModuleNames() {
			strs = append(strs, "    - "+m)
		}

		fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	}

	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
