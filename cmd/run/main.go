package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/embjs/embjs"
	"github.com/embjs/embjs/bridge"
	"github.com/embjs/embjs/engine"
	"github.com/embjs/embjs/runtime"
)

// cliConfig is the optional TOML configuration file. Flags override
// file values; both override the defaults.
type cliConfig struct {
	Capacity   int    `toml:"capacity"`
	Seed       uint64 `toml:"seed"`
	DeadlineMS int    `toml:"deadline_ms"`
	Color      bool   `toml:"color"`
}

func defaultConfig() cliConfig {
	return cliConfig{
		Capacity: 4 << 20,
		Color:    term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func loadConfig(path string) (cliConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	var (
		inline      = flag.String("e", "", "Evaluate code from the command line")
		interactive = flag.Bool("i", false, "Interactive prompt")
		configPath  = flag.String("config", "", "Path to TOML config file")
		capacity    = flag.Int("capacity", 0, "Arena capacity in bytes (overrides config)")
		seed        = flag.Uint64("seed", 0, "Deterministic Math.random seed (overrides config)")
		verbose     = flag.Bool("v", false, "Verbose engine diagnostics")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *capacity > 0 {
		cfg.Capacity = *capacity
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	switch {
	case *interactive:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case *inline != "":
		os.Exit(evalInline(cfg, logger, *inline, flag.Args()))

	case flag.NArg() > 0:
		os.Exit(runFile(cfg, logger, flag.Arg(0), flag.Args()[1:]))

	default:
		fmt.Fprintln(os.Stderr, "Usage: run [flags] file.js [args...]")
		fmt.Fprintln(os.Stderr, "       run [flags] -e 'code' [args...]")
		fmt.Fprintln(os.Stderr, "       run [flags] -i  (interactive mode)")
		flag.PrintDefaults()
		os.Exit(1)
	}
}

// newContext builds a configured context with the bridge installed.
func newContext(cfg cliConfig, logger *zap.Logger, args []string) (*runtime.Context, error) {
	opts := []runtime.Option{
		runtime.WithLogger(logger),
		runtime.WithRandomSeed(cfg.Seed),
	}
	if cfg.DeadlineMS > 0 {
		deadline := time.Now().Add(time.Duration(cfg.DeadlineMS) * time.Millisecond)
		opts = append(opts, runtime.WithInterruptHandler(func(any) int {
			if time.Now().After(deadline) {
				return 1
			}
			return 0
		}))
	}
	ctx, err := runtime.NewContext(cfg.Capacity, engine.StdBasic, opts...)
	if err != nil {
		return nil, err
	}
	if err := bridge.Install(ctx, args); err != nil {
		ctx.Close()
		return nil, err
	}
	return ctx, nil
}

func runFile(cfg cliConfig, logger *zap.Logger, path string, args []string) int {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if info.Size() > embjs.MaxScriptSize {
		fmt.Fprintf(os.Stderr, "Error: %s exceeds the %d byte script limit\n", path, int64(embjs.MaxScriptSize))
		return 1
	}
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, err := newContext(cfg, logger, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer ctx.Close()

	v := ctx.Eval(string(source), path, 0)
	code := 0
	if v.IsException() {
		reportException(ctx.Exception())
		code = 1
	}
	if err := bridge.Flush(ctx, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	}
	return code
}

func evalInline(cfg cliConfig, logger *zap.Logger, source string, args []string) int {
	ctx, err := newContext(cfg, logger, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer ctx.Close()

	v := ctx.Eval(source, "<inline>", runtime.EvalRetVal)
	code := 0
	if v.IsException() {
		reportException(ctx.Exception())
		code = 1
	} else if !v.IsUndefined() {
		fmt.Println(ctx.ToString(v))
	}
	if err := bridge.Flush(ctx, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	}
	return code
}

func reportException(serr *runtime.ScriptError) {
	if serr == nil {
		fmt.Fprintln(os.Stderr, "Error: unknown exception")
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", serr.Error())
	if serr.Stack != "" {
		fmt.Fprintln(os.Stderr, serr.Stack)
	}
}
