package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/funvibe/tern/internal/config"
	"github.com/funvibe/tern/internal/vm"
	"github.com/funvibe/tern/pkg/tern"
)

// Exit codes follow the sysexits convention: 65 for bad input
// (compile errors), 70 for an internal software error (runtime).
const (
	exitCompileError = 65
	exitRuntimeError = 70
)

func main() {
	disasm := flag.Bool("disasm", false, "dump the compiled bytecode instead of running")
	trace := flag.Bool("trace", false, "log every executed instruction")
	configPath := flag.String("config", "", "path to a tern.yaml config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *disasm {
		cfg.Disassemble = true
	}
	if *trace {
		cfg.Trace = true
	}
	setupLogging(cfg)

	switch flag.NArg() {
	case 0:
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			repl(cfg)
			return
		}
		source, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		os.Exit(runSource(string(source), cfg))
	case 1:
		os.Exit(runFile(flag.Arg(0), cfg))
	default:
		fmt.Fprintln(os.Stderr, "usage: tern [options] [script"+config.SourceFileExt+"]")
		os.Exit(64)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path, true)
	}
	return config.Load(config.DefaultConfigFile, false)
}

func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stderr)
	level := logrus.InfoLevel
	if cfg.LogLevel != "" {
		parsed, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning: ignoring invalid log level:", cfg.LogLevel)
		} else {
			level = parsed
		}
	}
	// Tracing and disassembly report through the debug level.
	if cfg.Trace || cfg.Disassemble {
		if level < logrus.DebugLevel {
			level = logrus.DebugLevel
		}
	}
	logrus.SetLevel(level)
}

func runFile(path string, cfg *config.Config) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return runSource(string(source), cfg)
}

func runSource(source string, cfg *config.Config) int {
	session := tern.NewSession()
	session.SetTrace(cfg.Trace)

	program, err := session.Compile(source)
	if err != nil {
		reportCompileErrors(err)
		return exitCompileError
	}

	if cfg.Disassemble {
		fmt.Print(vm.Disassemble(program.Function().Chunk, "script"))
		return 0
	}

	if err := program.Run(os.Stdout); err != nil {
		reportRuntimeError(err)
		return exitRuntimeError
	}
	return 0
}

func repl(cfg *config.Config) {
	session := tern.NewSession()
	session.SetTrace(cfg.Trace)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		program, err := session.Compile(line)
		if err != nil {
			reportCompileErrors(err)
			continue
		}
		if err := program.Run(os.Stdout); err != nil {
			reportRuntimeError(err)
		}
	}
}

// reportCompileErrors prints the whole diagnostic batch, one line each
func reportCompileErrors(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

func reportRuntimeError(err error) {
	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) {
		fmt.Fprintln(os.Stderr, rerr.Message)
		fmt.Fprint(os.Stderr, rerr.Stack())
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
