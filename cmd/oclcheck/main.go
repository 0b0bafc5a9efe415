// Command oclcheck type checks preprocessed OpenCL C source code.
//
// Usage:
//
//	oclcheck [options] <input.cl>
//	cat input.cl | oclcheck [options]
//
// Options:
//
//	-I <dir>            Add an include directory (repeatable)
//	--config <file>     Use specific config file
//	--no-config         Ignore config files
//	--builtins <file>   Extend the builtin function table
//	--fail-unresolved   Report functions declared but never defined
//	--dump-ast          Print the parsed syntax tree before checking
//	--reflect           Print kernel and struct information as JSON
//	--verbose           Log include resolution and timing to stderr
//	--version           Print version and exit
//	--help              Print help and exit
//
// Config file:
//
//	oclcheck looks for oclcheck.yaml or .oclcheck.yaml in the input file's
//	directory and its parents. Config file options are overridden by CLI
//	flags.
//
// Example oclcheck.yaml:
//
//	includePaths:
//	  - include
//	builtins: vendor_builtins.yaml
//	failOnUnresolvedPrototypes: true
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/HugoDaniel/oclcheck/internal/checker"
	"github.com/HugoDaniel/oclcheck/internal/config"
	"github.com/HugoDaniel/oclcheck/internal/parser"
	"github.com/HugoDaniel/oclcheck/internal/reflect"
	"github.com/HugoDaniel/oclcheck/internal/scope"
	"github.com/HugoDaniel/oclcheck/pkg/api"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// errCheckFailed is returned once the diagnostic has been printed.
var errCheckFailed = errors.New("check failed")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err != errCheckFailed {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// includeFlags collects repeated -I values.
type includeFlags []string

func (f *includeFlags) String() string { return strings.Join(*f, ";") }

func (f *includeFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("oclcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Flags
	var (
		includes       includeFlags
		configFile     string
		noConfig       bool
		builtinsFile   string
		failUnresolved bool
		dumpAst        bool
		showReflect    bool
		verbose        bool
		showVersion    bool
		showHelp       bool
	)

	fs.Var(&includes, "I", "Add an include `dir`ectory (repeatable)")
	fs.StringVar(&configFile, "config", "", "Use specific config `file`")
	fs.BoolVar(&noConfig, "no-config", false, "Ignore config files")
	fs.StringVar(&builtinsFile, "builtins", "", "Extend the builtin function table with `file`")
	fs.BoolVar(&failUnresolved, "fail-unresolved", false, "Report functions declared but never defined")
	fs.BoolVar(&dumpAst, "dump-ast", false, "Print the parsed syntax tree before checking")
	fs.BoolVar(&showReflect, "reflect", false, "Print kernel and struct information as JSON")
	fs.BoolVar(&verbose, "verbose", false, "Log include resolution and timing to stderr")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&showHelp, "help", false, "Print help and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "oclcheck - OpenCL C type checker v%s\n\n", version)
		fmt.Fprintf(stderr, "Usage: oclcheck [options] <input.cl>\n")
		fmt.Fprintf(stderr, "       cat input.cl | oclcheck [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment:\n")
		fmt.Fprintf(stderr, "  %s  semicolon separated include directories\n", checker.IncludeEnv)
		fmt.Fprintf(stderr, "\nConfig file:\n")
		fmt.Fprintf(stderr, "  Searches for oclcheck.yaml or .oclcheck.yaml in the input directory and its parents.\n")
		fmt.Fprintf(stderr, "  CLI flags override config file settings.\n")
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  oclcheck kernel.cl\n")
		fmt.Fprintf(stderr, "  cpp -P kernel.cl | oclcheck -I include\n")
		fmt.Fprintf(stderr, "  oclcheck --reflect kernel.cl > kernel.json\n")
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	if showHelp {
		fs.Usage()
		return nil
	}

	if showVersion {
		fmt.Fprintf(stdout, "oclcheck v%s (%s)\n", version, commit)
		return nil
	}

	// Read input
	var source []byte
	var err error
	path := "<stdin>"

	if fs.NArg() > 0 {
		path = fs.Arg(0)
		source, err = os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "reading input")
		}
	} else {
		if f, ok := stdin.(*os.File); ok {
			if stat, _ := f.Stat(); stat != nil && stat.Mode()&os.ModeCharDevice != 0 {
				fs.Usage()
				return errors.New("no input file specified")
			}
		}
		source, err = io.ReadAll(stdin)
		if err != nil {
			return errors.Wrap(err, "reading stdin")
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	// Load config file
	var cfg *config.Config
	if !noConfig {
		var configPath string
		if configFile != "" {
			cfg, err = config.LoadFile(configFile)
			if err != nil {
				return errors.Wrapf(err, "loading config file %s", configFile)
			}
			configPath = configFile
		} else {
			startDir, _ := os.Getwd()
			if fs.NArg() > 0 {
				startDir = filepath.Dir(fs.Arg(0))
			}
			cfg, configPath, err = config.Load(startDir)
			if err != nil {
				return errors.Wrap(err, "loading config")
			}
		}
		if configPath != "" {
			logger.Debug("using config", "path", configPath)
		}
	}

	// CLI overrides, only the flags that were given
	cliOpts := config.MergeOptions{
		IncludePaths: includes,
		Builtins:     builtinsFile,
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "fail-unresolved" {
			cliOpts.FailOnUnresolvedPrototypes = &failUnresolved
		}
	})
	merged := cfg.Merge(cliOpts)

	registry, err := merged.Registry()
	if err != nil {
		return err
	}
	ctx := scope.New()
	ctx.SetBuiltins(registry)

	opts := merged.ToOptions()
	opts.Logger = logger

	// Parse
	file, err := parser.Parse(string(source))
	if err != nil {
		fmt.Fprint(stderr, api.FormatError(path, string(source), err))
		return errCheckFailed
	}
	file.SourcePath = path

	if dumpAst {
		fmt.Fprint(stdout, ast.Dump(file))
	}

	// Check
	if err := checker.Check(file, ctx, opts); err != nil {
		fmt.Fprint(stderr, api.FormatError(path, string(source), err))
		return errCheckFailed
	}

	if showReflect {
		data, err := json.MarshalIndent(reflect.ReflectFile(file, ctx), "", "  ")
		if err != nil {
			return errors.Wrap(err, "encoding reflection")
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	fmt.Fprintln(stdout, "ok")
	return nil
}
