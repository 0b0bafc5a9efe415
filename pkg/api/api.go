// Package api provides the public API for the OpenCL C type checker.
//
// This package is intended for programmatic use of the checker.
// For CLI usage, see cmd/oclcheck.
package api

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/HugoDaniel/oclcheck/internal/checker"
	"github.com/HugoDaniel/oclcheck/internal/diagnostic"
	"github.com/HugoDaniel/oclcheck/internal/parser"
	"github.com/HugoDaniel/oclcheck/internal/reflect"
	"github.com/HugoDaniel/oclcheck/internal/scope"
)

// Options controls checking behavior.
type Options struct {
	// IncludePaths are searched for #include files after the directories
	// listed in the OCLCHECK_INCLUDES environment variable.
	IncludePaths []string

	// Builtins is the path of a YAML builtin table extending the default
	// one. The extended registry replaces the context's registry.
	Builtins string

	// FailOnUnresolvedPrototypes reports functions that are declared but
	// never defined.
	FailOnUnresolvedPrototypes bool

	// Logger receives debug output about include resolution and timing.
	// Nil disables logging.
	Logger *slog.Logger
}

// NewContext returns an empty checking context using the default builtins.
// A context can be passed to several checks so later sources see the
// declarations of earlier ones.
func NewContext() *scope.Context {
	return scope.New()
}

// ParseToAst parses OpenCL C source into a syntax tree. The error is a
// parser.ParseError carrying the line and column of the first syntax error.
func ParseToAst(source string) (*ast.FileAST, error) {
	return parser.Parse(source)
}

// CheckAst type checks a parsed translation unit against ctx. The first
// violated rule is returned as a *diagnostic.TypeCheckError, possibly
// wrapped with the name of the included file it came from.
func CheckAst(file *ast.FileAST, ctx *scope.Context) error {
	return checker.Check(file, orNew(ctx), checker.Options{})
}

// Check parses source and type checks it against ctx.
func Check(source string, ctx *scope.Context) error {
	return CheckWithOptions(source, ctx, Options{})
}

// CheckWithOptions parses source and type checks it against ctx with
// custom options. A nil ctx checks against a fresh context.
func CheckWithOptions(source string, ctx *scope.Context, opts Options) error {
	file, err := parser.Parse(source)
	if err != nil {
		return err
	}
	return checkParsed(file, orNew(ctx), opts)
}

func orNew(ctx *scope.Context) *scope.Context {
	if ctx == nil {
		return scope.New()
	}
	return ctx
}

// ----------------------------------------------------------------------------
// Diagnostics
// ----------------------------------------------------------------------------

// FormatError renders an error returned by ParseToAst or a Check function
// as "path:line:col: error: message" followed by the offending source line
// and a caret. Errors without a position render as a single line.
func FormatError(path, source string, err error) string {
	if err == nil {
		return ""
	}
	dl := diagnostic.NewDiagnosticList(path, source)
	var pe parser.ParseError
	if errors.As(err, &pe) {
		dl.AddErrorAt(pe.Pos, pe.Message)
	} else {
		dl.AddError(err)
	}
	return dl.Format()
}

// ----------------------------------------------------------------------------
// Reflection API
// ----------------------------------------------------------------------------

// ReflectResult contains kernel and struct information of a translation unit.
type ReflectResult = reflect.ReflectResult

// KernelInfo describes one kernel function.
type KernelInfo = reflect.KernelInfo

// ArgInfo describes a single kernel argument.
type ArgInfo = reflect.ArgInfo

// StructLayout describes the device memory layout of a struct or union.
type StructLayout = reflect.StructLayout

// FieldInfo describes a single struct field.
type FieldInfo = reflect.FieldInfo

// Reflect checks source and extracts its kernels and struct layouts.
// Parse and type errors are reported in the result's Errors.
func Reflect(source string) ReflectResult {
	return ReflectWithOptions(source, Options{})
}

// ReflectWithOptions is Reflect with custom checking options.
func ReflectWithOptions(source string, opts Options) ReflectResult {
	ctx := NewContext()
	file, err := parser.Parse(source)
	if err == nil {
		err = checkParsed(file, ctx, opts)
	}
	if err != nil {
		return ReflectResult{
			Kernels: []KernelInfo{},
			Structs: make(map[string]StructLayout),
			Errors:  []string{err.Error()},
		}
	}
	return reflect.ReflectFile(file, ctx)
}

func checkParsed(file *ast.FileAST, ctx *scope.Context, opts Options) error {
	if opts.Builtins != "" {
		reg, err := ctx.Builtins().ExtendFile(opts.Builtins)
		if err != nil {
			return err
		}
		ctx.SetBuiltins(reg)
	}
	return checker.Check(file, ctx, checker.Options{
		IncludePaths:               opts.IncludePaths,
		FailOnUnresolvedPrototypes: opts.FailOnUnresolvedPrototypes,
		Logger:                     opts.Logger,
	})
}
