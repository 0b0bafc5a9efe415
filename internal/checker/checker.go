// Package checker type checks an OpenCL C translation unit.
//
// The checker walks the AST produced by the parser depth first, keeping
// all scope state in a scope.Context. Every declaration is bound as soon
// as it is seen, so the tree is checked in source order and the first
// violated rule aborts the pass.
//
// Included files are parsed and checked against the same Context, which
// makes their declarations visible to the including file.
package checker

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/HugoDaniel/oclcheck/internal/diagnostic"
	"github.com/HugoDaniel/oclcheck/internal/parser"
	"github.com/HugoDaniel/oclcheck/internal/scope"
	"github.com/HugoDaniel/oclcheck/internal/types"
)

// IncludeEnv names the environment variable holding the semicolon
// separated include directories.
const IncludeEnv = "OCLCHECK_INCLUDES"

const maxIncludeDepth = 32

// Options controls checking behavior.
type Options struct {
	// IncludePaths are searched after the directories in IncludeEnv.
	IncludePaths []string
	// FailOnUnresolvedPrototypes reports functions that are declared
	// but never defined.
	FailOnUnresolvedPrototypes bool
	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger
}

// Checker holds the state of one checking pass.
type Checker struct {
	ctx  *scope.Context
	opts Options
	log  *slog.Logger

	depth int             // include nesting
	seen  map[string]bool // included paths
}

// Check type checks file against ctx. Declarations made by file stay
// bound in ctx afterwards.
func Check(file *ast.FileAST, ctx *scope.Context, opts Options) error {
	c := &Checker{
		ctx:  ctx,
		opts: opts,
		log:  opts.Logger,
		seen: make(map[string]bool),
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	start := time.Now()
	err := c.checkFile(file)
	c.log.Debug("checked translation unit",
		"path", file.SourcePath,
		"elapsed", time.Since(start),
		"ok", err == nil)
	if err != nil {
		return err
	}

	if opts.FailOnUnresolvedPrototypes && !ctx.Unresolved.Empty() {
		names := make([]string, 0, ctx.Unresolved.Size())
		for _, v := range ctx.Unresolved.Values() {
			names = append(names, v.(string))
		}
		return diagnostic.Errorf(nil, "Functions declared but never defined: %s", strings.Join(names, ", "))
	}
	return nil
}

func (c *Checker) defs() *types.Definitions {
	return c.ctx.Definitions()
}

// nested returns a checker for a struct or union body.
func (c *Checker) nested() *Checker {
	n := *c
	n.ctx = c.ctx.Nested()
	return &n
}

func (c *Checker) checkFile(file *ast.FileAST) error {
	for _, ext := range file.Ext {
		if _, err := c.visit(ext); err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Dispatch
// ----------------------------------------------------------------------------

// visit checks n and returns its type. Statements have no type.
func (c *Checker) visit(n ast.Node) (*types.Type, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil

	// Top level
	case *ast.FileAST:
		return nil, c.checkFile(n)
	case *ast.PreprocessorLine:
		return nil, c.checkPreprocessorLine(n)

	// Declarations
	case *ast.Decl:
		return c.checkDecl(n)
	case *ast.DeclList:
		for _, d := range n.Decls {
			if _, err := c.checkDecl(d); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case *ast.Typedef:
		return nil, c.checkTypedef(n)
	case *ast.FuncDef:
		return nil, c.checkFuncDef(n)
	case *ast.TypeDecl, *ast.PtrDecl, *ast.ArrayDecl, *ast.FuncDecl,
		*ast.Typename, *ast.Struct, *ast.Union, *ast.Enum:
		return c.declType(n)
	case *ast.EllipsisParam:
		return types.NewEllipsis(), nil

	// Statements
	case *ast.Compound:
		return nil, c.checkCompound(n)
	case *ast.If:
		return nil, c.checkIf(n)
	case *ast.While:
		return nil, c.checkWhile(n)
	case *ast.DoWhile:
		return nil, c.checkDoWhile(n)
	case *ast.For:
		return nil, c.checkFor(n)
	case *ast.Switch:
		return nil, c.checkSwitch(n)
	case *ast.Case:
		return nil, c.checkCase(n)
	case *ast.Default:
		return nil, c.checkStmts(n.Stmts)
	case *ast.Label:
		_, err := c.visit(n.Stmt)
		return nil, err
	case *ast.Return:
		return nil, c.checkReturn(n)
	case *ast.Break, *ast.Continue, *ast.Goto, *ast.EmptyStatement:
		return nil, nil

	// Expressions
	case *ast.Assignment:
		return c.checkAssignment(n)
	case *ast.BinaryOp:
		return c.checkBinaryOp(n)
	case *ast.UnaryOp:
		return c.checkUnaryOp(n)
	case *ast.TernaryOp:
		return c.checkTernaryOp(n)
	case *ast.Cast:
		return c.checkCast(n)
	case *ast.ID:
		return c.checkID(n)
	case *ast.Constant:
		return types.New(n.Type), nil
	case *ast.FuncCall:
		return c.checkFuncCall(n)
	case *ast.ArrayRef:
		return c.checkArrayRef(n)
	case *ast.StructRef:
		return c.checkStructRef(n)
	case *ast.ExprList:
		return c.checkExprList(n.Exprs)
	case *ast.InitList:
		return c.checkExprList(n.Exprs)
	}

	return nil, diagnostic.Errorf(n, "Unsupported construct %s", strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast."))
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

// fail attaches node to err unless err already carries a node.
func fail(node ast.Node, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := diagnostic.AsTypeCheckError(err); ok {
		return err
	}
	return &diagnostic.TypeCheckError{Message: err.Error(), Node: node}
}

// require fails with the formatted message when got does not substitute
// for want. Errors raised by the substitution itself are kept as is.
func (c *Checker) require(node ast.Node, got, want *types.Type, format string, args ...interface{}) error {
	ok, err := c.defs().Sub(got, want)
	if err != nil {
		return fail(node, err)
	}
	if !ok {
		return diagnostic.Errorf(node, format, args...)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Preprocessor Lines
// ----------------------------------------------------------------------------

var (
	includeRe = regexp.MustCompile(`^#\s*include\s*[<"]([^>"]+)[>"]`)
	// pragmas and line markers survive preprocessing
	ignoredRe = regexp.MustCompile(`^#\s*(pragma\b|line\b|[0-9]|$)`)
)

func (c *Checker) checkPreprocessorLine(n *ast.PreprocessorLine) error {
	text := strings.TrimSpace(n.Contents)
	if m := includeRe.FindStringSubmatch(text); m != nil {
		return c.include(n, m[1])
	}
	if ignoredRe.MatchString(text) {
		c.log.Debug("ignoring directive", "line", text)
		return nil
	}
	return diagnostic.Errorf(n, "Expected preprocessed code but found a preprocessor line: %s", text)
}

// includeDirs returns the directories from the environment followed by
// the configured ones.
func (c *Checker) includeDirs() []string {
	var dirs []string
	for _, d := range strings.Split(os.Getenv(IncludeEnv), ";") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return append(dirs, c.opts.IncludePaths...)
}

func (c *Checker) include(n *ast.PreprocessorLine, name string) error {
	dirs := c.includeDirs()
	if len(dirs) == 0 {
		return diagnostic.Errorf(n, "Must define envvar %s", IncludeEnv)
	}
	if c.depth >= maxIncludeDepth {
		return diagnostic.Errorf(n, "#include nested too deeply (%d levels)", c.depth)
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		src, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fail(n, errors.Wrapf(err, "reading %s", path))
		}

		if c.seen[path] {
			c.log.Debug("already included", "path", path)
			return nil
		}
		c.seen[path] = true
		c.log.Debug("including", "name", name, "path", path, "depth", c.depth+1)

		file, err := parser.Parse(string(src))
		if err != nil {
			return diagnostic.Errorf(n, "In file included as \"%s\": %s:%v", name, path, err)
		}
		file.SourcePath = path

		sub := *c
		sub.depth++
		if err := sub.checkFile(file); err != nil {
			if tce, ok := diagnostic.AsTypeCheckError(err); ok && tce.Source == "" {
				tce.Path, tce.Source = path, file.Source
			}
			return errors.Wrapf(err, "In file included as \"%s\"", name)
		}
		return nil
	}

	return diagnostic.Errorf(n, "Could not find file \"%s\" in %s", name, strings.Join(dirs, ";"))
}
