package parser

import (
	"testing"

	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/HugoDaniel/oclcheck/internal/test"
	"github.com/nalgeon/be"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

// expectDumped parses input and compares the AST dump with expected.
func expectDumped(t *testing.T, input string, expected string) {
	t.Helper()
	t.Run(input, func(t *testing.T) {
		t.Helper()
		file, err := Parse(input)
		be.Err(t, err, nil)
		test.AssertEqualWithDiff(t, ast.Dump(file), test.Dedent(expected))
	})
}

// expectParseError verifies that parsing fails with a message containing
// errorSubstring.
func expectParseError(t *testing.T, input string, errorSubstring string) {
	t.Helper()
	t.Run(input+"_error", func(t *testing.T) {
		t.Helper()
		_, err := Parse(input)
		be.Err(t, err, errorSubstring)
	})
}

// firstStmt returns the first block item of the first function body.
func firstStmt(t *testing.T, input string) ast.Node {
	t.Helper()
	file, err := Parse(input)
	be.Err(t, err, nil)
	for _, ext := range file.Ext {
		if fd, ok := ext.(*ast.FuncDef); ok && len(fd.Body.BlockItems) > 0 {
			return fd.Body.BlockItems[0]
		}
	}
	t.Fatalf("no statement in %q", input)
	return nil
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func TestDeclarations(t *testing.T) {
	expectDumped(t, "int x = 5;", `
		FileAST
		  Decl: x
		    TypeDecl: x
		      IdentifierType: int
		    Constant: int, 5
	`)

	expectDumped(t, "const global int *p;", `
		FileAST
		  Decl: p [const,global]
		    PtrDecl
		      TypeDecl: p [const,global]
		        IdentifierType: int
	`)

	expectDumped(t, "int *a[3];", `
		FileAST
		  Decl: a
		    ArrayDecl
		      PtrDecl
		        TypeDecl: a
		          IdentifierType: int
		      Constant: int, 3
	`)

	expectDumped(t, "int (*fp)(int);", `
		FileAST
		  Decl: fp
		    PtrDecl
		      FuncDecl
		        ParamList
		          Typename: <anon>
		            TypeDecl: <anon>
		              IdentifierType: int
		        TypeDecl: fp
		          IdentifierType: int
	`)

	expectDumped(t, "unsigned long a, b[2] = {1, 2};", `
		FileAST
		  Decl: a
		    TypeDecl: a
		      IdentifierType: unsigned long
		  Decl: b
		    ArrayDecl
		      TypeDecl: b
		        IdentifierType: unsigned long
		      Constant: int, 2
		    InitList
		      Constant: int, 1
		      Constant: int, 2
	`)
}

func TestAggregates(t *testing.T) {
	expectDumped(t, "struct S { int a; float b : 3; } s;", `
		FileAST
		  Decl: s
		    TypeDecl: s
		      Struct: S
		        Decl: a
		          TypeDecl: a
		            IdentifierType: int
		        Decl: b
		          TypeDecl: b
		            IdentifierType: float
		          Constant: int, 3
	`)

	expectDumped(t, "enum Color { RED, GREEN = 4, };", `
		FileAST
		  Decl: <anon>
		    Enum: Color
		      EnumeratorList
		        Enumerator: RED
		        Enumerator: GREEN
		          Constant: int, 4
	`)

	expectDumped(t, "union U { int i; float f; };", `
		FileAST
		  Decl: <anon>
		    Union: U
		      Decl: i
		        TypeDecl: i
		          IdentifierType: int
		      Decl: f
		        TypeDecl: f
		          IdentifierType: float
	`)
}

func TestTypedefNames(t *testing.T) {
	expectDumped(t, "typedef float real; real x; void f() { real * y; }", `
		FileAST
		  Typedef: real [typedef]
		    TypeDecl: real
		      IdentifierType: float
		  Decl: x
		    TypeDecl: x
		      IdentifierType: real
		  FuncDef
		    Decl: f
		      FuncDecl
		        TypeDecl: f
		          IdentifierType: void
		    Compound
		      Decl: y
		        PtrDecl
		          TypeDecl: y
		            IdentifierType: real
	`)

	t.Run("shadowed typedef is an expression", func(t *testing.T) {
		file, err := Parse("typedef int T; void f() { int T; T * 2; }")
		be.Err(t, err, nil)
		body := file.Ext[1].(*ast.FuncDef).Body
		be.Equal(t, len(body.BlockItems), 2)
		_, isBinary := body.BlockItems[1].(*ast.BinaryOp)
		be.True(t, isBinary)
	})

	t.Run("typedef scope ends with its block", func(t *testing.T) {
		_, err := Parse("void f() { { typedef int T; } T x; }")
		be.Err(t, err, "expected ;")
	})
}

// ----------------------------------------------------------------------------
// Functions and Statements
// ----------------------------------------------------------------------------

func TestKernel(t *testing.T) {
	expectDumped(t, "kernel void k(global int* out) { out[0] = get_global_id(0); }", `
		FileAST
		  FuncDef
		    Decl: k [kernel]
		      FuncDecl
		        ParamList
		          Decl: out [global]
		            PtrDecl
		              TypeDecl: out [global]
		                IdentifierType: int
		        TypeDecl: k
		          IdentifierType: void
		    Compound
		      Assignment: =
		        ArrayRef
		          ID: out
		          Constant: int, 0
		        FuncCall
		          ID: get_global_id
		          ExprList
		            Constant: int, 0
	`)

	expectDumped(t, "__kernel void k(__global float4 *v, ...);", `
		FileAST
		  Decl: k [kernel]
		    FuncDecl
		      ParamList
		        Decl: v [global]
		          PtrDecl
		            TypeDecl: v [global]
		              IdentifierType: float4
		        EllipsisParam
		      TypeDecl: k
		        IdentifierType: void
	`)
}

func TestStatements(t *testing.T) {
	expectDumped(t, "void f() { for (int i = 0; i < 4; i++) continue; }", `
		FileAST
		  FuncDef
		    Decl: f
		      FuncDecl
		        TypeDecl: f
		          IdentifierType: void
		    Compound
		      For
		        DeclList
		          Decl: i
		            TypeDecl: i
		              IdentifierType: int
		            Constant: int, 0
		        BinaryOp: <
		          ID: i
		          Constant: int, 4
		        UnaryOp: p++
		          ID: i
		        Continue
	`)

	expectDumped(t, "void f(int x) { switch (x) { case 1: x = 2; break; default: ; } }", `
		FileAST
		  FuncDef
		    Decl: f
		      FuncDecl
		        ParamList
		          Decl: x
		            TypeDecl: x
		              IdentifierType: int
		        TypeDecl: f
		          IdentifierType: void
		    Compound
		      Switch
		        ID: x
		        Compound
		          Case
		            Constant: int, 1
		            Assignment: =
		              ID: x
		              Constant: int, 2
		            Break
		          Default
		            EmptyStatement
	`)

	expectDumped(t, "void f() { do { } while (1); again: goto again; if (1) return; else return; }", `
		FileAST
		  FuncDef
		    Decl: f
		      FuncDecl
		        TypeDecl: f
		          IdentifierType: void
		    Compound
		      DoWhile
		        Compound
		        Constant: int, 1
		      Label: again
		        Goto: again
		      If
		        Constant: int, 1
		        Return
		        Return
	`)
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

func TestExpressions(t *testing.T) {
	expectDumped(t, "void f() { a = b + c * d; }", `
		FileAST
		  FuncDef
		    Decl: f
		      FuncDecl
		        TypeDecl: f
		          IdentifierType: void
		    Compound
		      Assignment: =
		        ID: a
		        BinaryOp: +
		          ID: b
		          BinaryOp: *
		            ID: c
		            ID: d
	`)

	expectDumped(t, "void f() { float4 v = (float4)(1.0f, 2.0f, 3.0f, 4.0f); }", `
		FileAST
		  FuncDef
		    Decl: f
		      FuncDecl
		        TypeDecl: f
		          IdentifierType: void
		    Compound
		      Decl: v
		        TypeDecl: v
		          IdentifierType: float4
		        Cast
		          Typename: <anon>
		            TypeDecl: <anon>
		              IdentifierType: float4
		          ExprList
		            Constant: float, 1.0f
		            Constant: float, 2.0f
		            Constant: float, 3.0f
		            Constant: float, 4.0f
	`)

	tests := []struct {
		input string
		check func(t *testing.T, n ast.Node)
	}{
		{"void f() { a ? b : c; }", func(t *testing.T, n ast.Node) {
			_, ok := n.(*ast.TernaryOp)
			be.True(t, ok)
		}},
		{"void f() { x += 1; }", func(t *testing.T, n ast.Node) {
			be.Equal(t, n.(*ast.Assignment).Op, "+=")
		}},
		{"void f() { p->next.x; }", func(t *testing.T, n ast.Node) {
			outer := n.(*ast.StructRef)
			be.Equal(t, outer.Type, ".")
			be.Equal(t, outer.Field.Name, "x")
			be.Equal(t, outer.Name.(*ast.StructRef).Type, "->")
		}},
		{"void f() { sizeof(int); }", func(t *testing.T, n ast.Node) {
			u := n.(*ast.UnaryOp)
			be.Equal(t, u.Op, "sizeof")
			_, ok := u.Expr.(*ast.Typename)
			be.True(t, ok)
		}},
		{"void f() { -*p; }", func(t *testing.T, n ast.Node) {
			u := n.(*ast.UnaryOp)
			be.Equal(t, u.Op, "-")
			be.Equal(t, u.Expr.(*ast.UnaryOp).Op, "*")
		}},
		{`void f() { "ab" "cd"; }`, func(t *testing.T, n ast.Node) {
			be.Equal(t, n.(*ast.Constant).Value, `"abcd"`)
		}},
		{"void f() { a || b && c; }", func(t *testing.T, n ast.Node) {
			or := n.(*ast.BinaryOp)
			be.Equal(t, or.Op, "||")
			be.Equal(t, or.Right.(*ast.BinaryOp).Op, "&&")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tt.check(t, firstStmt(t, tt.input))
		})
	}
}

func TestLiteralTypes(t *testing.T) {
	tests := []struct {
		literal string
		want    string
	}{
		{"1", "int"},
		{"0x1F", "int"},
		{"1u", "uint"},
		{"1L", "long"},
		{"1ul", "ulong"},
		{"1LU", "ulong"},
		{"0xFFu", "uint"},
		{"1.0", "float"},
		{"1.0f", "float"},
		{".5e3", "float"},
		{"1.0h", "half"},
		{"'a'", "char"},
		{`"s"`, "string"},
		{"true", "bool"},
		{"false", "bool"},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			n := firstStmt(t, "void f() { "+tt.literal+"; }")
			be.Equal(t, n.(*ast.Constant).Type, tt.want)
		})
	}
}

func TestPreprocessorLines(t *testing.T) {
	expectDumped(t, "#include <foo.h>\nint x;", `
		FileAST
		  PreprocessorLine: "#include <foo.h>"
		  Decl: x
		    TypeDecl: x
		      IdentifierType: int
	`)
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

func TestParseErrors(t *testing.T) {
	expectParseError(t, "int x = ;", "expected expression, got ;")
	expectParseError(t, "void f() { return 1 }", "expected ;, got }")
	expectParseError(t, "int 3x;", "invalid numeric suffix")
	expectParseError(t, "int x", "expected ;, got EOF")
	expectParseError(t, "void f() {", "expected }, got EOF")
	expectParseError(t, "struct;", "expected { or tag name")
	expectParseError(t, "x;", "expected type specifier")

	t.Run("position", func(t *testing.T) {
		_, err := Parse("int a;\nint b = ;")
		perr, ok := err.(ParseError)
		be.True(t, ok)
		be.Equal(t, perr.Line, 2)
		be.Equal(t, perr.Column, 9)
		be.Equal(t, err.Error(), "2:9: expected expression, got ;")
	})
}
