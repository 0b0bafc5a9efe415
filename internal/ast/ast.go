// Package ast defines the Abstract Syntax Tree types for OpenCL C.
//
// The node set mirrors the C99 grammar: declarators nest inside each other
// (TypeDecl, PtrDecl, ArrayDecl, FuncDecl) the same way they are written in
// source, so a checker can rebuild the declared type by walking inward.
package ast

// ----------------------------------------------------------------------------
// Source Location
// ----------------------------------------------------------------------------

// Loc represents a location in source code.
type Loc struct {
	Start int32 // Byte offset of start
}

// Pos returns the location. Every node embeds Loc.
func (l Loc) Pos() Loc { return l }

// Node is implemented by every AST node.
type Node interface {
	Pos() Loc
	isNode()
}

// ----------------------------------------------------------------------------
// Translation Unit
// ----------------------------------------------------------------------------

// FileAST is the root of a translation unit.
type FileAST struct {
	Loc
	Source     string // Original source text
	SourcePath string // File path (for error messages)
	Ext        []Node // *Decl, *FuncDef, *Typedef, *PreprocessorLine
}

// PreprocessorLine carries a directive the parser did not interpret.
type PreprocessorLine struct {
	Loc
	Contents string
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

// Decl declares a named entity. Name is empty for tag-only declarations
// such as "struct S { int a; };".
type Decl struct {
	Loc
	Name     string
	Quals    []string
	Storage  []string
	FuncSpec []string
	Type     Node // TypeDecl, PtrDecl, ArrayDecl, FuncDecl, Struct, Union, Enum
	Init     Node // optional; InitList for aggregate initializers
	Bitsize  Node // optional
}

// DeclList groups the declarations of one statement: int a, b;
type DeclList struct {
	Loc
	Decls []*Decl
}

// TypeDecl is the innermost declarator, binding DeclName to a base type.
type TypeDecl struct {
	Loc
	DeclName string
	Quals    []string
	Type     Node // IdentifierType, Struct, Union, Enum
}

// IdentifierType names a base type, one word per specifier: ["unsigned", "int"].
type IdentifierType struct {
	Loc
	Names []string
}

// PtrDecl makes its inner type a pointer.
type PtrDecl struct {
	Loc
	Quals []string
	Type  Node
}

// ArrayDecl makes its inner type an array of Dim elements.
type ArrayDecl struct {
	Loc
	Type     Node
	Dim      Node // nil for "[]"
	DimQuals []string
}

// FuncDecl is a function declarator; Type is the return declarator.
type FuncDecl struct {
	Loc
	Args *ParamList // nil for "()"
	Type Node
}

// ParamList holds *Decl, *Typename and *EllipsisParam entries.
type ParamList struct {
	Loc
	Params []Node
}

// EllipsisParam is the trailing "..." of a variadic parameter list.
type EllipsisParam struct {
	Loc
}

// Typename is an abstract type: casts, sizeof, unnamed parameters.
type Typename struct {
	Loc
	Name  string
	Quals []string
	Type  Node
}

// Typedef introduces Name as an alias of Type.
type Typedef struct {
	Loc
	Name    string
	Quals   []string
	Storage []string
	Type    Node
}

// Struct is a struct specifier. Decls is nil for a reference ("struct S").
type Struct struct {
	Loc
	Name  string
	Decls []*Decl
}

// Union is a union specifier. Decls is nil for a reference ("union U").
type Union struct {
	Loc
	Name  string
	Decls []*Decl
}

// Enum is an enum specifier. Values is nil for a reference ("enum E").
type Enum struct {
	Loc
	Name   string
	Values *EnumeratorList
}

// EnumeratorList holds the enumerators of an enum definition.
type EnumeratorList struct {
	Loc
	Enumerators []*Enumerator
}

// Enumerator is one enum constant with an optional explicit value.
type Enumerator struct {
	Loc
	Name  string
	Value Node
}

// FuncDef is a function definition.
type FuncDef struct {
	Loc
	Decl *Decl
	Body *Compound
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

// Compound is a brace-enclosed block.
type Compound struct {
	Loc
	BlockItems []Node
}

// If represents: if (Cond) IfTrue [else IfFalse]
type If struct {
	Loc
	Cond    Node
	IfTrue  Node
	IfFalse Node
}

// While represents: while (Cond) Stmt
type While struct {
	Loc
	Cond Node
	Stmt Node
}

// DoWhile represents: do Stmt while (Cond);
type DoWhile struct {
	Loc
	Cond Node
	Stmt Node
}

// For represents: for (Init; Cond; Next) Stmt. Any header part may be nil.
type For struct {
	Loc
	Init Node // DeclList or expression
	Cond Node
	Next Node
	Stmt Node
}

// Switch represents: switch (Cond) Stmt
type Switch struct {
	Loc
	Cond Node
	Stmt Node
}

// Case is a case label and the statements up to the next label.
type Case struct {
	Loc
	Expr  Node
	Stmts []Node
}

// Default is the default label and the statements up to the next label.
type Default struct {
	Loc
	Stmts []Node
}

type Break struct{ Loc }

type Continue struct{ Loc }

type Goto struct {
	Loc
	Name string
}

type Label struct {
	Loc
	Name string
	Stmt Node
}

// Return represents: return [Expr];
type Return struct {
	Loc
	Expr Node
}

type EmptyStatement struct{ Loc }

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// Assignment represents LValue Op RValue where Op is "=" or a compound form.
type Assignment struct {
	Loc
	Op     string
	LValue Node
	RValue Node
}

type BinaryOp struct {
	Loc
	Op    string
	Left  Node
	Right Node
}

// UnaryOp covers prefix operators, sizeof, and the postfix forms "p++"/"p--".
type UnaryOp struct {
	Loc
	Op   string
	Expr Node
}

type TernaryOp struct {
	Loc
	Cond    Node
	IfTrue  Node
	IfFalse Node
}

type Cast struct {
	Loc
	ToType *Typename
	Expr   Node
}

type ID struct {
	Loc
	Name string
}

// Constant is a literal. Type is the literal's type name ("int", "float",
// "char", "string", ...) and Value its source spelling.
type Constant struct {
	Loc
	Type  string
	Value string
}

type FuncCall struct {
	Loc
	Name Node
	Args *ExprList // nil for "()"
}

type ArrayRef struct {
	Loc
	Name      Node
	Subscript Node
}

// StructRef is member access; Type is "." or "->".
type StructRef struct {
	Loc
	Name  Node
	Type  string
	Field *ID
}

type InitList struct {
	Loc
	Exprs []Node
}

// ExprList is a comma-separated expression list (call arguments, comma operator).
type ExprList struct {
	Loc
	Exprs []Node
}

func (*FileAST) isNode()          {}
func (*PreprocessorLine) isNode() {}
func (*Decl) isNode()             {}
func (*DeclList) isNode()         {}
func (*TypeDecl) isNode()         {}
func (*IdentifierType) isNode()   {}
func (*PtrDecl) isNode()          {}
func (*ArrayDecl) isNode()        {}
func (*FuncDecl) isNode()         {}
func (*ParamList) isNode()        {}
func (*EllipsisParam) isNode()    {}
func (*Typename) isNode()         {}
func (*Typedef) isNode()          {}
func (*Struct) isNode()           {}
func (*Union) isNode()            {}
func (*Enum) isNode()             {}
func (*EnumeratorList) isNode()   {}
func (*Enumerator) isNode()       {}
func (*FuncDef) isNode()          {}
func (*Compound) isNode()         {}
func (*If) isNode()               {}
func (*While) isNode()            {}
func (*DoWhile) isNode()          {}
func (*For) isNode()              {}
func (*Switch) isNode()           {}
func (*Case) isNode()             {}
func (*Default) isNode()          {}
func (*Break) isNode()            {}
func (*Continue) isNode()         {}
func (*Goto) isNode()             {}
func (*Label) isNode()            {}
func (*Return) isNode()           {}
func (*EmptyStatement) isNode()   {}
func (*Assignment) isNode()       {}
func (*BinaryOp) isNode()         {}
func (*UnaryOp) isNode()          {}
func (*TernaryOp) isNode()        {}
func (*Cast) isNode()             {}
func (*ID) isNode()               {}
func (*Constant) isNode()         {}
func (*FuncCall) isNode()         {}
func (*ArrayRef) isNode()         {}
func (*StructRef) isNode()        {}
func (*InitList) isNode()         {}
func (*ExprList) isNode()         {}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// DeclName returns the identifier bound by a declarator chain, or "".
func DeclName(n Node) string {
	for n != nil {
		switch d := n.(type) {
		case *TypeDecl:
			return d.DeclName
		case *PtrDecl:
			n = d.Type
		case *ArrayDecl:
			n = d.Type
		case *FuncDecl:
			n = d.Type
		default:
			return ""
		}
	}
	return ""
}

// IsNil reports whether n is nil or a typed nil pointer.
func IsNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *ExprList:
		return v == nil
	case *ParamList:
		return v == nil
	case *Compound:
		return v == nil
	case *Typename:
		return v == nil
	case *EnumeratorList:
		return v == nil
	case *Decl:
		return v == nil
	case *ID:
		return v == nil
	}
	return false
}
