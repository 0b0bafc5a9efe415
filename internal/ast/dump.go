package ast

import (
	"fmt"
	"strings"
)

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if !IsNil(c) {
				out = append(out, c)
			}
		}
	}

	switch n := n.(type) {
	case *FileAST:
		add(n.Ext...)
	case *Decl:
		add(n.Type, n.Init, n.Bitsize)
	case *DeclList:
		for _, d := range n.Decls {
			add(d)
		}
	case *TypeDecl:
		add(n.Type)
	case *PtrDecl:
		add(n.Type)
	case *ArrayDecl:
		add(n.Type, n.Dim)
	case *FuncDecl:
		if n.Args != nil {
			add(n.Args)
		}
		add(n.Type)
	case *ParamList:
		add(n.Params...)
	case *Typename:
		add(n.Type)
	case *Typedef:
		add(n.Type)
	case *Struct:
		for _, d := range n.Decls {
			add(d)
		}
	case *Union:
		for _, d := range n.Decls {
			add(d)
		}
	case *Enum:
		if n.Values != nil {
			add(n.Values)
		}
	case *EnumeratorList:
		for _, e := range n.Enumerators {
			add(e)
		}
	case *Enumerator:
		add(n.Value)
	case *FuncDef:
		add(n.Decl)
		if n.Body != nil {
			add(n.Body)
		}
	case *Compound:
		add(n.BlockItems...)
	case *If:
		add(n.Cond, n.IfTrue, n.IfFalse)
	case *While:
		add(n.Cond, n.Stmt)
	case *DoWhile:
		add(n.Stmt, n.Cond)
	case *For:
		add(n.Init, n.Cond, n.Next, n.Stmt)
	case *Switch:
		add(n.Cond, n.Stmt)
	case *Case:
		add(n.Expr)
		add(n.Stmts...)
	case *Default:
		add(n.Stmts...)
	case *Label:
		add(n.Stmt)
	case *Return:
		add(n.Expr)
	case *Assignment:
		add(n.LValue, n.RValue)
	case *BinaryOp:
		add(n.Left, n.Right)
	case *UnaryOp:
		add(n.Expr)
	case *TernaryOp:
		add(n.Cond, n.IfTrue, n.IfFalse)
	case *Cast:
		if n.ToType != nil {
			add(n.ToType)
		}
		add(n.Expr)
	case *FuncCall:
		add(n.Name)
		if n.Args != nil {
			add(n.Args)
		}
	case *ArrayRef:
		add(n.Name, n.Subscript)
	case *StructRef:
		add(n.Name)
		if n.Field != nil {
			add(n.Field)
		}
	case *InitList:
		add(n.Exprs...)
	case *ExprList:
		add(n.Exprs...)
	}
	return out
}

// Dump renders the tree one node per line, children indented by two spaces.
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(strings.TrimRight(describe(n), ": "))
	sb.WriteByte('\n')
	for _, c := range Children(n) {
		dump(sb, c, depth+1)
	}
}

func describe(n Node) string {
	switch n := n.(type) {
	case *FileAST:
		return "FileAST"
	case *PreprocessorLine:
		return fmt.Sprintf("PreprocessorLine: %q", n.Contents)
	case *Decl:
		return "Decl: " + joinAttrs(quoteName(n.Name), n.Quals, n.Storage, n.FuncSpec)
	case *DeclList:
		return "DeclList"
	case *TypeDecl:
		return "TypeDecl: " + joinAttrs(quoteName(n.DeclName), n.Quals)
	case *IdentifierType:
		return "IdentifierType: " + strings.Join(n.Names, " ")
	case *PtrDecl:
		return "PtrDecl: " + joinAttrs("", n.Quals)
	case *ArrayDecl:
		return "ArrayDecl"
	case *FuncDecl:
		return "FuncDecl"
	case *ParamList:
		return "ParamList"
	case *EllipsisParam:
		return "EllipsisParam"
	case *Typename:
		return "Typename: " + joinAttrs(quoteName(n.Name), n.Quals)
	case *Typedef:
		return "Typedef: " + joinAttrs(quoteName(n.Name), n.Quals, n.Storage)
	case *Struct:
		return "Struct: " + quoteName(n.Name)
	case *Union:
		return "Union: " + quoteName(n.Name)
	case *Enum:
		return "Enum: " + quoteName(n.Name)
	case *EnumeratorList:
		return "EnumeratorList"
	case *Enumerator:
		return "Enumerator: " + n.Name
	case *FuncDef:
		return "FuncDef"
	case *Compound:
		return "Compound"
	case *If:
		return "If"
	case *While:
		return "While"
	case *DoWhile:
		return "DoWhile"
	case *For:
		return "For"
	case *Switch:
		return "Switch"
	case *Case:
		return "Case"
	case *Default:
		return "Default"
	case *Break:
		return "Break"
	case *Continue:
		return "Continue"
	case *Goto:
		return "Goto: " + n.Name
	case *Label:
		return "Label: " + n.Name
	case *Return:
		return "Return"
	case *EmptyStatement:
		return "EmptyStatement"
	case *Assignment:
		return "Assignment: " + n.Op
	case *BinaryOp:
		return "BinaryOp: " + n.Op
	case *UnaryOp:
		return "UnaryOp: " + n.Op
	case *TernaryOp:
		return "TernaryOp"
	case *Cast:
		return "Cast"
	case *ID:
		return "ID: " + n.Name
	case *Constant:
		return "Constant: " + n.Type + ", " + n.Value
	case *FuncCall:
		return "FuncCall"
	case *ArrayRef:
		return "ArrayRef"
	case *StructRef:
		return "StructRef: " + n.Type
	case *InitList:
		return "InitList"
	case *ExprList:
		return "ExprList"
	}
	return fmt.Sprintf("%T", n)
}

func quoteName(name string) string {
	if name == "" {
		return "<anon>"
	}
	return name
}

func joinAttrs(head string, lists ...[]string) string {
	parts := []string{}
	if head != "" {
		parts = append(parts, head)
	}
	for _, l := range lists {
		if len(l) > 0 {
			parts = append(parts, "["+strings.Join(l, ",")+"]")
		}
	}
	return strings.Join(parts, " ")
}
