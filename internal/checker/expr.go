package checker

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/HugoDaniel/oclcheck/internal/builtins"
	"github.com/HugoDaniel/oclcheck/internal/diagnostic"
	"github.com/HugoDaniel/oclcheck/internal/types"
)

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

var incDecOps = map[string]bool{"++": true, "--": true, "p++": true, "p--": true}

// describe names an lvalue for error messages.
func describe(n ast.Node) string {
	if id, ok := n.(*ast.ID); ok {
		return "variable " + id.Name
	}
	return "location"
}

func (c *Checker) checkAssignment(n *ast.Assignment) (*types.Type, error) {
	lt, err := c.visit(n.LValue)
	if err != nil {
		return nil, err
	}
	if lt.IsReadOnly() && !c.ctx.InDecl {
		return nil, diagnostic.Errorf(n, "Assignment of read-only %s", describe(n.LValue))
	}
	rt, err := c.visit(n.RValue)
	if err != nil {
		return nil, err
	}
	t, err := c.defs().ReturnType(n.Op, lt, rt)
	return t, fail(n, err)
}

func (c *Checker) checkBinaryOp(n *ast.BinaryOp) (*types.Type, error) {
	lt, err := c.visit(n.Left)
	if err != nil {
		return nil, err
	}
	rt, err := c.visit(n.Right)
	if err != nil {
		return nil, err
	}
	t, err := c.defs().ReturnType(n.Op, lt, rt)
	return t, fail(n, err)
}

func (c *Checker) checkUnaryOp(n *ast.UnaryOp) (*types.Type, error) {
	if tn, ok := n.Expr.(*ast.Typename); ok && n.Op == "sizeof" {
		if _, err := c.declType(tn); err != nil {
			return nil, err
		}
		return types.New("size_t"), nil
	}

	t, err := c.visit(n.Expr)
	if err != nil {
		return nil, err
	}
	if incDecOps[n.Op] && t.IsReadOnly() && !c.ctx.InDecl {
		return nil, diagnostic.Errorf(n, "Assignment of read-only %s", describe(n.Expr))
	}
	rt, err := c.defs().ReturnType(n.Op, t, nil)
	return rt, fail(n, err)
}

func (c *Checker) checkTernaryOp(n *ast.TernaryOp) (*types.Type, error) {
	if err := c.checkCond("ternary", n.Cond); err != nil {
		return nil, err
	}
	tt, err := c.visit(n.IfTrue)
	if err != nil {
		return nil, err
	}
	ft, err := c.visit(n.IfFalse)
	if err != nil {
		return nil, err
	}
	if err := c.require(n, tt, ft, "Ternary condition expressions %s and %s don't match", tt, ft); err != nil {
		return nil, err
	}
	return tt, nil
}

// checkCast also covers vector literals, (float4)(a, b, c, d).
func (c *Checker) checkCast(n *ast.Cast) (*types.Type, error) {
	to, err := c.declType(n.ToType)
	if err != nil {
		return nil, err
	}
	if _, err := c.visit(n.Expr); err != nil {
		return nil, err
	}
	return to, nil
}

func (c *Checker) checkExprList(exprs []ast.Node) (*types.Type, error) {
	var last *types.Type
	for _, e := range exprs {
		t, err := c.visit(e)
		if err != nil {
			return nil, err
		}
		last = t
	}
	return last, nil
}

func (c *Checker) checkID(n *ast.ID) (*types.Type, error) {
	t, err := c.ctx.Binding(n.Name)
	if err != nil {
		return nil, fail(n, err)
	}
	if t.Kind == types.KindTypeDef {
		return nil, diagnostic.Errorf(n, "Expected an expression but %s is a type name", n.Name)
	}
	return t, nil
}

// ----------------------------------------------------------------------------
// Calls
// ----------------------------------------------------------------------------

func (c *Checker) checkFuncCall(n *ast.FuncCall) (*types.Type, error) {
	id, ok := n.Name.(*ast.ID)
	if !ok {
		return nil, diagnostic.Errorf(n, "Called object is not a function")
	}
	t, fn, err := c.ctx.GetFunction(id.Name)
	if err != nil {
		return nil, fail(n, err)
	}

	var args []ast.Node
	if n.Args != nil {
		args = n.Args.Exprs
	}
	argTypes := make([]*types.Type, len(args))
	for i, a := range args {
		if argTypes[i], err = c.visit(a); err != nil {
			return nil, err
		}
	}

	if fn != nil {
		return c.callBuiltin(n, fn, argTypes)
	}
	if t.Kind != types.KindFunction {
		return nil, diagnostic.Errorf(n, "called '%s' is not a function", id.Name)
	}

	var params []*types.Type
	for _, p := range t.Params {
		if p.Kind != types.KindEllipsis {
			params = append(params, p)
		}
	}
	if len(args) < len(params) || (!t.HasEllipsis() && len(args) != len(params)) {
		return nil, diagnostic.Errorf(n, "Function %s expects %d arguments but %d were given", id.Name, len(params), len(args))
	}
	for i, p := range params {
		if err := c.require(args[i], argTypes[i], p, "Argument %d of %s expects %s but got %s", i+1, id.Name, p, argTypes[i]); err != nil {
			return nil, err
		}
	}
	return t.Return.Clone(), nil
}

func (c *Checker) callBuiltin(n *ast.FuncCall, fn *builtins.Fn, args []*types.Type) (*types.Type, error) {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.String()
	}
	if !fn.Check(args) {
		return nil, diagnostic.Errorf(n, "Polymorphic builtin %s does not take {%s} (%s function)", fn.Name, strings.Join(names, ", "), fn.Kind)
	}
	t, ok := fn.ReturnType(args)
	if !ok {
		return nil, diagnostic.Errorf(n, "Cannot resolve the return type of %s(%s)", fn.Name, strings.Join(names, ", "))
	}
	return t, nil
}

// ----------------------------------------------------------------------------
// Element Access
// ----------------------------------------------------------------------------

func (c *Checker) checkArrayRef(n *ast.ArrayRef) (*types.Type, error) {
	at, err := c.visit(n.Name)
	if err != nil {
		return nil, err
	}
	if !at.IsPtrLike() {
		return nil, diagnostic.Errorf(n, "Attempting subscript access on a non-array type %s", at)
	}
	st, err := c.visit(n.Subscript)
	if err != nil {
		return nil, err
	}
	if err := c.require(n.Subscript, st, types.SubscriptType(), "Arrays cannot be indexed by type %s", st); err != nil {
		return nil, err
	}
	return at.Elem(), nil
}

func (c *Checker) checkStructRef(n *ast.StructRef) (*types.Type, error) {
	bt, err := c.visit(n.Name)
	if err != nil {
		return nil, err
	}
	field := n.Field.Name

	if n.Type == "->" {
		if !bt.IsPtrLike() {
			return nil, diagnostic.Errorf(n, "Invalid type argument of '->' (have '%s')", bt)
		}
		bt = bt.Elem()
	} else if bt.IsPtrLike() {
		return nil, diagnostic.Errorf(n, "Invalid type argument of '.' (have '%s')", bt)
	}

	if r := bt.Resolve(); r.Kind == types.KindStruct {
		if r.Members.Empty() && c.ctx.IsTypename(r.Name) {
			// a pointer member declared before its struct was complete
			if full, err := c.ctx.TypenameType(r.Name); err == nil {
				r = full
			}
		}
		mt, ok := r.Member(field)
		if !ok {
			return nil, diagnostic.Errorf(n, "%s has no member named %s", r.Name, field)
		}
		return mt, nil
	}
	if _, width := types.SplitVector(bt.Name); width != "" && n.Type == "." {
		return swizzle(n, bt, field)
	}
	return nil, diagnostic.Errorf(n, "Request for member %s in non-struct type %s", field, bt)
}

// swizzle types a vector component selection such as v.x, v.xyz, v.s01
// or v.hi.
func swizzle(n ast.Node, t *types.Type, field string) (*types.Type, error) {
	elem, width := types.SplitVector(t.Name)
	w, _ := strconv.Atoi(width)

	count := componentCount(field, w)
	if count == 0 {
		return nil, diagnostic.Errorf(n, "Invalid vector component %s of %s", field, t)
	}

	out := t.Clone()
	out.Name = elem
	if count > 1 {
		out.Name = elem + strconv.Itoa(count)
		if !types.IsBuiltin(out.Name) {
			return nil, diagnostic.Errorf(n, "Invalid vector component %s of %s", field, t)
		}
	}
	return out, nil
}

// componentCount returns how many components field selects from a vector
// of width w, or 0 when field is not a valid selection.
func componentCount(field string, w int) int {
	switch field {
	case "lo", "hi", "even", "odd":
		return (w + 1) / 2
	}

	if len(field) > 1 && (field[0] == 's' || field[0] == 'S') {
		for _, ch := range field[1:] {
			i, err := strconv.ParseInt(string(ch), 16, 8)
			if err != nil || int(i) >= w {
				return 0
			}
		}
		return len(field) - 1
	}

	if w > 4 {
		return 0
	}
	for _, ch := range field {
		i := strings.IndexRune("xyzw", ch)
		if i < 0 || i >= w {
			return 0
		}
	}
	return len(field)
}
