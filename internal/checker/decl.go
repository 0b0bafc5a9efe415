package checker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/HugoDaniel/oclcheck/internal/diagnostic"
	"github.com/HugoDaniel/oclcheck/internal/scope"
	"github.com/HugoDaniel/oclcheck/internal/types"
)

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func (c *Checker) checkDecl(d *ast.Decl) (*types.Type, error) {
	if fd, ok := d.Type.(*ast.FuncDecl); ok {
		return c.checkPrototype(d, fd)
	}

	t, err := c.declType(d.Type)
	if err != nil {
		return nil, err
	}
	if d.Name == "" {
		// struct S {...}; and friends only declare a tag
		return t, nil
	}

	for _, s := range d.Storage {
		t.AddStorage(s)
	}
	for _, f := range d.FuncSpec {
		t.AddFuncSpec(f)
	}
	if d.Bitsize != nil {
		bt, err := c.visit(d.Bitsize)
		if err != nil {
			return nil, err
		}
		if err := c.require(d.Bitsize, bt, types.New("int"), "Bit-field %s has non-integer width of type %s", d.Name, bt); err != nil {
			return nil, err
		}
		t.Bitsize = constantText(d.Bitsize)
	}

	if err := c.ctx.AddVariable(d.Name, t); err != nil {
		return nil, fail(d, err)
	}

	if d.Init != nil {
		prev := c.ctx.InDecl
		c.ctx.InDecl = true
		err := c.checkInit(t, d.Init, false)
		c.ctx.InDecl = prev
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// checkInit checks init against the declared type t. nested is set for
// the elements of an array initializer.
func (c *Checker) checkInit(t *types.Type, init ast.Node, nested bool) error {
	list, ok := init.(*ast.InitList)
	if !ok {
		it, err := c.visit(init)
		if err != nil {
			return err
		}
		return c.require(init, it, t, "Incompatible types when initializing %s from %s", t, it)
	}

	n := len(list.Exprs)
	switch {
	case t.IsPtrLike():
		if t.Dim == 0 {
			if t.IsArray {
				t.Dim = n
			}
		} else if n != t.Dim {
			return diagnostic.Errorf(list, "Type %s expected dimension %d but initialized to %d", t, t.Dim, n)
		}
		elem := t.Elem()
		for _, e := range list.Exprs {
			if err := c.checkInit(elem, e, true); err != nil {
				return err
			}
		}
		return nil

	case t.Resolve().Kind == types.KindStruct:
		members := t.Resolve().MemberTypes()
		if n > len(members) {
			return diagnostic.Errorf(list, "Too many initializers for %s: %d members but %d given", t, len(members), n)
		}
		for i, e := range list.Exprs {
			if err := c.checkInit(members[i].Clone(), e, false); err != nil {
				return err
			}
		}
		return nil
	}

	if elem, width := types.SplitVector(t.Name); width != "" {
		w, _ := strconv.Atoi(width)
		if n > w {
			return diagnostic.Errorf(list, "Too many initializers for %s: %d given", t, n)
		}
		for _, e := range list.Exprs {
			if err := c.checkInit(types.New(elem), e, false); err != nil {
				return err
			}
		}
		return nil
	}

	if nested {
		// int a[2][3] = {{...}, {...}} flattens onto the element type
		for _, e := range list.Exprs {
			if err := c.checkInit(t, e, true); err != nil {
				return err
			}
		}
		return nil
	}
	return diagnostic.Errorf(list, "Cannot initialize scalar %s with an initializer list", t)
}

func (c *Checker) checkTypedef(n *ast.Typedef) error {
	t, err := c.declType(n.Type)
	if err != nil {
		return err
	}
	for _, s := range n.Storage {
		if s != "typedef" {
			t.AddStorage(s)
		}
	}
	return fail(n, c.ctx.AddVariable(n.Name, types.NewTypeDef(n.Name, t)))
}

// ----------------------------------------------------------------------------
// Declarator Types
// ----------------------------------------------------------------------------

// declType rebuilds the type a declarator chain describes. The result is
// always a fresh Type the caller may qualify.
func (c *Checker) declType(n ast.Node) (*types.Type, error) {
	switch n := n.(type) {
	case *ast.TypeDecl:
		t, err := c.declType(n.Type)
		if err != nil {
			return nil, err
		}
		for _, q := range n.Quals {
			t.AddQual(q)
		}
		t.DeclaredName = n.DeclName
		return t, nil

	case *ast.Typename:
		t, err := c.declType(n.Type)
		if err != nil {
			return nil, err
		}
		for _, q := range n.Quals {
			t.AddQual(q)
		}
		return t, fail(n, c.defs().Exists(t))

	case *ast.PtrDecl:
		if _, ok := n.Type.(*ast.FuncDecl); ok {
			return nil, diagnostic.Errorf(n, "Function pointers are not supported")
		}
		t, err := c.declType(n.Type)
		if err != nil {
			return nil, err
		}
		if t.IsPtr {
			// one pointer level is tracked; inner levels fold into the pointee
			for _, q := range t.PtrQuals {
				t.AddQual(q)
			}
		}
		t.PtrQuals = append([]string(nil), n.Quals...)
		t.IsPtr = true
		return t, nil

	case *ast.ArrayDecl:
		t, err := c.declType(n.Type)
		if err != nil {
			return nil, err
		}
		dim := 0
		if n.Dim != nil {
			dt, err := c.visit(n.Dim)
			if err != nil {
				return nil, err
			}
			if err := c.require(n.Dim, dt, types.DimType(), "Expected valid Array dimension type but found %s", dt); err != nil {
				return nil, err
			}
			dim = constantInt(n.Dim)
		}
		t.IsArray = true
		t.Dim = dim
		return t, nil

	case *ast.FuncDecl:
		return c.functionType(declName(n.Type), n)

	case *ast.IdentifierType:
		name := types.Normalize(n.Names)
		if c.ctx.IsTypename(name) {
			return c.ctx.TypenameType(name)
		}
		return types.New(name), nil

	case *ast.Struct:
		return c.structType(n, "struct", n.Name, n.Decls)
	case *ast.Union:
		return c.structType(n, "union", n.Name, n.Decls)
	case *ast.Enum:
		return c.enumType(n)
	}

	return nil, diagnostic.Errorf(n, "Expected a type but found %s", strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast."))
}

// structType resolves a struct or union specifier. A body defines the tag
// in the current scope; a bare tag must already be defined.
func (c *Checker) structType(n ast.Node, keyword, tag string, decls []*ast.Decl) (*types.Type, error) {
	name := keyword
	if tag != "" {
		name = keyword + " " + tag
	}

	if decls == nil {
		if tag == "" || !c.ctx.IsTypename(name) {
			return nil, diagnostic.Errorf(n, "Storage size of %s unknown", tag)
		}
		return c.ctx.TypenameType(name)
	}

	// Bind the tag before the body so members can point to it. A tag
	// defined inside another struct body belongs to the enclosing scope.
	encl := c.ctx.Enclosing()
	var binding *types.Type
	if tag != "" {
		if encl.DeclaredInCurrentScope(name) {
			if b, err := encl.Binding(name); err == nil && b.Aliased.Members.Size() > 0 {
				return nil, diagnostic.Errorf(n, "Redefinition of %s", name)
			}
		}
		if err := encl.AddVariable(name, types.NewTypeDef(name, types.NewStruct(name, nil))); err != nil {
			return nil, fail(n, err)
		}
		binding, _ = encl.Binding(name)
	}

	body := c.nested()
	members := linkedhashmap.New()
	for _, d := range decls {
		mt, err := body.checkDecl(d)
		if err != nil {
			return nil, err
		}
		if d.Name == "" {
			continue
		}
		if _, dup := members.Get(d.Name); dup {
			return nil, diagnostic.Errorf(d, "Duplicate member %s in %s", d.Name, name)
		}
		members.Put(d.Name, mt)
	}

	t := types.NewStruct(name, members)
	if binding != nil {
		binding.Aliased = t
	}
	return t.Clone(), nil
}

// enumType binds the enumerators of an enum definition and returns the
// type a value of the enum has.
func (c *Checker) enumType(n *ast.Enum) (*types.Type, error) {
	if n.Values == nil {
		if _, err := c.ctx.Binding(n.Name); n.Name == "" || err != nil {
			return nil, diagnostic.Errorf(n, "Enum %s unknown", n.Name)
		}
		return types.EnumValueType(), nil
	}

	var names []string
	for _, e := range n.Values.Enumerators {
		if e.Value != nil {
			vt, err := c.visit(e.Value)
			if err != nil {
				return nil, err
			}
			want := types.EnumValueType()
			if err := c.require(e.Value, vt, want, "Expected enum value %s to be type %s but found %s", e.Name, want, vt); err != nil {
				return nil, err
			}
		}
		// Bound one at a time so later values can refer to earlier ones.
		names = append(names, e.Name)
		if err := c.ctx.Enclosing().AddVariable("", types.NewEnum(n.Name, names)); err != nil {
			return nil, fail(e, err)
		}
	}
	return types.EnumValueType(), nil
}

// ----------------------------------------------------------------------------
// Functions
// ----------------------------------------------------------------------------

// functionType builds the type of a function declarator. void as the
// only unnamed parameter means the function takes no arguments.
func (c *Checker) functionType(name string, fd *ast.FuncDecl) (*types.Type, error) {
	ret, err := c.declType(fd.Type)
	if err != nil {
		return nil, err
	}

	var params []*types.Type
	if fd.Args != nil {
		named := make(map[string]bool)
		for _, p := range fd.Args.Params {
			if pn := paramName(p); pn != "" {
				if named[pn] {
					return nil, diagnostic.Errorf(p, "Redefinition of parameter %s in %s", pn, name)
				}
				named[pn] = true
			}
			var pt *types.Type
			switch p := p.(type) {
			case *ast.Decl:
				pt, err = c.declType(p.Type)
				if err == nil {
					for _, s := range p.Storage {
						pt.AddStorage(s)
					}
				}
			default:
				pt, err = c.visit(p)
			}
			if err != nil {
				return nil, err
			}
			if len(fd.Args.Params) == 1 && isVoid(pt) && paramName(p) == "" {
				break
			}
			params = append(params, pt)
		}
	}

	t := types.NewFunction(name, params, ret)
	return t, fail(fd, c.defs().Exists(t))
}

func (c *Checker) applySpecifiers(t *types.Type, d *ast.Decl) error {
	for _, s := range d.Storage {
		t.AddStorage(s)
	}
	for _, f := range d.FuncSpec {
		t.AddFuncSpec(f)
	}
	for _, f := range t.FuncSpec {
		if f == "kernel" && (!isVoid(t.Return) || t.Return.IsPtrLike()) {
			return diagnostic.Errorf(d, "Kernel function %s must return void but returns %s", t.Name, t.Return)
		}
	}
	return nil
}

// checkPrototype declares a function without a body. Parameter names
// live in a throwaway scope.
func (c *Checker) checkPrototype(d *ast.Decl, fd *ast.FuncDecl) (*types.Type, error) {
	c.ctx.ChangeScope()
	t, err := c.functionType(d.Name, fd)
	if lerr := c.ctx.LeaveScope(); err == nil {
		err = fail(d, lerr)
	}
	if err != nil {
		return nil, err
	}
	if err := c.applySpecifiers(t, d); err != nil {
		return nil, err
	}
	return c.bindFunction(d, t, c.ctx.CurrentScope(), false)
}

func (c *Checker) checkFuncDef(fd *ast.FuncDef) error {
	decl, ok := fd.Decl.Type.(*ast.FuncDecl)
	if !ok {
		return diagnostic.Errorf(fd, "Function definition %s has no parameter list", fd.Decl.Name)
	}

	outer := c.ctx.CurrentScope()
	c.ctx.ChangeScope()
	err := c.checkFunctionBody(fd, decl, outer)
	if lerr := c.ctx.LeaveScope(); err == nil {
		err = fail(fd, lerr)
	}
	return err
}

// checkFunctionBody runs inside the function's scope, which holds the
// parameters and the top level of the body.
func (c *Checker) checkFunctionBody(fd *ast.FuncDef, decl *ast.FuncDecl, outer scope.ScopeID) error {
	t, err := c.functionType(fd.Decl.Name, decl)
	if err != nil {
		return err
	}
	if err := c.applySpecifiers(t, fd.Decl); err != nil {
		return err
	}
	fn, err := c.bindFunction(fd, t, outer, true)
	if err != nil {
		return err
	}

	if decl.Args != nil {
		for i, p := range decl.Args.Params {
			name := paramName(p)
			if name == "" || i >= len(t.Params) {
				continue
			}
			if err := c.ctx.AddVariable(name, t.Params[i].Clone()); err != nil {
				return fail(p, err)
			}
		}
	}

	c.ctx.EnterFunction(fn)
	defer c.ctx.LeaveFunction()
	return c.checkStmts(fd.Body.BlockItems)
}

// bindFunction binds t at scope, or checks it against an earlier
// declaration of the same function and returns that one.
func (c *Checker) bindFunction(node ast.Node, t *types.Type, at scope.ScopeID, defining bool) (*types.Type, error) {
	if prev, err := c.ctx.Binding(t.Name); err == nil && prev.Kind == types.KindFunction {
		if defining && !c.ctx.Unresolved.Contains(t.Name) {
			return nil, diagnostic.Errorf(node, "Redefinition of %s", t.Name)
		}
		if err := c.compatible(node, prev, t); err != nil {
			return nil, err
		}
		if defining {
			c.ctx.Unresolved.Remove(t.Name)
		}
		return prev, nil
	}

	if err := c.ctx.AddVariableAt(t.Name, t, at); err != nil {
		return nil, fail(node, err)
	}
	if !defining {
		c.ctx.Unresolved.Add(t.Name)
	}
	return t, nil
}

// compatible checks a redeclaration: the earlier return type must
// substitute for the new one and each new parameter for the earlier one.
func (c *Checker) compatible(node ast.Node, prev, t *types.Type) error {
	conflict := func() error {
		return diagnostic.Errorf(node, "Conflicting types for %s: %s and %s", t.Name, prev, t)
	}
	if len(prev.Params) != len(t.Params) {
		return conflict()
	}
	if ok, err := c.defs().Sub(prev.Return, t.Return); err != nil || !ok {
		return conflict()
	}
	for i, p := range t.Params {
		if p.Kind == types.KindEllipsis || prev.Params[i].Kind == types.KindEllipsis {
			if p.Kind != prev.Params[i].Kind {
				return conflict()
			}
			continue
		}
		if ok, err := c.defs().Sub(p, prev.Params[i]); err != nil || !ok {
			return conflict()
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func isVoid(t *types.Type) bool {
	return t != nil && t.Kind == types.KindScalar && t.Name == "void" && !t.IsPtrLike()
}

func paramName(p ast.Node) string {
	if d, ok := p.(*ast.Decl); ok {
		return d.Name
	}
	return ""
}

// declName finds the identifier at the bottom of a declarator chain.
func declName(n ast.Node) string {
	for {
		switch d := n.(type) {
		case *ast.TypeDecl:
			return d.DeclName
		case *ast.PtrDecl:
			n = d.Type
		case *ast.ArrayDecl:
			n = d.Type
		case *ast.FuncDecl:
			n = d.Type
		default:
			return ""
		}
	}
}

// constantInt returns the value of an integer literal, or 0 when n is
// not one.
func constantInt(n ast.Node) int {
	k, ok := n.(*ast.Constant)
	if !ok {
		return 0
	}
	text := strings.TrimRight(k.Value, "uUlL")
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil || v < 0 {
		return 0
	}
	return int(v)
}

func constantText(n ast.Node) string {
	if k, ok := n.(*ast.Constant); ok {
		return k.Value
	}
	return "?"
}
