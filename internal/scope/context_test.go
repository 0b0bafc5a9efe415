package scope

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/HugoDaniel/oclcheck/internal/types"
)

func TestScopeSymmetry(t *testing.T) {
	c := New()
	c.ChangeScope()
	be.Err(t, c.AddVariable("x", types.New("int")), nil)

	got, err := c.Lookup("x")
	be.Err(t, err, nil)
	be.Equal(t, got.Name, "int")

	be.Err(t, c.LeaveScope(), nil)
	_, err = c.Lookup("x")
	be.Err(t, err, "Variable x not in scope")
}

func TestShadowing(t *testing.T) {
	c := New()
	be.Err(t, c.AddVariable("x", types.New("int")), nil)

	c.ChangeScope()
	be.Err(t, c.AddVariable("x", types.New("float")), nil)
	got, _ := c.Lookup("x")
	be.Equal(t, got.Name, "float")

	be.Err(t, c.LeaveScope(), nil)
	got, _ = c.Lookup("x")
	be.Equal(t, got.Name, "int")
}

func TestRedeclaration(t *testing.T) {
	c := New()
	be.Err(t, c.AddVariable("x", types.New("int")), nil)
	be.Err(t, c.AddVariable("x", types.New("float")), "Cannot redeclare x")
	be.Err(t, c.AddVariable("x", types.New("int")), nil)
}

func TestSiblingScopes(t *testing.T) {
	c := New()
	first := c.ChangeScope()
	be.Err(t, c.AddVariable("a", types.New("int")), nil)
	be.Err(t, c.LeaveScope(), nil)

	second := c.ChangeScope()
	be.True(t, first != second)
	_, err := c.Lookup("a")
	be.Err(t, err, "not in scope")
	be.Err(t, c.AddVariableAt("b", types.New("int"), first), "not active")
	be.Err(t, c.LeaveScope(), nil)
}

func TestAddVariableAtOuterScope(t *testing.T) {
	c := New()
	c.ChangeScope()
	be.Err(t, c.AddVariableAt("f", types.NewFunction("f", nil, nil), GlobalScope), nil)
	be.Err(t, c.LeaveScope(), nil)

	got, err := c.Lookup("f")
	be.Err(t, err, nil)
	be.Equal(t, got.Kind, types.KindFunction)
}

func TestLeaveFileScope(t *testing.T) {
	be.Err(t, New().LeaveScope(), "file scope")
}

func TestInvalidNames(t *testing.T) {
	c := New()
	be.Err(t, c.AddVariable("!tmp", types.New("int")), "Invalid identifier")
	be.Err(t, c.AddVariable("float4", types.New("int")), "reserved word")
	be.Err(t, c.AddVariable("global", types.New("int")), "reserved word")
}

func TestUnknownType(t *testing.T) {
	c := New()
	be.Err(t, c.AddVariable("x", types.New("vec4")), "Typename vec4 unknown")
}

func TestTypedef(t *testing.T) {
	c := New()
	c.ChangeScope()
	be.Err(t, c.AddVariable("real", types.NewTypeDef("real", types.New("float"))), nil)
	be.True(t, c.IsTypename("real"))

	got, err := c.TypenameType("real")
	be.Err(t, err, nil)
	be.Equal(t, got.String(), "float")

	// the copy can be qualified without touching the binding
	got.AddQual("const")
	again, _ := c.TypenameType("real")
	be.Equal(t, again.String(), "float")

	be.Err(t, c.AddVariable("r", types.New("real")), nil)

	be.Err(t, c.LeaveScope(), nil)
	be.Equal(t, c.IsTypename("real"), false)
	_, err = c.TypenameType("real")
	be.Err(t, err, "Typename real unknown")
}

func TestEnum(t *testing.T) {
	c := New()
	be.Err(t, c.AddVariable("", types.NewEnum("color", []string{"RED", "GREEN"})), nil)

	tag, err := c.Lookup("color")
	be.Err(t, err, nil)
	be.Equal(t, tag.String(), "const int")

	red, err := c.Lookup("RED")
	be.Err(t, err, nil)
	be.Equal(t, red.String(), "int")

	be.Err(t, c.AddVariable("", types.NewEnum("e", []string{"uint"})), "Reserved word uint")
}

func TestFunctions(t *testing.T) {
	c := New()
	_, _, err := c.GetFunction("nope")
	be.Err(t, err, "No function named nope")

	_, fn, err := c.GetFunction("get_global_id")
	be.Err(t, err, nil)
	be.Equal(t, fn.Name, "get_global_id")

	f := types.NewFunction("f", []*types.Type{types.New("int")}, types.New("float"))
	be.Err(t, c.AddVariable("f", f), nil)
	got, fn, err := c.GetFunction("f")
	be.Err(t, err, nil)
	be.True(t, fn == nil)
	be.Equal(t, got.Return.Name, "float")

	cur, ok := c.CurrentFunction()
	be.True(t, ok)
	be.Equal(t, cur.Name, "f")

	g := types.NewFunction("g", nil, nil)
	c.EnterFunction(g)
	c.ChangeScope()
	be.Err(t, c.AddVariable("h", types.NewFunction("h", nil, types.New("int"))), nil)
	cur, _ = c.CurrentFunction()
	be.Equal(t, cur.Name, "g")
	c.LeaveFunction()
	be.Err(t, c.LeaveScope(), nil)

	cur, _ = c.CurrentFunction()
	be.Equal(t, cur.Name, "f")
}

func TestFunctionShadowsBuiltin(t *testing.T) {
	c := New()
	be.Err(t, c.AddVariable("min", types.NewFunction("min", nil, types.New("int"))), nil)
	got, fn, err := c.GetFunction("min")
	be.Err(t, err, nil)
	be.True(t, fn == nil)
	be.Equal(t, got.Name, "min")
}

func TestNestedContext(t *testing.T) {
	c := New()
	be.Err(t, c.AddVariable("real", types.NewTypeDef("real", types.New("float"))), nil)
	be.Err(t, c.AddVariable("N", types.New("int")), nil)

	n := c.Nested()
	be.True(t, n.IsTypename("real"))
	be.Err(t, n.AddVariable("a", types.New("real")), nil)
	be.Err(t, n.AddVariable("b", types.New("int")), nil)
	_, err := n.Lookup("N")
	be.Err(t, err, nil)

	be.True(t, n.Enclosing() == c)
	be.True(t, n.Nested().Enclosing() == c)
	be.True(t, c.Enclosing() == c)

	_, err = c.Lookup("a")
	be.Err(t, err, "not in scope")
}

func TestDepth(t *testing.T) {
	c := New()
	be.Equal(t, c.Depth(), 0)
	c.ChangeScope()
	c.ChangeScope()
	be.Equal(t, c.Depth(), 2)
}
