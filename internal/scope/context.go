// Package scope tracks what is visible while a translation unit is checked.
//
// A Context holds every identifier, user-defined type name and enclosing
// function known at a point of the walk. Scopes form a tree stored in an
// arena: entering a scope adds a child of the current one, leaving it
// unbinds everything the scope declared. Lookups walk from the current
// scope up to the file scope.
package scope

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/pkg/errors"

	"github.com/HugoDaniel/oclcheck/internal/builtins"
	"github.com/HugoDaniel/oclcheck/internal/types"
)

// Context is the mutable state of one check. It is not safe for
// concurrent use.
type Context struct {
	defs     *types.Definitions
	builtins *builtins.Registry

	// parent is the enclosing Context of a struct body. Lookups fall
	// back to it; declarations never reach it.
	parent *Context

	scopes    []scopeRecord
	active    *arraystack.Stack // of ScopeID, innermost on top
	variables *linkedhashmap.Map
	typenames map[string]*TypeName
	functions *arraystack.Stack // of *funcEntry

	// Unresolved holds the names of functions declared but not yet defined.
	Unresolved *linkedhashset.Set

	// InDecl is set while a declaration's initializer is checked.
	InDecl bool

	// SwitchType is the condition type of the innermost switch, or nil.
	SwitchType *types.Type
}

// New returns an empty Context at file scope using the default builtins.
func New() *Context {
	c := &Context{
		builtins:   builtins.Default(),
		scopes:     []scopeRecord{{parent: GlobalScope}},
		active:     arraystack.New(),
		variables:  linkedhashmap.New(),
		typenames:  make(map[string]*TypeName),
		functions:  arraystack.New(),
		Unresolved: linkedhashset.New(),
	}
	c.active.Push(GlobalScope)
	c.defs = types.NewDefinitions(c)
	return c
}

// Nested returns a Context for checking a struct or union body. It sees
// everything c sees but records declarations only in itself.
func (c *Context) Nested() *Context {
	n := New()
	n.builtins = c.builtins
	n.parent = c
	return n
}

// Definitions returns the type rules bound to this context's type names.
func (c *Context) Definitions() *types.Definitions {
	return c.defs
}

// Builtins returns the builtin function registry.
func (c *Context) Builtins() *builtins.Registry {
	return c.builtins
}

// SetBuiltins replaces the builtin function registry.
func (c *Context) SetBuiltins(r *builtins.Registry) {
	c.builtins = r
}

// ----------------------------------------------------------------------------
// Scopes
// ----------------------------------------------------------------------------

// CurrentScope returns the innermost active scope.
func (c *Context) CurrentScope() ScopeID {
	top, _ := c.active.Peek()
	return top.(ScopeID)
}

// Depth returns how deeply the current scope is nested; file scope is 0.
func (c *Context) Depth() int {
	return c.scopes[c.CurrentScope()].depth
}

// ChangeScope enters a new scope nested in the current one.
func (c *Context) ChangeScope() ScopeID {
	parent := c.CurrentScope()
	id := ScopeID(len(c.scopes))
	c.scopes = append(c.scopes, scopeRecord{parent: parent, depth: c.scopes[parent].depth + 1})
	c.active.Push(id)
	return id
}

// LeaveScope exits the current scope, unbinding every identifier and type
// name it declared and dropping functions that are no longer visible.
func (c *Context) LeaveScope() error {
	scope := c.CurrentScope()
	if scope == GlobalScope {
		return errors.New("Cannot leave the file scope")
	}

	var gone []interface{}
	c.variables.Each(func(key, value interface{}) {
		v := value.(*Variable)
		t, ok := v.TypeAt(scope)
		if !ok {
			return
		}
		c.leaveScope(v, t, scope)
		if v.Scopes() == 0 {
			gone = append(gone, key)
		}
	})
	for _, key := range gone {
		c.variables.Remove(key)
	}

	for name, tn := range c.typenames {
		tn.scopes.Remove(scope)
		if tn.scopes.Size() == 0 {
			delete(c.typenames, name)
		}
	}

	c.dropInvisibleFunctions()
	c.active.Pop()
	return nil
}

// leaveScope is the per-kind exit hook.
func (c *Context) leaveScope(v *Variable, t *types.Type, scope ScopeID) {
	switch t.Kind {
	case types.KindEllipsis:
	default:
		v.unbind(scope)
	}
}

func (c *Context) dropInvisibleFunctions() {
	// Values is top first
	entries := c.functions.Values()
	c.functions.Clear()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i].(*funcEntry)
		if e.v != nil && e.v.Scopes() == 0 {
			continue
		}
		c.functions.Push(e)
	}
}

// isActive reports whether scope is on the path from the current scope to
// the file scope.
func (c *Context) isActive(scope ScopeID) bool {
	for s := c.CurrentScope(); ; s = c.scopes[s].parent {
		if s == scope {
			return true
		}
		if s == GlobalScope {
			return false
		}
	}
}

// ----------------------------------------------------------------------------
// Identifiers
// ----------------------------------------------------------------------------

// AddVariable binds name to t in the current scope.
func (c *Context) AddVariable(name string, t *types.Type) error {
	return c.AddVariableAt(name, t, c.CurrentScope())
}

// AddVariableAt binds name to t in scope, which must be active. Enum
// types bind their own tag and enumerators; name is ignored for them.
func (c *Context) AddVariableAt(name string, t *types.Type, scope ScopeID) error {
	if t == nil {
		return errors.Errorf("Expected a type for %s but found none", name)
	}
	if !c.isActive(scope) {
		return errors.Errorf("Scope %d is not active", scope)
	}
	if t.Kind == types.KindEnum || t.Kind == types.KindEllipsis {
		return c.enterScope(nil, t, scope)
	}

	if !types.IsValidName(name) {
		return errors.Errorf("Invalid identifier or type name: %s", name)
	}
	if types.IsReserved(name) {
		return errors.Errorf("%s is a reserved word", name)
	}

	var v *Variable
	if found, ok := c.variables.Get(name); ok {
		v = found.(*Variable)
		if existing, ok := v.TypeAt(scope); ok {
			if existing.String() == t.String() {
				return nil
			}
			return errors.Errorf("Cannot redeclare %s (%s) as a different symbol (%s)", name, existing, t)
		}
	} else {
		v = newVariable(name)
	}

	if err := c.enterScope(v, t, scope); err != nil {
		return err
	}
	c.variables.Put(name, v)
	return nil
}

// enterScope is the per-kind entry hook.
func (c *Context) enterScope(v *Variable, t *types.Type, scope ScopeID) error {
	switch t.Kind {
	case types.KindEllipsis:
		return nil

	case types.KindEnum:
		if err := c.defs.Exists(t); err != nil {
			return err
		}
		if t.EnumName != "" {
			if err := c.AddVariableAt(t.EnumName, types.EnumTagType(), scope); err != nil {
				return err
			}
		}
		for _, value := range t.EnumValues {
			if err := c.AddVariableAt(value, types.EnumValueType(), scope); err != nil {
				return err
			}
		}
		return nil

	case types.KindTypeDef:
		if err := c.defs.Exists(t); err != nil {
			return err
		}
		c.AddTypename(v.Name, scope)
		v.bind(scope, t)
		return nil

	case types.KindFunction:
		if err := c.defs.Exists(t); err != nil {
			return err
		}
		v.bind(scope, t)
		c.functions.Push(&funcEntry{v: v, t: t})
		return nil
	}

	if err := c.defs.Exists(t); err != nil {
		return err
	}
	v.bind(scope, t)
	return nil
}

// GetVariable returns the Variable named name if it is visible.
func (c *Context) GetVariable(name string) (*Variable, error) {
	if _, ok := c.lookup(name); ok {
		found, _ := c.variables.Get(name)
		if found != nil {
			return found.(*Variable), nil
		}
	}
	if c.parent != nil {
		return c.parent.GetVariable(name)
	}
	return nil, errors.Errorf("Variable %s not in scope", name)
}

// lookup finds the innermost binding of name.
func (c *Context) lookup(name string) (*types.Type, bool) {
	found, ok := c.variables.Get(name)
	if !ok {
		return nil, false
	}
	v := found.(*Variable)
	for s := c.CurrentScope(); ; s = c.scopes[s].parent {
		if t, ok := v.TypeAt(s); ok {
			return t, true
		}
		if s == GlobalScope {
			return nil, false
		}
	}
}

// Binding returns the type name is bound to, typedefs unresolved.
func (c *Context) Binding(name string) (*types.Type, error) {
	if t, ok := c.lookup(name); ok {
		return t, nil
	}
	if c.parent != nil {
		return c.parent.Binding(name)
	}
	return nil, errors.Errorf("Variable %s not in scope", name)
}

// Lookup returns the type of name. A typedef name yields a copy of the
// type it aliases.
func (c *Context) Lookup(name string) (*types.Type, error) {
	t, err := c.Binding(name)
	if err != nil {
		return nil, err
	}
	if t.Kind == types.KindTypeDef {
		return t.Aliased.Clone(), nil
	}
	return t, nil
}

// DeclaredInCurrentScope reports whether the current scope binds name.
func (c *Context) DeclaredInCurrentScope(name string) bool {
	found, ok := c.variables.Get(name)
	if !ok {
		return false
	}
	_, ok = found.(*Variable).TypeAt(c.CurrentScope())
	return ok
}

// Enclosing returns the outermost Context c is nested in, or c itself.
// Tags and enumerators declared inside a struct body are bound there.
func (c *Context) Enclosing() *Context {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// ----------------------------------------------------------------------------
// Type names
// ----------------------------------------------------------------------------

// AddTypename records name as a type name declared in scope.
func (c *Context) AddTypename(name string, scope ScopeID) {
	tn, ok := c.typenames[name]
	if !ok {
		tn = newTypeName(name)
		c.typenames[name] = tn
	}
	tn.scopes.Add(scope)
}

// IsTypename reports whether name is a visible user-defined type name.
func (c *Context) IsTypename(name string) bool {
	if tn, ok := c.typenames[name]; ok && tn.scopes.Size() > 0 {
		return true
	}
	return c.parent != nil && c.parent.IsTypename(name)
}

// TypenameType returns a copy of the type a type name stands for.
func (c *Context) TypenameType(name string) (*types.Type, error) {
	if !c.IsTypename(name) {
		return nil, errors.Errorf("Typename %s unknown", name)
	}
	return c.Lookup(name)
}

// ----------------------------------------------------------------------------
// Functions
// ----------------------------------------------------------------------------

// GetFunction resolves a call target. User functions shadow builtins;
// exactly one of the results is non-nil on success.
func (c *Context) GetFunction(name string) (*types.Type, *builtins.Fn, error) {
	if t, err := c.Lookup(name); err == nil {
		return t, nil, nil
	}
	if fn := c.builtins.Lookup(name); fn != nil {
		return nil, fn, nil
	}
	return nil, nil, errors.Errorf("No function named %s in current context", name)
}

// EnterFunction makes t the function return statements check against
// until the matching LeaveFunction.
func (c *Context) EnterFunction(t *types.Type) {
	c.functions.Push(&funcEntry{t: t})
}

// LeaveFunction undoes the most recent EnterFunction.
func (c *Context) LeaveFunction() {
	entries := c.functions.Values()
	c.functions.Clear()
	for i := range entries {
		if entries[i].(*funcEntry).v == nil {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	for i := len(entries) - 1; i >= 0; i-- {
		c.functions.Push(entries[i])
	}
}

// CurrentFunction returns the function whose body is being checked, or
// failing that the most recently declared function.
func (c *Context) CurrentFunction() (*types.Type, bool) {
	entries := c.functions.Values()
	for _, e := range entries {
		if e.(*funcEntry).v == nil {
			return e.(*funcEntry).t, true
		}
	}
	if len(entries) == 0 {
		return nil, false
	}
	return entries[0].(*funcEntry).t, true
}
