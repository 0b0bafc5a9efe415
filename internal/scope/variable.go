package scope

import (
	"github.com/emirpasic/gods/sets/hashset"

	"github.com/HugoDaniel/oclcheck/internal/types"
)

// ScopeID identifies one lexical scope in a Context's scope arena.
type ScopeID int

// GlobalScope is the file scope every Context starts in.
const GlobalScope ScopeID = 0

type scopeRecord struct {
	parent ScopeID
	depth  int
}

// Variable is an identifier together with the type it has in each scope
// that binds it. One name can have different types in nested scopes.
type Variable struct {
	Name     string
	bindings map[ScopeID]*types.Type
}

func newVariable(name string) *Variable {
	return &Variable{Name: name, bindings: make(map[ScopeID]*types.Type)}
}

// TypeAt returns the type bound at exactly scope.
func (v *Variable) TypeAt(scope ScopeID) (*types.Type, bool) {
	t, ok := v.bindings[scope]
	return t, ok
}

// Scopes returns how many scopes currently bind the name.
func (v *Variable) Scopes() int {
	return len(v.bindings)
}

func (v *Variable) bind(scope ScopeID, t *types.Type) {
	v.bindings[scope] = t
}

func (v *Variable) unbind(scope ScopeID) {
	delete(v.bindings, scope)
}

// TypeName is a user-defined type name and the scopes that declare it.
type TypeName struct {
	Name   string
	scopes *hashset.Set
}

func newTypeName(name string) *TypeName {
	return &TypeName{Name: name, scopes: hashset.New()}
}

// funcEntry is one entry of the function stack. Entries pushed by a
// function binding remember their Variable so they leave with it.
type funcEntry struct {
	v *Variable
	t *types.Type
}
