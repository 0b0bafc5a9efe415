package types

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed optable.yaml
var opTableYAML []byte

// opTable[lhs][rhs] is the result of an arithmetic operator applied to two
// scalars, nil where the operators are undefined.
var opTable map[string]map[string]*string

func init() {
	if err := yaml.Unmarshal(opTableYAML, &opTable); err != nil {
		panic("types: malformed optable.yaml: " + err.Error())
	}
}

// LookupArithmetic returns the result type of an arithmetic or bitwise
// operator applied to scalars lhs and rhs.
func LookupArithmetic(lhs, rhs string) (string, bool) {
	row, ok := opTable[lhs]
	if !ok {
		return "", false
	}
	result := row[rhs]
	if result == nil {
		return "", false
	}
	return *result, true
}
