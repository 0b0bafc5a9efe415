package builtins

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed builtins.yaml
var defaultTable []byte

// signatureYAML is one entry of a function's signature list.
type signatureYAML struct {
	Params  []string `yaml:"params"`
	Returns string   `yaml:"returns"`
}

// tableYAML groups functions by section: section -> name -> signatures.
type tableYAML map[string]map[string][]signatureYAML

// Registry is an immutable set of builtin functions.
type Registry struct {
	fns map[string]*Fn
}

var defaultRegistry *Registry

func init() {
	r, err := Decode(bytes.NewReader(defaultTable))
	if err != nil {
		panic("builtins: " + err.Error())
	}
	registerConversions(r)
	defaultRegistry = r
}

// Default returns the registry of the OpenCL C 1.2 builtins.
func Default() *Registry {
	return defaultRegistry
}

// Decode reads a builtin table.
func Decode(r io.Reader) (*Registry, error) {
	reg := &Registry{fns: make(map[string]*Fn)}
	if err := reg.decodeInto(r); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Registry) decodeInto(in io.Reader) error {
	var table tableYAML
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	if err := dec.Decode(&table); err != nil && err != io.EOF {
		return errors.Wrap(err, "decoding builtin table")
	}

	for section, fns := range table {
		kind := kindOf(section)
		for name, sigs := range fns {
			fn, ok := r.fns[name]
			if !ok {
				fn = &Fn{Name: name, Kind: kind}
				r.fns[name] = fn
			}
			for i, s := range sigs {
				if s.Returns == "" {
					return errors.Errorf("%s: signature %d has no return type", name, i)
				}
				sig := &ArgList{Return: NewArgType(s.Returns)}
				for _, p := range s.Params {
					sig.Params = append(sig.Params, NewArgType(p))
				}
				fn.Signatures = append(fn.Signatures, sig)
			}
		}
	}
	return nil
}

// Extend returns a new registry holding r's functions plus those read
// from in. Signatures for a name r already knows are appended after the
// existing ones. r is left unchanged.
func (r *Registry) Extend(in io.Reader) (*Registry, error) {
	out := &Registry{fns: make(map[string]*Fn, len(r.fns))}
	for name, fn := range r.fns {
		c := *fn
		c.Signatures = append([]*ArgList(nil), fn.Signatures...)
		out.fns[name] = &c
	}
	if err := out.decodeInto(in); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtendFile is Extend reading from a file.
func (r *Registry) ExtendFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening builtin table")
	}
	defer f.Close()
	reg, err := r.Extend(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return reg, nil
}

// Lookup returns the builtin named name, or nil.
func (r *Registry) Lookup(name string) *Fn {
	return r.fns[name]
}

// IsBuiltin reports whether name is a builtin function.
func (r *Registry) IsBuiltin(name string) bool {
	_, ok := r.fns[name]
	return ok
}

// Names returns every builtin name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds name in the default registry.
func Lookup(name string) *Fn {
	return defaultRegistry.Lookup(name)
}

// IsBuiltin reports whether name is a default builtin.
func IsBuiltin(name string) bool {
	return defaultRegistry.IsBuiltin(name)
}
