package template

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Argument errors reported by generators. They surface in the rendered
// output as part of an {{ERROR: ...}} marker.
var (
	ErrMissingArgument = errors.New("missing argument")
	ErrArgumentType    = errors.New("wrong argument type")
	ErrArgumentValue   = errors.New("invalid argument value")
	ErrUnsupported     = errors.New("not supported in templates")
)

// Func generates one value from positional arguments.
type Func func(args Args) (any, error)

// Method is a generator plus the arguments it runs with when a token
// carries no parameters.
type Method struct {
	Call     Func
	Defaults Args
}

// Namespace is a named set of generator methods.
type Namespace struct {
	name    string
	methods map[string]Method
}

// NewNamespace creates an empty namespace.
func NewNamespace(name string) *Namespace {
	return &Namespace{name: name, methods: make(map[string]Method)}
}

// Name returns the namespace name.
func (n *Namespace) Name() string {
	return n.name
}

// Register adds a method. Registering an existing name replaces it.
func (n *Namespace) Register(method string, fn Func, defaults ...any) *Namespace {
	n.methods[method] = Method{Call: fn, Defaults: Args(defaults)}
	return n
}

// Lookup returns the method registered under name.
func (n *Namespace) Lookup(name string) (Method, bool) {
	m, ok := n.methods[name]
	return m, ok
}

// Methods returns the registered method names, sorted.
func (n *Namespace) Methods() []string {
	names := make([]string, 0, len(n.methods))
	for name := range n.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry maps namespace prefixes to namespaces. Several prefixes may
// point at the same namespace.
type Registry struct {
	prefixes map[string]*Namespace
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{prefixes: make(map[string]*Namespace)}
}

// Mount makes ns reachable under each of the given prefixes.
func (r *Registry) Mount(ns *Namespace, prefixes ...string) {
	if len(prefixes) == 0 {
		prefixes = []string{ns.name}
	}
	for _, p := range prefixes {
		r.prefixes[p] = ns
	}
}

// Namespace returns the namespace mounted under prefix.
func (r *Registry) Namespace(prefix string) (*Namespace, bool) {
	ns, ok := r.prefixes[prefix]
	return ns, ok
}

// Argument accessors used by generator implementations.

func (a Args) has(i int) bool {
	return i < len(a)
}

func (a Args) str(i int) (string, error) {
	if !a.has(i) {
		return "", fmt.Errorf("%w: position %d", ErrMissingArgument, i+1)
	}
	s, ok := a[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: position %d expects a string, got %s", ErrArgumentType, i+1, typeName(a[i]))
	}
	return s, nil
}

func (a Args) integer(i int) (int64, error) {
	if !a.has(i) {
		return 0, fmt.Errorf("%w: position %d", ErrMissingArgument, i+1)
	}
	switch v := a[i].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: position %d expects an integer, got %v", ErrArgumentType, i+1, v)
		}
		return int64(v), nil
	}
	return 0, fmt.Errorf("%w: position %d expects an integer, got %s", ErrArgumentType, i+1, typeName(a[i]))
}

func (a Args) intOr(i int, def int64) (int64, error) {
	if !a.has(i) {
		return def, nil
	}
	return a.integer(i)
}

func (a Args) float(i int) (float64, error) {
	if !a.has(i) {
		return 0, fmt.Errorf("%w: position %d", ErrMissingArgument, i+1)
	}
	switch v := a[i].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%w: position %d expects a number, got %s", ErrArgumentType, i+1, typeName(a[i]))
}

func (a Args) floatOr(i int, def float64) (float64, error) {
	if !a.has(i) {
		return def, nil
	}
	return a.float(i)
}

func (a Args) boolean(i int) (bool, error) {
	if !a.has(i) {
		return false, fmt.Errorf("%w: position %d", ErrMissingArgument, i+1)
	}
	b, ok := a[i].(bool)
	if !ok {
		return false, fmt.Errorf("%w: position %d expects a boolean, got %s", ErrArgumentType, i+1, typeName(a[i]))
	}
	return b, nil
}

func (a Args) atMost(n int) error {
	if len(a) > n {
		return fmt.Errorf("%w: takes at most %d arguments (%d given)", ErrArgumentValue, n, len(a))
	}
	return nil
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "str"
	case int, int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case nil:
		return "None"
	}
	return fmt.Sprintf("%T", v)
}
