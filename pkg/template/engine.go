package template

import (
	"fmt"
	"strings"

	"github.com/pretender-dev/pretender/pkg/value"
)

// DefaultFakerSeed is the identity generator seed used when none is configured.
const DefaultFakerSeed = 42

// Engine expands template tokens in nested values.
// An Engine is safe for concurrent use.
type Engine struct {
	registry *Registry
	faker    *Faker
}

type options struct {
	seed   uint64
	faker  *Faker
	mounts []mount
}

type mount struct {
	ns       *Namespace
	prefixes []string
}

// Option configures an Engine.
type Option func(*options)

// WithFakerSeed seeds the identity generator.
func WithFakerSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithFaker uses an existing identity generator. It takes precedence over
// WithFakerSeed.
func WithFaker(f *Faker) Option {
	return func(o *options) {
		o.faker = f
	}
}

// WithNamespace mounts an additional namespace under the given prefixes.
// Built-in prefixes can be overridden.
func WithNamespace(ns *Namespace, prefixes ...string) Option {
	return func(o *options) {
		o.mounts = append(o.mounts, mount{ns: ns, prefixes: prefixes})
	}
}

// New creates an engine with the faker, random and datetime namespaces.
func New(opts ...Option) *Engine {
	o := options{seed: DefaultFakerSeed}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{registry: NewRegistry(), faker: o.faker}
	if e.faker == nil {
		e.faker = NewFaker(o.seed)
	}

	e.registry.Mount(e.faker.Namespace(), "faker")
	e.registry.Mount(randomNamespace(), "random")
	e.registry.Mount(datetimeNamespace(), "datetime", "date", "time")

	for _, m := range o.mounts {
		e.registry.Mount(m.ns, m.prefixes...)
	}
	return e
}

// Faker returns the engine's identity generator.
func (e *Engine) Faker() *Faker {
	return e.faker
}

// Expand walks v and returns a copy with every token in every string leaf
// resolved. Mappings keep their key order; sequences keep element order;
// non-string scalars are returned unchanged. v itself is never modified.
func (e *Engine) Expand(v any) any {
	switch t := v.(type) {
	case string:
		return e.ExpandString(t)
	case *value.Map:
		out := value.NewMap(t.Len())
		t.Range(func(key string, val any) bool {
			out.Set(key, e.Expand(val))
			return true
		})
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, val := range t {
			out[key] = e.Expand(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = e.Expand(item)
		}
		return out
	default:
		return v
	}
}

// ExpandString replaces every token in s. Text outside tokens is kept as is.
func (e *Engine) ExpandString(s string) string {
	if !strings.Contains(s, "{{") || !strings.Contains(s, "}}") {
		return s
	}

	locs := tokenRegex.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	last := 0
	for _, loc := range locs {
		sb.WriteString(s[last:loc[0]])
		sb.WriteString(e.Resolve(parseToken(s, loc)))
		last = loc[1]
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// Resolve evaluates a single token and returns its substitution text.
func (e *Engine) Resolve(tok Token) string {
	prefix, method, ok := strings.Cut(tok.Name, ".")
	if !ok {
		return unknownMarker(tok.Name)
	}
	ns, found := e.registry.Namespace(prefix)
	if !found {
		return unknownMarker(tok.Name)
	}

	m, found := ns.Lookup(method)
	if !found {
		return errorMarker(tok.Name, fmt.Sprintf("namespace %q has no method %q", prefix, method))
	}

	args := m.Defaults
	if tok.HasParams {
		args = ParseParams(tok.Params)
	}

	result, err := call(m.Call, args)
	if err != nil {
		return errorMarker(tok.Name, err.Error())
	}
	return formatResult(result)
}

// call runs a generator, turning a panic into an error so one bad token
// cannot take down the response.
func call(fn Func, args Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return fn(args)
}

func errorMarker(name, reason string) string {
	return "{{ERROR: " + name + " - " + reason + "}}"
}

func unknownMarker(name string) string {
	return "{{UNKNOWN: " + name + "}}"
}
