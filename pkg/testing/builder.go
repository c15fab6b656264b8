package testing

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type fileDoc struct {
	Mocks []ruleDoc `yaml:"mocks"`
}

type ruleDoc struct {
	URL      string      `yaml:"url"`
	Method   string      `yaml:"method"`
	Headers  *yaml.Node  `yaml:"headers,omitempty"`
	Response responseDoc `yaml:"response"`
}

type responseDoc struct {
	Code  int    `yaml:"code"`
	Delay *int64 `yaml:"delay,omitempty"`
	Msg   any    `yaml:"msg"`
}

// RuleBuilder builds one rule using a fluent API.
type RuleBuilder struct {
	proxy *Proxy
	rule  ruleDoc
	err   error // first error wins
}

func (b *RuleBuilder) setError(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Err returns the first error encountered while building.
func (b *RuleBuilder) Err() error {
	return b.err
}

// WithStatus sets the response status code. Default is 200.
func (b *RuleBuilder) WithStatus(code int) *RuleBuilder {
	b.rule.Response.Code = code
	return b
}

// WithHeader requires the named request header to contain a match for
// pattern. Constraints are checked in the order they are added.
func (b *RuleBuilder) WithHeader(name, pattern string) *RuleBuilder {
	if b.rule.Headers == nil {
		b.rule.Headers = &yaml.Node{Kind: yaml.MappingNode}
	}
	b.rule.Headers.Content = append(b.rule.Headers.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: pattern},
	)
	return b
}

// WithDelay holds the response for d before it is rendered. Delays are
// recorded with millisecond precision.
func (b *RuleBuilder) WithDelay(d time.Duration) *RuleBuilder {
	ms := d.Milliseconds()
	b.rule.Response.Delay = &ms
	return b
}

// WithBody sets the response template. Strings may carry {{...}}
// placeholders. Structs and maps are converted through their JSON form, so
// json tags decide the field names.
func (b *RuleBuilder) WithBody(body any) *RuleBuilder {
	switch v := body.(type) {
	case nil, string, bool, int, int64, float64:
		b.rule.Response.Msg = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			b.setError(fmt.Errorf("failed to marshal body: %w", err))
			return b
		}
		var tree any
		if err := json.Unmarshal(data, &tree); err != nil {
			b.setError(fmt.Errorf("failed to decode body: %w", err))
			return b
		}
		b.rule.Response.Msg = tree
	}
	return b
}

// RespondWith is a shorthand for setting status and body together.
func (b *RuleBuilder) RespondWith(code int, body any) *RuleBuilder {
	return b.WithStatus(code).WithBody(body)
}

// Reply adds the rule to the proxy. A running proxy serves it as soon as
// Reply returns. Building errors fail the test.
func (b *RuleBuilder) Reply() {
	b.proxy.t.Helper()
	if b.err != nil {
		b.proxy.t.Fatalf("pretender: rule %s %s: %v", b.rule.Method, b.rule.URL, b.err)
		return
	}
	b.proxy.addRule(b.rule)
}
