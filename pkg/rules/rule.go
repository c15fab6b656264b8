package rules

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/pretender-dev/pretender/pkg/value"
)

// DefaultStatusCode is used when a rule's response has no code.
const DefaultStatusCode = http.StatusOK

// DefaultMatchTimeout bounds a single regular expression evaluation.
const DefaultMatchTimeout = 100 * time.Millisecond

// Rule is one compiled interception rule.
type Rule struct {
	// Index is the rule's position in the file, starting at 0.
	Index    int
	URL      string
	Method   string
	Headers  []HeaderConstraint
	Response Response

	url *regexp2.Regexp
}

// HeaderConstraint requires a request header to contain a match for Pattern.
type HeaderConstraint struct {
	Name    string
	Pattern string

	re *regexp2.Regexp
}

// Response describes what a matched rule answers with.
type Response struct {
	Code int
	// Body is the template tree from the rule's msg key. Nil renders as null.
	Body any
	// Delay is honoured only when Delayed is set; a zero delay is still
	// scheduled.
	Delay   time.Duration
	Delayed bool
}

// String identifies the rule in logs.
func (r *Rule) String() string {
	return fmt.Sprintf("#%d %s %s", r.Index, r.Method, r.URL)
}

// matchesRequest reports whether url and method select this rule.
func (r *Rule) matchesRequest(url, method string) bool {
	if !strings.EqualFold(r.Method, method) {
		return false
	}
	ok, err := r.url.MatchString(url)
	return err == nil && ok
}

// Parse compiles a decoded rule tree. A nil tree yields an empty RuleSet.
// The tree is validated against the rule schema first, so any failure
// rejects the whole file.
func Parse(tree any, opts ...ParseOption) (*RuleSet, error) {
	po := parseOptions{matchTimeout: DefaultMatchTimeout}
	for _, opt := range opts {
		opt(&po)
	}

	if tree == nil {
		return Empty(), nil
	}
	root, ok := tree.(*value.Map)
	if !ok {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrConfigMalformed)
	}
	if err := ValidateSchema(tree); err != nil {
		return nil, err
	}

	mocks, _ := root.Get("mocks")
	items, _ := mocks.([]any)

	set := &RuleSet{rules: make([]*Rule, 0, len(items))}
	for i, item := range items {
		rule, err := compileRule(i, item.(*value.Map), po)
		if err != nil {
			return nil, err
		}
		set.rules = append(set.rules, rule)
	}
	return set, nil
}

// ParseOption tunes rule compilation.
type ParseOption func(*parseOptions)

type parseOptions struct {
	matchTimeout time.Duration
}

// WithMatchTimeout bounds each regular expression evaluation. A timed out
// evaluation counts as a non-match.
func WithMatchTimeout(d time.Duration) ParseOption {
	return func(o *parseOptions) {
		o.matchTimeout = d
	}
}

func compileRule(index int, m *value.Map, po parseOptions) (*Rule, error) {
	rule := &Rule{Index: index}

	urlVal, _ := m.Get("url")
	rule.URL = urlVal.(string)
	methodVal, _ := m.Get("method")
	rule.Method = strings.ToUpper(methodVal.(string))

	re, err := compilePattern(`\A(?:`+rule.URL+`)\z`, po)
	if err != nil {
		return nil, fmt.Errorf("%w: mocks[%d].url %q: %v", ErrInvalidRule, index, rule.URL, err)
	}
	rule.url = re

	if headers, ok := m.Get("headers"); ok && headers != nil {
		var herr error
		headers.(*value.Map).Range(func(name string, raw any) bool {
			pattern := scalarString(raw)
			hre, err := compilePattern(pattern, po)
			if err != nil {
				herr = fmt.Errorf("%w: mocks[%d].headers.%s %q: %v", ErrInvalidRule, index, name, pattern, err)
				return false
			}
			rule.Headers = append(rule.Headers, HeaderConstraint{Name: name, Pattern: pattern, re: hre})
			return true
		})
		if herr != nil {
			return nil, herr
		}
	}

	respVal, _ := m.Get("response")
	resp := respVal.(*value.Map)
	rule.Response.Code = DefaultStatusCode
	if code, ok := resp.Get("code"); ok {
		n, err := toInt(code)
		if err != nil {
			return nil, fmt.Errorf("%w: mocks[%d].response.code: %v", ErrInvalidRule, index, err)
		}
		rule.Response.Code = n
	}
	rule.Response.Body, _ = resp.Get("msg")
	if delay, ok := resp.Get("delay"); ok && delay != nil {
		ms, err := toFloat(delay)
		if err != nil {
			return nil, fmt.Errorf("%w: mocks[%d].response.delay: %v", ErrInvalidRule, index, err)
		}
		rule.Response.Delay = time.Duration(ms * float64(time.Millisecond))
		rule.Response.Delayed = true
	}

	return rule, nil
}

// scalarString renders a YAML scalar header pattern, so `X-Version: 2`
// behaves like `X-Version: "2"`.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		if t == float64(int(t)) {
			return int(t), nil
		}
	}
	return 0, fmt.Errorf("expected an integer, got %v", v)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case float64:
		return t, nil
	}
	return 0, fmt.Errorf("expected a number, got %v", v)
}
