package rules

import "net/http"

// RuleSet is an immutable, ordered list of compiled rules.
type RuleSet struct {
	rules []*Rule
}

// Empty returns a RuleSet with no rules. Every request forwards.
func Empty() *RuleSet {
	return &RuleSet{}
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Rules returns a copy of the rule list.
func (s *RuleSet) Rules() []*Rule {
	if s == nil {
		return nil
	}
	out := make([]*Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Match finds the first rule whose URL pattern matches the whole url and
// whose method equals method, ignoring case. Its header constraints decide
// between Matched and HeaderRejected; no later rule is considered.
// Header names are looked up case-insensitively and an absent header
// counts as an empty value.
func (s *RuleSet) Match(url, method string, headers http.Header) MatchOutcome {
	if s == nil {
		return NoMatch{}
	}
	for _, rule := range s.rules {
		if !rule.matchesRequest(url, method) {
			continue
		}
		for _, hc := range rule.Headers {
			actual := headers.Get(hc.Name)
			if ok, err := hc.re.MatchString(actual); err != nil || !ok {
				return HeaderRejected{Rule: rule, Header: hc.Name, Actual: actual, Pattern: hc.Pattern}
			}
		}
		return Matched{Rule: rule}
	}
	return NoMatch{}
}
