package rules

import "fmt"

// Outcome kinds, also used as metric and log labels.
const (
	KindNoMatch  = "no_match"
	KindRejected = "rejected"
	KindMatched  = "matched"
)

// MatchOutcome is the result of matching one request. It is one of
// NoMatch, HeaderRejected or Matched.
type MatchOutcome interface {
	Kind() string
	outcome()
}

// NoMatch means no rule selected the request; it should be forwarded.
type NoMatch struct{}

// HeaderRejected means the first rule whose URL and method matched had a
// header constraint the request did not satisfy. Later rules are not tried.
type HeaderRejected struct {
	Rule *Rule
	// Header is the header name as written in the rule.
	Header  string
	Actual  string
	Pattern string
}

// Matched means Rule selected the request and its response should be served.
type Matched struct {
	Rule *Rule
}

func (NoMatch) Kind() string        { return KindNoMatch }
func (HeaderRejected) Kind() string { return KindRejected }
func (Matched) Kind() string        { return KindMatched }

func (NoMatch) outcome()        {}
func (HeaderRejected) outcome() {}
func (Matched) outcome()        {}

// Message describes the failed constraint.
func (h HeaderRejected) Message() string {
	return fmt.Sprintf("Header validation failed: %s=%s, expected pattern: %s", h.Header, h.Actual, h.Pattern)
}

// Response returns the matched rule's response.
func (m Matched) Response() Response {
	return m.Rule.Response
}
