package proxy

import (
	"strings"
)

// DefaultNoisePatterns lists URL fragments that browsers, load balancers
// and orchestrators request on their own.
var DefaultNoisePatterns = []string{
	"favicon.ico",
	"robots.txt",
	"health",
	"ping",
	"probe",
	"healthcheck",
	"status",
	".well-known",
}

// NoiseFilter recognizes requests that get a canned 404 instead of being
// matched or forwarded.
type NoiseFilter struct {
	patterns []string
}

// NewNoiseFilter creates a filter from case-insensitive substrings. Empty
// patterns are ignored so they cannot match everything.
func NewNoiseFilter(patterns []string) *NoiseFilter {
	f := &NoiseFilter{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			f.patterns = append(f.patterns, p)
		}
	}
	return f
}

// IsNoise reports whether any pattern occurs anywhere in the full URL.
// A host or query containing a pattern counts as well.
func (f *NoiseFilter) IsNoise(url string) bool {
	if f == nil || len(f.patterns) == 0 {
		return false
	}
	lower := strings.ToLower(url)
	for _, p := range f.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Patterns returns the normalized pattern list.
func (f *NoiseFilter) Patterns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)
	return out
}
