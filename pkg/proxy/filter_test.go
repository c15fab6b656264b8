package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseFilter(t *testing.T) {
	f := NewNoiseFilter(DefaultNoisePatterns)

	tests := []struct {
		url  string
		want bool
	}{
		{"http://example.com/favicon.ico", true},
		{"http://example.com/FAVICON.ICO", true},
		{"http://example.com/robots.txt", true},
		{"http://svc.local/healthz", true},
		{"http://svc.local/api/ping", true},
		{"http://svc.local/readiness-probe", true},
		{"http://example.com/.well-known/openid-configuration", true},
		{"http://status.example.com/api/users", true},
		{"http://example.com/api/orders?include=status", true},
		{"http://example.com/api/users", false},
		{"http://example.com/", false},
		{"https://www.example.com/api/test", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsNoise(tt.url))
		})
	}
}

func TestNoiseFilterEmpty(t *testing.T) {
	t.Run("nil filter never matches", func(t *testing.T) {
		var f *NoiseFilter
		assert.False(t, f.IsNoise("http://example.com/favicon.ico"))
		assert.Nil(t, f.Patterns())
	})

	t.Run("blank patterns are dropped", func(t *testing.T) {
		f := NewNoiseFilter([]string{"", "  ", "Metrics"})
		assert.Equal(t, []string{"metrics"}, f.Patterns())
		assert.True(t, f.IsNoise("http://example.com/metrics"))
		assert.False(t, f.IsNoise("http://example.com/favicon.ico"))
	})
}
