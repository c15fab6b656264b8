package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "abc", "abc"},
		{"int", int64(42), "42"},
		{"integral float", 3.0, "3.0"},
		{"float", 0.1, "0.1"},
		{"large float", 1e16, "1e+16"},
		{"small float", 1.5e-5, "1.5e-05"},
		{"true", true, "True"},
		{"false", false, "False"},
		{"nil", nil, "None"},
		{"string list", []string{"a", "b"}, "['a', 'b']"},
		{"mixed list", []any{"a", int64(1), true, nil}, "['a', 1, True, None]"},
		{"quote in list", []any{"it's"}, `['it\'s']`},
		{"empty list", []any{}, "[]"},
		{"uint", uint64(7), "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatResult(tt.in))
		})
	}
}

func TestPyDateTime(t *testing.T) {
	whole := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	assert.Equal(t, "2024-03-05 14:07:09", naiveDateTime(whole).String())

	frac := time.Date(2024, 3, 5, 14, 7, 9, 120000000, time.UTC)
	assert.Equal(t, "2024-03-05 14:07:09.120000", naiveDateTime(frac).String())

	assert.Equal(t, "2024-03-05", calendarDate(frac).String())
}

func TestTimedelta(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00:00"},
		{24 * time.Hour, "1 day, 0:00:00"},
		{49*time.Hour + 30*time.Minute, "2 days, 1:30:00"},
		{90 * time.Second, "0:01:30"},
		{1500 * time.Microsecond, "0:00:00.001500"},
		{-time.Second, "-1 day, 23:59:59"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, timedelta(tt.in).String())
		})
	}
}
