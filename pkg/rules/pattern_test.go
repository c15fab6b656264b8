package rules

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslatePattern(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `^http://a\.test/\d+$`, `^http://a\.test/\d+$`},
		{"named group", `/(?P<id>\d+)$`, `/(?<id>\d+)$`},
		{"named backreference", `(?P<w>\w+)-(?P=w)`, `(?<w>\w+)-\k<w>`},
		{"end of string", `abc\Z`, `abc\z`},
		{"escaped paren", `\(?P<x>`, `\(?P<x>`},
		{"escaped backslash before Z", `a\\Z`, `a\\Z`},
		{"inside class", `[(?P<]x(?P<n>y)`, `[(?P<]x(?<n>y)`},
		{"literal bracket first in class", `[]?P<](?P<n>y)`, `[]?P<](?<n>y)`},
		{"unterminated backreference", `(?P=w`, `(?P=w`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translatePattern(tt.in))
		})
	}
}

func TestRuleSet_NamedGroupPatterns(t *testing.T) {
	set := mustLoad(t, `
mocks:
  - url: ^http://a\.test/(?P<id>\d+)/(?P=id)$
    method: GET
    response: {msg: same}
  - url: ^http://a\.test/users/(?P<id>\d+)$
    method: GET
    headers:
      Authorization: ^(?P<scheme>Bearer) \w+\Z
    response: {msg: user}
`)
	require.Equal(t, 2, set.Len())

	assert.Equal(t, KindMatched, set.Match("http://a.test/7/7", "GET", nil).Kind())
	assert.Equal(t, KindNoMatch, set.Match("http://a.test/7/8", "GET", nil).Kind())

	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	assert.Equal(t, KindMatched, set.Match("http://a.test/users/3", "GET", h).Kind())

	h.Set("Authorization", "Bearer abc\n")
	assert.Equal(t, KindRejected, set.Match("http://a.test/users/3", "GET", h).Kind())
}
