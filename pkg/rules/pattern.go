package rules

import (
	"strings"

	"github.com/dlclark/regexp2"
)

func compilePattern(expr string, po parseOptions) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(translatePattern(expr), regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = po.matchTimeout
	return re, nil
}

// translatePattern rewrites the constructs rule files write in the P-style
// syntax into the spelling regexp2 understands: (?P<name>...) becomes
// (?<name>...), (?P=name) becomes \k<name> and \Z becomes \z. Escaped
// characters and character classes are copied untouched.
func translatePattern(expr string) string {
	if !strings.Contains(expr, "(?P") && !strings.Contains(expr, `\Z`) {
		return expr
	}

	var sb strings.Builder
	sb.Grow(len(expr))
	inClass := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '\\' && i+1 < len(expr):
			if !inClass && expr[i+1] == 'Z' {
				sb.WriteString(`\z`)
			} else {
				sb.WriteString(expr[i : i+2])
			}
			i++
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			// A ']' directly after '[' or '[^' is a literal member.
			j := i + 1
			if j < len(expr) && expr[j] == '^' {
				j++
			}
			if j < len(expr) && expr[j] == ']' {
				sb.WriteString(expr[i : j+1])
				i = j
				continue
			}
		case strings.HasPrefix(expr[i:], "(?P<"):
			sb.WriteString("(?<")
			i += len("(?P<") - 1
			continue
		case strings.HasPrefix(expr[i:], "(?P="):
			if end := strings.IndexByte(expr[i:], ')'); end > len("(?P=") {
				sb.WriteString(`\k<`)
				sb.WriteString(expr[i+len("(?P=") : i+end])
				sb.WriteByte('>')
				i += end
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
