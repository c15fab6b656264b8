package template

import (
	"regexp"
	"strconv"
	"strings"
)

// tokenRegex matches {{name(.name)*}} and {{name(.name)*:params}}.
// Word characters include Unicode letters and digits.
var tokenRegex = regexp.MustCompile(`\{\{([\p{L}\p{N}_]+(?:\.[\p{L}\p{N}_]+)*)(?::([^}]+))?\}\}`)

var (
	stringParamPattern = regexp.MustCompile(`"([^"]*)"`)
	numberParamPattern = regexp.MustCompile(`-?\b\d+(?:\.\d+)?\b`)
	boolParamPattern   = regexp.MustCompile(`(?i)\b(?:true|false)\b`)
)

// Token is one parsed {{...}} occurrence.
type Token struct {
	// Raw is the full matched text including braces.
	Raw string
	// Name is the dotted name, e.g. "faker.name".
	Name string
	// Namespace and Method are set when Name starts with a known namespace prefix.
	Namespace string
	Method    string
	// Params is the raw text after the colon.
	Params    string
	HasParams bool
}

// parseToken builds a Token from a tokenRegex submatch index slice.
func parseToken(s string, loc []int) Token {
	tok := Token{
		Raw:  s[loc[0]:loc[1]],
		Name: s[loc[2]:loc[3]],
	}
	if loc[4] >= 0 {
		tok.Params = s[loc[4]:loc[5]]
		tok.HasParams = true
	}
	return tok
}

// Args holds positional generator arguments. Elements are string, int64,
// float64 or bool.
type Args []any

// ParseParams extracts positional arguments from a parameter list.
//
// Quoted strings come first, then numbers, then booleans, regardless of
// where they appeared. Numbers and booleans inside quotes are not counted.
func ParseParams(params string) Args {
	var args Args

	for _, m := range stringParamPattern.FindAllStringSubmatch(params, -1) {
		args = append(args, m[1])
	}

	rest := stringParamPattern.ReplaceAllString(params, " ")

	for _, lit := range numberParamPattern.FindAllString(rest, -1) {
		if strings.Contains(lit, ".") {
			if f, err := strconv.ParseFloat(lit, 64); err == nil {
				args = append(args, f)
			}
			continue
		}
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			args = append(args, n)
		}
	}

	for _, lit := range boolParamPattern.FindAllString(rest, -1) {
		args = append(args, strings.EqualFold(lit, "true"))
	}

	return args
}
