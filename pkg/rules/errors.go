package rules

import "errors"

var (
	// ErrConfigNotFound is returned when the rule file does not exist.
	ErrConfigNotFound = errors.New("rule file not found")

	// ErrConfigRead is returned when the rule file exists but cannot be read.
	ErrConfigRead = errors.New("failed to read rule file")

	// ErrConfigMalformed is returned when the rule file is not valid YAML
	// or its top level is not a mapping.
	ErrConfigMalformed = errors.New("malformed rule file")

	// ErrSchemaViolation is returned when the rule file does not have the
	// expected structure.
	ErrSchemaViolation = errors.New("rule file does not match schema")

	// ErrInvalidRule is returned when a rule is structurally valid but
	// cannot be compiled, e.g. a bad regular expression.
	ErrInvalidRule = errors.New("invalid rule")
)
