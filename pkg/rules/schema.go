package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pretender-dev/pretender/pkg/value"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "rules.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add rule schema: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// Schema returns the JSON schema rule files are validated against.
func Schema() string {
	return schemaJSON
}

// ValidateSchema checks a decoded rule tree against the rule schema.
// All violations are reported, one per line.
func ValidateSchema(tree any) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so YAML-only scalars such as timestamps
	// become plain JSON values.
	raw, err := value.Encode(tree)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	var msgs []string
	collectViolations(verr, &msgs)
	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}

func collectViolations(err *jsonschema.ValidationError, out *[]string) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, loc+": "+err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectViolations(cause, out)
	}
}
