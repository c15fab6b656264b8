// Package synth turns a matched rule's response into a status code and a
// JSON body.
package synth

import (
	"errors"
	"fmt"

	"github.com/pretender-dev/pretender/pkg/rules"
	"github.com/pretender-dev/pretender/pkg/template"
	"github.com/pretender-dev/pretender/pkg/value"
)

// ContentType is the content type of every synthesized body.
const ContentType = "application/json; charset=utf-8"

// ErrEncode is returned when an expanded body cannot be serialized.
var ErrEncode = errors.New("failed to encode response body")

// Result is a rendered mock response.
type Result struct {
	Status int
	Body   []byte
}

// Synthesizer renders rule responses through a template engine.
type Synthesizer struct {
	engine *template.Engine
}

// New creates a Synthesizer. A nil engine gets a default one.
func New(engine *template.Engine) *Synthesizer {
	if engine == nil {
		engine = template.New()
	}
	return &Synthesizer{engine: engine}
}

// Engine returns the template engine used for rendering.
func (s *Synthesizer) Engine() *template.Engine {
	return s.engine
}

// Render expands resp's body template and serializes it as UTF-8 JSON.
// The rule itself is never modified.
func (s *Synthesizer) Render(resp rules.Response) (Result, error) {
	body, err := value.Encode(s.engine.Expand(resp.Body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	status := resp.Code
	if status == 0 {
		status = rules.DefaultStatusCode
	}
	return Result{Status: status, Body: body}, nil
}
