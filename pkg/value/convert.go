package value

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedNode is returned when a YAML node cannot be represented in a tree.
var ErrUnsupportedNode = errors.New("unsupported YAML node")

// maxAliasDepth bounds alias expansion so self-referencing anchors cannot recurse forever.
const maxAliasDepth = 64

// DecodeYAML parses a YAML document into a tree. An empty document yields nil.
func DecodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return FromYAML(&doc)
}

// FromYAML converts a decoded YAML node into a tree, preserving mapping key order.
func FromYAML(node *yaml.Node) (any, error) {
	return fromYAML(node, 0)
}

func fromYAML(node *yaml.Node, depth int) (any, error) {
	if node == nil {
		return nil, nil
	}
	if depth > maxAliasDepth {
		return nil, fmt.Errorf("%w: alias nesting too deep at line %d", ErrUnsupportedNode, node.Line)
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return fromYAML(node.Content[0], depth)

	case yaml.AliasNode:
		return fromYAML(node.Alias, depth+1)

	case yaml.MappingNode:
		m := NewMap(len(node.Content) / 2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valNode := node.Content[i], node.Content[i+1]

			if keyNode.Tag == "!!merge" {
				if err := mergeInto(m, valNode, depth+1); err != nil {
					return nil, err
				}
				continue
			}

			var key string
			if err := keyNode.Decode(&key); err != nil {
				return nil, fmt.Errorf("%w: non-string key at line %d", ErrUnsupportedNode, keyNode.Line)
			}
			val, err := fromYAML(valNode, depth)
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		return m, nil

	case yaml.SequenceNode:
		seq := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			val, err := fromYAML(item, depth)
			if err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil

	case yaml.ScalarNode:
		var val any
		if err := node.Decode(&val); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedNode, err)
		}
		return val, nil
	}

	return nil, fmt.Errorf("%w: kind %d at line %d", ErrUnsupportedNode, node.Kind, node.Line)
}

// mergeInto applies a YAML merge key (<<) without overriding explicit keys.
func mergeInto(m *Map, node *yaml.Node, depth int) error {
	src, err := fromYAML(node, depth)
	if err != nil {
		return err
	}

	var sources []*Map
	switch v := src.(type) {
	case *Map:
		sources = append(sources, v)
	case []any:
		for _, item := range v {
			if sm, ok := item.(*Map); ok {
				sources = append(sources, sm)
			}
		}
	default:
		return fmt.Errorf("%w: merge value at line %d is not a mapping", ErrUnsupportedNode, node.Line)
	}

	for _, sm := range sources {
		sm.Range(func(key string, val any) bool {
			if _, exists := m.Get(key); !exists {
				m.Set(key, val)
			}
			return true
		})
	}
	return nil
}

// Plain converts a tree into plain Go maps and slices, dropping key order.
// Schema validators and other order-agnostic consumers use this form.
func Plain(v any) any {
	switch t := v.(type) {
	case *Map:
		out := make(map[string]any, t.Len())
		t.Range(func(key string, val any) bool {
			out[key] = Plain(val)
			return true
		})
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Plain(item)
		}
		return out
	default:
		return v
	}
}

// Encode serialises a tree as UTF-8 JSON without HTML escaping.
func Encode(v any) ([]byte, error) {
	return json.MarshalWithOption(v, json.DisableHTMLEscape())
}
