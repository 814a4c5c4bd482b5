package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// QueryParam is one profile query parameter. Values holds a single element
// for scalars; List marks sequence values, which encode as key[]=.
type QueryParam struct {
	Key    string
	Values []string
	List   bool
}

// Query keeps query parameters in file order.
type Query []QueryParam

// UnmarshalYAML reads a mapping of scalars and sequences of scalars.
func (q *Query) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: query must be a mapping", node.Line)
	}

	out := make(Query, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		switch val.Kind {
		case yaml.ScalarNode:
			if val.Tag == "!!null" {
				continue
			}
			out = append(out, QueryParam{Key: key.Value, Values: []string{val.Value}})
		case yaml.SequenceNode:
			values := make([]string, 0, len(val.Content))
			for _, item := range val.Content {
				if item.Kind != yaml.ScalarNode {
					return fmt.Errorf("line %d: query %q may only list scalars", item.Line, key.Value)
				}
				values = append(values, item.Value)
			}
			out = append(out, QueryParam{Key: key.Value, Values: values, List: true})
		default:
			return fmt.Errorf("line %d: query %q must be a scalar or a list", val.Line, key.Value)
		}
	}

	*q = out
	return nil
}

// MarshalYAML writes the parameters back as a mapping.
func (q Query) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range q {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: p.Key}
		var val *yaml.Node
		if p.List {
			val = &yaml.Node{Kind: yaml.SequenceNode}
			for _, v := range p.Values {
				val.Content = append(val.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
			}
		} else {
			val = &yaml.Node{Kind: yaml.ScalarNode, Value: p.Values[0]}
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// merge overrides parameters by key, appending new ones.
func (q Query) merge(other Query) Query {
	if len(q) == 0 && len(other) == 0 {
		return nil
	}
	out := append(Query(nil), q...)
	for _, p := range other {
		replaced := false
		for i := range out {
			if out[i].Key == p.Key {
				out[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}
