package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a YAML document to JSON text. Mapping keys keep their
// document order so property order survives the conversion.
func FromYAML(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	if err := writeYAML(&b, &doc); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// DecodeYAML parses a JSON schema written as YAML.
func DecodeYAML(data []byte) (*Schema, error) {
	j, err := FromYAML(data)
	if err != nil {
		return nil, err
	}
	return Decode(j)
}

func writeYAML(b *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case 0:
		b.WriteString("null")
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			b.WriteString("null")
			return nil
		}
		return writeYAML(b, n.Content[0])
	case yaml.AliasNode:
		return writeYAML(b, n.Alias)
	case yaml.MappingNode:
		b.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				b.WriteByte(',')
			}

			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			b.Write(key)
			b.WriteByte(':')

			if err := writeYAML(b, n.Content[i+1]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case yaml.SequenceNode:
		b.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeYAML(b, c); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}

		text, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		b.Write(text)
	default:
		return fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}

	return nil
}
