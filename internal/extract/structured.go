package extract

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const outlineIndent = "  "

// structuredOutline renders JSON or YAML as an indented "key: value" outline,
// keeping the document's key order.
func structuredOutline(data []byte, yamlStyle bool) (string, error) {
	var lines []string

	if !yamlStyle {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()

		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("decode JSON: %w", err)
		}
		if err = outlineJSON(dec, tok, 0, &lines); err != nil {
			return "", fmt.Errorf("decode JSON: %w", err)
		}

		return strings.Join(lines, "\n"), nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return "", fmt.Errorf("decode YAML: %w", err)
	}
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		outlineYAML(root.Content[0], 0, &lines)
	}

	return strings.Join(lines, "\n"), nil
}

func outlineJSON(dec *json.Decoder, tok json.Token, level int, lines *[]string) error {
	indent := strings.Repeat(outlineIndent, level)

	delim, ok := tok.(json.Delim)
	if !ok {
		*lines = append(*lines, indent+jsonScalar(tok))
		return nil
	}

	for dec.More() {
		var key string
		if delim == '{' {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key = fmt.Sprint(keyTok)
		}

		valueTok, err := dec.Token()
		if err != nil {
			return err
		}

		_, isContainer := valueTok.(json.Delim)
		switch {
		case delim == '{' && isContainer:
			*lines = append(*lines, indent+key+":")
			err = outlineJSON(dec, valueTok, level+1, lines)
		case delim == '{':
			*lines = append(*lines, indent+key+": "+jsonScalar(valueTok))
		default:
			err = outlineJSON(dec, valueTok, level, lines)
		}
		if err != nil {
			return err
		}
	}

	// closing delimiter
	_, err := dec.Token()

	return err
}

func jsonScalar(tok json.Token) string {
	if tok == nil {
		return "null"
	}

	return fmt.Sprint(tok)
}

func outlineYAML(n *yaml.Node, level int, lines *[]string) {
	n = resolveAlias(n)
	indent := strings.Repeat(outlineIndent, level)

	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], resolveAlias(n.Content[i+1])
			if isYAMLContainer(value) {
				*lines = append(*lines, indent+key.Value+":")
				outlineYAML(value, level+1, lines)
				continue
			}
			*lines = append(*lines, indent+key.Value+": "+value.Value)
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			item = resolveAlias(item)
			if isYAMLContainer(item) {
				outlineYAML(item, level, lines)
				continue
			}
			*lines = append(*lines, indent+"- "+item.Value)
		}
	case yaml.ScalarNode:
		*lines = append(*lines, indent+n.Value)
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	return n
}

func isYAMLContainer(n *yaml.Node) bool {
	return n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode
}

// xmlOutline renders an XML tree as indented tags with attributes and text.
// Malformed XML falls back to the raw content.
func xmlOutline(data []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var lines []string
	level := 0

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return string(data)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			line := strings.Repeat(outlineIndent, level) + t.Name.Local
			if len(t.Attr) > 0 {
				attrs := make([]string, 0, len(t.Attr))
				for _, a := range t.Attr {
					attrs = append(attrs, fmt.Sprintf("%s=%q", a.Name.Local, a.Value))
				}
				line += " [" + strings.Join(attrs, " ") + "]"
			}
			lines = append(lines, line)
			level++
		case xml.EndElement:
			level = max(level-1, 0)
		case xml.CharData:
			if text := strings.TrimSpace(string(t)); text != "" {
				lines = append(lines, strings.Repeat(outlineIndent, level)+text)
			}
		}
	}

	if len(lines) == 0 {
		return string(data)
	}

	return strings.Join(lines, "\n")
}
