package grammar

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Named is a definition from a render document, keyed by its output name.
type Named struct {
	Name       string
	Definition *Definition
}

// ParseDocument decodes a render document of the form
//
//	charts:
//	  name: {definition}
//
// Charts are returned in document order.
func ParseDocument(data []byte) ([]Named, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("grammar: parse document: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("grammar: render document must be a mapping")
	}

	var charts *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "charts" {
			charts = root.Content[i+1]
		}
	}
	if charts == nil || charts.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("grammar: render document needs a charts mapping")
	}

	out := make([]Named, 0, len(charts.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(charts.Content); i += 2 {
		name := charts.Content[i].Value
		if seen[name] {
			return nil, fmt.Errorf("grammar: duplicate chart name %q", name)
		}
		seen[name] = true
		def, err := decodeDefinition(charts.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("chart %q: %w", name, err)
		}
		out = append(out, Named{Name: name, Definition: def})
	}
	return out, nil
}

// ParseDocumentFile decodes a render document from path.
func ParseDocumentFile(path string) ([]Named, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("grammar: %w", err)
	}
	return ParseDocument(data)
}
