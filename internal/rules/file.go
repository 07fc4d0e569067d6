package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is a rules file: a named validation of one table pair. JSON files
// are read with the same decoder.
//
//	name: orders nightly
//	source: {connection: src_mysql, table: sales.orders}
//	target: {connection: dw_bq, table: dw.sales.orders}
//	rules:
//	  - type: count
//	  - type: sum
//	    column: amount
type File struct {
	Name   string   `yaml:"name,omitempty"`
	Source Endpoint `yaml:"source,omitempty"`
	Target Endpoint `yaml:"target,omitempty"`
	Rules  []Rule   `yaml:"rules"`
}

// Endpoint is one side of a rules file.
type Endpoint struct {
	Connection string   `yaml:"connection,omitempty"`
	Table      TableRef `yaml:"table,omitempty"`
}

// LoadFile reads a rules file. A file holding only a top-level list is
// accepted as the rule list.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes rules file content.
func ParseFile(data []byte) (*File, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}

	f := &File{}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&f.Rules); err != nil {
			return nil, fmt.Errorf("parsing rules list: %w", err)
		}
		return f, nil
	}
	if err := node.Decode(f); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return f, nil
}
