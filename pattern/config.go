package pattern

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk rule file layout.
type File struct {
	Version int    `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// LoadFile reads a YAML rule file and compiles it into a Table.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("pattern: parse %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("pattern: %s contains no rules", path)
	}

	return Compile(f.Rules)
}
