package sanitize

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rules is the configured vocabulary for cleanup. Load it once at startup and
// share it read-only.
type Rules struct {
	Preambles         []string `yaml:"preambles"`
	ForbiddenWords    []string `yaml:"forbidden_words"`
	ForbiddenPatterns []string `yaml:"forbidden_patterns"`
	HeadingOpeners    []string `yaml:"heading_openers"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	r, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded sanitize rules: %v", err))
	}
	return r
}

// ParseRules decodes a YAML rule set.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}
	return r, nil
}

// LoadRules reads rules from path, or returns the defaults when path is empty.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}
