package access

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads a YAML rule file and compiles it. Any syntax error,
// invalid rule, or pattern ambiguity fails the load as a whole.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	return Parse(data)
}

// Parse compiles a YAML rule document.
func Parse(data []byte) (*RuleSet, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rule file declares no rules")
	}
	rs, err := Compile(f.Rules)
	if err != nil {
		return nil, fmt.Errorf("compiling rules: %w", err)
	}
	return rs, nil
}
