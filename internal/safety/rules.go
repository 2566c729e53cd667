package safety

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/SaketSinghRajput/honeycomb/patterns"
)

// RuleFile is the top-level YAML structure for a safety rule file.
type RuleFile struct {
	Rules       []RuleConfig `yaml:"rules"`
	NumericLeak *RuleConfig  `yaml:"numeric_leak,omitempty"`
}

// RuleConfig is a single outbound safety rule. Rules are evaluated in
// file order and the first match wins, so order is part of the config.
type RuleConfig struct {
	Name     string `yaml:"name"`
	Regex    string `yaml:"regex"`
	Fallback string `yaml:"fallback"`
	Enabled  *bool  `yaml:"enabled,omitempty"`
}

// isEnabled returns true if the rule is enabled (defaults to true when nil).
func (r *RuleConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// Rule is a compiled, ready-to-use safety rule.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Fallback string
}

// ParseRuleFile parses safety rule YAML bytes into a RuleFile.
func ParseRuleFile(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing safety rule YAML: %w", err)
	}
	return &rf, nil
}

// LoadRuleFile reads and parses a safety rule YAML file from disk.
// Returns nil (not an error) if the file does not exist, so callers can
// treat a missing override file as a no-op.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading safety rule file %s: %w", path, err)
	}
	return ParseRuleFile(data)
}

// DefaultRuleFile returns the built-in safety rules parsed from the
// embedded safety.yaml file. This is the first layer in the merge chain.
func DefaultRuleFile() (*RuleFile, error) {
	rf, err := ParseRuleFile(patterns.SafetyYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded safety rules: %w", err)
	}
	return rf, nil
}

// MergeRules layers override rules onto the defaults. Later layers
// override earlier ones by matching on the rule Name field, preserving
// the position (and therefore precedence) of the first appearance. New
// rules are appended after the defaults.
func MergeRules(layers ...[]RuleConfig) []RuleConfig {
	index := make(map[string]int)
	var merged []RuleConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, rc)
			}
		}
	}

	return merged
}

// CompileRules converts rule configs into the compiled []Rule slice used
// by the Filter at runtime. Disabled rules are skipped.
func CompileRules(configs []RuleConfig) ([]Rule, error) {
	var rules []Rule
	for _, rc := range configs {
		if !rc.isEnabled() {
			continue
		}
		compiled, err := regexp.Compile(rc.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling safety rule %q: %w", rc.Name, err)
		}
		rules = append(rules, Rule{
			Name:     rc.Name,
			Pattern:  compiled,
			Fallback: rc.Fallback,
		})
	}
	return rules, nil
}
