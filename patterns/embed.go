// Package patterns provides embedded default rule definitions.
// The YAML files in this directory define the outbound safety rules and the
// inbound intelligence recognizers in a Presidio-style pattern format.
package patterns

import _ "embed"

//go:embed safety.yaml
var safetyYAML []byte

//go:embed intel.yaml
var intelYAML []byte

// SafetyYAML returns the embedded default safety rule definitions.
func SafetyYAML() []byte { return safetyYAML }

// IntelYAML returns the embedded default intelligence recognizer definitions.
func IntelYAML() []byte { return intelYAML }
