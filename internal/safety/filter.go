// Package safety screens every candidate utterance before it leaves the
// honeypot persona. A rule match replaces the whole utterance with that
// rule's deflection, so the caller hears a confused refusal instead of
// whatever the model drafted. The filter is pure string-in string-out
// and holds no session state.
package safety

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	hcotel "github.com/SaketSinghRajput/honeycomb/internal/otel"
)

var tracer = hcotel.Tracer("github.com/SaketSinghRajput/honeycomb/internal/safety")

// NumericLeakRuleName identifies the secondary digit-run check in filter
// results. It runs only when no listed rule matched.
const NumericLeakRuleName = "numeric_leak"

// Filter applies outbound safety rules to candidate utterances.
type Filter struct {
	rules       []Rule
	numericLeak *Rule
}

// FilterOption configures a Filter via the functional options pattern.
type FilterOption func(*filterConfig)

type filterConfig struct {
	ruleFile string
}

// WithRuleFile loads override rules from a YAML file layered onto the
// embedded defaults. If the file does not exist, it is silently skipped.
func WithRuleFile(path string) FilterOption {
	return func(c *filterConfig) { c.ruleFile = path }
}

// NewFilter creates a safety filter. Without options it uses the embedded
// defaults; WithRuleFile layers operator overrides on top.
func NewFilter(opts ...FilterOption) (*Filter, error) {
	var cfg filterConfig
	for _, o := range opts {
		o(&cfg)
	}

	// Layer 1: embedded defaults
	defaults, err := DefaultRuleFile()
	if err != nil {
		return nil, fmt.Errorf("loading default safety rules: %w", err)
	}

	// Layer 2: operator override file (optional)
	merged := defaults.Rules
	leak := defaults.NumericLeak
	if cfg.ruleFile != "" {
		rf, err := LoadRuleFile(cfg.ruleFile)
		if err != nil {
			return nil, fmt.Errorf("loading safety rule file: %w", err)
		}
		if rf != nil {
			merged = MergeRules(defaults.Rules, rf.Rules)
			if rf.NumericLeak != nil {
				leak = rf.NumericLeak
			}
		}
	}

	rules, err := CompileRules(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling safety rules: %w", err)
	}

	f := &Filter{rules: rules}
	if leak != nil && leak.isEnabled() {
		compiled, err := CompileRules([]RuleConfig{{
			Name:     NumericLeakRuleName,
			Regex:    leak.Regex,
			Fallback: leak.Fallback,
		}})
		if err != nil {
			return nil, fmt.Errorf("compiling numeric leak rule: %w", err)
		}
		f.numericLeak = &compiled[0]
	}
	return f, nil
}

// MustNewFilter is like NewFilter but panics on error. Useful for
// zero-config startup where the embedded defaults are expected to
// always compile.
func MustNewFilter(opts ...FilterOption) *Filter {
	f, err := NewFilter(opts...)
	if err != nil {
		panic(fmt.Sprintf("safety.NewFilter: %v", err))
	}
	return f
}

// Apply screens an utterance against the rules in order. The first match
// replaces the whole utterance with that rule's fallback; when no listed
// rule matches, the numeric leak check catches account-sized digit runs.
// Returns the safe utterance and the name of the matched rule ("" when
// the utterance passed unchanged).
func (f *Filter) Apply(ctx context.Context, utterance string) (string, string) {
	_, span := tracer.Start(ctx, "safety.apply")
	defer span.End()

	for _, rule := range f.rules {
		if rule.Pattern.MatchString(utterance) {
			span.SetAttributes(
				attribute.Bool("safety.replaced", true),
				attribute.String("safety.rule", rule.Name),
			)
			return rule.Fallback, rule.Name
		}
	}

	if f.numericLeak != nil && f.numericLeak.Pattern.MatchString(utterance) {
		span.SetAttributes(
			attribute.Bool("safety.replaced", true),
			attribute.String("safety.rule", f.numericLeak.Name),
		)
		return f.numericLeak.Fallback, f.numericLeak.Name
	}

	span.SetAttributes(attribute.Bool("safety.replaced", false))
	return utterance, ""
}

// RuleCount returns the number of active rules, excluding the numeric
// leak check.
func (f *Filter) RuleCount() int {
	return len(f.rules)
}
