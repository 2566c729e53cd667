// Package intel extracts actionable scam intelligence from caller text.
//
// Two extraction surfaces share one embedded pattern file. The Extractor is
// the per-turn set the conversation engine runs on every inbound utterance;
// it must stay cheap and append-only. The Enricher is the report-time set
// with the wider pattern coverage (emails, IFSC codes, international phones)
// used when a session's intelligence is aggregated for delivery.
package intel

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/SaketSinghRajput/honeycomb/patterns"
)

// Item kinds produced by the extractors. The conversation engine and the
// report builder route items to payload fields by kind.
const (
	KindUPI          = "upi"
	KindPhone        = "phone"
	KindURL          = "url"
	KindAccount      = "account"
	KindOrganization = "organization"
	KindEmail        = "email"
	KindIFSC         = "ifsc"
)

// Item is one piece of extracted intelligence. Items accumulate on the
// session in arrival order and are deduplicated only at report time.
type Item struct {
	Kind       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// PatternFile is the YAML schema for intel.yaml.
type PatternFile struct {
	Recognizers        []RecognizerConfig `yaml:"recognizers"`
	OrgKeywords        []string           `yaml:"org_keywords"`
	OrgScore           float64            `yaml:"org_score"`
	Enrichers          []RecognizerConfig `yaml:"enrichers"`
	SuspiciousKeywords []string           `yaml:"suspicious_keywords"`
}

// RecognizerConfig defines one named recognizer with its patterns.
// Context words, when present, gate matches: a match is kept only if one
// of the words appears within ContextWindowChars of the match.
type RecognizerConfig struct {
	Name     string          `yaml:"name"`
	Kind     string          `yaml:"kind"`
	Context  []string        `yaml:"context,omitempty"`
	Patterns []PatternConfig `yaml:"patterns"`
}

// PatternConfig is a single regex with its confidence score.
type PatternConfig struct {
	Name  string  `yaml:"name"`
	Regex string  `yaml:"regex"`
	Score float64 `yaml:"score"`
}

// recognizer is the compiled runtime form. One entry per pattern.
type recognizer struct {
	name    string
	kind    string
	context []string
	pattern *regexp.Regexp
	score   float64
}

// ParsePatternFile parses YAML bytes into a PatternFile.
func ParsePatternFile(data []byte) (*PatternFile, error) {
	var pf PatternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing pattern file: %w", err)
	}
	return &pf, nil
}

// DefaultPatternFile returns the embedded intel.yaml.
func DefaultPatternFile() (*PatternFile, error) {
	return ParsePatternFile(patterns.IntelYAML())
}

// LoadPatternFile reads a pattern file from disk. Returns (nil, nil) when
// the file does not exist so callers can treat overrides as optional.
func LoadPatternFile(path string) (*PatternFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading pattern file %s: %w", path, err)
	}
	return ParsePatternFile(data)
}

// MergePatternFiles overlays override onto base. Recognizer and enricher
// lists merge by name: same-name entries replace in place so ordering is
// preserved, new entries append. Keyword lists and scores replace wholesale
// when the override sets them.
func MergePatternFiles(base, override *PatternFile) *PatternFile {
	if override == nil {
		return base
	}

	merged := &PatternFile{
		Recognizers:        mergeRecognizerLists(base.Recognizers, override.Recognizers),
		Enrichers:          mergeRecognizerLists(base.Enrichers, override.Enrichers),
		OrgKeywords:        base.OrgKeywords,
		OrgScore:           base.OrgScore,
		SuspiciousKeywords: base.SuspiciousKeywords,
	}
	if len(override.OrgKeywords) > 0 {
		merged.OrgKeywords = override.OrgKeywords
	}
	if override.OrgScore > 0 {
		merged.OrgScore = override.OrgScore
	}
	if len(override.SuspiciousKeywords) > 0 {
		merged.SuspiciousKeywords = override.SuspiciousKeywords
	}
	return merged
}

func mergeRecognizerLists(base, override []RecognizerConfig) []RecognizerConfig {
	merged := make([]RecognizerConfig, len(base))
	copy(merged, base)
	for _, o := range override {
		replaced := false
		for i := range merged {
			if merged[i].Name == o.Name {
				merged[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, o)
		}
	}
	return merged
}

// compileRecognizers compiles configs to runtime recognizers, preserving
// file order. Order matters for phone entries: earlier patterns win during
// report-time deduplication.
func compileRecognizers(configs []RecognizerConfig) ([]recognizer, error) {
	compiled := make([]recognizer, 0, len(configs))
	for _, rc := range configs {
		for _, pc := range rc.Patterns {
			re, err := regexp.Compile(pc.Regex)
			if err != nil {
				return nil, fmt.Errorf("compiling recognizer %q pattern %q: %w", rc.Name, pc.Name, err)
			}
			compiled = append(compiled, recognizer{
				name:    rc.Name,
				kind:    rc.Kind,
				context: rc.Context,
				pattern: re,
				score:   pc.Score,
			})
		}
	}
	return compiled, nil
}
