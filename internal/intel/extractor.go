package intel

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	hcotel "github.com/SaketSinghRajput/honeycomb/internal/otel"
)

var tracer = hcotel.Tracer("github.com/SaketSinghRajput/honeycomb/internal/intel")

// ContextWindowChars is the number of characters searched before and after
// an account-number match when looking for banking context words.
const ContextWindowChars = 40

// Extractor is the per-turn recognizer set. It runs on every inbound caller
// utterance, so it carries only the cheap patterns. Account numbers are
// accepted through the context-gated rule when one is configured; the bare
// digit rule is the lower-confidence fallback.
type Extractor struct {
	recognizers []recognizer
	bareAccount *recognizer
	contextual  *recognizer
	orgKeywords []string
	orgScore    float64
}

// Option configures pattern loading for NewExtractor and NewEnricher.
type Option func(*loadConfig)

type loadConfig struct {
	file     *PatternFile
	filePath string
}

// WithPatternFile layers a pattern file from disk over the embedded
// defaults. A missing file is silently skipped.
func WithPatternFile(path string) Option {
	return func(c *loadConfig) { c.filePath = path }
}

// WithPatterns uses the given pattern file verbatim, bypassing the embedded
// defaults entirely.
func WithPatterns(pf *PatternFile) Option {
	return func(c *loadConfig) { c.file = pf }
}

// loadPatterns resolves the effective pattern file from options.
func loadPatterns(opts []Option) (*PatternFile, error) {
	var cfg loadConfig
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.file != nil {
		return cfg.file, nil
	}

	base, err := DefaultPatternFile()
	if err != nil {
		return nil, fmt.Errorf("loading default patterns: %w", err)
	}

	if cfg.filePath != "" {
		override, err := LoadPatternFile(cfg.filePath)
		if err != nil {
			return nil, fmt.Errorf("loading pattern file: %w", err)
		}
		if override != nil {
			base = MergePatternFiles(base, override)
		}
	}

	return base, nil
}

// NewExtractor builds the per-turn extractor. Without options it uses the
// embedded intel.yaml.
func NewExtractor(opts ...Option) (*Extractor, error) {
	pf, err := loadPatterns(opts)
	if err != nil {
		return nil, err
	}

	compiled, err := compileRecognizers(pf.Recognizers)
	if err != nil {
		return nil, err
	}

	x := &Extractor{
		orgKeywords: pf.OrgKeywords,
		orgScore:    pf.OrgScore,
	}
	for i := range compiled {
		rec := compiled[i]
		if rec.kind == KindAccount && x.bareAccount == nil {
			x.bareAccount = &rec
			continue
		}
		x.recognizers = append(x.recognizers, rec)
	}

	// The context-gated account rule lives in the enricher set but takes
	// precedence over the bare fallback when present.
	enriched, err := compileRecognizers(pf.Enrichers)
	if err != nil {
		return nil, err
	}
	for i := range enriched {
		if enriched[i].kind == KindAccount && len(enriched[i].context) > 0 {
			x.contextual = &enriched[i]
			break
		}
	}

	return x, nil
}

// MustNewExtractor is like NewExtractor but panics on error. Useful for
// zero-config startup where the embedded defaults are expected to compile.
func MustNewExtractor(opts ...Option) *Extractor {
	x, err := NewExtractor(opts...)
	if err != nil {
		panic(fmt.Sprintf("intel.NewExtractor: %v", err))
	}
	return x
}

// RecognizerCount reports how many compiled recognizers run per utterance.
// The account rule counts once whichever variant is active.
func (x *Extractor) RecognizerCount() int {
	n := len(x.recognizers)
	if x.bareAccount != nil || x.contextual != nil {
		n++
	}
	return n
}

// Extract runs all recognizers over a single caller utterance. Items are
// returned in recognizer order; values are not deduplicated here because
// sessions accumulate raw observations and dedupe at report time.
func (x *Extractor) Extract(ctx context.Context, utterance string) []Item {
	_, span := tracer.Start(ctx, "intel.extract")
	defer span.End()

	var items []Item
	for _, rec := range x.recognizers {
		for _, value := range rec.pattern.FindAllString(utterance, -1) {
			if rec.kind == KindPhone {
				value = NormalizePhone(value)
			}
			items = append(items, Item{Kind: rec.kind, Value: value, Confidence: rec.score})
		}
	}

	items = append(items, x.extractAccounts(utterance)...)

	lowered := strings.ToLower(utterance)
	for _, kw := range x.orgKeywords {
		if strings.Contains(lowered, kw) {
			items = append(items, Item{Kind: KindOrganization, Value: utterance, Confidence: x.orgScore})
			break
		}
	}

	span.SetAttributes(attribute.Int("intel.item_count", len(items)))
	return items
}

// extractAccounts applies the context-gated account rule, falling back to
// the bare digit rule when no gated rule is configured.
func (x *Extractor) extractAccounts(utterance string) []Item {
	if x.contextual != nil {
		var items []Item
		for _, loc := range x.contextual.pattern.FindAllStringIndex(utterance, -1) {
			if !hasContext(utterance, loc[0], loc[1], x.contextual.context) {
				continue
			}
			items = append(items, Item{
				Kind:       KindAccount,
				Value:      utterance[loc[0]:loc[1]],
				Confidence: x.contextual.score,
			})
		}
		return items
	}

	if x.bareAccount == nil {
		return nil
	}
	var items []Item
	for _, value := range x.bareAccount.pattern.FindAllString(utterance, -1) {
		items = append(items, Item{Kind: KindAccount, Value: value, Confidence: x.bareAccount.score})
	}
	return items
}

// hasContext reports whether any context word appears within the window
// around the match at [start, end).
func hasContext(text string, start, end int, words []string) bool {
	lo := start - ContextWindowChars
	if lo < 0 {
		lo = 0
	}
	hi := end + ContextWindowChars
	if hi > len(text) {
		hi = len(text)
	}
	window := strings.ToLower(text[lo:hi])
	for _, w := range words {
		if strings.Contains(window, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// NormalizePhone canonicalizes a matched phone number: separators are
// stripped, a bare 10-digit Indian mobile gets the +91 prefix, and numbers
// already carrying +91 pass through unchanged.
func NormalizePhone(raw string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(raw)
	if strings.HasPrefix(cleaned, "+91") {
		return cleaned
	}
	if len(cleaned) == 10 && cleaned[0] >= '6' && cleaned[0] <= '9' {
		return "+91" + cleaned
	}
	return cleaned
}
