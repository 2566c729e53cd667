package intel

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// MaxTranscriptChars bounds the transcript length accepted by the rich
// extractor. Longer inputs are rejected rather than truncated.
const MaxTranscriptChars = 50000

// Category confidence reported when a pattern group has matches. Account
// numbers score lower because the digit pattern is inherently ambiguous.
const (
	patternConfidence = 0.95
	accountConfidence = 0.7
)

// ErrInvalidTranscript signals an empty or oversized transcript.
var ErrInvalidTranscript = errors.New("invalid transcript")

// High-risk indicator labels emitted by the rich extractor.
const (
	RiskMultipleUPIIDs = "multiple_upi_ids"
	RiskForeignPhone   = "foreign_phone_number"
)

// CallbackIntelligence is the per-session intelligence block of the callback
// payload. Field names follow the receiving service's JSON contract.
type CallbackIntelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// RichResult is the full extraction report returned by Rich.Extract.
type RichResult struct {
	Entities     map[string][]string `json:"entities"`
	Intelligence Intelligence        `json:"scammer_intelligence"`
	Confidence   map[string]float64  `json:"confidence_scores"`
}

// Intelligence summarizes extracted entities into an investigator-oriented
// view: who to contact, how money moves, and what looks risky.
type Intelligence struct {
	ContactInfo    ContactInfo    `json:"contact_info"`
	PaymentMethods PaymentMethods `json:"payment_methods"`
	Organizations  []string       `json:"organizations"`
	Locations      []string       `json:"locations"`
	Persons        []string       `json:"persons"`
	URLs           []string       `json:"urls"`
	FinancialRefs  []string       `json:"financial_references"`
	TotalEntities  int            `json:"total_entities_found"`
	HighRiskFlags  []string       `json:"high_risk_indicators"`
}

// ContactInfo groups direct contact channels.
type ContactInfo struct {
	PhoneNumbers []string `json:"phone_numbers"`
	Emails       []string `json:"emails"`
	UPIIDs       []string `json:"upi_ids"`
}

// PaymentMethods groups payment rails referenced in the transcript.
type PaymentMethods struct {
	UPIIDs         []string `json:"upi_ids"`
	AccountNumbers []string `json:"account_numbers"`
	IFSCCodes      []string `json:"ifsc_codes"`
}

// Rich is the report-time extractor with the wide pattern set. It is
// stateless and safe for concurrent use.
type Rich struct {
	groups     []recognizer
	suspicious []suspiciousWord
}

type suspiciousWord struct {
	word    string
	pattern *regexp.Regexp
}

// NewRich builds the rich extractor from the enricher section of the
// pattern file. Without options it uses the embedded intel.yaml.
func NewRich(opts ...Option) (*Rich, error) {
	pf, err := loadPatterns(opts)
	if err != nil {
		return nil, err
	}

	compiled, err := compileRecognizers(pf.Enrichers)
	if err != nil {
		return nil, err
	}

	suspicious := make([]suspiciousWord, 0, len(pf.SuspiciousKeywords))
	for _, kw := range pf.SuspiciousKeywords {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compiling suspicious keyword %q: %w", kw, err)
		}
		suspicious = append(suspicious, suspiciousWord{word: strings.ToLower(kw), pattern: re})
	}

	return &Rich{groups: compiled, suspicious: suspicious}, nil
}

// MustNewRich is like NewRich but panics on error.
func MustNewRich(opts ...Option) *Rich {
	r, err := NewRich(opts...)
	if err != nil {
		panic(fmt.Sprintf("intel.NewRich: %v", err))
	}
	return r
}

// patternGroups runs every enricher over the transcript and returns values
// grouped by kind, deduplicated preserving first-seen order. Phone values
// are normalized before deduplication so +91 98765 43210 and 9876543210
// collapse to one entry.
func (r *Rich) patternGroups(text string) map[string][]string {
	groups := make(map[string][]string, 6)
	seen := make(map[string]map[string]bool, 6)
	add := func(kind, value string) {
		if seen[kind] == nil {
			seen[kind] = make(map[string]bool)
		}
		if seen[kind][value] {
			return
		}
		seen[kind][value] = true
		groups[kind] = append(groups[kind], value)
	}

	for _, rec := range r.groups {
		switch {
		case rec.kind == KindPhone:
			for _, m := range rec.pattern.FindAllString(text, -1) {
				add(KindPhone, NormalizePhone(m))
			}
		case len(rec.context) > 0:
			for _, loc := range rec.pattern.FindAllStringIndex(text, -1) {
				if hasContext(text, loc[0], loc[1], rec.context) {
					add(rec.kind, text[loc[0]:loc[1]])
				}
			}
		default:
			for _, m := range rec.pattern.FindAllString(text, -1) {
				add(rec.kind, m)
			}
		}
	}

	return groups
}

// SuspiciousKeywords returns the configured keywords present in the
// transcript, matched on word boundaries, in vocabulary order.
func (r *Rich) SuspiciousKeywords(transcript string) []string {
	lowered := strings.ToLower(transcript)
	var found []string
	for _, kw := range r.suspicious {
		if kw.pattern.MatchString(lowered) {
			found = append(found, kw.word)
		}
	}
	return found
}

// CallbackIntelligence extracts the callback payload block from a full
// conversation transcript. Invalid transcripts yield an all-empty block
// rather than an error so report delivery is never blocked by enrichment.
func (r *Rich) CallbackIntelligence(ctx context.Context, transcript string) *CallbackIntelligence {
	_, span := tracer.Start(ctx, "intel.callback_intelligence")
	defer span.End()

	out := &CallbackIntelligence{
		BankAccounts:       []string{},
		UPIIDs:             []string{},
		PhishingLinks:      []string{},
		PhoneNumbers:       []string{},
		SuspiciousKeywords: []string{},
	}
	if !validTranscript(transcript) {
		span.SetAttributes(attribute.Bool("intel.transcript_valid", false))
		return out
	}

	groups := r.patternGroups(transcript)
	out.BankAccounts = orEmpty(groups[KindAccount])
	out.UPIIDs = orEmpty(groups[KindUPI])
	out.PhishingLinks = orEmpty(groups[KindURL])
	out.PhoneNumbers = orEmpty(groups[KindPhone])
	out.SuspiciousKeywords = orEmpty(r.SuspiciousKeywords(transcript))

	span.SetAttributes(
		attribute.Bool("intel.transcript_valid", true),
		attribute.Int("intel.accounts", len(out.BankAccounts)),
		attribute.Int("intel.upi_ids", len(out.UPIIDs)),
		attribute.Int("intel.links", len(out.PhishingLinks)),
		attribute.Int("intel.phones", len(out.PhoneNumbers)),
	)
	return out
}

// Extract produces the full extraction report for a transcript. Unlike
// CallbackIntelligence it rejects invalid transcripts with an error because
// the caller asked for this transcript specifically.
func (r *Rich) Extract(ctx context.Context, transcript string) (*RichResult, error) {
	_, span := tracer.Start(ctx, "intel.rich_extract")
	defer span.End()

	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: transcript is empty", ErrInvalidTranscript)
	}
	if len(transcript) > MaxTranscriptChars {
		return nil, fmt.Errorf("%w: transcript exceeds %d characters", ErrInvalidTranscript, MaxTranscriptChars)
	}

	groups := r.patternGroups(transcript)
	phones := orEmpty(groups[KindPhone])
	upiIDs := orEmpty(groups[KindUPI])
	urls := orEmpty(groups[KindURL])
	emails := orEmpty(groups[KindEmail])
	ifscCodes := orEmpty(groups[KindIFSC])
	accounts := orEmpty(groups[KindAccount])

	total := len(phones) + len(upiIDs) + len(urls) + len(emails) + len(ifscCodes) + len(accounts)

	flags := []string{}
	if len(upiIDs) > 1 {
		flags = append(flags, RiskMultipleUPIIDs)
	}
	for _, p := range phones {
		if strings.HasPrefix(p, "+") && !strings.HasPrefix(p, "+91") {
			flags = append(flags, RiskForeignPhone)
			break
		}
	}

	confidence := map[string]float64{
		"phone_numbers":   presenceScore(phones, patternConfidence),
		"upi_ids":         presenceScore(upiIDs, patternConfidence),
		"urls":            presenceScore(urls, patternConfidence),
		"emails":          presenceScore(emails, patternConfidence),
		"ifsc_codes":      presenceScore(ifscCodes, patternConfidence),
		"account_numbers": presenceScore(accounts, accountConfidence),
	}
	var sum float64
	var nonZero int
	for _, v := range confidence {
		if v > 0 {
			sum += v
			nonZero++
		}
	}
	overall := 0.0
	if nonZero > 0 {
		overall = sum / float64(nonZero)
	}
	confidence["overall"] = overall

	result := &RichResult{
		Entities: map[string][]string{
			"phone_numbers":   phones,
			"upi_ids":         upiIDs,
			"urls":            urls,
			"emails":          emails,
			"ifsc_codes":      ifscCodes,
			"account_numbers": accounts,
		},
		Intelligence: Intelligence{
			ContactInfo: ContactInfo{
				PhoneNumbers: phones,
				Emails:       emails,
				UPIIDs:       upiIDs,
			},
			PaymentMethods: PaymentMethods{
				UPIIDs:         upiIDs,
				AccountNumbers: accounts,
				IFSCCodes:      ifscCodes,
			},
			Organizations: []string{},
			Locations:     []string{},
			Persons:       []string{},
			URLs:          urls,
			FinancialRefs: accounts,
			TotalEntities: total,
			HighRiskFlags: flags,
		},
		Confidence: confidence,
	}

	span.SetAttributes(
		attribute.Int("intel.total_entities", total),
		attribute.Int("intel.high_risk_flags", len(flags)),
		attribute.Float64("intel.overall_confidence", overall),
	)
	return result, nil
}

func validTranscript(transcript string) bool {
	return strings.TrimSpace(transcript) != "" && len(transcript) <= MaxTranscriptChars
}

func presenceScore(values []string, score float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	return score
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
