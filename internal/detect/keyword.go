package detect

import (
	"context"
	"strings"
)

// scamKeywords are the substrings the heuristic treats as scam signals.
var scamKeywords = []string{
	"lottery", "prize", "won", "winner", "claim",
	"refund", "tax", "payment", "urgent", "verify",
	"suspend", "account", "password", "click", "link",
}

// Keyword is the built-in heuristic classifier used when no external
// classification service is configured. Verdicts carry fixed
// probabilities so downstream threshold gates behave the same as with
// a real model.
type Keyword struct{}

// Classify scans for scam keywords (case-insensitive substring match).
func (Keyword) Classify(_ context.Context, transcript string) (*Detection, error) {
	if err := validateTranscript(transcript); err != nil {
		return nil, err
	}

	lowered := strings.ToLower(transcript)
	for _, kw := range scamKeywords {
		if strings.Contains(lowered, kw) {
			return &Detection{
				IsScam:      true,
				Probability: 0.87,
				Type:        "lottery scam",
				Scores: map[string]float64{
					"scam":              0.87,
					"legitimate":        0.13,
					"lottery scam":      0.72,
					"phishing scam":     0.15,
					"tech support scam": 0.08,
				},
			}, nil
		}
	}

	return &Detection{
		IsScam:      false,
		Probability: 0.23,
		Scores: map[string]float64{
			"scam":       0.23,
			"legitimate": 0.77,
		},
	}, nil
}
