package testutil

// Canned caller utterances for conversation tests. The scam variants trip
// the keyword classifier; the intel variants additionally carry
// extractable payment details.
const (
	// BenignText stays below every detection threshold and contains no
	// extractable entities.
	BenignText = "Hi grandma, just checking in before dinner tonight."

	// ScamLotteryText trips the keyword classifier with high confidence.
	ScamLotteryText = "Congratulations! You won a lottery prize of 25 lakh. Click the link to claim now."

	// ScamUPIText carries a UPI handle for the extractor.
	ScamUPIText = "To release your prize, pay the processing fee to winners@okicici right away."

	// ScamPhoneText carries a callback number for the extractor.
	ScamPhoneText = "Our senior officer will help you, call him at 9876543210 immediately."
)
