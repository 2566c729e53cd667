package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for decoy generation spans, following the OpenTelemetry
// GenAI semantic conventions. The two providers set different subsets:
// the chat-completion client reports the full request shape, the local
// backend only system and model.
const (
	GenAISystem       = attribute.Key("gen_ai.system")
	GenAIRequestModel = attribute.Key("gen_ai.request.model")

	GenAIRequestTemperature = attribute.Key("gen_ai.request.temperature")
	GenAIRequestMaxTokens   = attribute.Key("gen_ai.request.max_tokens")

	GenAIUsageInputTokens  = attribute.Key("gen_ai.usage.input_tokens")
	GenAIUsageOutputTokens = attribute.Key("gen_ai.usage.output_tokens")

	GenAIResponseFinishReason = attribute.Key("gen_ai.response.finish_reason")
)
