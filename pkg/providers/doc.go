// Package providers implements adapters for external text-generation
// backends and the registry that owns them.
//
// Each adapter satisfies the Provider interface: it resolves the effective
// model for a request, consumes a rate-limit slot for the "<provider>:<model>"
// key before calling out, translates the backend's wire format to the
// normalized CompletionResult, records token usage after the response
// returns, and maintains rolling success and latency statistics.
//
// Two wire formats are supported:
//
//   - OpenAICompatible speaks the chat-completions shape shared by Groq,
//     Cerebras, SambaNova, OpenRouter and similar services.
//   - Gemini speaks the Google generateContent shape.
//
// Adapters retry transient network failures (timeouts, refused connections)
// up to three attempts with exponential backoff. Every other failure is
// surfaced immediately as a typed error; failover across providers is the
// router's job, not the adapter's.
//
// The Registry owns all configured adapters, answers "which providers can
// take a request right now" using a non-consuming rate-limit peek, and
// aggregates per-provider statistics for the status surface.
package providers
