// Package ai defines the interfaces and configuration for the AI services
// used by claimcheck: text embedding for vector retrieval and text
// generation for verdict synthesis.
//
// Concrete implementations live in subpackages: ai/openai for
// OpenAI-compatible HTTP services (Ollama, LocalAI, vLLM, OpenAI itself),
// and ai/mock for deterministic test doubles.
package ai
