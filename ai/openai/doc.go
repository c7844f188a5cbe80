// Package openai implements the ai interfaces against OpenAI-compatible
// HTTP services (Ollama, LocalAI, vLLM, OpenAI itself) via langchaingo.
package openai
