// Package llm classifies batches of bill descriptions with a language model.
// It supports OpenAI-compatible endpoints, Anthropic and Gemini, and wraps every
// provider with retry logic, rate limiting and a suggestion cache.
package llm
