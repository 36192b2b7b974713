// Package gemini integrates Google's Gemini API as the LLM collaborator
// for the card pipeline: cloze and vignette generation, accuracy/grounding
// checks, and text embeddings. API calls use structured JSON responses and
// bounded exponential-backoff retry for transient failures.
package gemini
