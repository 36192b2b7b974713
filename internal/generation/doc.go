// Package generation orchestrates the per-chunk card pipeline: classify the
// chunk, generate cloze and vignette cards through injected LLM
// collaborators, validate each card, and deduplicate the accumulated set.
// Chunk failures are isolated: a failing chunk is recorded and the batch
// continues.
package generation
