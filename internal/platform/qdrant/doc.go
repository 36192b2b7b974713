// Package qdrant implements semantic topic search over a Qdrant
// collection of taxonomy topic embeddings. It backs the classification
// service's vector-search collaborator.
package qdrant
