// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed produces sentence embeddings through a local Ollama server
// and caches loaded model handles.
package embed

import (
	"context"
	"math"
)

// Embedder turns texts into normalized embedding vectors.
type Embedder interface {
	// ModelName reports the model identifier actually in use.
	ModelName() string

	// Embed returns one normalized vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultModel is used when the configured model is not on the allow-list.
const DefaultModel = "nomic-embed-text"

// ModelOptions is the enumerated allow-list of embedding models.
var ModelOptions = []string{
	"nomic-embed-text",
	"mxbai-embed-large",
	"bge-large",
	"all-minilm",
}

// ResolveModel returns name if it is on the allow-list, DefaultModel otherwise.
func ResolveModel(name string) string {
	for _, opt := range ModelOptions {
		if name == opt {
			return name
		}
	}
	return DefaultModel
}

// Normalize scales v to unit length in place and returns it. A zero vector
// is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Dot returns the dot product of two vectors; with normalized inputs this
// is the cosine similarity. Mismatched lengths score 0.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
