package fewshot

import "context"

// Extractor produces a fixed-length embedding from a raw input, typically
// image bytes. Implementations wrap a feature-extraction model (e.g. a
// headless CNN served over HTTP or through a local runtime).
//
// Extract must return a vector of the classifier's configured dimension;
// mismatched vectors are rejected with ErrShapeMismatch.
type Extractor interface {
	Extract(ctx context.Context, input []byte) ([]float32, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, input []byte) ([]float32, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, input []byte) ([]float32, error) {
	return f(ctx, input)
}
