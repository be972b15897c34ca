package fewshot

import (
	"github.com/hupe1980/fewshot/blobstore"
	"github.com/hupe1980/fewshot/codec"
	"github.com/hupe1980/fewshot/persistence"
	"github.com/hupe1980/fewshot/resource"
)

// Options configures the classifier.
type Options struct {
	// NNeighbors is the number of neighbors consulted per prediction.
	// Fewer neighbors are used while the store holds fewer samples.
	NNeighbors int

	// ConfidenceThreshold is the minimum confidence for a prediction to be
	// reported as a known class. Must lie in [0, 1].
	ConfidenceThreshold float64

	// MaxSamplesPerClass bounds the number of stored embeddings per class.
	// The oldest samples of a class are evicted first.
	MaxSamplesPerClass int

	// EmbeddingDim is the dimensionality of stored embeddings.
	EmbeddingDim int

	// ModelPath is the blob name used by SaveModel/LoadModel when no
	// explicit path is given.
	ModelPath string

	// Extractor converts raw inputs (image bytes) into embeddings. Optional;
	// without it only the *Embedding operations are available.
	Extractor Extractor

	// BlobStore holds model archives. Defaults to the local filesystem.
	BlobStore blobstore.Store

	// Codec encodes the label and hyperparameter sections of model archives.
	Codec codec.Codec

	// Compression selects the archive compression algorithm.
	Compression persistence.Compression

	// AutoSave persists the model every SaveInterval feedback samples.
	AutoSave bool

	// SaveInterval is the number of added samples between auto-saves.
	SaveInterval int

	// AutoLoad attempts to load an existing model from ModelPath during New.
	// A missing or corrupt archive is not an error; the classifier starts
	// fresh.
	AutoLoad bool

	// Resources throttles auto-saves and bounds concurrent archive uploads.
	// Nil disables throttling.
	Resources *resource.Controller

	// Logger receives structured operation logs.
	Logger *Logger

	// MetricsCollector receives operation metrics.
	MetricsCollector MetricsCollector
}

// DefaultOptions are the options any call to New starts from.
var DefaultOptions = Options{
	NNeighbors:          3,
	ConfidenceThreshold: 0.6,
	MaxSamplesPerClass:  100,
	EmbeddingDim:        512,
	ModelPath:           "models/knn_classifier.bin",
	Codec:               codec.Default,
	Compression:         persistence.CompressionZstd,
	AutoSave:            true,
	SaveInterval:        10,
	AutoLoad:            true,
}

func (o *Options) validate() error {
	if o.NNeighbors < 1 {
		return &ErrValidation{Field: "NNeighbors", Reason: "must be positive"}
	}
	if o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		return &ErrValidation{Field: "ConfidenceThreshold", Reason: "must be in [0, 1]"}
	}
	if o.MaxSamplesPerClass < 1 {
		return &ErrValidation{Field: "MaxSamplesPerClass", Reason: "must be positive"}
	}
	if o.EmbeddingDim < 1 {
		return &ErrValidation{Field: "EmbeddingDim", Reason: "must be positive"}
	}
	if o.SaveInterval < 1 {
		return &ErrValidation{Field: "SaveInterval", Reason: "must be positive"}
	}
	if o.ModelPath == "" {
		return &ErrValidation{Field: "ModelPath", Reason: "must not be empty"}
	}
	return nil
}
