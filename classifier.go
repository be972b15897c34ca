package fewshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/fewshot/blobstore"
	"github.com/hupe1980/fewshot/feedback"
	"github.com/hupe1980/fewshot/persistence"
	"github.com/hupe1980/fewshot/resource"
	"github.com/hupe1980/fewshot/store"
	"github.com/hupe1980/fewshot/voting"
)

// UnknownLabel is the label reported for predictions below the confidence
// threshold.
const UnknownLabel = voting.UnknownLabel

// Recognition is the result of a prediction.
type Recognition = voting.Recognition

// Classifier is a few-shot object recognizer. It stores labeled embeddings,
// classifies queries with a weighted nearest-neighbor vote, and learns
// online from corrections.
//
// All methods are safe for concurrent use; a single exclusive lock serializes
// every operation.
type Classifier struct {
	mu sync.Mutex

	opts      Options
	logger    *Logger
	metrics   MetricsCollector
	blobs     blobstore.Store
	resources *resource.Controller
	extractor Extractor

	samples *store.Store
	ledger  *feedback.Ledger

	trained    bool
	totalAdded int
}

// New creates a classifier. Options start from DefaultOptions; pass functions
// to adjust them:
//
//	clf, err := fewshot.New(func(o *fewshot.Options) {
//	    o.EmbeddingDim = 128
//	    o.AutoLoad = false
//	})
//
// With AutoLoad enabled (the default), New attempts to load an existing model
// archive from ModelPath. A missing or corrupt archive is logged and the
// classifier starts fresh.
func New(optFns ...func(o *Options)) (*Classifier, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = NoopMetricsCollector{}
	}
	if opts.BlobStore == nil {
		opts.BlobStore = blobstore.NewLocalStore("")
	}

	samples, err := store.New(opts.EmbeddingDim, opts.MaxSamplesPerClass)
	if err != nil {
		return nil, translateError(err)
	}

	c := &Classifier{
		opts:      opts,
		logger:    opts.Logger,
		metrics:   opts.MetricsCollector,
		blobs:     opts.BlobStore,
		resources: opts.Resources,
		extractor: opts.Extractor,
		samples:   samples,
		ledger:    feedback.NewLedger(),
	}

	c.logger.WithDimension(opts.EmbeddingDim).Debug("classifier initialized",
		"n_neighbors", opts.NNeighbors,
		"threshold", opts.ConfidenceThreshold,
	)

	if opts.AutoLoad {
		ctx := context.Background()
		if _, err := c.LoadModel(ctx); err != nil {
			c.logger.WarnContext(ctx, "existing model unusable, starting fresh",
				"path", opts.ModelPath,
				"error", err,
			)
		}
	}

	return c, nil
}

// AddSample extracts an embedding from input and stores it under label.
// Extraction runs under the classifier lock, like every other operation.
func (c *Classifier) AddSample(ctx context.Context, input []byte, label string) error {
	start := time.Now()

	c.mu.Lock()
	vec, err := c.extract(ctx, input)
	if err == nil {
		err = c.addSampleLocked(ctx, vec, label)
	}
	total := c.samples.Len()
	c.mu.Unlock()

	c.metrics.RecordAddSample(time.Since(start), err)
	c.logger.LogAddSample(ctx, label, total, err)
	return err
}

// AddSampleEmbedding stores a precomputed embedding under label.
func (c *Classifier) AddSampleEmbedding(ctx context.Context, embedding []float32, label string) error {
	start := time.Now()

	c.mu.Lock()
	err := c.addSampleLocked(ctx, embedding, label)
	total := c.samples.Len()
	c.mu.Unlock()

	c.metrics.RecordAddSample(time.Since(start), err)
	c.logger.LogAddSample(ctx, label, total, err)
	return err
}

// addSampleLocked adds a sample, refits once enough samples exist, and runs
// the auto-save check. Callers hold c.mu.
func (c *Classifier) addSampleLocked(ctx context.Context, embedding []float32, label string) error {
	if err := c.samples.Add(embedding, label); err != nil {
		return translateError(err)
	}
	c.totalAdded++

	if c.samples.Len() >= c.opts.NNeighbors {
		c.retrainLocked()
	}

	c.maybeAutoSaveLocked(ctx)
	return nil
}

// retrainLocked refits the vote state on the current samples. With a
// brute-force vote this reduces to flipping the trained flag; it exists as a
// seam for precomputed structures (normalized arenas, ANN indexes).
func (c *Classifier) retrainLocked() {
	c.trained = c.samples.Len() > 0
}

// Predict extracts an embedding from input and classifies it. An untrained
// classifier returns the unknown result without invoking the extractor.
func (c *Classifier) Predict(ctx context.Context, input []byte) (Recognition, error) {
	start := time.Now()

	c.mu.Lock()
	rec, err := voting.Unknown(), error(nil)
	if c.trained && c.samples.Len() > 0 {
		var vec []float32
		vec, err = c.extract(ctx, input)
		if err == nil {
			rec, err = c.predictLocked(vec)
		}
	}
	c.mu.Unlock()

	c.metrics.RecordPredict(time.Since(start), rec.IsKnown, err)
	c.logger.LogPredict(ctx, rec.Label, rec.Confidence, err)
	return rec, err
}

// PredictEmbedding classifies a precomputed embedding.
func (c *Classifier) PredictEmbedding(ctx context.Context, embedding []float32) (Recognition, error) {
	start := time.Now()

	c.mu.Lock()
	rec, err := c.predictLocked(embedding)
	c.mu.Unlock()

	c.metrics.RecordPredict(time.Since(start), rec.IsKnown, err)
	c.logger.LogPredict(ctx, rec.Label, rec.Confidence, err)
	return rec, err
}

func (c *Classifier) predictLocked(embedding []float32) (Recognition, error) {
	if !c.trained || c.samples.Len() == 0 {
		return voting.Unknown(), nil
	}
	if len(embedding) != c.samples.Dim() {
		return voting.Unknown(), &ErrShapeMismatch{Expected: c.samples.Dim(), Actual: len(embedding)}
	}

	rec := voting.Predict(c.samples.Snapshot(), embedding, c.opts.NNeighbors, c.opts.ConfidenceThreshold)
	return rec, nil
}

// AddFeedback extracts an embedding from input and records a correction:
// the embedding is stored under the correct label and the prediction outcome
// is appended to the feedback ledger.
func (c *Classifier) AddFeedback(ctx context.Context, input []byte, predicted, correct string, source feedback.Source) error {
	if !source.Valid() {
		return &feedback.ErrInvalidSource{Source: source}
	}
	start := time.Now()

	c.mu.Lock()
	vec, err := c.extract(ctx, input)
	if err == nil {
		err = c.addFeedbackLocked(ctx, vec, predicted, correct, source)
	}
	c.mu.Unlock()

	// A correction is an add-sample operation too; both metrics fire.
	c.metrics.RecordAddSample(time.Since(start), err)
	return c.finishFeedback(ctx, predicted, correct, source, err)
}

// AddFeedbackEmbedding records a correction for a precomputed embedding.
func (c *Classifier) AddFeedbackEmbedding(ctx context.Context, embedding []float32, predicted, correct string, source feedback.Source) error {
	if !source.Valid() {
		return &feedback.ErrInvalidSource{Source: source}
	}
	start := time.Now()

	c.mu.Lock()
	err := c.addFeedbackLocked(ctx, embedding, predicted, correct, source)
	c.mu.Unlock()

	c.metrics.RecordAddSample(time.Since(start), err)
	return c.finishFeedback(ctx, predicted, correct, source, err)
}

func (c *Classifier) addFeedbackLocked(ctx context.Context, embedding []float32, predicted, correct string, source feedback.Source) error {
	if err := c.addSampleLocked(ctx, embedding, correct); err != nil {
		return err
	}
	c.ledger.Append(feedback.Record{
		Predicted: predicted,
		Correct:   correct,
		Source:    source,
	})
	return nil
}

func (c *Classifier) finishFeedback(ctx context.Context, predicted, correct string, source feedback.Source, err error) error {
	if err != nil {
		return err
	}
	c.metrics.RecordFeedback(predicted == correct)
	c.logger.LogFeedback(ctx, predicted, correct, string(source))
	return nil
}

// maybeAutoSaveLocked persists the model every SaveInterval added samples.
// Save failures are logged, never surfaced: losing an auto-save must not fail
// the triggering operation. Callers hold c.mu.
func (c *Classifier) maybeAutoSaveLocked(ctx context.Context) {
	if !c.opts.AutoSave || c.totalAdded%c.opts.SaveInterval != 0 {
		return
	}
	if !c.resources.AllowAutoSave() {
		c.logger.DebugContext(ctx, "auto-save throttled",
			"skipped", c.resources.SkippedAutoSaves(),
		)
		return
	}

	start := time.Now()
	err := c.saveLocked(ctx, c.opts.ModelPath)
	c.metrics.RecordSave(time.Since(start), err)
	c.logger.LogSave(ctx, c.opts.ModelPath, c.samples.Len(), err)
}

// SaveModel persists the classifier state as a binary archive. With no path
// argument the configured ModelPath is used.
func (c *Classifier) SaveModel(ctx context.Context, path ...string) error {
	name := c.modelPath(path)
	start := time.Now()

	c.mu.Lock()
	err := c.saveLocked(ctx, name)
	total := c.samples.Len()
	c.mu.Unlock()

	c.metrics.RecordSave(time.Since(start), err)
	c.logger.LogSave(ctx, name, total, err)
	return err
}

func (c *Classifier) saveLocked(ctx context.Context, name string) error {
	m := &persistence.Model{
		Embeddings: c.samples.ExportEmbeddings(),
		Labels:     c.samples.ExportLabels(),
		Count:      c.samples.Len(),
		Dim:        c.samples.Dim(),
		Params:     c.hyperparamsLocked(),
	}

	if err := c.resources.AcquireUpload(ctx); err != nil {
		return fmt.Errorf("acquire upload slot: %w", err)
	}
	defer c.resources.ReleaseUpload()

	err := persistence.Save(ctx, c.blobs, name, m, func(o *persistence.Options) {
		o.Compression = c.opts.Compression
		o.Codec = c.opts.Codec
	})
	return translateError(err)
}

// LoadModel replaces the classifier state with an archived model. With no
// path argument the configured ModelPath is used.
//
// The returned bool reports whether a model was found: a missing archive is
// (false, nil), a malformed one an ErrCorruptArchive.
func (c *Classifier) LoadModel(ctx context.Context, path ...string) (bool, error) {
	name := c.modelPath(path)
	start := time.Now()

	c.mu.Lock()
	found, err := c.loadLocked(ctx, name)
	total := c.samples.Len()
	c.mu.Unlock()

	if found || err != nil {
		c.metrics.RecordLoad(time.Since(start), err)
		c.logger.LogLoad(ctx, name, total, err)
	}
	return found, err
}

func (c *Classifier) loadLocked(ctx context.Context, name string) (bool, error) {
	m, err := persistence.Load(ctx, c.blobs, name, c.hyperparamsLocked())
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return false, nil
		}
		return false, translateLoadError(name, err)
	}

	if err := c.samples.Replace(m.Embeddings, m.Labels, m.Dim); err != nil {
		return false, translateError(err)
	}

	// Archived hyperparams win over configured ones, with sanity guards so a
	// hand-edited or older archive cannot wedge the classifier.
	if m.Params.NNeighbors > 0 {
		c.opts.NNeighbors = m.Params.NNeighbors
	}
	if m.Params.ConfidenceThreshold >= 0 && m.Params.ConfidenceThreshold <= 1 {
		c.opts.ConfidenceThreshold = m.Params.ConfidenceThreshold
	}
	if m.Params.MaxSamplesPerClass > 0 {
		c.opts.MaxSamplesPerClass = m.Params.MaxSamplesPerClass
		if err := c.samples.SetMaxSamplesPerClass(m.Params.MaxSamplesPerClass); err != nil {
			return false, translateError(err)
		}
	}
	c.opts.EmbeddingDim = c.samples.Dim()

	c.totalAdded = c.samples.Len()
	c.trained = false
	if c.samples.Len() > 0 {
		c.retrainLocked()
	}
	return true, nil
}

// Reset discards all stored samples and the fitted state. The feedback
// ledger is kept: accuracy history outlives the samples that produced it.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples.Reset()
	c.trained = false
	c.totalAdded = 0
}

// UpdateConfidenceThreshold changes the minimum confidence for known
// predictions. v must lie in [0, 1].
func (c *Classifier) UpdateConfidenceThreshold(v float64) error {
	if v < 0 || v > 1 {
		return &ErrValidation{Field: "ConfidenceThreshold", Reason: "must be in [0, 1]"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.ConfidenceThreshold = v
	return nil
}

// Threshold returns the current confidence threshold.
func (c *Classifier) Threshold() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.ConfidenceThreshold
}

// KnownClasses returns the distinct labels the classifier can currently
// predict, sorted. An untrained classifier knows no classes.
func (c *Classifier) KnownClasses() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.trained {
		return []string{}
	}
	return c.samples.KnownLabels()
}

// SampleCount returns the number of stored samples per label.
func (c *Classifier) SampleCount() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples.SampleCounts()
}

// TotalSamples returns the number of stored samples.
func (c *Classifier) TotalSamples() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples.Len()
}

// EmbeddingDim returns the current embedding dimension.
func (c *Classifier) EmbeddingDim() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples.Dim()
}

// Stats derives accuracy statistics from the feedback ledger.
func (c *Classifier) Stats() feedback.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Stats()
}

// FeedbackHistory returns a copy of all recorded corrections in order.
func (c *Classifier) FeedbackHistory() []feedback.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Records()
}

func (c *Classifier) hyperparamsLocked() persistence.Hyperparams {
	return persistence.Hyperparams{
		NNeighbors:          c.opts.NNeighbors,
		ConfidenceThreshold: c.opts.ConfidenceThreshold,
		MaxSamplesPerClass:  c.opts.MaxSamplesPerClass,
		EmbeddingDim:        c.samples.Dim(),
	}
}

func (c *Classifier) modelPath(path []string) string {
	if len(path) > 0 && path[0] != "" {
		return path[0]
	}
	return c.opts.ModelPath
}

func (c *Classifier) extract(ctx context.Context, input []byte) ([]float32, error) {
	if c.extractor == nil {
		return nil, ErrNoExtractor
	}
	vec, err := c.extractor.Extract(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}
	return vec, nil
}
