// Package fewshot provides few-shot, online object recognition backed by an
// adaptive nearest-neighbor store.
//
// Embeddings are produced externally (a convolutional feature extractor
// behind the Extractor interface); the classifier stores labeled embeddings,
// classifies queries with a weighted k-NN vote and a confidence threshold,
// learns incrementally from corrections, and persists its state as a
// compressed binary archive.
//
// # Quick Start
//
//	clf, err := fewshot.New(func(o *fewshot.Options) {
//	    o.EmbeddingDim = 512
//	    o.Extractor = myResNetExtractor
//	    o.ModelPath = "models/knn_classifier.bin"
//	})
//	if err != nil {
//	    panic(err)
//	}
//
//	if err := clf.AddSample(ctx, imageBytes, "apple"); err != nil {
//	    panic(err)
//	}
//
//	rec, err := clf.Predict(ctx, queryBytes)
//	if err != nil {
//	    panic(err)
//	}
//	if rec.IsKnown {
//	    fmt.Println(rec.Label, rec.Confidence)
//	}
//
// Corrections feed straight back into the store:
//
//	err = clf.AddFeedback(ctx, imageBytes, rec.Label, "pear", feedback.SourceUser)
//
// # Concurrency
//
// A Classifier is safe for concurrent use. A single exclusive lock serializes
// every operation, including prediction: a predict may trigger a retrain of
// the fitted state, so readers and writers are not distinguished. Operations
// observe a total order consistent with lock acquisition.
//
// # Persistence
//
// Model archives are self-describing (named sections), compressed (zstd by
// default, lz4 optional) and checksummed. By default they live on the local
// filesystem; the blobstore sub-packages provide MinIO and S3 backends.
package fewshot
