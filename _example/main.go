package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"

	"github.com/hupe1980/fewshot"
	"github.com/hupe1980/fewshot/feedback"
)

// randomEmbedding fabricates an embedding near a class center. A real
// application would get embeddings from a feature extractor instead.
func randomEmbedding(rng *rand.Rand, center []float32) []float32 {
	vec := make([]float32, len(center))
	for i, c := range center {
		vec[i] = c + float32(rng.NormFloat64())*0.05
	}
	return vec
}

func main() {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(4711))
	dim := 32

	centers := map[string][]float32{}
	for _, label := range []string{"apple", "banana", "cherry"} {
		center := make([]float32, dim)
		for i := range center {
			center[i] = float32(rng.NormFloat64())
		}
		centers[label] = center
	}

	clf, err := fewshot.New(func(o *fewshot.Options) {
		o.EmbeddingDim = dim
		o.ModelPath = "demo_model.bin"
		o.Logger = fewshot.NewTextLogger(slog.LevelInfo)
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("--- Train ---")
	for label, center := range centers {
		for i := 0; i < 5; i++ {
			if err := clf.AddSampleEmbedding(ctx, randomEmbedding(rng, center), label); err != nil {
				log.Fatal(err)
			}
		}
	}
	fmt.Println("Known classes:", clf.KnownClasses())

	fmt.Println("--- Predict ---")
	query := randomEmbedding(rng, centers["banana"])
	rec, err := clf.PredictEmbedding(ctx, query)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Predicted %q with confidence %.3f (known=%v)\n", rec.Label, rec.Confidence, rec.IsKnown)

	fmt.Println("--- Feedback ---")
	if err := clf.AddFeedbackEmbedding(ctx, query, rec.Label, "banana", feedback.SourceUser); err != nil {
		log.Fatal(err)
	}
	stats := clf.Stats()
	fmt.Printf("Feedback: %d total, accuracy %.2f\n", stats.TotalFeedback, stats.Accuracy)

	fmt.Println("--- Persist ---")
	if err := clf.SaveModel(ctx); err != nil {
		log.Fatal(err)
	}
	clf2, err := fewshot.New(func(o *fewshot.Options) {
		o.EmbeddingDim = dim
		o.ModelPath = "demo_model.bin"
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Reloaded samples:", clf2.TotalSamples())
}
