package fewshot

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    predictCounter   prometheus.Counter
//	    predictHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordPredict(duration time.Duration, known bool, err error) {
//	    p.predictCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordAddSample is called after each add-sample operation.
	// duration is the total time taken, err is nil if successful.
	RecordAddSample(duration time.Duration, err error)

	// RecordPredict is called after each prediction.
	// known reports whether the result cleared the confidence threshold,
	// duration is the time taken, err is nil if successful.
	RecordPredict(duration time.Duration, known bool, err error)

	// RecordFeedback is called after each feedback submission.
	RecordFeedback(correct bool)

	// RecordSave is called after each model save, including auto-saves.
	RecordSave(duration time.Duration, err error)

	// RecordLoad is called after each model load.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAddSample(time.Duration, error)     {}
func (NoopMetricsCollector) RecordPredict(time.Duration, bool, error) {}
func (NoopMetricsCollector) RecordFeedback(bool)                      {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)          {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddSampleCount     atomic.Int64
	AddSampleErrors    atomic.Int64
	AddSampleNanos     atomic.Int64
	PredictCount       atomic.Int64
	PredictErrors      atomic.Int64
	PredictKnown       atomic.Int64
	PredictNanos       atomic.Int64
	FeedbackCount      atomic.Int64
	FeedbackCorrect    atomic.Int64
	SaveCount          atomic.Int64
	SaveErrors         atomic.Int64
	LoadCount          atomic.Int64
	LoadErrors         atomic.Int64
}

// RecordAddSample implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAddSample(duration time.Duration, err error) {
	b.AddSampleCount.Add(1)
	b.AddSampleNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddSampleErrors.Add(1)
	}
}

// RecordPredict implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPredict(duration time.Duration, known bool, err error) {
	b.PredictCount.Add(1)
	b.PredictNanos.Add(duration.Nanoseconds())
	if known {
		b.PredictKnown.Add(1)
	}
	if err != nil {
		b.PredictErrors.Add(1)
	}
}

// RecordFeedback implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFeedback(correct bool) {
	b.FeedbackCount.Add(1)
	if correct {
		b.FeedbackCorrect.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(duration time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddSampleCount:  b.AddSampleCount.Load(),
		AddSampleErrors: b.AddSampleErrors.Load(),
		AddSampleAvg:    avgNanos(b.AddSampleNanos.Load(), b.AddSampleCount.Load()),
		PredictCount:    b.PredictCount.Load(),
		PredictErrors:   b.PredictErrors.Load(),
		PredictKnown:    b.PredictKnown.Load(),
		PredictAvg:      avgNanos(b.PredictNanos.Load(), b.PredictCount.Load()),
		FeedbackCount:   b.FeedbackCount.Load(),
		FeedbackCorrect: b.FeedbackCorrect.Load(),
		SaveCount:       b.SaveCount.Load(),
		SaveErrors:      b.SaveErrors.Load(),
		LoadCount:       b.LoadCount.Load(),
		LoadErrors:      b.LoadErrors.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddSampleCount  int64
	AddSampleErrors int64
	AddSampleAvg    int64
	PredictCount    int64
	PredictErrors   int64
	PredictKnown    int64
	PredictAvg      int64
	FeedbackCount   int64
	FeedbackCorrect int64
	SaveCount       int64
	SaveErrors      int64
	LoadCount       int64
	LoadErrors      int64
}
