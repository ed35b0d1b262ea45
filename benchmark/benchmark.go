package benchmark

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/fuzzy-inference/base/zaplog"
	"example.com/fuzzy-inference/core/inference"
)

const (
	DefaultGoroutines = 8
	DefaultRequests   = 10_000

	// Latencies are recorded in microseconds.
	maxLatency        = 10_000_000
	significantDigits = 3
)

type Config struct {
	Goroutines int
	Requests   int
}

// RunInferenceBenchmark runs cfg.Goroutines concurrent loops, each
// performing cfg.Requests chained inferences of q, and returns the latency
// distribution. If w is not nil, percentiles are printed to it.
func RunInferenceBenchmark(ctx context.Context, log *zap.Logger, w io.Writer,
	e *inference.Engine, inputs map[string]float64, q inference.Query, cfg Config) (
	*hdrhistogram.Histogram, error) {
	log = zaplog.OrNop(log)
	if cfg.Goroutines <= 0 {
		cfg.Goroutines = DefaultGoroutines
	}
	if cfg.Requests <= 0 {
		cfg.Requests = DefaultRequests
	}

	total := hdrhistogram.New(1, maxLatency, significantDigits)
	var mu sync.Mutex
	sg := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)
	for i := cfg.Goroutines; i > 0; i-- {
		g.Go(func() error {
			hg := hdrhistogram.New(1, maxLatency, significantDigits)
			<-sg
			for j := cfg.Requests; j > 0; j-- {
				if err := ctx.Err(); err != nil {
					return err
				}
				t0 := time.Now()
				if _, err := e.InferChain(inputs, q); err != nil {
					return err
				}
				if err := hg.RecordValue(max(1, time.Since(t0).Microseconds())); err != nil {
					return err
				}
			}
			mu.Lock()
			defer mu.Unlock()
			total.Merge(hg)
			return nil
		})
	}
	t0 := time.Now()
	close(sg)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(t0)
	log.Info("benchmark finished",
		zap.Int("goroutines", cfg.Goroutines),
		zap.Int("requests", cfg.Requests),
		zap.Duration("elapsed", elapsed),
		zap.Float64("p50_us", float64(total.ValueAtQuantile(50))),
		zap.Float64("p99_us", float64(total.ValueAtQuantile(99))),
	)
	if w != nil {
		total.PercentilesPrint(w, 1, 1.0)
	}
	return total, nil
}
