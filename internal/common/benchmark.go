package common

import (
	"log/slog"
	"time"
)

type Benchmarker struct {
	start  time.Time
	label  string
	logger *slog.Logger
}

func RuntimeBenchmark[T any](logger *slog.Logger, label string, functionUnderTest func() (T, error)) (T, error) {
	benchmarker := NewBenchmarker(logger, label)
	defer benchmarker.Close()
	return functionUnderTest()
}

func NewBenchmarker(logger *slog.Logger, label string) *Benchmarker {
	return &Benchmarker{start: time.Now(), label: label, logger: logger}
}

// Close logs the elapsed time at debug level and returns it.
func (benchmarker *Benchmarker) Close() time.Duration {
	elapsed := time.Since(benchmarker.start)
	if benchmarker.logger != nil {
		benchmarker.logger.Debug("bench",
			slog.String("label", benchmarker.label),
			slog.Duration("duration", elapsed))
	}
	return elapsed
}
