// Package metrics aggregates per-worker latency distributions using HDR
// histograms. One Recorder is shared by all in-flight requests.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// histogram bounds in microseconds: 1µs .. 10min
	histMin = 1
	histMax = int64(10 * time.Minute / time.Microsecond)
	// significant figures for recorded values
	histSigFigs = 3
)

// TimingStats is an immutable snapshot of one worker's latency distribution.
type TimingStats struct {
	Worker string  `json:"worker"`
	Count  int64   `json:"count"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
	MaxMs  float64 `json:"max_ms"`
	MeanMs float64 `json:"mean_ms"`
}

// Recorder tracks one histogram per worker name.
type Recorder struct {
	mu    sync.Mutex
	hists map[string]*hdrhistogram.Histogram
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		hists: make(map[string]*hdrhistogram.Histogram),
	}
}

// Record adds one observed invocation duration for a worker.
func (r *Recorder) Record(worker string, d time.Duration) {
	us := d.Microseconds()
	if us < histMin {
		us = histMin
	}
	if us > histMax {
		us = histMax
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hists[worker]
	if !ok {
		h = hdrhistogram.New(histMin, histMax, histSigFigs)
		r.hists[worker] = h
	}
	_ = h.RecordValue(us)
}

// Stats returns the snapshot for one worker, or false if never recorded.
func (r *Recorder) Stats(worker string) (TimingStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hists[worker]
	if !ok {
		return TimingStats{}, false
	}
	return snapshot(worker, h), true
}

// Snapshot returns stats for every recorded worker, sorted by name.
func (r *Recorder) Snapshot() []TimingStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TimingStats, 0, len(r.hists))
	for name, h := range r.hists {
		out = append(out, snapshot(name, h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Worker < out[j].Worker })
	return out
}

// Reset discards all recorded values.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hists = make(map[string]*hdrhistogram.Histogram)
}

func snapshot(worker string, h *hdrhistogram.Histogram) TimingStats {
	const usPerMs = 1000.0
	return TimingStats{
		Worker: worker,
		Count:  h.TotalCount(),
		P50Ms:  float64(h.ValueAtQuantile(50)) / usPerMs,
		P95Ms:  float64(h.ValueAtQuantile(95)) / usPerMs,
		P99Ms:  float64(h.ValueAtQuantile(99)) / usPerMs,
		MaxMs:  float64(h.Max()) / usPerMs,
		MeanMs: h.Mean() / usPerMs,
	}
}
