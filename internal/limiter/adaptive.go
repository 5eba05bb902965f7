package limiter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"yqhp/analysis-engine/pkg/logger"
)

const (
	// DefaultWindow 滚动错误窗口大小
	DefaultWindow = 50
	// DefaultDecay is applied to the rate when the error rate is high.
	DefaultDecay = 0.8
	// DefaultGrowth is applied to the rate after a clean full window.
	DefaultGrowth = 1.1

	// errorHighWatermark triggers decay when exceeded.
	errorHighWatermark = 0.10
	// errorLowWatermark allows growth when the full window stays below it.
	errorLowWatermark = 0.01
)

// AdaptiveConfig configures an Adaptive rate limiter.
type AdaptiveConfig struct {
	Rate    float64 // initial tokens per second
	Burst   float64 // bucket capacity
	MinRate float64 // floor, keeps a recovery probe alive
	MaxRate float64 // ceiling
	Window  int     // rolling error window size
	Decay   float64
	Growth  float64
}

// Adaptive is a token-bucket rate limiter whose rate shrinks when the
// observed error rate of the protected dependency rises and grows back
// conservatively once a full window of calls stays clean.
//
// 衰减激进、恢复保守：错误率超过 10% 时按 Decay 缩减速率，
// 一个完整窗口内错误率低于 1% 时按 Growth 放大速率。
type Adaptive struct {
	mu sync.Mutex

	rate    float64
	burst   float64
	minRate float64
	maxRate float64
	decay   float64
	growth  float64

	tokens float64
	last   time.Time

	// rolling outcome window, true = error
	window      []bool
	windowIdx   int
	windowFill  int
	windowErrs  int
	sinceAdjust int
}

// NewAdaptive creates an adaptive limiter from the given configuration.
// Zero or negative fields fall back to defaults.
func NewAdaptive(cfg AdaptiveConfig) *Adaptive {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Rate * 2
	}
	if cfg.MinRate <= 0 {
		cfg.MinRate = 0.1 // one token per 10s, still probing for recovery
	}
	if cfg.MaxRate <= 0 {
		cfg.MaxRate = cfg.Rate * 5
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		cfg.Decay = DefaultDecay
	}
	if cfg.Growth <= 1 {
		cfg.Growth = DefaultGrowth
	}

	return &Adaptive{
		rate:    cfg.Rate,
		burst:   cfg.Burst,
		minRate: cfg.MinRate,
		maxRate: cfg.MaxRate,
		decay:   cfg.Decay,
		growth:  cfg.Growth,
		tokens:  cfg.Burst,
		last:    time.Now(),
		window:  make([]bool, cfg.Window),
	}
}

// refillLocked advances the bucket to now. Caller must hold mu.
func (l *Adaptive) refillLocked(now time.Time) {
	elapsed := now.Sub(l.last).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now
}

// Allow reports whether a token is available and consumes one if so.
func (l *Adaptive) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked(time.Now())
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is done.
func (l *Adaptive) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.refillLocked(now)
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		// time until the next whole token at the current rate
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		if deadline, ok := ctx.Deadline(); ok && now.Add(wait).After(deadline) {
			return context.DeadlineExceeded
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// rate may have changed while sleeping, re-check
		}
	}
}

// RecordResult reports the outcome of a protected call and adjusts the
// rate based on the rolling error window.
func (l *Adaptive) RecordResult(success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// update ring
	if l.windowFill == len(l.window) {
		if l.window[l.windowIdx] {
			l.windowErrs--
		}
	} else {
		l.windowFill++
	}
	l.window[l.windowIdx] = !success
	if !success {
		l.windowErrs++
	}
	l.windowIdx = (l.windowIdx + 1) % len(l.window)
	l.sinceAdjust++

	// require half a window of fresh samples between adjustments so one
	// burst of errors does not cascade into repeated decay steps
	if l.sinceAdjust < len(l.window)/2 {
		return
	}

	errRate := float64(l.windowErrs) / float64(l.windowFill)

	switch {
	case l.windowFill >= len(l.window)/2 && errRate > errorHighWatermark:
		old := l.rate
		l.rate *= l.decay
		if l.rate < l.minRate {
			l.rate = l.minRate
		}
		l.sinceAdjust = 0
		logger.Warn("rate limiter decayed",
			zap.Float64("error_rate", errRate),
			zap.Float64("old_rate", old),
			zap.Float64("new_rate", l.rate))
	case l.windowFill == len(l.window) && errRate < errorLowWatermark:
		old := l.rate
		l.rate *= l.growth
		if l.rate > l.maxRate {
			l.rate = l.maxRate
		}
		l.sinceAdjust = 0
		if l.rate != old {
			logger.Debug("rate limiter recovered",
				zap.Float64("old_rate", old),
				zap.Float64("new_rate", l.rate))
		}
	}
}

// Rate returns the current token refill rate in tokens per second.
func (l *Adaptive) Rate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rate
}

// ErrorRate returns the error rate over the current window contents.
func (l *Adaptive) ErrorRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.windowFill == 0 {
		return 0
	}
	return float64(l.windowErrs) / float64(l.windowFill)
}
