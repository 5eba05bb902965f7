package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration values.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// Validate validates the entire configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	v.validateOrchestrator(&cfg.Orchestrator)
	v.validateLimiter(&cfg.Limiter)
	v.validateRateLimiter(&cfg.RateLimiter)
	v.validateCache(&cfg.Cache)
	v.validateLogging(&cfg.Logging)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateOrchestrator(cfg *OrchestratorConfig) {
	if cfg.RequestDeadline <= 0 {
		v.addError("orchestrator.request_deadline", "must be positive")
	}
	if cfg.DegradationFactor <= 0 || cfg.DegradationFactor >= 1 {
		v.addError("orchestrator.degradation_factor", "must be in (0, 1)")
	}
	if cfg.ConfidenceFloor < 0 || cfg.ConfidenceFloor >= 1 {
		v.addError("orchestrator.confidence_floor", "must be in [0, 1)")
	}
	if cfg.DefaultWorkerTimeout <= 0 {
		v.addError("orchestrator.default_worker_timeout", "must be positive")
	}
}

func (v *Validator) validateLimiter(cfg *LimiterConfig) {
	if cfg.MaxConcurrent <= 0 {
		v.addError("limiter.max_concurrent", "must be positive")
	}
}

func (v *Validator) validateRateLimiter(cfg *RateLimiterConfig) {
	if cfg.Rate <= 0 {
		v.addError("rate_limiter.rate", "must be positive")
	}
	if cfg.Burst < 1 {
		v.addError("rate_limiter.burst", "must be at least 1")
	}
	if cfg.MinRate <= 0 {
		v.addError("rate_limiter.min_rate", "must be positive")
	}
	if cfg.MaxRate < cfg.Rate {
		v.addError("rate_limiter.max_rate", "must be >= rate")
	}
	if cfg.MinRate > cfg.Rate {
		v.addError("rate_limiter.min_rate", "must be <= rate")
	}
	if cfg.Window <= 0 {
		v.addError("rate_limiter.window", "must be positive")
	}
	if cfg.Decay <= 0 || cfg.Decay >= 1 {
		v.addError("rate_limiter.decay", "must be in (0, 1)")
	}
	if cfg.Growth <= 1 {
		v.addError("rate_limiter.growth", "must be greater than 1")
	}
}

func (v *Validator) validateCache(cfg *CacheConfig) {
	if cfg.MemoryCapacity <= 0 {
		v.addError("cache.memory_capacity", "must be positive")
	}
	if cfg.MemoryTTL <= 0 {
		v.addError("cache.memory_ttl", "must be positive")
	}
	if cfg.SharedTTL < cfg.MemoryTTL {
		v.addError("cache.shared_ttl", "must be >= memory_ttl")
	}
	if cfg.ArchiveTTL < cfg.SharedTTL {
		v.addError("cache.archive_ttl", "must be >= shared_ttl")
	}
}

func (v *Validator) validateLogging(cfg *LoggingConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", cfg.Level))
	}
	switch cfg.Format {
	case "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", cfg.Format))
	}
	switch cfg.Output {
	case "stdout", "file", "both":
	default:
		v.addError("logging.output", fmt.Sprintf("invalid output: %s", cfg.Output))
	}
	if (cfg.Output == "file" || cfg.Output == "both") && cfg.FilePath == "" {
		v.addError("logging.file_path", "required when output is file or both")
	}
}
