// Package config provides configuration loading for the analysis engine.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for the analysis engine.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Limiter      LimiterConfig      `yaml:"limiter"`
	RateLimiter  RateLimiterConfig  `yaml:"rate_limiter"`
	Cache        CacheConfig        `yaml:"cache"`
	LLM          LLMConfig          `yaml:"llm"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// OrchestratorConfig holds top-level orchestration settings.
type OrchestratorConfig struct {
	// RequestDeadline is the wall-clock budget for one Run call.
	RequestDeadline time.Duration `yaml:"request_deadline" env:"AE_REQUEST_DEADLINE"`
	// DegradationFactor multiplies confidence once per missing optional worker.
	DegradationFactor float64 `yaml:"degradation_factor" env:"AE_DEGRADATION_FACTOR"`
	// ConfidenceFloor is the minimum confidence of a usable result.
	ConfidenceFloor float64 `yaml:"confidence_floor" env:"AE_CONFIDENCE_FLOOR"`
	// DefaultWorkerTimeout applies to workers that declare no timeout.
	DefaultWorkerTimeout time.Duration `yaml:"default_worker_timeout" env:"AE_DEFAULT_WORKER_TIMEOUT"`
}

// LimiterConfig holds concurrency limiter settings.
type LimiterConfig struct {
	// MaxConcurrent caps system-wide in-flight worker invocations.
	MaxConcurrent int `yaml:"max_concurrent" env:"AE_MAX_CONCURRENT"`
}

// RateLimiterConfig holds adaptive rate limiter settings for the shared
// LLM dependency.
type RateLimiterConfig struct {
	Rate    float64 `yaml:"rate" env:"AE_RATE"`         // tokens per second
	Burst   float64 `yaml:"burst" env:"AE_BURST"`       // bucket capacity
	MinRate float64 `yaml:"min_rate" env:"AE_MIN_RATE"` // recovery probe floor
	MaxRate float64 `yaml:"max_rate" env:"AE_MAX_RATE"`
	Window  int     `yaml:"window" env:"AE_WINDOW"` // rolling error window size
	Decay   float64 `yaml:"decay" env:"AE_DECAY"`   // rate multiplier on high error rate
	Growth  float64 `yaml:"growth" env:"AE_GROWTH"` // rate multiplier on clean window
}

// CacheConfig holds tiered cache settings.
type CacheConfig struct {
	MemoryCapacity int           `yaml:"memory_capacity" env:"AE_CACHE_MEMORY_CAPACITY"`
	MemoryTTL      time.Duration `yaml:"memory_ttl" env:"AE_CACHE_MEMORY_TTL"`
	SharedTTL      time.Duration `yaml:"shared_ttl" env:"AE_CACHE_SHARED_TTL"`
	ArchiveTTL     time.Duration `yaml:"archive_ttl" env:"AE_CACHE_ARCHIVE_TTL"`
	Redis          RedisConfig   `yaml:"redis"`
}

// RedisConfig holds connection settings for the shared cache tiers.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"AE_REDIS_ADDR"`
	Password  string `yaml:"password" env:"AE_REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"AE_REDIS_DB"`
	ArchiveDB int    `yaml:"archive_db" env:"AE_REDIS_ARCHIVE_DB"`
}

// LLMConfig holds settings for the external reasoning service.
type LLMConfig struct {
	Provider    string        `yaml:"provider" env:"AE_LLM_PROVIDER"`
	Model       string        `yaml:"model" env:"AE_LLM_MODEL"`
	APIKey      string        `yaml:"api_key" env:"AE_LLM_API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"AE_LLM_BASE_URL"`
	Temperature float32       `yaml:"temperature" env:"AE_LLM_TEMPERATURE"`
	MaxTokens   int           `yaml:"max_tokens" env:"AE_LLM_MAX_TOKENS"`
	Timeout     time.Duration `yaml:"timeout" env:"AE_LLM_TIMEOUT"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" env:"AE_LOG_LEVEL"`
	Format   string `yaml:"format" env:"AE_LOG_FORMAT"`
	Output   string `yaml:"output" env:"AE_LOG_OUTPUT"`
	FilePath string `yaml:"file_path" env:"AE_LOG_FILE_PATH"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			RequestDeadline:      2 * time.Minute,
			DegradationFactor:    0.85,
			ConfidenceFloor:      0.1,
			DefaultWorkerTimeout: 30 * time.Second,
		},
		Limiter: LimiterConfig{
			MaxConcurrent: 5,
		},
		RateLimiter: RateLimiterConfig{
			Rate:    10,
			Burst:   20,
			MinRate: 0.1,
			MaxRate: 50,
			Window:  50,
			Decay:   0.8,
			Growth:  1.1,
		},
		Cache: CacheConfig{
			MemoryCapacity: 1024,
			MemoryTTL:      5 * time.Minute,
			SharedTTL:      time.Hour,
			ArchiveTTL:     24 * time.Hour,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				DB:        0,
				ArchiveDB: 1,
			},
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   4096,
			Timeout:     60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// WithConfigPath sets the path to the YAML configuration file.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load loads configuration from all sources with proper precedence:
// defaults < YAML file < environment variables
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("从文件加载配置失败: %w", err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("应用环境变量覆盖失败: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	return l.applyEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// applyEnvToStruct recursively applies environment variables to struct fields.
func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct && fieldType.Type != reflect.TypeOf(time.Duration(0)) {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("从环境变量 %s 设置字段 %s 失败: %w", envTag, fieldType.Name, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value from its string representation.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration is an int64 kind; accept "30s" style values for it.
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field kind: %s", field.Kind())
	}

	return nil
}
