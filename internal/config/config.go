// Package config manages mdstream configuration from files and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/mdstream/internal/markdown"
)

// EnvPrefix prefixes environment overrides, e.g. MDSTREAM_MARKDOWN_STREAM=true
const EnvPrefix = "MDSTREAM"

// Config holds the application configuration
type Config struct {
	Markdown MarkdownConfig `mapstructure:"markdown" yaml:"markdown"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Bench    BenchConfig    `mapstructure:"bench" yaml:"bench"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// MarkdownConfig mirrors markdown.Options
type MarkdownConfig struct {
	Stream                    bool    `mapstructure:"stream" yaml:"stream"`
	StreamOptimizationMinSize int     `mapstructure:"stream_optimization_min_size" yaml:"stream_optimization_min_size"`
	StreamChunkedFallback     bool    `mapstructure:"stream_chunked_fallback" yaml:"stream_chunked_fallback"`
	StreamChunkSizeChars      int     `mapstructure:"stream_chunk_size_chars" yaml:"stream_chunk_size_chars"`
	StreamChunkSizeLines      int     `mapstructure:"stream_chunk_size_lines" yaml:"stream_chunk_size_lines"`
	StreamChunkFenceAware     bool    `mapstructure:"stream_chunk_fence_aware" yaml:"stream_chunk_fence_aware"`
	StreamChunkAdaptive       bool    `mapstructure:"stream_chunk_adaptive" yaml:"stream_chunk_adaptive"`
	StreamChunkTargetChunks   int     `mapstructure:"stream_chunk_target_chunks" yaml:"stream_chunk_target_chunks"`
	StreamMaxChunks           int     `mapstructure:"stream_max_chunks" yaml:"stream_max_chunks"`
	FullChunkedFallback       bool    `mapstructure:"full_chunked_fallback" yaml:"full_chunked_fallback"`
	FullChunkThresholdChars   int     `mapstructure:"full_chunk_threshold_chars" yaml:"full_chunk_threshold_chars"`
	FullChunkThresholdLines   int     `mapstructure:"full_chunk_threshold_lines" yaml:"full_chunk_threshold_lines"`
	FullChunkSizeChars        int     `mapstructure:"full_chunk_size_chars" yaml:"full_chunk_size_chars"`
	FullChunkSizeLines        int     `mapstructure:"full_chunk_size_lines" yaml:"full_chunk_size_lines"`
	FullChunkFenceAware       bool    `mapstructure:"full_chunk_fence_aware" yaml:"full_chunk_fence_aware"`
	FullChunkMaxChunks        int     `mapstructure:"full_chunk_max_chunks" yaml:"full_chunk_max_chunks"`
	FullChunkAdaptive         bool    `mapstructure:"full_chunk_adaptive" yaml:"full_chunk_adaptive"`
	FullChunkTargetChunks     int     `mapstructure:"full_chunk_target_chunks" yaml:"full_chunk_target_chunks"`
	AutoTuneChunks            bool    `mapstructure:"auto_tune_chunks" yaml:"auto_tune_chunks"`
	OneShotMultiplier         float64 `mapstructure:"one_shot_multiplier" yaml:"one_shot_multiplier"`
	Breaks                    bool    `mapstructure:"breaks" yaml:"breaks"`
	LangPrefix                string  `mapstructure:"lang_prefix" yaml:"lang_prefix"`
}

// ScheduleConfig contains the debounce and throttle timings
type ScheduleConfig struct {
	DebounceWait     time.Duration `mapstructure:"debounce_wait" yaml:"debounce_wait"`
	ThrottleInterval time.Duration `mapstructure:"throttle_interval" yaml:"throttle_interval"`
}

// BenchConfig contains perf matrix settings
type BenchConfig struct {
	Sizes               []int   `mapstructure:"sizes" yaml:"sizes"`
	AppendSteps         int     `mapstructure:"append_steps" yaml:"append_steps"`
	Workers             int     `mapstructure:"workers" yaml:"workers"`
	RegressionThreshold float64 `mapstructure:"regression_threshold" yaml:"regression_threshold"` // fraction, 0.1 = 10%
}

// StorageConfig locates the perf history database
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls commonlog output
type LogConfig struct {
	Verbosity int    `mapstructure:"verbosity" yaml:"verbosity"`
	File      string `mapstructure:"file" yaml:"file"`
}

// Default returns the default configuration
func Default() *Config {
	opts := markdown.DefaultOptions()
	return &Config{
		Markdown: FromOptions(opts),
		Schedule: ScheduleConfig{
			DebounceWait:     150 * time.Millisecond,
			ThrottleInterval: 200 * time.Millisecond,
		},
		Bench: BenchConfig{
			Sizes:               []int{5_000, 20_000, 50_000, 100_000, 200_000},
			AppendSteps:         6,
			Workers:             4,
			RegressionThreshold: 0.10,
		},
		Storage: StorageConfig{
			Path: filepath.Join(Dir(), "perf.db"),
		},
	}
}

// Load reads the configuration. An empty path looks for config.yaml in Dir()
// and tolerates its absence; an explicit path must exist. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath(Dir())
	} else {
		v.SetConfigFile(path)
	}

	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Marshal encodes cfg as YAML
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Write saves cfg as YAML at path, creating parent directories
func Write(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Dir returns the mdstream configuration directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mdstream"
	}
	return filepath.Join(home, ".mdstream")
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// setDefaults registers every key of def with viper so environment
// overrides apply to keys the config file leaves out
func setDefaults(v *viper.Viper, def *Config) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}
	for key, value := range flatten("", tree) {
		v.SetDefault(key, value)
	}
	return nil
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = val
	}
	return out
}

// Options converts the markdown section into library options
func (m MarkdownConfig) Options() markdown.Options {
	return markdown.Options{
		Stream:                    m.Stream,
		StreamOptimizationMinSize: m.StreamOptimizationMinSize,
		StreamChunkedFallback:     m.StreamChunkedFallback,
		StreamChunkSizeChars:      m.StreamChunkSizeChars,
		StreamChunkSizeLines:      m.StreamChunkSizeLines,
		StreamChunkFenceAware:     m.StreamChunkFenceAware,
		StreamChunkAdaptive:       m.StreamChunkAdaptive,
		StreamChunkTargetChunks:   m.StreamChunkTargetChunks,
		StreamMaxChunks:           m.StreamMaxChunks,
		FullChunkedFallback:       m.FullChunkedFallback,
		FullChunkThresholdChars:   m.FullChunkThresholdChars,
		FullChunkThresholdLines:   m.FullChunkThresholdLines,
		FullChunkSizeChars:        m.FullChunkSizeChars,
		FullChunkSizeLines:        m.FullChunkSizeLines,
		FullChunkFenceAware:       m.FullChunkFenceAware,
		FullChunkMaxChunks:        m.FullChunkMaxChunks,
		FullChunkAdaptive:         m.FullChunkAdaptive,
		FullChunkTargetChunks:     m.FullChunkTargetChunks,
		AutoTuneChunks:            m.AutoTuneChunks,
		OneShotMultiplier:         m.OneShotMultiplier,
		Breaks:                    m.Breaks,
		LangPrefix:                m.LangPrefix,
	}
}

// FromOptions is the inverse of MarkdownConfig.Options. The Recommender
// has no file representation and is dropped.
func FromOptions(o markdown.Options) MarkdownConfig {
	return MarkdownConfig{
		Stream:                    o.Stream,
		StreamOptimizationMinSize: o.StreamOptimizationMinSize,
		StreamChunkedFallback:     o.StreamChunkedFallback,
		StreamChunkSizeChars:      o.StreamChunkSizeChars,
		StreamChunkSizeLines:      o.StreamChunkSizeLines,
		StreamChunkFenceAware:     o.StreamChunkFenceAware,
		StreamChunkAdaptive:       o.StreamChunkAdaptive,
		StreamChunkTargetChunks:   o.StreamChunkTargetChunks,
		StreamMaxChunks:           o.StreamMaxChunks,
		FullChunkedFallback:       o.FullChunkedFallback,
		FullChunkThresholdChars:   o.FullChunkThresholdChars,
		FullChunkThresholdLines:   o.FullChunkThresholdLines,
		FullChunkSizeChars:        o.FullChunkSizeChars,
		FullChunkSizeLines:        o.FullChunkSizeLines,
		FullChunkFenceAware:       o.FullChunkFenceAware,
		FullChunkMaxChunks:        o.FullChunkMaxChunks,
		FullChunkAdaptive:         o.FullChunkAdaptive,
		FullChunkTargetChunks:     o.FullChunkTargetChunks,
		AutoTuneChunks:            o.AutoTuneChunks,
		OneShotMultiplier:         o.OneShotMultiplier,
		Breaks:                    o.Breaks,
		LangPrefix:                o.LangPrefix,
	}
}
