package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mdstream/internal/markdown"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.Markdown.Stream)
	assert.Equal(t, 1000, cfg.Markdown.StreamOptimizationMinSize)
	assert.Equal(t, 2.5, cfg.Markdown.OneShotMultiplier)
	assert.Equal(t, 150*time.Millisecond, cfg.Schedule.DebounceWait)
	assert.Equal(t, 200*time.Millisecond, cfg.Schedule.ThrottleInterval)
	assert.Equal(t, 0.10, cfg.Bench.RegressionThreshold)
	assert.Equal(t, "perf.db", filepath.Base(cfg.Storage.Path))
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdstream.yaml")
	body := `markdown:
  stream: true
  stream_optimization_min_size: 50
  stream_chunk_size_chars: 12000
schedule:
  debounce_wait: 40ms
bench:
  sizes: [1000, 2000]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Markdown.Stream)
	assert.Equal(t, 50, cfg.Markdown.StreamOptimizationMinSize)
	assert.Equal(t, 12000, cfg.Markdown.StreamChunkSizeChars)
	assert.Equal(t, 40*time.Millisecond, cfg.Schedule.DebounceWait)
	assert.Equal(t, []int{1000, 2000}, cfg.Bench.Sizes)

	// Keys absent from the file keep their defaults
	assert.Equal(t, 200*time.Millisecond, cfg.Schedule.ThrottleInterval)
	assert.True(t, cfg.Markdown.StreamChunkFenceAware)
	assert.Equal(t, 6, cfg.Bench.AppendSteps)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Markdown, cfg.Markdown)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MDSTREAM_MARKDOWN_STREAM", "true")
	t.Setenv("MDSTREAM_MARKDOWN_STREAM_MAX_CHUNKS", "4")
	t.Setenv("MDSTREAM_LOG_VERBOSITY", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Markdown.Stream)
	assert.Equal(t, 4, cfg.Markdown.StreamMaxChunks)
	assert.Equal(t, 2, cfg.Log.Verbosity)
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Markdown.Stream = true
	cfg.Markdown.LangPrefix = "lang-"
	cfg.Schedule.DebounceWait = time.Second

	require.NoError(t, Write(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Markdown, loaded.Markdown)
	assert.Equal(t, time.Second, loaded.Schedule.DebounceWait)
}

func TestMarshal_DurationsAreReadable(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)
	assert.Contains(t, string(data), "debounce_wait: 150ms")
}

func TestOptionsConversion(t *testing.T) {
	opts := markdown.DefaultOptions()
	opts.Stream = true
	opts.StreamMaxChunks = 3

	mc := FromOptions(opts)
	back := mc.Options()

	assert.Equal(t, opts.Stream, back.Stream)
	assert.Equal(t, opts.StreamMaxChunks, back.StreamMaxChunks)
	assert.Equal(t, opts.FullChunkThresholdChars, back.FullChunkThresholdChars)
	assert.Equal(t, opts.LangPrefix, back.LangPrefix)
	assert.Nil(t, back.Recommender)
}

func TestFlatten(t *testing.T) {
	flat := flatten("", map[string]any{
		"a": 1,
		"b": map[string]any{"c": "x", "d": map[string]any{"e": true}},
	})
	assert.Equal(t, map[string]any{"a": 1, "b.c": "x", "b.d.e": true}, flat)
}
