package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/dshills/mdstream/pkg/types"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func dirOf(path string) string {
	return filepath.Dir(path)
}

// readInput reads a file, or stdin when path is "-" or empty
func readInput(path string) (string, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// modeColor colors a mode by how much work it saved
func modeColor(mode types.Mode) string {
	switch mode {
	case types.ModeCache, types.ModeAppend:
		return green(string(mode))
	case types.ModeChunked:
		return yellow(string(mode))
	case types.ModeFull:
		return red(string(mode))
	default:
		return string(mode)
	}
}

// formatStats renders counters on one line
func formatStats(s types.Stats) string {
	return fmt.Sprintf("mode=%s total=%d cache=%d append=%d full=%d chunked=%d resets=%d",
		modeColor(s.LastMode), s.Total, s.CacheHits, s.AppendHits, s.FullParses, s.ChunkedParses, s.Resets)
}
