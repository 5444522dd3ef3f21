package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/mdstream/pkg/types"
)

func newParseCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a markdown document and print its tokens",
		Long: `Parse a markdown document in one shot and print the token stream.
Large documents are chunked according to the full_chunk_* settings.
Reads stdin when no file (or "-") is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(firstArg(args))
			if err != nil {
				return err
			}

			opts := a.options()
			opts.Stream = false
			md := a.newMarkdown(opts)

			env := types.NewEnv()
			tokens, err := md.Parse(text, env)
			if err != nil {
				return fmt.Errorf("parse failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(tokens)
			}
			writeTokens(out, tokens)
			if info, ok := env.ChunkInfo(); ok {
				fmt.Fprintf(out, "\n%s %d chunks (max %d chars, %d lines)\n",
					yellow("chunked:"), info.Count, info.MaxChunkChars, info.MaxChunkLines)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print tokens as JSON")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// writeTokens prints one token per line, indented by nesting depth
func writeTokens(w io.Writer, tokens []*types.Token) {
	depth := 0
	for _, t := range tokens {
		if t.Nesting < 0 {
			depth--
		}
		if depth < 0 {
			depth = 0
		}

		line := strings.Repeat("  ", depth) + t.Type
		if t.Tag != "" {
			line += " <" + t.Tag + ">"
		}
		if t.Map != nil {
			line += fmt.Sprintf(" [%d,%d)", t.Map.Start, t.Map.End)
		}
		if t.Type == "inline" || t.Type == "fence" {
			line += " " + quote(t.Content)
		}
		fmt.Fprintln(w, line)

		if t.Nesting > 0 {
			depth++
		}
	}
}

func quote(s string) string {
	const max = 60
	if len(s) > max {
		s = s[:max] + "..."
	}
	return fmt.Sprintf("%q", s)
}
