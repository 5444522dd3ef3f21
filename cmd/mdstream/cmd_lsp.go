package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/mdstream/internal/lsp"
	"github.com/dshills/mdstream/internal/parser"
)

func newLSPCmd(a *app) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Run the markdown language server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := lsp.Config{
				Tokenizer: parser.New(),
				Options:   a.options(),
				Wait:      a.cfg.Schedule.DebounceWait,
				Version:   version,
			}
			if cmd.Flags().Changed("wait") {
				cfg.Wait = wait
			}
			return lsp.NewServer(cfg).RunStdio()
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "debounce wait before diagnostics (default from config)")
	return cmd
}
