package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/dshills/mdstream/internal/mcp"
	"github.com/dshills/mdstream/internal/parser"
	"github.com/dshills/mdstream/internal/storage"
)

func newMCPCmd(a *app) *cobra.Command {
	var (
		maxSessions int
		noHistory   bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the stream parser as MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := commonlog.GetLogger("mdstream")
			log.Infof("mdstream MCP server %s starting (%s, driver %s)", version, storage.BuildMode, storage.DriverName)

			cfg := mcp.Config{
				Tokenizer:   parser.New(),
				Options:     a.options(),
				MaxSessions: maxSessions,
			}
			if !noHistory {
				store, err := a.openStore()
				if err != nil {
					// perf_status is optional; the parse tools still work
					log.Warningf("perf history unavailable: %s", err)
				} else {
					defer store.Close()
					cfg.Store = store
				}
			}

			server, err := mcp.NewServer(cfg)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Serve(ctx)
			}()

			select {
			case sig := <-sigChan:
				log.Infof("received signal %v, shutting down", sig)
				cancel()
			case err := <-errChan:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			}

			log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSessions, "max-sessions", mcp.DefaultMaxSessions, "open documents kept before the least recently used is evicted")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not open the perf history database")
	return cmd
}
