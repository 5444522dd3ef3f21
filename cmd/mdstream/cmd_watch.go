package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/mdstream/internal/parser"
	"github.com/dshills/mdstream/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		wait     time.Duration
		throttle bool
	)

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-parse a markdown file as it changes",
		Long: `Follow a markdown file and feed every saved version to the stream engine.
Each completed parse prints the resolved mode and the running counters, so
you can see appends hit the fast path while a file grows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := watch.Config{
				Tokenizer: parser.New(),
				Options:   a.options(),
				Wait:      a.cfg.Schedule.DebounceWait,
				OnUpdate:  printUpdate(cmd.OutOrStdout()),
			}
			if cmd.Flags().Changed("wait") {
				cfg.Wait = wait
			}
			if throttle {
				cfg.Throttle = a.cfg.Schedule.ThrottleInterval
			}

			w, err := watch.New(args[0], cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl+C to stop)\n", w.Path())
			return w.Start(ctx)
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "debounce wait (default from config)")
	cmd.Flags().BoolVar(&throttle, "throttle", false, "parse at a steady rate while the file keeps changing")
	return cmd
}

func printUpdate(w io.Writer) watch.Handler {
	return func(u watch.Update) {
		ts := u.Time.Format("15:04:05.000")
		if u.Err != nil {
			fmt.Fprintf(w, "%s %s %s\n", ts, red("error"), u.Err)
			return
		}
		fmt.Fprintf(w, "%s %4d tokens  %s\n", ts, len(u.Tokens), formatStats(u.Stats))
	}
}
