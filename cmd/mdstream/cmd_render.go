package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRenderCmd(a *app) *cobra.Command {
	var output string
	var breaks bool

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a markdown document to HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(firstArg(args))
			if err != nil {
				return err
			}

			opts := a.options()
			opts.Stream = false
			if cmd.Flags().Changed("breaks") {
				opts.Breaks = breaks
			}

			html, err := a.newMarkdown(opts).Render(text, nil)
			if err != nil {
				return fmt.Errorf("render failed: %w", err)
			}

			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), html)
				return err
			}
			if err := os.WriteFile(output, []byte(html), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write HTML to this file")
	cmd.Flags().BoolVar(&breaks, "breaks", false, "render soft line breaks as <br>")
	return cmd
}
