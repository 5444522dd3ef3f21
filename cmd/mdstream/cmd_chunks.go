package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/mdstream/internal/chunker"
	"github.com/dshills/mdstream/pkg/types"
)

func newChunksCmd() *cobra.Command {
	var (
		maxChars  int
		maxLines  int
		maxChunks int
		noFence   bool
		showText  bool
	)

	cmd := &cobra.Command{
		Use:   "chunks [file]",
		Short: "Show how a document splits into fragments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(firstArg(args))
			if err != nil {
				return err
			}

			policy := types.ChunkPolicy{
				MaxChunkChars: maxChars,
				MaxChunkLines: maxLines,
				FenceAware:    !noFence,
				MaxChunks:     maxChunks,
			}.WithDefaults()
			frags := chunker.Describe(chunker.Cap(chunker.Split(text, policy), policy.MaxChunks))

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tSTART\tLINES\tCHARS")
			for _, f := range frags {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", f.Index, f.StartLine, f.Lines, f.Chars)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if showText {
				for _, f := range frags {
					fmt.Fprintf(out, "\n%s\n%s", yellow(fmt.Sprintf("--- chunk %d ---", f.Index)), f.Text)
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&maxChars, "max-chars", types.DefaultMaxChunkChars, "per-fragment character ceiling")
	flags.IntVar(&maxLines, "max-lines", types.DefaultMaxChunkLines, "per-fragment line ceiling")
	flags.IntVar(&maxChunks, "max-chunks", 0, "merge trailing fragments beyond this count (0 = no cap)")
	flags.BoolVar(&noFence, "no-fence-aware", false, "allow splits inside fenced code blocks")
	flags.BoolVar(&showText, "text", false, "print each fragment's text")
	return cmd
}
