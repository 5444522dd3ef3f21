package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/dshills/mdstream/internal/config"
	"github.com/dshills/mdstream/internal/markdown"
	"github.com/dshills/mdstream/pkg/types"
)

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Grow a document interactively through the stream engine",
		Long: `Type markdown a line at a time. A blank line submits the pending lines,
appending them to the document and parsing the whole document through the
stream engine. The resolved mode and counters are printed after each submit.

Commands: :show prints the document, :stats prints counters, :reset starts
over, :html renders the document, :quit exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.options()
			opts.Stream = true
			return runRepl(newReplSession(a.newMarkdown(opts)), cmd.OutOrStdout())
		},
	}
}

var replCommands = []string{":show", ":stats", ":reset", ":html", ":quit"}

func runRepl(s *replSession, out io.Writer) error {
	var history string
	if err := os.MkdirAll(config.Dir(), 0755); err == nil {
		history = filepath.Join(config.Dir(), "repl_history")
	}

	var items []readline.PrefixCompleterInterface
	for _, c := range replCommands {
		items = append(items, readline.PcItem(c))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "md> ",
		HistoryFile:     history,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(out, bold("mdstream repl")+" (blank line submits, :quit exits)")
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if line == "" {
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if quit := s.handle(line, out); quit {
			return nil
		}
		if s.pendingLines() > 0 {
			rl.SetPrompt("..> ")
		} else {
			rl.SetPrompt("md> ")
		}
	}
}

// replSession accumulates a document and submits it in blank-line
// delimited blocks, so every submit after the first is a clean append
type replSession struct {
	md      *markdown.Markdown
	doc     strings.Builder
	pending []string
}

func newReplSession(md *markdown.Markdown) *replSession {
	return &replSession{md: md}
}

func (s *replSession) pendingLines() int {
	return len(s.pending)
}

// handle processes one input line and reports whether the session should end
func (s *replSession) handle(line string, out io.Writer) bool {
	if len(s.pending) == 0 && strings.HasPrefix(line, ":") {
		return s.command(strings.TrimSpace(line), out)
	}

	if strings.TrimSpace(line) != "" {
		s.pending = append(s.pending, line)
		return false
	}
	if len(s.pending) == 0 {
		return false
	}

	tokens, err := s.submit()
	if err != nil {
		fmt.Fprintf(out, "%s %s\n", red("error:"), err)
		return false
	}
	fmt.Fprintf(out, "%d tokens  %s\n", len(tokens), formatStats(s.md.Stream().Stats()))
	return false
}

// submit appends the pending block, closed by a blank line, and parses the document
func (s *replSession) submit() ([]*types.Token, error) {
	for _, l := range s.pending {
		s.doc.WriteString(l)
		s.doc.WriteByte('\n')
	}
	s.doc.WriteByte('\n')
	s.pending = s.pending[:0]
	return s.md.Stream().Parse(s.doc.String(), nil)
}

func (s *replSession) command(cmd string, out io.Writer) bool {
	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":show":
		fmt.Fprint(out, s.doc.String())
	case ":stats":
		fmt.Fprintln(out, formatStats(s.md.Stream().Stats()))
	case ":reset":
		s.doc.Reset()
		s.pending = s.pending[:0]
		s.md.Stream().Reset()
		fmt.Fprintln(out, "document cleared")
	case ":html":
		fmt.Fprint(out, s.md.RenderTokens(s.md.Stream().Peek()))
	default:
		fmt.Fprintf(out, "%s unknown command %s\n", yellow("?"), cmd)
	}
	return false
}
