package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/dshills/mdstream/internal/config"
	"github.com/dshills/mdstream/internal/markdown"
	"github.com/dshills/mdstream/internal/parser"
	"github.com/dshills/mdstream/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const annotationCreatesConfig = "mdstream/creates-config"

// app carries state shared by every subcommand
type app struct {
	configPath string
	verbose    int
	logFile    string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "mdstream",
		Short:        "Incremental markdown parsing for streaming text",
		Version:      fmt.Sprintf("%s (built %s, %s sqlite)", version, buildTime, storage.BuildMode),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.mdstream/config.yaml)")
	flags.CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	flags.StringVar(&a.logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newParseCmd(a))
	rootCmd.AddCommand(newRenderCmd(a))
	rootCmd.AddCommand(newChunksCmd())
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newReplCmd(a))
	rootCmd.AddCommand(newMCPCmd(a))
	rootCmd.AddCommand(newLSPCmd(a))
	rootCmd.AddCommand(newBenchCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// setup loads configuration and installs the log backend. Flags win over
// the config file.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	a.cfg = cfg

	verbosity := cfg.Log.Verbosity
	if a.verbose > 0 {
		verbosity = a.verbose
	}
	path := cfg.Log.File
	if a.logFile != "" {
		path = a.logFile
	}
	// Logs never go to stdout: mcp and lsp own it
	if path == "" {
		commonlog.Configure(verbosity, nil)
	} else {
		commonlog.Configure(verbosity, &path)
	}
	return nil
}

// loadConfig reads the config file. "config init" may name a file that does
// not exist yet.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Annotations[annotationCreatesConfig] != "" && a.configPath != "" {
		if _, err := os.Stat(a.configPath); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(a.configPath)
}

// options returns the markdown options from config
func (a *app) options() markdown.Options {
	return a.cfg.Markdown.Options()
}

// newMarkdown builds a Markdown instance over the default tokenizer
func (a *app) newMarkdown(opts markdown.Options) *markdown.Markdown {
	return markdown.New(parser.New(), opts)
}

// openStore opens the perf history database named in config
func (a *app) openStore() (*storage.SQLiteStorage, error) {
	path := a.cfg.Storage.Path
	if path != ":memory:" {
		if err := os.MkdirAll(dirOf(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return storage.NewSQLiteStorage(path)
}
