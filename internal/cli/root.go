// Package cli implements the gridbook command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds the global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state shared by subcommands once configuration is loaded.
type app struct {
	flags    rootFlags
	settings *Settings
	logger   *slog.Logger
	stderr   io.Writer
}

// NewRootCmd creates the gridbook command with global flags and every
// subcommand registered.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}
	root := &cobra.Command{
		Use:     "gridbook",
		Short:   "A typed spreadsheet store with a query API",
		Long:    "gridbook keeps named sheets of cells in SQLite or PostgreSQL, validates\ncells against per-column rules, and serves filtered, sorted pages over HTTP.",
		Version: Version,
		// usage is noise for errors returned by subcommands
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stderr = cmd.ErrOrStderr()
			return a.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newConfigCmd(a),
		newServeCmd(a),
		newSheetsCmd(a),
		newQueryCmd(a),
		newSetCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "gridbook:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitCode separates caller mistakes from system failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidArgument),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrConflict):
		return exitUserError
	}
	return exitSysError
}

// load resolves configuration and builds the logger.
func (a *app) load() error {
	s, err := loadSettings(a.flags.configDir, a.flags.dataDir)
	if err != nil {
		return err
	}
	logger, err := newLogger(a.stderr, s.LogLevel, s.LogFormat)
	if err != nil {
		return err
	}
	a.settings = s
	a.logger = logger
	return nil
}
