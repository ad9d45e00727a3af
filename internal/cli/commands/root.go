package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cimbios/CimBios.Core-sub000/internal/cli/config"
	"github.com/Cimbios/CimBios.Core-sub000/internal/cli/ui"
	"github.com/Cimbios/CimBios.Core-sub000/internal/logging"
	"github.com/Cimbios/CimBios.Core-sub000/internal/schema"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Global flags shared by every command
var (
	configPath string
	schemaPath string
	logLevel   string
	noColor    bool
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cimbios",
		Short: "Schema-driven object graphs and difference documents",
		Long: color.CyanString(`cimbios - schema-driven object graph toolkit

cimbios loads graph documents against a meta-schema, computes the
differences between two graphs and replays difference documents
onto a graph.

Features:
  • Strict and weak (schema-free) objects
  • Forward and reverse difference sets
  • Canonical JSON documents
  • Parallel graph comparison`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ./cimbios.yaml)")
	flags.StringVar(&schemaPath, "schema", "", "schema definition file, overrides the config")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error or off")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewCompareCommand())
	rootCmd.AddCommand(NewApplyCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewSchemaCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the cimbios version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			if noColor {
				titleColor.DisableColor()
			}

			titleColor.Fprint(out, "cimbios version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// environment is what a command needs after flags and config are merged
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	schema *schema.Schema
}

// setup loads the configuration, builds the logger and loads the schema
func setup(cmd *cobra.Command) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, reportFailure(cmd, ui.ConfigError(err.Error(), noColor), err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if schemaPath != "" {
		cfg.Schema = schemaPath
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	}, cmd.ErrOrStderr())
	if err != nil {
		return nil, reportFailure(cmd, ui.ConfigError(err.Error(), noColor), err)
	}

	if cfg.Schema == "" {
		err := fmt.Errorf("no schema configured")
		return nil, reportFailure(cmd, ui.ConfigError("No schema file configured. Pass --schema or set 'schema' in cimbios.yaml.", noColor), err)
	}
	s, err := schema.LoadFile(cfg.Schema)
	if err != nil {
		return nil, err
	}
	logger.Debug("schema loaded", zap.String("path", cfg.Schema), zap.Int("classes", s.Count()))

	return &environment{cfg: cfg, logger: logger, schema: s}, nil
}

// reportFailure prints a formatted message and returns err marked as reported
func reportFailure(cmd *cobra.Command, message string, err error) error {
	fmt.Fprint(cmd.ErrOrStderr(), message)
	return &reportedError{err: err}
}

// reportedError has already been shown to the user
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// openOutput returns the writer for an output flag; empty or "-" means stdout
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
