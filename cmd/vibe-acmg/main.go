// Package main provides the vibe-acmg command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks errors caused by bad arguments rather than by the run.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(os.Stderr, "Run 'vibe-acmg %s --help' for usage.\n", commandName(root, args))
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// commandName returns the subcommand path args resolve to, for hints.
func commandName(root *cobra.Command, args []string) string {
	cmd, _, err := root.Find(args)
	if err != nil || cmd == root {
		return ""
	}
	return strings.TrimPrefix(cmd.CommandPath(), root.Name()+" ")
}

// app holds state shared by every subcommand after flag parsing.
type app struct {
	cfgFile string
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "vibe-acmg",
		Short: "ACMG/AMP evidence assignment for rare-disease variants",
		Long: `vibe-acmg assigns ACMG/AMP criteria (PS1, PM5, PP2, BP1, BS2, PM2, BP7 and
others) to candidate variants using a local ClinVar release, and combines
the met criteria into a five-tier classification.

Set up the reference data once:

  vibe-acmg transcripts download
  vibe-acmg transcripts load
  vibe-acmg build clinvar.vcf.gz

then classify a family:

  vibe-acmg assign --ped family.ped --proband P1 --mode AD --mode AR annotated.vcf.gz`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetVersionTemplate("vibe-acmg version {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.vibe-acmg.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug messages to stderr")
	root.PersistentFlags().String("assembly", "GRCh38", "Genome assembly: GRCh37 or GRCh38")
	_ = viper.BindPFlag("assembly", root.PersistentFlags().Lookup("assembly"))

	root.AddCommand(
		newBuildCmd(a),
		newAssignCmd(a),
		newQueryCmd(a),
		newScoresCmd(a),
		newTranscriptsCmd(a),
		newStatusCmd(a),
		newConfigCmd(),
	)
	return root
}

// initConfig reads ~/.vibe-acmg.yaml (or path) and VIBE_ACMG_* variables.
// A missing default config file is not an error.
func initConfig(path string) error {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".vibe-acmg")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("VIBE_ACMG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("workers", 0)
	viper.SetDefault("reannotation.cache_size", 65536)
	viper.SetDefault("transcripts.canonical_column", "")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// dataDir returns the per-assembly directory holding downloaded files and
// stores unless the config points elsewhere.
func dataDir() string {
	if dir := viper.GetString("data_dir"); dir != "" {
		return filepath.Join(dir, strings.ToLower(viper.GetString("assembly")))
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vibe-acmg", strings.ToLower(viper.GetString("assembly")))
}

// storePath returns the configured path of a store, e.g. "clinvar" ->
// stores.clinvar or <data dir>/clinvar.duckdb.
func storePath(name string) string {
	if p := viper.GetString("stores." + name); p != "" {
		return p
	}
	return filepath.Join(dataDir(), name+".duckdb")
}

func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
