package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jward/staticrefl"
	"github.com/jward/staticrefl/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagDB      string
	flagFormat  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "staticrefl",
	Short:         "Static reflection for PHP class hierarchies",
	Long:          "staticrefl indexes PHP declarations with tree-sitter into SQLite and answers reflection queries without executing code.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		slog.SetDefault(newLogger(flagVerbose))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: staticrefl.yaml|yml|toml in the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .staticrefl/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(whereCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(classesCmd)
	rootCmd.AddCommand(subclassesCmd)
}

// newLogger returns the stderr text logger installed for every command.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index the PHP declarations of a project",
	Long:  "Parses PHP files with tree-sitter and writes class and interface declarations to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return err
	}

	if flagForce {
		dbPath := cfg.DatabasePath(repoRoot)
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	engine, err := staticrefl.NewFromConfig(repoRoot, cfg, staticrefl.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if engine.IndexStale() {
		slog.Info("index format changed, reindexing", slog.String("format", staticrefl.IndexFormat))
		if err := engine.Reset(); err != nil {
			return err
		}
	}

	if err := engine.IndexDirectory(context.Background(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	files, err := engine.Query().Files()
	if err != nil {
		return err
	}
	classes, err := engine.Query().Classes("")
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d files, %d classes)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		len(files),
		len(classes),
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.DatabasePath(repoRoot))
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// loadConfig reads the --config file, or discovers one in repoRoot, and
// applies the --db override.
func loadConfig(repoRoot string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		var path string
		cfg, path, err = config.Discover(repoRoot)
		if path != "" {
			slog.Debug("loaded config", slog.String("path", path))
		}
	}
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database = resolveDBPath(repoRoot)
	}
	return cfg, nil
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, config.DefaultDatabase)
}
