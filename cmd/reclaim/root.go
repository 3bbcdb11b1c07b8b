package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "reclaim [paths...]",
		Short: "Find reclaimable disk space",
		Long: `Reclaim scans directories for cleanup candidates: stale temporary
files, oversized build and cache folders, large media, and duplicate
files wasting space across the tree.

Running reclaim with no subcommand scans immediately. Paths given on
the command line override the configured scan paths.

Examples:
  reclaim                        # Scan configured paths
  reclaim ~/Downloads            # Scan a specific directory
  reclaim -s 10M ~/projects      # Raise the duplicate-detection size floor
  reclaim --mode foreground .    # Use every core for a faster scan
  reclaim -o json . > scan.json  # Machine-readable output
  reclaim history                # List previous scan sessions
  reclaim config show            # Show configuration`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runScan,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// errInterrupted marks a scan stopped by the user. main maps it to exit
// code 130 after partial results have been printed and persisted.
var errInterrupted = errors.New("interrupted")

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/reclaim/config.yaml)")
	rootCmd.PersistentFlags().StringP("format", "o", "pretty", "output format (pretty, plain, json, yaml, ...)")
	rootCmd.PersistentFlags().String("template", "", "Go template for -o template output")
	rootCmd.PersistentFlags().String("log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Scan flags; zero values mean "use the configured value"
	rootCmd.PersistentFlags().StringP("min-size", "s", "", "minimum file size for duplicate detection (e.g., 1M, 100K)")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "glob patterns to skip (replaces configured patterns)")
	rootCmd.PersistentFlags().Int("max-depth", 0, "maximum directory depth below each root")
	rootCmd.PersistentFlags().Bool("follow-symlinks", false, "follow symlinked directories")
	rootCmd.PersistentFlags().String("mode", "", "scan mode (background, foreground)")
	rootCmd.PersistentFlags().IntP("threads", "t", 0, "worker pool ceiling (0=configured)")
	rootCmd.PersistentFlags().Bool("no-progress", false, "disable the progress bar")
	rootCmd.PersistentFlags().Bool("no-history", false, "do not record this session in history")

	// Bind flags to viper
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("template", rootCmd.PersistentFlags().Lookup("template"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("min_size", rootCmd.PersistentFlags().Lookup("min-size"))
	_ = viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("max_depth", rootCmd.PersistentFlags().Lookup("max-depth"))
	_ = viper.BindPFlag("follow_symlinks", rootCmd.PersistentFlags().Lookup("follow-symlinks"))
	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("threads", rootCmd.PersistentFlags().Lookup("threads"))
	_ = viper.BindPFlag("no_progress", rootCmd.PersistentFlags().Lookup("no-progress"))
	_ = viper.BindPFlag("no_history", rootCmd.PersistentFlags().Lookup("no-history"))
}

// initConfig enables environment variable overrides for the flag-backed
// keys. The config file itself is read by the config package, which owns
// the full schema.
func initConfig() {
	viper.SetEnvPrefix("RECLAIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command. Errors are printed here because cobra's
// own reporting is silenced; an interrupted scan already explained itself.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errInterrupted) {
		printError("%v", err)
	}
	return err
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
