package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reclaimtool/reclaim/pkg/reclaim/config"
	"github.com/reclaimtool/reclaim/pkg/reclaim/logging"
	"github.com/reclaimtool/reclaim/pkg/reclaim/output"
	"github.com/reclaimtool/reclaim/pkg/reclaim/pipeline"
	"github.com/reclaimtool/reclaim/pkg/reclaim/progress"
	"github.com/reclaimtool/reclaim/pkg/reclaim/sched"
	"github.com/reclaimtool/reclaim/pkg/reclaim/store"
	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Scan directories for reclaimable space",
	Long: `Scan analyzes directories for cleanup candidates and duplicate files.

Paths given on the command line override the configured scan paths.
All scan flags of the root command apply here too.`,
	Args: cobra.ArbitraryArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// runScan is the main scan command handler, shared by the root command.
func runScan(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyOverrides(cfg, args); err != nil {
		return err
	}

	scanCfg, err := cfg.Resolve()
	if err != nil {
		return err
	}

	// Resolve the formatter up front so a bad --format fails before any
	// work starts.
	formatter, err := resolveFormatter()
	if err != nil {
		return err
	}

	showBar := progressEnabled(cfg)
	if err := initScanLogging(cfg, showBar); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logging.Close() }()

	// History is best effort: a locked or unopenable store downgrades to
	// a plain scan rather than failing it.
	var history *store.Store
	warmStart := 0
	if cfg.History.Enabled && !viper.GetBool("no_history") {
		history, err = openStore()
		if err != nil {
			printVerbose("history disabled: %v", err)
			history = nil
		} else {
			defer func() { _ = history.Close() }()
			if hint, ok := history.WorkerHint(); ok {
				warmStart = hint
				printVerbose("warm starting with %d workers", hint)
			}
		}
	}

	tracker := progress.NewTracker()
	scheduler := sched.New(sched.Options{
		Mode:             scanCfg.Mode,
		MaxThreads:       scanCfg.MaxThreads,
		IOThrottling:     scanCfg.IOThrottling,
		WarmStartWorkers: warmStart,
		Tuning:           sched.DefaultTuning(scanCfg.CPULimitPercent, scanCfg.MemoryLimitMB),
	})

	var bus *progress.Broadcaster
	stopBar := func() {}
	if showBar {
		bus = progress.NewBroadcaster()
		stopBar = startProgressBar(bus)
	}

	pipe, err := pipeline.New(pipeline.Options{
		Config:      scanCfg,
		Tracker:     tracker,
		Broadcaster: bus,
		Scheduler:   scheduler,
	})
	if err != nil {
		if bus != nil {
			bus.Close()
		}
		stopBar()
		return err
	}

	// First signal cancels the session and lets it finish with partial
	// results; a second one exits immediately.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, finishing up (press again to force quit)...")
		tracker.Cancel()
		<-sigChan
		os.Exit(130)
	}()

	printVerbose("scanning %s", strings.Join(scanCfg.Paths, ", "))

	result, runErr := pipe.Run(context.Background())

	if bus != nil {
		bus.Close()
	}
	stopBar()

	if runErr != nil {
		return fmt.Errorf("scan failed: %w", runErr)
	}

	persistSession(history, result, scheduler, cfg.History.MaxSessions)

	var buf bytes.Buffer
	report := &output.Report{
		Summary:         result.Summary,
		Classifications: result.Classifications,
		Groups:          result.Groups,
	}
	if err := formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())

	if result.Summary.Reason == types.ReasonCancelled {
		return errInterrupted
	}
	return nil
}

// applyOverrides folds command-line arguments and flags into the loaded
// configuration. Zero-valued flags leave the configured values alone.
func applyOverrides(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		paths := make([]string, 0, len(args))
		for _, arg := range args {
			expanded, err := config.ExpandPath(arg)
			if err != nil {
				return err
			}
			// Explicit paths must exist; configured paths are allowed to
			// be absent and are reported as non-fatal scan errors.
			if _, err := os.Stat(expanded); err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("path does not exist: %s", expanded)
				}
				return fmt.Errorf("cannot access path: %w", err)
			}
			paths = append(paths, expanded)
		}
		cfg.Scan.Paths = paths
	}

	if v := viper.GetString("min_size"); v != "" {
		cfg.Scan.MinFileSize = v
	}
	if v := viper.GetStringSlice("exclude"); len(v) > 0 {
		cfg.Scan.ExcludePatterns = v
	}
	if v := viper.GetInt("max_depth"); v > 0 {
		cfg.Scan.MaxDepth = v
	}
	if viper.GetBool("follow_symlinks") {
		cfg.Scan.FollowSymlinks = true
	}
	if v := viper.GetString("mode"); v != "" {
		cfg.Performance.Mode = v
	}
	if v := viper.GetInt("threads"); v > 0 {
		cfg.Performance.MaxThreads = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.Logging.Level = v
	}
	if getVerbose() {
		cfg.Logging.Level = "debug"
	}
	return nil
}

// initScanLogging configures the logging registry for a scan run. Console
// output is suppressed in quiet mode and while the progress bar owns
// stderr; file logging is unaffected.
func initScanLogging(cfg *config.Config, barActive bool) error {
	return logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		Quiet:      getQuiet() || barActive,
		Components: cfg.Logging.Components,
	})
}

// resolveFormatter picks the output formatter from the format flag, with
// template output handled separately because it needs the template string.
func resolveFormatter() (output.Formatter, error) {
	name := viper.GetString("format")
	if name == "" {
		name = "pretty"
	}

	if name == "template" {
		tmplStr := viper.GetString("template")
		if tmplStr == "" {
			return nil, fmt.Errorf("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(tmplStr), nil
	}

	formatter, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, output.Available())
	}
	return formatter, nil
}

// progressEnabled reports whether the live progress bar should render.
func progressEnabled(cfg *config.Config) bool {
	if getQuiet() || viper.GetBool("no_progress") {
		return false
	}
	return cfg.UI.ShowProgress
}

// startProgressBar renders scan progress on stderr until the event stream
// ends. The returned stop function waits for the renderer to clear the
// bar so results never print over it.
func startProgressBar(bus *progress.Broadcaster) func() {
	sub := bus.Subscribe()
	if sub == nil {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
		)

		var rendered int64
		sized := false
		for ev := range sub.Events {
			if !sized && ev.EstimatedTotal > 0 {
				bar.ChangeMax64(ev.EstimatedTotal)
				sized = true
			}
			bar.Describe(fmt.Sprintf("Scanning (%s)", types.FormatSize(ev.Bytes)))
			if ev.Files > rendered {
				_ = bar.Add64(ev.Files - rendered)
				rendered = ev.Files
			}
			if ev.Final {
				break
			}
		}
		_ = bar.Clear()
	}()

	return func() {
		<-done
		bus.Unsubscribe(sub.ID)
	}
}

// openStore opens the session history store under the XDG data directory.
func openStore() (*store.Store, error) {
	if err := config.EnsureDataDir(); err != nil {
		return nil, err
	}
	return store.Open(config.DefaultDBPath())
}

// persistSession records a completed session and the scheduler's final
// worker count, then prunes history to the configured size. Failures are
// reported but never fail the scan that produced the results.
func persistSession(history *store.Store, result *pipeline.Result, scheduler *sched.Scheduler, maxSessions int) {
	if history == nil {
		return
	}

	sess := store.Session{
		Summary:         result.Summary,
		Classifications: result.Classifications,
		Groups:          result.Groups,
	}
	if err := history.SaveSession(sess); err != nil {
		printError("failed to save session history: %v", err)
		return
	}

	if err := history.SaveWorkerHint(scheduler.Target()); err != nil {
		printVerbose("failed to save worker hint: %v", err)
	}

	if pruned, err := history.Prune(maxSessions); err != nil {
		printVerbose("history prune failed: %v", err)
	} else if pruned > 0 {
		printVerbose("pruned %d old sessions", pruned)
	}
}
