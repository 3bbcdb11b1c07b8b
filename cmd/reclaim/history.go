package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reclaimtool/reclaim/pkg/reclaim/config"
	"github.com/reclaimtool/reclaim/pkg/reclaim/output"
	"github.com/reclaimtool/reclaim/pkg/reclaim/store"
	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View scan session history",
	Long: `View the history of previous scan sessions.

Each completed scan is recorded with its summary, cleanup suggestions,
and duplicate groups. History is pruned automatically to the configured
history.max_sessions.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a stored session",
	Long: `Display the full results of a stored session.

A unique session id prefix is enough. The --format flag selects the
output format, exactly as for a live scan.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Prune old sessions",
	Long:  `Remove stored sessions beyond the retention limit, oldest first.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
	historyKeep  int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of sessions to list")
	historyCleanCmd.Flags().IntVar(&historyKeep, "keep", 0, "sessions to keep (default: history.max_sessions)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// runHistory lists recent sessions, newest first.
func runHistory(_ *cobra.Command, _ []string) error {
	history, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = history.Close() }()

	summaries, err := history.Summaries(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(summaries) == 0 {
		printInfo("No sessions recorded yet.")
		printInfo("Run 'reclaim [path]' to scan for reclaimable space.")
		return nil
	}

	fmt.Printf("\n%-10s  %-16s  %9s  %10s  %12s  %s\n",
		"ID", "STARTED", "FILES", "SIZE", "RECLAIMABLE", "REASON")
	fmt.Println(strings.Repeat("-", 74))

	for _, s := range summaries {
		fmt.Printf("%-10s  %-16s  %9d  %10s  %12s  %s\n",
			sessionPrefix(s.SessionID),
			s.Started.Format("2006-01-02 15:04"),
			s.TotalFiles,
			types.FormatSize(s.TotalBytes),
			types.FormatSize(s.ReclaimableBytes),
			string(s.Reason),
		)
	}

	fmt.Println(strings.Repeat("-", 74))
	fmt.Printf("\nShowing %d sessions. Use 'reclaim history show <id>' for details.\n", len(summaries))

	return nil
}

// runHistoryShow renders one stored session through the selected formatter.
func runHistoryShow(_ *cobra.Command, args []string) error {
	formatter, err := resolveFormatter()
	if err != nil {
		return err
	}

	history, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = history.Close() }()

	id, err := resolveSessionID(history, args[0])
	if err != nil {
		return err
	}

	sess, err := history.Session(id)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	var buf bytes.Buffer
	report := &output.Report{
		Summary:         sess.Summary,
		Classifications: sess.Classifications,
		Groups:          sess.Groups,
	}
	if err := formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())

	return nil
}

// runHistoryClean prunes stored sessions beyond the retention limit.
func runHistoryClean(_ *cobra.Command, _ []string) error {
	keep := historyKeep
	if keep <= 0 {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		keep = cfg.History.MaxSessions
	}

	history, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = history.Close() }()

	pruned, err := history.Prune(keep)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	if pruned == 0 {
		printInfo("Nothing to prune; %d or fewer sessions stored.", keep)
		return nil
	}
	printInfo("Removed %d old sessions, kept the %d most recent.", pruned, keep)

	return nil
}

// resolveSessionID accepts a full session id or a unique prefix of one.
func resolveSessionID(history *store.Store, arg string) (string, error) {
	summaries, err := history.Summaries(0)
	if err != nil {
		return "", err
	}

	var match string
	for _, s := range summaries {
		if s.SessionID == arg {
			return arg, nil
		}
		if strings.HasPrefix(s.SessionID, arg) {
			if match != "" {
				return "", fmt.Errorf("session id prefix %q is ambiguous", arg)
			}
			match = s.SessionID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no session matches %q", arg)
	}
	return match, nil
}

// sessionPrefix shortens a session id to its leading segment for listings.
func sessionPrefix(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
