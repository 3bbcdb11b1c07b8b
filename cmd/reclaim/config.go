package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reclaimtool/reclaim/pkg/reclaim/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage reclaim configuration settings.

Configuration is loaded from:
  1. path given via --config
  2. $XDG_CONFIG_HOME/reclaim/config.yaml (if set)
  3. ~/.config/reclaim/config.yaml

Environment variables override config file settings using the RECLAIM_
prefix with underscores for section separators:
  RECLAIM_PERFORMANCE_MODE=foreground
  RECLAIM_SCAN_MIN_FILE_SIZE=10M
  RECLAIM_LOGGING_LEVEL=debug`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a commented default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one is created first.`,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the effective configuration.
func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	path, pathErr := configFilePath()
	if pathErr == nil {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Config file: %s\n\n", path)
		} else {
			fmt.Println("Config file: (using defaults, no file found)")
			fmt.Println()
		}
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("scan.paths:                          %v\n", cfg.Scan.Paths)
	fmt.Printf("scan.exclude_patterns:               %v\n", cfg.Scan.ExcludePatterns)
	fmt.Printf("scan.max_depth:                      %d\n", cfg.Scan.MaxDepth)
	fmt.Printf("scan.follow_symlinks:                %t\n", cfg.Scan.FollowSymlinks)
	fmt.Printf("scan.min_file_size:                  %s\n", cfg.Scan.MinFileSize)
	fmt.Printf("performance.mode:                    %s\n", cfg.Performance.Mode)
	fmt.Printf("performance.max_threads:             %d\n", cfg.Performance.MaxThreads)
	fmt.Printf("performance.memory_limit_mb:         %d\n", cfg.Performance.MemoryLimitMB)
	fmt.Printf("performance.cpu_limit_percent:       %d\n", cfg.Performance.CPULimitPercent)
	fmt.Printf("performance.io_throttling:           %t\n", cfg.Performance.IOThrottling)
	fmt.Printf("classification.temp_file_age:        %s\n", cfg.Classification.TempFileAge)
	fmt.Printf("classification.large_file_threshold: %s\n", cfg.Classification.LargeFileThreshold)
	fmt.Printf("classification.dev_folder_min_size:  %s\n", cfg.Classification.DevFolderMinSize)
	fmt.Printf("classification.temp_extensions:      %v\n", cfg.Classification.TempExtensions)
	fmt.Printf("ui.theme:                            %s\n", cfg.UI.Theme)
	fmt.Printf("ui.show_progress:                    %t\n", cfg.UI.ShowProgress)
	fmt.Printf("ui.color_output:                     %t\n", cfg.UI.ColorOutput)
	fmt.Printf("logging.level:                       %s\n", cfg.Logging.Level)
	fmt.Printf("logging.file:                        %s\n", cfg.Logging.File)
	fmt.Printf("history.enabled:                     %t\n", cfg.History.Enabled)
	fmt.Printf("history.max_sessions:                %d\n", cfg.History.MaxSessions)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"RECLAIM_SCAN_MAX_DEPTH",
		"RECLAIM_SCAN_FOLLOW_SYMLINKS",
		"RECLAIM_SCAN_MIN_FILE_SIZE",
		"RECLAIM_PERFORMANCE_MODE",
		"RECLAIM_PERFORMANCE_MAX_THREADS",
		"RECLAIM_PERFORMANCE_MEMORY_LIMIT_MB",
		"RECLAIM_PERFORMANCE_CPU_LIMIT_PERCENT",
		"RECLAIM_PERFORMANCE_IO_THROTTLING",
		"RECLAIM_CLASSIFICATION_TEMP_FILE_AGE",
		"RECLAIM_CLASSIFICATION_LARGE_FILE_THRESHOLD",
		"RECLAIM_CLASSIFICATION_DEV_FOLDER_MIN_SIZE",
		"RECLAIM_LOGGING_LEVEL",
		"RECLAIM_HISTORY_ENABLED",
		"RECLAIM_HISTORY_MAX_SESSIONS",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		printInfo("Config file already exists: %s", path)
		printInfo("Use 'reclaim config edit' to modify it.")
		return nil
	}

	written, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", written)
	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(_ *cobra.Command, _ []string) error {
	path, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", path, editor)

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(_ *cobra.Command, _ []string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	fmt.Println(path)

	if _, err := os.Stat(path); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}

// configFilePath returns the active config file path, honoring --config.
func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
