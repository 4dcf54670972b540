package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipkeeper/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set [ingest] base_url and the camera input_args before the first session.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			source := ctx.configPath
			if _, statErr := os.Stat(source); statErr != nil {
				source += " (not found, defaults in use)"
			}
			fmt.Fprintf(out, "Config path: %s\n", source)
			printTable(out, []column{{header: "Setting"}, {header: "Value"}}, configRows(cfg))
			return nil
		},
	}
}

func configRows(cfg *config.Config) [][]string {
	return [][]string{
		{"paths.data_dir", cfg.Paths.DataDir},
		{"paths.recordings_dir", cfg.Paths.RecordingsDir},
		{"paths.staging_dir", cfg.Paths.StagingDir},
		{"paths.log_dir", cfg.Paths.LogDir},
		{"capture.backend", cfg.Capture.Backend},
		{"capture.ffmpeg_binary", cfg.Capture.FFmpegBinary},
		{"capture.input_args", strings.Join(cfg.Capture.InputArgs, " ")},
		{"capture.lead_in_ms", strconv.Itoa(cfg.Capture.LeadInMillis)},
		{"capture.trail_ms", strconv.Itoa(cfg.Capture.TrailMillis)},
		{"capture.max_duration_seconds", strconv.Itoa(cfg.Capture.MaxDurationSeconds)},
		{"ingest.base_url", cfg.Ingest.BaseURL},
		{"ingest.sentence_limit", strconv.Itoa(cfg.Ingest.SentenceLimit)},
		{"database", filepath.Clean(cfg.DatabasePath())},
	}
}
