package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"clipkeeper/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var bindFlag string

	loadConfig := func() (*config.Config, error) {
		cfg, _, _, err := config.Load(strings.TrimSpace(configFlag))
		if err != nil {
			return nil, err
		}
		if bind := strings.TrimSpace(bindFlag); bind != "" {
			cfg.Server.Bind = bind
		}
		if err := cfg.EnsureServerDirectories(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	rootCmd := &cobra.Command{
		Use:           "clipkeeperd",
		Short:         "Ingestion server for clipkeeper field devices",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, nil)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().StringVar(&bindFlag, "bind", "", "Override server.bind")

	rootCmd.AddCommand(newImportCommand(loadConfig))

	return rootCmd
}
