package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"clipkeeper/internal/config"
	"clipkeeper/internal/ingestserver"
)

func newImportCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import prompt sentences from a JSON array into the dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			items, err := readSentenceFile(args[0])
			if err != nil {
				return err
			}
			dataset, err := ingestserver.OpenDataset(cfg.Server.DatabasePath)
			if err != nil {
				return err
			}
			defer dataset.Close()

			n, err := dataset.ImportSentences(cmd.Context(), items)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sentences into %s\n", n, dataset.Path())
			return nil
		},
	}
}

func readSentenceFile(path string) ([]ingestserver.SentenceInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sentences: %w", err)
	}
	var items []ingestserver.SentenceInput
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode sentences %s: %w", path, err)
	}
	validate := validator.New()
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i+1, err)
		}
	}
	return items, nil
}
