package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"telegram-export-converter/internal/adapters/exporter"
	"telegram-export-converter/internal/adapters/source"
	"telegram-export-converter/internal/core/services"
	"telegram-export-converter/internal/ports"
)

func newMergeCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge <shard.json>...",
		Short: "Merge converted JSON shards into a single log",
		Long: `Merge converted JSON shards in the given order. Chat metadata is
taken from the first shard that has it; messages are concatenated.
Shards that are neither an object with "messages" nor an array are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = a.cfg.Converter.Merge.Output
			}

			shards := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := source.NewFileSource(path).Fetch()
				if err != nil {
					return err
				}
				shards = append(shards, data)
			}

			merged, err := services.NewMergeService(a.log).Merge(shards)
			if err != nil {
				return err
			}
			if err := writeFile(output, exporter.NewJSONExporter(a.cfg.Converter.Merge.Indent), merged); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %d shards: %d messages -> %s\n", len(args), len(merged.Messages), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "merged log path (default from config)")
	return cmd
}

func writeFile(path string, exp ports.Exporter, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := exp.Export(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
