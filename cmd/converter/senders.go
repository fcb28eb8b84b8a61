package main

import (
	"github.com/spf13/cobra"

	"telegram-export-converter/internal/adapters/exporter"
	"telegram-export-converter/internal/adapters/parser"
	"telegram-export-converter/internal/adapters/source"
	"telegram-export-converter/internal/core/services"
	"telegram-export-converter/internal/domain"
	"telegram-export-converter/internal/ports"
)

func newSendersCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "senders <export-dir>",
		Short: "List message senders and whether the senders table knows them",
		Long: `List every sender name found in the export with its message count.
Names missing from converter.senders are converted with from_id "Unknown";
use this list to fill the table before running convert.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shards, err := source.DiscoverShards(args[0])
			if err != nil {
				return err
			}

			p := parser.NewHTMLParser()
			extractor := services.NewExtractionService(a.cfg.Converter.Senders)
			var all []domain.Sender
			for _, shard := range shards {
				data, err := shard.Source().Fetch()
				if err != nil {
					return err
				}
				doc, err := p.Parse(data)
				if err != nil {
					return err
				}
				found, err := extractor.ExtractSenders(doc)
				if err != nil {
					return err
				}
				all = mergeSenders(all, found)
			}

			var exp ports.Exporter = exporter.NewConsoleExporter()
			if asJSON {
				exp = exporter.NewJSONExporter(a.cfg.Converter.Merge.Indent)
			}
			return exp.Export(cmd.OutOrStdout(), all)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// mergeSenders складывает счетчики по имени, сохраняя порядок первого появления.
func mergeSenders(acc, more []domain.Sender) []domain.Sender {
	index := make(map[string]int, len(acc))
	for i, s := range acc {
		index[s.Name] = i
	}
	for _, s := range more {
		if i, ok := index[s.Name]; ok {
			acc[i].Messages += s.Messages
			continue
		}
		index[s.Name] = len(acc)
		acc = append(acc, s)
	}
	return acc
}
