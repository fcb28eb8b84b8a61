package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"telegram-export-converter/internal/adapters/exporter"
	"telegram-export-converter/internal/adapters/parser"
	"telegram-export-converter/internal/core/services"
	"telegram-export-converter/internal/server/usecase"
)

type convertFlags struct {
	chatID  int64
	workers int
	noMerge bool
	output  string
}

func newConvertCmd(a *app) *cobra.Command {
	var f convertFlags

	cmd := &cobra.Command{
		Use:   "convert <export-dir | export.zip>",
		Short: "Convert every messages*.html shard of an export",
		Long: `Convert every messages*.html shard of an export directory into
messagesN.json next to it and write the merged log (result.json by default).
A zip archive is converted in a temporary directory and only the merged log
is written, to --output or to result.json in the current directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args[0], f)
		},
	}

	cmd.Flags().Int64Var(&f.chatID, "chat-id", 0, "chat id written to every shard (default from config)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "number of shards converted in parallel (default from config)")
	cmd.Flags().BoolVar(&f.noMerge, "no-merge", false, "do not write the merged log")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "merged log file name (default from config)")
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, input string, f convertFlags) error {
	cfg := a.cfg
	if cmd.Flags().Changed("chat-id") {
		cfg.Converter.ChatID = f.chatID
	}
	if f.workers > 0 {
		cfg.Processing.ShardWorkers = f.workers
	}
	if f.noMerge {
		cfg.Converter.Merge.Enabled = false
	}
	if f.output != "" {
		cfg.Converter.Merge.Output = f.output
	}

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("input %s not found: %w", input, err)
	}

	uc := usecase.NewConvertExportUseCase(cfg,
		parser.NewHTMLParser(),
		services.NewMergeService(a.log),
		nil,
		usecase.WithLogger(a.log),
		usecase.WithWriteOutputs(info.IsDir()),
	)

	if info.IsDir() {
		merged, err := uc.ConvertDir(cmd.Context(), input, cfg.Converter.ChatID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Converted %q: %d messages\n", merged.Name(), len(merged.Messages))
		return nil
	}

	if !strings.EqualFold(strings.TrimPrefix(filepath.Ext(input), "."), "zip") {
		return fmt.Errorf("%s is neither a directory nor a zip archive", input)
	}
	merged, err := uc.ConvertArchive(cmd.Context(), input, cfg.Converter.ChatID)
	if err != nil {
		return err
	}
	out := cfg.Converter.Merge.Output
	if err := writeFile(out, exporter.NewJSONExporter(cfg.Converter.Merge.Indent), merged); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Converted %q: %d messages -> %s\n", merged.Name(), len(merged.Messages), out)
	return nil
}
