package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"telegram-export-converter/internal/adapters/exporter"
	"telegram-export-converter/internal/adapters/probe"
	"telegram-export-converter/internal/adapters/source"
	"telegram-export-converter/internal/cache"
	"telegram-export-converter/internal/core/services"
	"telegram-export-converter/internal/domain"
	"telegram-export-converter/internal/pkg/config"
	"telegram-export-converter/internal/ports"
)

// ProberFactory создает анализатор вложений для корня экспорта.
type ProberFactory func(exportDir string) ports.MediaProber

// ProgressFunc получает число сконвертированных шардов и их общее количество.
// Вызывается из рабочих горутин, поэтому должна быть потокобезопасной.
type ProgressFunc func(done, total int)

type progressKey struct{}

// WithProgress возвращает контекст, через который ConvertDir сообщает о ходе
// конвертации.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

func progressFrom(ctx context.Context) ProgressFunc {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		return fn
	}
	return func(int, int) {}
}

// Option настраивает ConvertExportUseCase.
type Option func(*ConvertExportUseCase)

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(uc *ConvertExportUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// WithProberFactory подменяет создание анализатора вложений.
func WithProberFactory(f ProberFactory) Option {
	return func(uc *ConvertExportUseCase) { uc.newProber = f }
}

// WithWriteOutputs включает запись messagesN.json и объединенного файла
// в каталог экспорта.
func WithWriteOutputs(enabled bool) Option {
	return func(uc *ConvertExportUseCase) { uc.writeOutputs = enabled }
}

// ConvertExportUseCase инкапсулирует конвертацию каталога экспорта:
// поиск шардов, разбор, преобразование, объединение и кэширование.
type ConvertExportUseCase struct {
	cfg          *config.Config
	parser       ports.Parser
	merger       ports.Merger
	cacheStore   *cache.CacheStore
	newProber    ProberFactory
	writeOutputs bool
	log          *slog.Logger
}

// NewConvertExportUseCase создает новый экземпляр ConvertExportUseCase.
// cacheStore может быть nil, тогда результаты не кэшируются.
func NewConvertExportUseCase(
	cfg *config.Config,
	parser ports.Parser,
	merger ports.Merger,
	cacheStore *cache.CacheStore,
	opts ...Option,
) *ConvertExportUseCase {
	uc := &ConvertExportUseCase{
		cfg:        cfg,
		parser:     parser,
		merger:     merger,
		cacheStore: cacheStore,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.newProber == nil {
		uc.newProber = uc.defaultProber
	}
	return uc
}

func (uc *ConvertExportUseCase) defaultProber(exportDir string) ports.MediaProber {
	return probe.New(exportDir,
		probe.WithFFProbePath(uc.cfg.Probe.FFProbePath),
		probe.WithTimeout(uc.cfg.Probe.Timeout),
		probe.WithStickerEmoji(uc.cfg.Converter.StickerEmoji),
		probe.WithLogger(uc.log),
	)
}

// ConvertArchive распаковывает zip-архив экспорта во временный каталог
// и конвертирует его. Результат кэшируется по хешу архива и id чата.
func (uc *ConvertExportUseCase) ConvertArchive(ctx context.Context, archivePath string, chatID int64) (*domain.MergedChat, error) {
	archiveHash, err := cache.CalculateFileHash(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash archive %s: %w", archivePath, err)
	}
	key := cache.ResultKey(archiveHash, chatID)

	if uc.cacheStore != nil {
		if item, found := uc.cacheStore.Get(key); found {
			uc.log.Info("Cache hit for archive", "hash", archiveHash, "chat_id", chatID)
			return item.Chat, nil
		}
	}

	workDir, err := os.MkdirTemp("", "tg_export_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := extractArchive(archivePath, workDir); err != nil {
		return nil, err
	}
	exportDir, err := findExportRoot(workDir)
	if err != nil {
		return nil, err
	}

	merged, err := uc.ConvertDir(ctx, exportDir, chatID)
	if err != nil {
		return nil, err
	}

	if uc.cacheStore != nil {
		ttl := uc.cfg.Processing.CacheTTL
		uc.cacheStore.Put(key, merged, ttl)
		uc.log.Info("Result cached for archive", "hash", archiveHash, "ttl", ttl.String())
	}
	return merged, nil
}

// ConvertDir конвертирует все шарды каталога экспорта и объединяет их.
// Шарды обрабатываются пулом из processing.shard_workers горутин,
// порядок результата всегда совпадает с порядком шардов.
func (uc *ConvertExportUseCase) ConvertDir(ctx context.Context, exportDir string, chatID int64) (*domain.MergedChat, error) {
	shards, err := source.DiscoverShards(exportDir)
	if err != nil {
		return nil, err
	}
	if shards[0].Index != 1 {
		return nil, fmt.Errorf("messages.html not found in %s", exportDir)
	}

	// messages.html нужен дважды: для имени чата и как первый шард.
	first, err := shards[0].Source().Fetch()
	if err != nil {
		return nil, err
	}
	firstDoc, err := uc.parser.Parse(first)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", shards[0].Path, err)
	}
	name, err := uc.parser.ChatName(firstDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat name from %s: %w", shards[0].Path, err)
	}
	meta := domain.ChatMeta{Name: name, ID: chatID}
	uc.log.Info("Converting export", "dir", exportDir, "chat", name, "shards", len(shards))

	sources := make([]ports.DataSource, len(shards))
	sources[0] = source.NewMemorySource(shards[0].Path, first)
	for i := 1; i < len(shards); i++ {
		sources[i] = shards[i].Source()
	}

	converter := services.NewConversionService(uc.newProber(exportDir),
		services.WithSenders(uc.cfg.Converter.Senders),
		services.WithLogger(uc.log),
	)
	shardJSON := exporter.NewJSONExporter(uc.cfg.Converter.Indent)

	report := progressFrom(ctx)
	report(0, len(shards))
	var done atomic.Int32

	results := make([][]byte, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, uc.cfg.Processing.ShardWorkers))
	for i := range shards {
		g.Go(func() error {
			data, err := uc.convertShard(gctx, converter, shardJSON, shards[i], sources[i], meta)
			if err != nil {
				return err
			}
			results[i] = data
			report(int(done.Add(1)), len(shards))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := uc.merger.Merge(results)
	if err != nil {
		return nil, fmt.Errorf("failed to merge shards: %w", err)
	}

	if uc.writeOutputs && uc.cfg.Converter.Merge.Enabled {
		out := filepath.Join(exportDir, uc.cfg.Converter.Merge.Output)
		if err := writeJSON(out, exporter.NewJSONExporter(uc.cfg.Converter.Merge.Indent), merged); err != nil {
			return nil, err
		}
		uc.log.Info("Merged log written", "path", out, "messages", len(merged.Messages))
	}
	return merged, nil
}

func (uc *ConvertExportUseCase) convertShard(
	ctx context.Context,
	converter ports.Converter,
	exp ports.Exporter,
	shard source.Shard,
	src ports.DataSource,
	meta domain.ChatMeta,
) ([]byte, error) {
	data, err := src.Fetch()
	if err != nil {
		return nil, err
	}
	doc, err := uc.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", shard.Path, err)
	}
	chat, err := converter.Convert(ctx, doc, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", shard.Path, err)
	}

	var buf bytes.Buffer
	if err := exp.Export(&buf, chat); err != nil {
		return nil, err
	}
	if uc.writeOutputs {
		if err := os.WriteFile(shard.OutputPath(), buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", shard.OutputPath(), err)
		}
	}
	uc.log.Info("Shard converted", "shard", filepath.Base(shard.Path), "messages", len(chat.Messages))
	return buf.Bytes(), nil
}

func writeJSON(path string, exp ports.Exporter, v any) error {
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
