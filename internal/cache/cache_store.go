// Package cache хранит результаты конвертации экспортов, чтобы повторная
// загрузка того же архива не запускала разбор заново.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"telegram-export-converter/internal/domain"
)

// CacheItem представляет кэшированный результат конвертации
type CacheItem struct {
	Chat      *domain.MergedChat
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Stats описывает счетчики обращений к кэшу.
type Stats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Option настраивает CacheStore.
type Option func(*CacheStore)

// WithMaxEntries ограничивает число результатов в кэше. При переполнении
// вытесняется самый старый. 0 снимает ограничение.
func WithMaxEntries(n int) Option {
	return func(cs *CacheStore) { cs.maxEntries = max(0, n) }
}

// CacheStore хранит объединенные документы по ключу ResultKey.
// Документы большие, поэтому число записей можно ограничить.
type CacheStore struct {
	mu         sync.Mutex
	items      map[string]*CacheItem
	maxEntries int
	stats      Stats
	now        func() time.Time
}

// NewCacheStore создает новый экземпляр CacheStore
func NewCacheStore(opts ...Option) *CacheStore {
	cs := &CacheStore{
		items: make(map[string]*CacheItem),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

// Get возвращает непросроченный результат.
func (cs *CacheStore) Get(key string) (*CacheItem, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	item, ok := cs.items[key]
	if !ok || cs.now().After(item.ExpiresAt) {
		cs.stats.Misses++
		return nil, false
	}
	cs.stats.Hits++
	return item, true
}

// Put сохраняет результат на ttl, вытесняя старые записи сверх лимита.
func (cs *CacheStore) Put(key string, chat *domain.MergedChat, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	cs.items[key] = &CacheItem{
		Chat:      chat,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	for cs.maxEntries > 0 && len(cs.items) > cs.maxEntries {
		cs.evictOldest()
	}
}

func (cs *CacheStore) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, item := range cs.items {
		if oldestKey == "" || item.StoredAt.Before(oldest) {
			oldestKey, oldest = key, item.StoredAt
		}
	}
	delete(cs.items, oldestKey)
	cs.stats.Evictions++
	slog.Debug("Cache entry evicted", "key", oldestKey)
}

// Len возвращает число элементов, включая еще не удаленные просроченные.
func (cs *CacheStore) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.items)
}

// Stats возвращает снимок счетчиков.
func (cs *CacheStore) Stats() Stats {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	st := cs.stats
	st.Entries = len(cs.items)
	return st
}

// CleanupExpired удаляет просроченные элементы и возвращает их число.
func (cs *CacheStore) CleanupExpired() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	removed := 0
	for key, item := range cs.items {
		if now.After(item.ExpiresAt) {
			delete(cs.items, key)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker запускает таймер для периодической очистки просроченных элементов
func (cs *CacheStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := cs.CleanupExpired(); n > 0 {
					slog.Debug("Expired cache entries removed", "count", n)
				}
			}
		}
	}()
}

// HashReader вычисляет sha256 потока в hex.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CalculateFileHash вычисляет хеш SHA256 содержимого файла
func CalculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	sum, err := HashReader(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return sum, nil
}

// CalculateHashFromString вычисляет хеш SHA256 строки
func CalculateHashFromString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ResultKey строит ключ кэша для архива и id чата: один и тот же архив,
// сконвертированный с разными id, дает разные документы.
func ResultKey(archiveHash string, chatID int64) string {
	return CalculateHashFromString(archiveHash + ":" + strconv.FormatInt(chatID, 10))
}
