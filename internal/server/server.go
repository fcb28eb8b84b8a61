package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"telegram-export-converter/internal/adapters/exporter"
	"telegram-export-converter/internal/cache"
	"telegram-export-converter/internal/domain"
	"telegram-export-converter/internal/pkg/config"
	"telegram-export-converter/internal/server/usecase"
)

// Параметры пагинации результата.
const (
	defaultPageSize = 50
	maxPageSize     = 1000
	taskTTL         = 24 * time.Hour
)

// ExportConverter определяет интерфейс для варианта использования, который конвертирует экспорт.
type ExportConverter interface {
	ConvertArchive(ctx context.Context, archivePath string, chatID int64) (*domain.MergedChat, error)
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	cacheStore *cache.CacheStore
	converter  ExportConverter
	stop       context.CancelFunc
}

// Pagination описывает страницу результата.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// ResultPage описывает ответ эндпоинта результата.
type ResultPage struct {
	Pagination Pagination        `json:"pagination"`
	ChatName   string            `json:"chat_name"`
	Data       []json.RawMessage `json:"data"`
}

// TaskStatusResponse описывает ответ эндпоинта статуса.
type TaskStatusResponse struct {
	TaskID       string     `json:"task_id"`
	Status       TaskStatus `json:"status"`
	Hash         string     `json:"hash,omitempty"`
	ChatID       int64      `json:"chat_id"`
	Progress     Progress   `json:"progress"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ChatName     string     `json:"chat_name,omitempty"`
	Messages     int        `json:"messages,omitempty"`
}

// New создает новый экземпляр Server
func New(cfg *config.Config, converter ExportConverter, taskStore *TaskStore, cacheStore *cache.CacheStore) (*Server, error) {
	if converter == nil {
		return nil, errors.New("converter is required")
	}

	s := &Server{
		cfg:        cfg,
		taskStore:  taskStore,
		cacheStore: cacheStore,
		converter:  converter,
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)
	if len(cfg.Server.CORSOrigins) > 0 {
		chiRouter.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"tasks":  s.taskStore.Counts(),
			"cache":  s.cacheStore.Stats(),
		})
	})

	chiRouter.Route("/api/v1", func(r chi.Router) {
		r.With(uploadLimiter(cfg.Server.UploadRate, cfg.Server.UploadBurst)).Post("/convert", s.handleConvert)
		r.Post("/convert-by-hash", s.handleConvertByHash)
		r.Get("/tasks/{taskID}", s.handleTaskStatus)
		r.Get("/tasks/{taskID}/result", s.handleTaskResult)
		r.Get("/tasks/{taskID}/download", s.handleTaskDownload)
	})

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Тикеры очистки живут до Shutdown
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	interval := cfg.Server.CleanupInterval
	if interval <= 0 {
		interval = config.DefaultCleanupInterval
	}
	s.taskStore.StartCleanupTicker(ctx, interval)
	s.cacheStore.StartCleanupTicker(ctx, interval)

	return s, nil
}

// handleConvert принимает zip-архив каталога экспорта и запускает задачу конвертации.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Server.MaxUploadSizeMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.Server.MaxUploadSizeMB)<<20)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "failed to parse multipart form", http.StatusBadRequest)
		return
	}

	chatID, err := s.chatID(r.FormValue("chat_id"))
	if err != nil {
		http.Error(w, "chat_id must be an integer", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "form field 'file' is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	archivePath, hash, err := saveUpload(file)
	if err != nil {
		slog.Error("Failed to store upload", "error", err)
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	taskID := uuid.NewString()
	s.taskStore.CreateTask(taskID, hash, chatID, taskTTL)
	slog.Info("Conversion task created", "task_id", taskID, "hash", hash, "chat_id", chatID)

	go s.runTask(taskID, func(ctx context.Context) (*domain.MergedChat, error) {
		defer os.Remove(archivePath)
		return s.converter.ConvertArchive(ctx, archivePath, chatID)
	})

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID, "hash": hash})
}

// handleConvertByHash создает задачу из ранее полученного результата.
// Архив на сервере не хранится, поэтому промах кэша завершает задачу ошибкой.
func (s *Server) handleConvertByHash(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hash   string `json:"hash"`
		ChatID *int64 `json:"chat_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "failed to decode request body", http.StatusBadRequest)
		return
	}
	if req.Hash == "" {
		http.Error(w, "hash is required", http.StatusBadRequest)
		return
	}
	chatID := s.cfg.Converter.ChatID
	if req.ChatID != nil {
		chatID = *req.ChatID
	}

	taskID := uuid.NewString()
	s.taskStore.CreateTask(taskID, req.Hash, chatID, taskTTL)

	if item, found := s.cacheStore.Get(cache.ResultKey(req.Hash, chatID)); found {
		s.taskStore.Complete(taskID, item.Chat)
		slog.Info("Cache hit for hash", "hash", req.Hash, "task_id", taskID)
	} else {
		s.taskStore.Fail(taskID, "result for this hash is not cached, upload the archive again")
		slog.Info("Cache miss for hash", "hash", req.Hash, "task_id", taskID)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}

	resp := TaskStatusResponse{
		TaskID:       task.ID,
		Status:       task.Status,
		Hash:         task.Hash,
		ChatID:       task.ChatID,
		Progress:     task.Progress,
		ErrorMessage: task.ErrorMessage,
	}
	if task.Result != nil {
		resp.ChatName = task.Result.Name()
		resp.Messages = len(task.Result.Messages)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTaskResult отдает сообщения результата постранично.
func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}

	page, err := positiveParam(r, "page", 1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pageSize, err := positiveParam(r, "page_size", defaultPageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pageSize = min(pageSize, maxPageSize)

	messages := task.Result.Messages
	total := len(messages)
	// (page-1)*pageSize может переполниться для огромного page.
	start := total
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}
	end := min(start+pageSize, total)

	writeJSON(w, http.StatusOK, ResultPage{
		Pagination: Pagination{
			CurrentPage: page,
			PageSize:    pageSize,
			TotalItems:  total,
			TotalPages:  (total + pageSize - 1) / pageSize,
		},
		ChatName: task.Result.Name(),
		Data:     messages[start:end],
	})
}

// handleTaskDownload отдает объединенный документ целиком.
func (s *Server) handleTaskDownload(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.cfg.Converter.Merge.Output))
	w.WriteHeader(http.StatusOK)
	if err := exporter.NewJSONExporter(s.cfg.Converter.Merge.Indent).Export(w, task.Result); err != nil {
		slog.Error("Failed to write result", "task_id", task.ID, "error", err)
	}
}

// runTask выполняет конвертацию с таймаутом из конфигурации.
func (s *Server) runTask(taskID string, convert func(ctx context.Context) (*domain.MergedChat, error)) {
	if err := s.taskStore.Start(taskID); err != nil {
		slog.Error("Failed to start task", "task_id", taskID, "error", err)
		return
	}

	ctx := usecase.WithProgress(context.Background(), func(done, total int) {
		s.taskStore.SetProgress(taskID, done, total)
	})
	if s.cfg.Processing.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Processing.TaskTimeout)
		defer cancel()
	}

	started := time.Now()
	result, err := convert(ctx)
	if err != nil {
		slog.Error("Conversion task failed", "task_id", taskID, "error", err)
		s.taskStore.Fail(taskID, err.Error())
		return
	}
	s.taskStore.Complete(taskID, result)
	slog.Info("Conversion task completed", "task_id", taskID, "messages", len(result.Messages), "elapsed", time.Since(started).String())
}

func (s *Server) lookupTask(w http.ResponseWriter, r *http.Request) (*Task, bool) {
	task, err := s.taskStore.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return nil, false
	}
	return task, true
}

func (s *Server) completedTask(w http.ResponseWriter, r *http.Request) (*Task, bool) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return nil, false
	}
	if task.Status != TaskStatusCompleted {
		http.Error(w, "task is not completed", http.StatusBadRequest)
		return nil, false
	}
	return task, true
}

func (s *Server) chatID(raw string) (int64, error) {
	if raw == "" {
		return s.cfg.Converter.ChatID, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// uploadLimiter ограничивает частоту загрузок архивов; rps == 0 отключает ограничение.
func uploadLimiter(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Limit(rps), max(1, burst))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "too many uploads, retry later", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func positiveParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return v, nil
}

// saveUpload сохраняет архив во временный файл и попутно считает его хеш.
func saveUpload(src io.Reader) (path, hash string, err error) {
	out, err := os.CreateTemp("", "export_*.zip")
	if err != nil {
		return "", "", err
	}
	defer func() {
		if err != nil {
			os.Remove(out.Name())
		}
	}()

	hash, err = cache.HashReader(io.TeeReader(src, out))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", "", err
	}
	return out.Name(), hash, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера и фоновых тикеров
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	s.stop()
	return s.HTTPServer.Shutdown(ctx)
}
