package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"telegram-export-converter/internal/domain"
)

var (
	// ErrTaskNotFound возвращается для неизвестного или удаленного id задачи.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskFinished возвращается при попытке изменить завершенную задачу.
	ErrTaskFinished = errors.New("task already finished")
)

// TaskStatus представляет статус задачи обработки
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Finished сообщает, что задача больше не изменится.
func (s TaskStatus) Finished() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Progress показывает, сколько шардов экспорта уже сконвертировано.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Task представляет собой одну задачу конвертации экспорта
type Task struct {
	ID           string
	Status       TaskStatus
	Hash         string // sha256 архива, ключ для convert-by-hash
	ChatID       int64
	Progress     Progress
	Result       *domain.MergedChat
	ErrorMessage string
	CreatedAt    time.Time
	FinishedAt   time.Time
	ExpiresAt    time.Time
}

// TaskStore хранит задачи конвертации до истечения их TTL.
// GetTask отдает копии, результат при этом разделяется и не изменяется.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	now   func() time.Time
}

// NewTaskStore создает новый экземпляр TaskStore
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

// CreateTask регистрирует задачу в статусе pending.
func (ts *TaskStore) CreateTask(taskID, hash string, chatID int64, ttl time.Duration) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	ts.tasks[taskID] = &Task{
		ID:        taskID,
		Status:    TaskStatusPending,
		Hash:      hash,
		ChatID:    chatID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// update применяет fn к незавершенной задаче под блокировкой.
func (ts *TaskStore) update(taskID string, fn func(*Task)) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	task, ok := ts.tasks[taskID]
	switch {
	case !ok:
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	case task.Status.Finished():
		return fmt.Errorf("%w: %s is %s", ErrTaskFinished, taskID, task.Status)
	}
	fn(task)
	return nil
}

// Start переводит задачу в processing.
func (ts *TaskStore) Start(taskID string) error {
	return ts.update(taskID, func(t *Task) { t.Status = TaskStatusProcessing })
}

// SetProgress запоминает число готовых шардов. Значение не уменьшается:
// рабочие горутины могут сообщать о готовности не по порядку.
func (ts *TaskStore) SetProgress(taskID string, done, total int) error {
	return ts.update(taskID, func(t *Task) {
		t.Progress.Total = total
		t.Progress.Done = max(t.Progress.Done, done)
	})
}

// Complete сохраняет результат и завершает задачу.
func (ts *TaskStore) Complete(taskID string, result *domain.MergedChat) error {
	return ts.update(taskID, func(t *Task) {
		t.Status = TaskStatusCompleted
		t.Result = result
		t.FinishedAt = ts.now()
	})
}

// Fail завершает задачу с ошибкой.
func (ts *TaskStore) Fail(taskID, errorMessage string) error {
	return ts.update(taskID, func(t *Task) {
		t.Status = TaskStatusFailed
		t.ErrorMessage = errorMessage
		t.FinishedAt = ts.now()
	})
}

// GetTask извлекает копию задачи по ее ID
func (ts *TaskStore) GetTask(taskID string) (*Task, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	task, ok := ts.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	cp := *task
	return &cp, nil
}

// Counts возвращает число задач в каждом статусе.
func (ts *TaskStore) Counts() map[TaskStatus]int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	counts := make(map[TaskStatus]int, 4)
	for _, task := range ts.tasks {
		counts[task.Status]++
	}
	return counts
}

// CleanupExpired удаляет просроченные задачи и возвращает их число.
func (ts *TaskStore) CleanupExpired() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	removed := 0
	for taskID, task := range ts.tasks {
		if now.After(task.ExpiresAt) {
			delete(ts.tasks, taskID)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных задач
func (ts *TaskStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := ts.CleanupExpired(); n > 0 {
					slog.Debug("Expired tasks removed", "count", n)
				}
			}
		}
	}()
}
