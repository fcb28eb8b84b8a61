package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-export-converter/internal/domain"
)

func TestTaskStore(t *testing.T) {
	t.Run("создание задачи", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task-1", "abc", 7, 5*time.Minute)

		task, err := ts.GetTask("task-1")
		require.NoError(t, err)
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.Equal(t, "abc", task.Hash)
		assert.Equal(t, int64(7), task.ChatID)
		assert.WithinDuration(t, time.Now().Add(5*time.Minute), task.ExpiresAt, time.Second)
	})

	t.Run("неизвестная задача", func(t *testing.T) {
		ts := NewTaskStore()
		_, err := ts.GetTask("missing")
		assert.ErrorIs(t, err, ErrTaskNotFound)
		assert.ErrorIs(t, ts.Start("missing"), ErrTaskNotFound)
		assert.ErrorIs(t, ts.Fail("missing", "x"), ErrTaskNotFound)
	})

	t.Run("полный цикл", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task-1", "", 0, time.Minute)

		require.NoError(t, ts.Start("task-1"))
		require.NoError(t, ts.SetProgress("task-1", 2, 3))
		require.NoError(t, ts.SetProgress("task-1", 1, 3))

		task, _ := ts.GetTask("task-1")
		assert.Equal(t, TaskStatusProcessing, task.Status)
		assert.Equal(t, Progress{Done: 2, Total: 3}, task.Progress)

		result := &domain.MergedChat{
			Header:   domain.NewRecord(domain.Field{Key: "name", Value: "Alice"}),
			Messages: []json.RawMessage{json.RawMessage(`{"id":1}`)},
		}
		require.NoError(t, ts.Complete("task-1", result))

		task, _ = ts.GetTask("task-1")
		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.Same(t, result, task.Result)
		assert.False(t, task.FinishedAt.IsZero())
	})

	t.Run("завершенная задача не меняется", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task-1", "", 0, time.Minute)
		require.NoError(t, ts.Fail("task-1", "boom"))

		assert.ErrorIs(t, ts.Complete("task-1", &domain.MergedChat{}), ErrTaskFinished)
		assert.ErrorIs(t, ts.SetProgress("task-1", 1, 1), ErrTaskFinished)

		task, _ := ts.GetTask("task-1")
		assert.Equal(t, TaskStatusFailed, task.Status)
		assert.Equal(t, "boom", task.ErrorMessage)
		assert.Nil(t, task.Result)
	})

	t.Run("GetTask возвращает копию", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task-1", "", 0, time.Minute)

		task, err := ts.GetTask("task-1")
		require.NoError(t, err)
		task.Status = TaskStatusFailed

		stored, _ := ts.GetTask("task-1")
		assert.Equal(t, TaskStatusPending, stored.Status)
	})

	t.Run("счетчики статусов", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("a", "", 0, time.Minute)
		ts.CreateTask("b", "", 0, time.Minute)
		ts.CreateTask("c", "", 0, time.Minute)
		require.NoError(t, ts.Start("b"))
		require.NoError(t, ts.Fail("c", "x"))

		assert.Equal(t, map[TaskStatus]int{
			TaskStatusPending:    1,
			TaskStatusProcessing: 1,
			TaskStatusFailed:     1,
		}, ts.Counts())
	})

	t.Run("очистка просроченных", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("expired", "", 0, time.Minute)
		ts.CreateTask("valid", "", 0, 3*time.Minute)
		ts.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

		assert.Equal(t, 1, ts.CleanupExpired())

		_, err := ts.GetTask("expired")
		assert.ErrorIs(t, err, ErrTaskNotFound)
		_, err = ts.GetTask("valid")
		assert.NoError(t, err)
	})
}

func TestTaskStore_StartCleanupTicker(t *testing.T) {
	ts := NewTaskStore()
	ts.CreateTask("expired", "", 0, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts.StartCleanupTicker(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := ts.GetTask("expired")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
