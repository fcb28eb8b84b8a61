package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"telegram-export-converter/internal/cache"
	"telegram-export-converter/internal/domain"
	"telegram-export-converter/internal/pkg/config"
)

type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) ConvertArchive(ctx context.Context, archivePath string, chatID int64) (*domain.MergedChat, error) {
	args := m.Called(ctx, archivePath, chatID)
	if res := args.Get(0); res != nil {
		return res.(*domain.MergedChat), args.Error(1)
	}
	return nil, args.Error(1)
}

func testChat(n int) *domain.MergedChat {
	chat := &domain.MergedChat{
		Header:   domain.NewRecord(domain.Field{Key: "name", Value: json.RawMessage(`"Alice"`)}),
		Messages: []json.RawMessage{},
	}
	for i := 1; i <= n; i++ {
		chat.Messages = append(chat.Messages, json.RawMessage(fmt.Sprintf(`{"id":%d}`, i)))
	}
	return chat
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{Host: "localhost", Port: 8080, MaxUploadSizeMB: 1, CleanupInterval: time.Hour},
		Converter: config.Converter{
			ChatID: 5,
			Merge:  config.Merge{Output: "result.json", Indent: 2},
		},
		Processing: config.Processing{TaskTimeout: time.Minute},
	}
}

func newTestServer(t *testing.T, conv ExportConverter) *Server {
	t.Helper()
	srv, err := New(testConfig(), conv, NewTaskStore(), cache.NewCacheStore())
	require.NoError(t, err)
	t.Cleanup(srv.stop)
	return srv
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.HTTPServer.Handler.ServeHTTP(rr, req)
	return rr
}

func uploadRequest(t *testing.T, content string, fields map[string]string) *http.Request {
	t.Helper()
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	fw, err := writer.CreateFormFile("file", "export.zip")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func waitStatus(t *testing.T, srv *Server, taskID string, want TaskStatus) *Task {
	t.Helper()
	var task *Task
	require.Eventually(t, func() bool {
		var err error
		task, err = srv.taskStore.GetTask(taskID)
		return err == nil && task.Status == want
	}, time.Second, 5*time.Millisecond)
	return task
}

func TestNewRequiresConverter(t *testing.T) {
	_, err := New(testConfig(), nil, NewTaskStore(), cache.NewCacheStore())
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, new(mockConverter))
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Status string             `json:"status"`
		Tasks  map[TaskStatus]int `json:"tasks"`
		Cache  cache.Stats        `json:"cache"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Tasks)
	assert.Equal(t, cache.Stats{}, resp.Cache)
}

func TestConvertEndpoint(t *testing.T) {
	t.Run("успешная конвертация", func(t *testing.T) {
		conv := new(mockConverter)
		srv := newTestServer(t, conv)
		conv.On("ConvertArchive", mock.Anything, mock.AnythingOfType("string"), int64(77)).Return(testChat(3), nil).Once()

		rr := do(srv, uploadRequest(t, "zip-bytes", map[string]string{"chat_id": "77"}))
		require.Equal(t, http.StatusAccepted, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		require.NotEmpty(t, resp["task_id"])
		assert.Equal(t, cache.CalculateHashFromString("zip-bytes"), resp["hash"])

		task := waitStatus(t, srv, resp["task_id"], TaskStatusCompleted)
		assert.Len(t, task.Result.Messages, 3)
		conv.AssertExpectations(t)
	})

	t.Run("id чата по умолчанию из конфигурации", func(t *testing.T) {
		conv := new(mockConverter)
		srv := newTestServer(t, conv)
		conv.On("ConvertArchive", mock.Anything, mock.AnythingOfType("string"), int64(5)).Return(testChat(1), nil).Once()

		rr := do(srv, uploadRequest(t, "zip", nil))
		require.Equal(t, http.StatusAccepted, rr.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		waitStatus(t, srv, resp["task_id"], TaskStatusCompleted)
		conv.AssertExpectations(t)
	})

	t.Run("ошибка конвертации", func(t *testing.T) {
		conv := new(mockConverter)
		srv := newTestServer(t, conv)
		conv.On("ConvertArchive", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("broken archive")).Once()

		rr := do(srv, uploadRequest(t, "zip", nil))
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

		task := waitStatus(t, srv, resp["task_id"], TaskStatusFailed)
		assert.Equal(t, "broken archive", task.ErrorMessage)
	})

	t.Run("неверный chat_id", func(t *testing.T) {
		srv := newTestServer(t, new(mockConverter))
		rr := do(srv, uploadRequest(t, "zip", map[string]string{"chat_id": "abc"}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("нет файла", func(t *testing.T) {
		srv := newTestServer(t, new(mockConverter))
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		require.NoError(t, writer.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", &b)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		assert.Equal(t, http.StatusBadRequest, do(srv, req).Code)
	})

	t.Run("слишком большой файл", func(t *testing.T) {
		srv := newTestServer(t, new(mockConverter))
		rr := do(srv, uploadRequest(t, strings.Repeat("x", 2<<20), nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUploadRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.UploadRate = 0.001
	cfg.Server.UploadBurst = 1
	conv := new(mockConverter)
	conv.On("ConvertArchive", mock.Anything, mock.Anything, mock.Anything).Return(testChat(1), nil)
	srv, err := New(cfg, conv, NewTaskStore(), cache.NewCacheStore())
	require.NoError(t, err)
	t.Cleanup(srv.stop)

	assert.Equal(t, http.StatusAccepted, do(srv, uploadRequest(t, "zip", nil)).Code)
	rr := do(srv, uploadRequest(t, "zip", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.Server.CORSOrigins = []string{"https://example.org"}
	srv, err := New(cfg, new(mockConverter), NewTaskStore(), cache.NewCacheStore())
	require.NoError(t, err)
	t.Cleanup(srv.stop)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.org")
	rr := do(srv, req)
	assert.Equal(t, "https://example.org", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestConvertByHashEndpoint(t *testing.T) {
	srv := newTestServer(t, new(mockConverter))
	chat := testChat(2)
	srv.cacheStore.Put(cache.ResultKey("abc", 5), chat, time.Minute)

	post := func(body string) *httptest.ResponseRecorder {
		return do(srv, httptest.NewRequest(http.MethodPost, "/api/v1/convert-by-hash", strings.NewReader(body)))
	}
	taskOf := func(rr *httptest.ResponseRecorder) *Task {
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		task, err := srv.taskStore.GetTask(resp["task_id"])
		require.NoError(t, err)
		return task
	}

	t.Run("попадание в кэш", func(t *testing.T) {
		rr := post(`{"hash":"abc"}`)
		require.Equal(t, http.StatusAccepted, rr.Code)
		task := taskOf(rr)
		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.Same(t, chat, task.Result)
	})

	t.Run("другой id чата", func(t *testing.T) {
		task := taskOf(post(`{"hash":"abc","chat_id":6}`))
		assert.Equal(t, TaskStatusFailed, task.Status)
	})

	t.Run("промах кэша", func(t *testing.T) {
		task := taskOf(post(`{"hash":"zzz"}`))
		assert.Equal(t, TaskStatusFailed, task.Status)
		assert.NotEmpty(t, task.ErrorMessage)
	})

	t.Run("пустой хеш", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)
	})

	t.Run("неверное тело", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)
	})
}

func TestTaskEndpoints(t *testing.T) {
	srv := newTestServer(t, new(mockConverter))
	srv.taskStore.CreateTask("pending", "", 0, time.Minute)
	srv.taskStore.CreateTask("done", "", 0, time.Minute)
	srv.taskStore.Complete("done", testChat(15))
	srv.taskStore.CreateTask("running", "abc", 3, time.Minute)
	srv.taskStore.Start("running")
	srv.taskStore.SetProgress("running", 1, 4)

	t.Run("статус задачи", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/pending", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp TaskStatusResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "pending", resp.TaskID)
		assert.Equal(t, TaskStatusPending, resp.Status)
	})

	t.Run("ход выполнения", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/running", nil))
		var resp TaskStatusResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, TaskStatusProcessing, resp.Status)
		assert.Equal(t, "abc", resp.Hash)
		assert.Equal(t, int64(3), resp.ChatID)
		assert.Equal(t, Progress{Done: 1, Total: 4}, resp.Progress)
	})

	t.Run("статус завершенной задачи", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done", nil))
		var resp TaskStatusResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "Alice", resp.ChatName)
		assert.Equal(t, 15, resp.Messages)
	})

	t.Run("задача не найдена", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/non-existent", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("результат незавершенной задачи", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/pending/result", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("пагинация", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done/result?page=2&page_size=5", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ResultPage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, Pagination{CurrentPage: 2, PageSize: 5, TotalItems: 15, TotalPages: 3}, resp.Pagination)
		assert.Equal(t, "Alice", resp.ChatName)
		require.Len(t, resp.Data, 5)
		assert.JSONEq(t, `{"id":6}`, string(resp.Data[0]))
	})

	t.Run("страница за пределами", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done/result?page=9&page_size=5", nil))
		var resp ResultPage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Empty(t, resp.Data)
		assert.Equal(t, 3, resp.Pagination.TotalPages)
	})

	t.Run("огромный номер страницы", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done/result?page=4611686018427387905&page_size=2", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp ResultPage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Empty(t, resp.Data)
		assert.Equal(t, 4611686018427387905, resp.Pagination.CurrentPage)
		assert.Equal(t, 8, resp.Pagination.TotalPages)
	})

	t.Run("значения по умолчанию", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done/result", nil))
		var resp ResultPage
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, Pagination{CurrentPage: 1, PageSize: 50, TotalItems: 15, TotalPages: 1}, resp.Pagination)
		assert.Len(t, resp.Data, 15)
	})

	t.Run("неверные параметры", func(t *testing.T) {
		for _, q := range []string{"page=0", "page=x", "page_size=-1"} {
			rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done/result?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, rr.Code, q)
		}
	})

	t.Run("выгрузка целиком", func(t *testing.T) {
		rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/done/download", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="result.json"`)
		assert.True(t, strings.HasPrefix(rr.Body.String(), "{\n  \"name\": \"Alice\",\n  \"messages\": ["))
	})
}
