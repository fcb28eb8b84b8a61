// Package client реализует HTTP-клиент сервиса конвертации.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrTaskFailed возвращается WaitTask, если сервер завершил задачу с ошибкой.
var ErrTaskFailed = errors.New("task failed")

// Статусы задач сервера.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ServerClient является клиентом для взаимодействия с API сервера конвертации.
type ServerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServerClient создает новый экземпляр ServerClient.
func NewServerClient(baseURL string) *ServerClient {
	return &ServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // загрузка архива может быть долгой
		},
	}
}

// API-ответы
type StartTaskResponse struct {
	TaskID string `json:"task_id"`
	Hash   string `json:"hash,omitempty"`
}

type TaskStatusResponse struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	Hash         string `json:"hash,omitempty"`
	ChatID       int64  `json:"chat_id"`
	Progress     struct {
		Done  int `json:"done"`
		Total int `json:"total"`
	} `json:"progress"`
	ErrorMessage string `json:"error_message,omitempty"`
	ChatName     string `json:"chat_name,omitempty"`
	Messages     int    `json:"messages,omitempty"`
}

// PaginationDTO представляет собой объект пагинации из ответа сервера.
type PaginationDTO struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

type TaskResultResponse struct {
	Pagination PaginationDTO     `json:"pagination"`
	ChatName   string            `json:"chat_name"`
	Data       []json.RawMessage `json:"data"`
}

// StartTask загружает zip-архив экспорта. chatID == 0 оставляет значение сервера.
func (c *ServerClient) StartTask(ctx context.Context, name string, archive io.Reader, chatID int64) (*StartTaskResponse, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	if chatID != 0 {
		if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
			return nil, fmt.Errorf("failed to write chat_id: %w", err)
		}
	}
	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file for %s: %w", name, err)
	}
	if _, err = io.Copy(fw, archive); err != nil {
		return nil, fmt.Errorf("failed to copy archive %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/convert", &b)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result StartTaskResponse
	if err := c.do(req, http.StatusAccepted, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartTaskByHash создает задачу из результата, закэшированного на сервере.
func (c *ServerClient) StartTaskByHash(ctx context.Context, hash string, chatID *int64) (*StartTaskResponse, error) {
	body, err := json.Marshal(struct {
		Hash   string `json:"hash"`
		ChatID *int64 `json:"chat_id,omitempty"`
	}{Hash: hash, ChatID: chatID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/convert-by-hash", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result StartTaskResponse
	if err := c.do(req, http.StatusAccepted, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTaskStatus запрашивает статус задачи.
func (c *ServerClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tasks/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result TaskStatusResponse
	if err := c.do(req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTaskResult запрашивает страницу сообщений выполненной задачи.
func (c *ServerClient) GetTaskResult(ctx context.Context, taskID string, page, pageSize int) (*TaskResultResponse, error) {
	url := fmt.Sprintf("%s/api/v1/tasks/%s/result?page=%d&page_size=%d", c.baseURL, taskID, page, pageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result TaskResultResponse
	if err := c.do(req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Download копирует объединенный документ задачи в w.
func (c *ServerClient) Download(ctx context.Context, taskID string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tasks/"+taskID+"/download", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unexpectedStatus(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read result: %w", err)
	}
	return nil
}

// WaitTask опрашивает статус с интервалом interval, пока задача не завершится.
// onStatus, если задан, вызывается после каждого опроса.
func (c *ServerClient) WaitTask(ctx context.Context, taskID string, interval time.Duration, onStatus func(*TaskStatusResponse)) (*TaskStatusResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := c.GetTaskStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if onStatus != nil {
			onStatus(status)
		}

		switch status.Status {
		case StatusCompleted:
			return status, nil
		case StatusFailed:
			return status, fmt.Errorf("%w: %s", ErrTaskFailed, status.ErrorMessage)
		case StatusPending, StatusProcessing:
			continue
		default:
			return status, fmt.Errorf("unknown task status: %s", status.Status)
		}
	}
}

func (c *ServerClient) do(req *http.Request, want int, v any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return unexpectedStatus(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func unexpectedStatus(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
