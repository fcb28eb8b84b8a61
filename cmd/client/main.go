package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"telegram-export-converter/internal/client"
)

func main() {
	var (
		serverAddr string
		chatID     int64
		output     string
		hash       string
		interval   time.Duration
	)
	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "Server address")
	flag.Int64Var(&chatID, "chat-id", 0, "Chat id written to the result (0 - server default)")
	flag.StringVar(&output, "o", "result.json", "Where to save the merged log")
	flag.StringVar(&hash, "hash", "", "Reuse a result cached on the server instead of uploading")
	flag.DurationVar(&interval, "interval", 2*time.Second, "Task status polling interval")
	flag.Parse()

	ctx := context.Background()
	c := client.NewServerClient(serverAddr)

	var (
		started *client.StartTaskResponse
		err     error
	)
	if hash != "" {
		var id *int64
		if chatID != 0 {
			id = &chatID
		}
		started, err = c.StartTaskByHash(ctx, hash, id)
	} else {
		if flag.NArg() != 1 {
			log.Fatal("Export path is required. Usage: client [flags] <export-dir | export.zip>")
		}
		var archive io.Reader
		archive, err = openArchive(flag.Arg(0))
		if err != nil {
			log.Fatalf("Failed to prepare archive: %v", err)
		}
		started, err = c.StartTask(ctx, "export.zip", archive, chatID)
	}
	if err != nil {
		log.Fatalf("Failed to start task: %v", err)
	}
	fmt.Printf("Task created: %s\n", started.TaskID)
	if started.Hash != "" {
		fmt.Printf("Archive hash (use with -hash to reuse the result): %s\n", started.Hash)
	}

	status, err := c.WaitTask(ctx, started.TaskID, interval, func(s *client.TaskStatusResponse) {
		if s.Progress.Total > 0 {
			fmt.Printf("Task status: %s (%d/%d shards)\n", s.Status, s.Progress.Done, s.Progress.Total)
			return
		}
		fmt.Printf("Task status: %s\n", s.Status)
	})
	if err != nil {
		log.Fatalf("Task did not complete: %v", err)
	}

	f, err := os.Create(output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", output, err)
	}
	if err := c.Download(ctx, started.TaskID, f); err != nil {
		f.Close()
		log.Fatalf("Failed to download result: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to write %s: %v", output, err)
	}
	fmt.Printf("Chat %q: %d messages saved to %s\n", status.ChatName, status.Messages, output)
}

// openArchive возвращает zip-файл как есть или упаковывает каталог экспорта.
func openArchive(path string) (io.Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}

	var buf bytes.Buffer
	if err := client.ZipDir(path, &buf); err != nil {
		return nil, err
	}
	return &buf, nil
}
