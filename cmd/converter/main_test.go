package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-export-converter/internal/domain"
)

const page = `<html><body>
<div class="page_header"><div class="content"><div class="text bold">Alice</div></div></div>
<div class="history">
<div class="message default clearfix" id="message1">
 <div class="body">
  <div class="pull_right date details" title="15.03.2023 14:22:01 UTC+03:00">14:22</div>
  <div class="from_name">Alice</div>
  <div class="text">hi</div>
 </div>
</div>
<div class="message default clearfix joined" id="message2">
 <div class="body">
  <div class="pull_right date details" title="15.03.2023 14:23:01 UTC+03:00">14:23</div>
  <div class="text">again</div>
 </div>
</div>
<div class="message default clearfix" id="message3">
 <div class="body">
  <div class="pull_right date details" title="15.03.2023 14:24:01 UTC+03:00">14:24</div>
  <div class="from_name">Bob</div>
  <div class="text">hello</div>
 </div>
</div>
</div></body></html>`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yml")))
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertAndMerge(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "messages.html"), []byte(page), 0o644))

	out, err := execute(t, "convert", dir, "--chat-id", "9")
	require.NoError(t, err)
	assert.Contains(t, out, `Converted "Alice": 3 messages`)

	shard, err := os.ReadFile(filepath.Join(dir, "messages.json"))
	require.NoError(t, err)
	assert.Contains(t, string(shard), `"id": 9,`)
	assert.FileExists(t, filepath.Join(dir, "result.json"))

	merged := filepath.Join(dir, "twice.json")
	out, err = execute(t, "merge", filepath.Join(dir, "messages.json"), filepath.Join(dir, "messages.json"), "-o", merged)
	require.NoError(t, err)
	assert.Contains(t, out, "Merged 2 shards: 6 messages")
	assert.FileExists(t, merged)
}

func TestConvertRejectsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	_, err := execute(t, "convert", path)
	assert.Error(t, err)
}

func TestSenders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "messages.html"), []byte(page), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "messages2.html"), []byte(page), 0o644))

	out, err := execute(t, "senders", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1. Name: Alice, ID: Unknown (not in directory), Messages: 4")
	assert.Contains(t, out, "2. Name: Bob, ID: Unknown (not in directory), Messages: 2")
}

func TestMergeSenders(t *testing.T) {
	got := mergeSenders(
		[]domain.Sender{{Name: "Alice", Messages: 1}},
		[]domain.Sender{{Name: "Bob", Messages: 2}, {Name: "Alice", Messages: 3}},
	)
	assert.Equal(t, []domain.Sender{{Name: "Alice", Messages: 4}, {Name: "Bob", Messages: 2}}, got)
}
