package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/threadsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const sample = `{"id":"t1","account_id":"work","subject":"Quarterly report","last_message_at":"2024-03-01T12:00:00Z"}

{"id":"t2","account_id":"home","subject":"Dinner","participants":["a@x","b@x"],"last_message_at":"2024-03-01T11:00:00Z","unread":true}
`

func TestImportFile(t *testing.T) {
	store := memory.NewThreadIndex()
	path := writeFile(t, t.TempDir(), "a.jsonl", sample)

	n, err := New(store).ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.GetThread(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, "home", got.AccountID)
	assert.Equal(t, []string{"a@x", "b@x"}, got.Participants)
	assert.True(t, got.Unread)
}

func TestImportFile_LargeFileUsesBatches(t *testing.T) {
	store := memory.NewThreadIndex()
	var b strings.Builder
	for i := 0; i < batchSize+10; i++ {
		fmt.Fprintf(&b, `{"id":"t%d","subject":"s"}`+"\n", i)
	}
	path := writeFile(t, t.TempDir(), "big.jsonl", b.String())

	n, err := New(store).ImportFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, batchSize+10, n)
	recent, err := store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, batchSize+10)
}

func TestImportFile_InvalidLine(t *testing.T) {
	store := memory.NewThreadIndex()
	path := writeFile(t, t.TempDir(), "bad.jsonl", `{"id":"t1"}`+"\n"+`{oops`+"\n")

	n, err := New(store).ImportFile(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "bad.jsonl:2")
	assert.Equal(t, 0, n)
}

func TestImportFile_MissingID(t *testing.T) {
	path := writeFile(t, t.TempDir(), "noid.jsonl", `{"subject":"x"}`)

	_, err := New(memory.NewThreadIndex()).ImportFile(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestImportFile_Missing(t *testing.T) {
	_, err := New(memory.NewThreadIndex()).ImportFile(context.Background(), "/nonexistent/x.jsonl")

	assert.Error(t, err)
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl", sample)
	writeFile(t, dir, "b.jsonl", `{"id":"t3"}`)
	writeFile(t, dir, "notes.txt", `{"id":"ignored"}`)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jsonl"), 0700))
	store := memory.NewThreadIndex()

	n, err := New(store).ImportDir(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = store.GetThread(context.Background(), "ignored")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportDir_PropagatesError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.jsonl", `nope`)

	_, err := New(memory.NewThreadIndex()).ImportDir(context.Background(), dir)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWatch_ImportsNewFiles(t *testing.T) {
	dir := t.TempDir()
	store := memory.NewThreadIndex()
	im := New(store)
	im.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan domain.ImportResult, 4)
	done := make(chan error, 1)
	go func() {
		done <- im.Watch(ctx, dir, func(r domain.ImportResult) { results <- r })
	}()

	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "ignored.txt", "x")
	writeFile(t, dir, "new.jsonl", `{"id":"w1"}`)

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Equal(t, filepath.Join(dir, "new.jsonl"), r.Path)
		assert.Equal(t, 1, r.Count)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not import the new file")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := New(memory.NewThreadIndex()).Watch(context.Background(), "/nonexistent/dir", nil)

	assert.Error(t, err)
}
