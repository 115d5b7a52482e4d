package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateAll(t *testing.T) {
	store := newTestStore(t)

	saved := map[string]struct{}{}
	for _, module := range []string{"news", "partners", "originals/news"} {
		url, err := store.Save(data, module, ".webp")
		require.NoError(t, err)
		saved[url] = struct{}{}
	}

	found := map[string]struct{}{}
	for url := range store.EnumerateAll(context.Background()) {
		found[url] = struct{}{}
	}

	assert.Equal(t, saved, found)
}

func TestEnumerateAll_Empty(t *testing.T) {
	store := newTestStore(t)

	count := 0
	for range store.EnumerateAll(context.Background()) {
		count++
	}

	assert.Zero(t, count)
}

func TestEnumerateAll_CancelledContext(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(data, "news", ".webp")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count := 0
	for range store.EnumerateAll(ctx) {
		count++
	}

	assert.Zero(t, count)
}

func TestEnumerateAll_OneShot(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Save(data, "news", ".webp")
	require.NoError(t, err)

	seq := store.EnumerateAll(context.Background())
	first := []string{}
	for u := range seq {
		first = append(first, u)
	}
	assert.Equal(t, []string{url}, first)

	// Re-invoking re-scans the current state of the root.
	require.True(t, store.Delete(url))
	second := 0
	for range store.EnumerateAll(context.Background()) {
		second++
	}
	assert.Zero(t, second)
}

func TestEnumerateAll_SkipsUnreadableSubtree(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	store := newTestStore(t)

	readable, err := store.Save(data, "news", ".webp")
	require.NoError(t, err)
	_, err = store.Save(data, "restricted", ".webp")
	require.NoError(t, err)

	restrictedDir := filepath.Join(store.Root(), "restricted")
	require.NoError(t, os.Chmod(restrictedDir, 0000))
	t.Cleanup(func() { _ = os.Chmod(restrictedDir, 0755) })

	found := []string{}
	for u := range store.EnumerateAll(context.Background()) {
		found = append(found, u)
	}

	assert.Equal(t, []string{readable}, found)
}
