package blob_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vetlab-site/labmedia/blob"
)

var data = []byte("hello world")

func newTestStore(t *testing.T) *blob.Store {
	t.Helper()
	return blob.NewStore(t.TempDir(), zerolog.New(zerolog.NewTestWriter(t)))
}

func TestSave(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Save(data, "partners", ".png")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(url, "/static/partners/") {
		t.Errorf("expected url under /static/partners/, got %s", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Errorf("expected .png extension, got %s", url)
	}

	path, ok := store.PathFor(url)
	if !ok {
		t.Fatalf("expected path for %s", url)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("stored bytes differ")
	}
}

func TestSave_NestedModule(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Save(data, "originals/news", "JPG")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(url, "/static/originals/news/") {
		t.Errorf("expected url under /static/originals/news/, got %s", url)
	}
	if !strings.HasSuffix(url, ".jpg") {
		t.Errorf("expected lowercased .jpg extension, got %s", url)
	}
}

func TestSave_RandomNames(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Save(data, "news", ".webp")
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Save(data, "news", ".webp")
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Errorf("expected distinct names for identical payloads, got %s twice", first)
	}
}

func TestSave_RejectsEscapingModule(t *testing.T) {
	store := newTestStore(t)

	for _, module := range []string{
		"..",
		"../outside",
		"news/../../outside",
	} {
		if _, err := store.Save(data, module, ".png"); err == nil {
			t.Errorf("expected save under module %q to be refused", module)
		}
	}
}

func TestDelete_Idempotent(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Save(data, "gallery", ".webp")
	if err != nil {
		t.Fatal(err)
	}

	if !store.Delete(url) {
		t.Error("expected first delete to report true")
	}
	if store.Delete(url) {
		t.Error("expected second delete to report false")
	}
}

func TestDelete_RejectsOutsidePrefix(t *testing.T) {
	store := newTestStore(t)

	marker := filepath.Join(t.TempDir(), "marker")
	if err := os.WriteFile(marker, data, 0644); err != nil {
		t.Fatal(err)
	}

	for _, url := range []string{
		"/etc/passwd",
		marker,
		"relative/path.png",
		"/static/",
		"/static/../" + filepath.Base(marker),
	} {
		if store.Delete(url) {
			t.Errorf("expected delete of %q to be refused", url)
		}
	}

	if _, err := os.Stat(marker); err != nil {
		t.Errorf("expected marker file untouched: %v", err)
	}
}

func TestDeleteMany(t *testing.T) {
	store := newTestStore(t)

	urls := []string{}
	for range 3 {
		url, err := store.Save(data, "news", ".webp")
		if err != nil {
			t.Fatal(err)
		}
		urls = append(urls, url)
	}
	urls = append(urls, "/static/news/gone.webp", "/etc/passwd")

	count, freed := store.DeleteMany(urls)
	if count != 3 {
		t.Errorf("expected 3 deletions, got %d", count)
	}
	if freed != int64(3*len(data)) {
		t.Errorf("expected %d bytes freed, got %d", 3*len(data), freed)
	}
}

func TestPathFor_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Save(data, "team", ".jpeg")
	if err != nil {
		t.Fatal(err)
	}

	path, ok := store.PathFor(url)
	if !ok {
		t.Fatalf("expected path for %s", url)
	}
	if store.URLFor(path) != url {
		t.Errorf("expected round trip, got %s", store.URLFor(path))
	}
}
