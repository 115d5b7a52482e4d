package blob

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
)

// URLPrefix is the static-serving prefix every public asset URL starts with.
const URLPrefix = "/static/"

// Store persists named byte sequences under module namespaces below a single
// storage root and maps between filesystem paths and public URLs.
type Store struct {
	root   string
	logger zerolog.Logger
}

func NewStore(root string, logger zerolog.Logger) *Store {
	root = filepath.Clean(root)
	return &Store{
		root:   root,
		logger: logger.With().Str("storage", root).Logger(),
	}
}

func (s *Store) Root() string {
	return s.root
}

// Save writes data under the module namespace with a freshly generated
// random name preserving ext and returns the public URL. The module
// directory is created if absent.
func (s *Store) Save(data []byte, module string, ext string) (string, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(module))
	if dir != s.root && !strings.HasPrefix(dir, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("module %q escapes the storage root", module)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("could not create module directory: %w", err)
	}

	path := filepath.Join(dir, randomName()+normalizeExt(ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("could not write asset: %w", err)
	}

	url := s.URLFor(path)
	s.logger.Debug().Str("url", url).Int("size", len(data)).Msg("stored asset")
	return url, nil
}

// Delete removes the file behind url and reports whether a deletion
// happened. URLs outside the static prefix (or resolving outside the
// storage root) are refused without side effects. Deleting an already
// deleted asset returns false, never an error.
func (s *Store) Delete(url string) bool {
	deleted, _ := s.remove(url)
	return deleted
}

// DeleteMany deletes each URL independently and returns how many deletions
// happened and how many bytes they freed. One failing member never aborts
// the batch.
func (s *Store) DeleteMany(urls []string) (int, int64) {
	var count int
	var freed int64
	for _, url := range urls {
		ok, size := s.remove(url)
		if ok {
			count++
			freed += size
		}
	}
	if count > 0 {
		s.logger.Info().
			Int("deleted", count).
			Str("freed", units.HumanSize(float64(freed))).
			Msg("deleted assets")
	}
	return count, freed
}

// URLFor converts a path below the storage root to its public URL.
func (s *Store) URLFor(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return ""
	}
	return URLPrefix + filepath.ToSlash(rel)
}

// PathFor converts a public URL back to a filesystem path. It reports false
// for URLs without the static prefix and for paths that would escape the
// storage root.
func (s *Store) PathFor(url string) (string, bool) {
	rel, found := strings.CutPrefix(url, URLPrefix)
	if !found || rel == "" {
		return "", false
	}
	path := filepath.Join(s.root, filepath.FromSlash(rel))
	if path == s.root || !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

func (s *Store) remove(url string) (bool, int64) {
	path, ok := s.PathFor(url)
	if !ok {
		s.logger.Warn().Str("url", url).Msg("refusing to delete outside the storage root")
		return false, 0
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("url", url).Msg("could not delete asset")
		}
		return false, 0
	}

	s.logger.Debug().Str("url", url).Int64("size", size).Msg("deleted asset")
	return true, size
}

// 128-bit random hex name. Collisions are avoided probabilistically, not
// checked.
func randomName() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf[:])
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
