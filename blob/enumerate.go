package blob

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// EnumerateAll walks the entire storage root and yields the public URL of
// every regular file found. Unreadable subtrees are logged and skipped so a
// single bad directory never aborts the walk. The sequence is finite and
// one-shot; call again to re-scan.
func (s *Store) EnumerateAll(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		var found int

		logger := s.logger
		logger.Info().Msg("start enumerating stored assets")
		defer func() {
			logger.Info().Int("found", found).Msg("done enumerating stored assets")
		}()

		throttledLogger := logger.Sample(&zerolog.BurstSampler{
			Burst:  1,
			Period: 1 * time.Second,
		})
		err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}

			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("could not walk path")
				return nil
			}
			if d.IsDir() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("could not stat path")
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			if !yield(s.URLFor(path)) {
				return filepath.SkipAll
			}
			found++
			throttledLogger.Info().Int("found", found).Msg("enumerating stored assets")

			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("could not walk storage root")
		}
	}
}
