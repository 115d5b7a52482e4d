package ziparchiver

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vetlab-site/labmedia/blob"
	"github.com/vetlab-site/labmedia/fileutils"
	"github.com/vetlab-site/labmedia/ziparchiver/zipwriter"
)

type ArchiveDescriptor struct {
	Dir    string // Directory path.
	Prefix string // Can be empty.
}

type QuarantineParams struct {
	Store  *blob.Store
	Dest   ArchiveDescriptor
	DryRun bool
	Logger zerolog.Logger
}

func NewQuarantine(params QuarantineParams) *Quarantine {
	return &Quarantine{
		store:  params.Store,
		dest:   params.Dest,
		dryRun: params.DryRun,
		logger: params.Logger,
	}
}

// Quarantine copies orphaned assets into a timestamped zip archive before a
// destructive sweep deletes them, so a mistaken sweep stays recoverable.
type Quarantine struct {
	store  *blob.Store
	dest   ArchiveDescriptor
	dryRun bool
	logger zerolog.Logger
}

// StoreOrphans writes the files behind urls into one zip under the
// destination directory and returns how many entries were archived. Files
// that cannot be read are logged and skipped; failing to write the archive
// itself is an error, since the caller is about to delete the members.
func (q *Quarantine) StoreOrphans(ctx context.Context, urls []string) (int, error) {
	zipFile := q.newZipFile()
	logger := q.logger.With().Str("archive", zipFile.Path()).Logger()
	logger.Info().Int("orphans", len(urls)).Msg("quarantining orphaned assets")

	var archived int
	defer func() {
		if err := zipFile.Close(); err != nil {
			logger.Warn().Err(err).Msg("could not close quarantine archive")
		} else if archived > 0 {
			logger.Info().Int("archived", archived).Msg("wrote quarantine archive")
		}
	}()

	for _, url := range urls {
		if ctx.Err() != nil {
			return archived, ctx.Err()
		}

		path, ok := q.store.PathFor(url)
		if !ok {
			logger.Warn().Str("url", url).Msg("skipping URL outside the storage root")
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("could not stat orphan")
			continue
		}

		w, err := zipFile.CreateHeader(&zip.FileHeader{
			Name:               strings.TrimPrefix(url, blob.URLPrefix),
			UncompressedSize64: uint64(info.Size()),
			Modified:           info.ModTime(),
			Method:             zip.Deflate,
		})
		if err != nil {
			return archived, fmt.Errorf("could not write quarantine archive: %w", err)
		}

		hash, err := copyFile(path, w)
		if err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("could not archive orphan")
			continue
		}

		archived++
		logger.Debug().Str("url", url).Uint64("hash", hash).Msg("archived orphan")
	}

	return archived, nil
}

func (q *Quarantine) newZipFile() *zipwriter.ZipFile {
	if q.dryRun {
		return zipwriter.NewNullZipFile()
	}
	name := fmt.Sprintf("%sorphans-%d.zip", q.dest.Prefix, time.Now().UTC().UnixMilli())
	return zipwriter.NewLazyZipFile(filepath.Join(q.dest.Dir, name))
}

func copyFile(path string, w io.Writer) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	// Write to zip as well as compute hash.
	return fileutils.ComputeHash(io.TeeReader(file, w))
}
