package sweep

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultSampleSize bounds the orphan preview included in a report.
const DefaultSampleSize = 10

// Store is the slice of the blob store a sweep needs.
type Store interface {
	EnumerateAll(ctx context.Context) iter.Seq[string]
	DeleteMany(urls []string) (int, int64)
}

// Marker produces the set of currently referenced asset URLs: the live
// reference scan, the ledger, or both.
type Marker interface {
	Collect(ctx context.Context) (map[string]struct{}, error)
}

// Archiver quarantines orphans before destructive deletion.
type Archiver interface {
	StoreOrphans(ctx context.Context, urls []string) (int, error)
}

// Pruner drops ledger rows for deleted URLs after a destructive sweep.
type Pruner interface {
	Prune(ctx context.Context, deleted []string) (int64, error)
}

type SweeperParams struct {
	Store      Store
	Markers    []Marker // at least one; multiple marks are unioned
	Archive    Archiver // optional
	Pruner     Pruner   // optional
	DryRun     bool
	SampleSize int // 0 means DefaultSampleSize
	Logger     zerolog.Logger
}

func NewSweeper(params SweeperParams) *Sweeper {
	sampleSize := params.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	logger := params.Logger
	if params.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}
	return &Sweeper{
		store:      params.Store,
		markers:    params.Markers,
		archive:    params.Archive,
		pruner:     params.Pruner,
		dryRun:     params.DryRun,
		sampleSize: sampleSize,
		logger:     logger,
	}
}

type Sweeper struct {
	store      Store
	markers    []Marker
	archive    Archiver
	pruner     Pruner
	dryRun     bool
	sampleSize int
	logger     zerolog.Logger
}

type Report struct {
	TotalFiles int
	Referenced int
	Orphans    int
	Deleted    int
	BytesFreed int64
	Sample     []string
}

func (r Report) MarshalZerologObject(e *zerolog.Event) {
	e.Int("total_files", r.TotalFiles)
	e.Int("referenced", r.Referenced)
	e.Int("orphans", r.Orphans)
	e.Int("deleted", r.Deleted)
	e.Str("freed", units.HumanSize(float64(r.BytesFreed)))
	if len(r.Sample) > 0 {
		e.Strs("sample", r.Sample)
	}
}

// Sweep enumerates every stored file, computes the set of referenced URLs,
// and deletes the difference. The two phases run concurrently. A mark
// failure aborts the whole sweep before any deletion; individual file
// failures during the sweep phase only reduce the deleted count.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	startTime := time.Now()
	s.logger.Info().Msg("starting asset sweep")
	defer func() {
		tookSeconds := time.Since(startTime).Seconds()
		if ctx.Err() != nil {
			s.logger.Info().Float64("seconds", tookSeconds).Msg("sweep cancelled")
		} else {
			s.logger.Info().Float64("seconds", tookSeconds).Msg("sweep done")
		}
	}()

	var allFiles []string
	markSets := make([]map[string]struct{}, len(s.markers))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for url := range s.store.EnumerateAll(gctx) {
			allFiles = append(allFiles, url)
		}
		return gctx.Err()
	})
	for i, marker := range s.markers {
		g.Go(func() error {
			marks, err := marker.Collect(gctx)
			if err != nil {
				return fmt.Errorf("mark phase failed: %w", err)
			}
			markSets[i] = marks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	referenced := map[string]struct{}{}
	for _, marks := range markSets {
		for url := range marks {
			referenced[url] = struct{}{}
		}
	}
	if len(markSets) > 1 {
		for i, marks := range markSets {
			if missing := len(referenced) - len(marks); missing > 0 {
				s.logger.Warn().
					Int("marker", i).
					Int("missing", missing).
					Msg("mark sources disagree")
			}
		}
	}

	var orphans []string
	for _, url := range allFiles {
		if _, ok := referenced[url]; !ok {
			orphans = append(orphans, url)
		}
	}
	sort.Strings(orphans)

	report := Report{
		TotalFiles: len(allFiles),
		Referenced: len(allFiles) - len(orphans),
		Orphans:    len(orphans),
		Sample:     orphans[:min(len(orphans), s.sampleSize)],
	}

	if len(orphans) == 0 {
		s.logger.Info().Object("report", report).Msg("no orphaned assets")
		return report, nil
	}

	if s.dryRun {
		s.logger.Info().Object("report", report).Msg("would delete orphaned assets (dry run)")
		return report, nil
	}

	if s.archive != nil {
		archived, err := s.archive.StoreOrphans(ctx, orphans)
		if err != nil {
			return Report{}, fmt.Errorf("could not quarantine orphans, aborting sweep: %w", err)
		}
		s.logger.Info().Int("archived", archived).Msg("quarantined orphaned assets")
	}

	report.Deleted, report.BytesFreed = s.store.DeleteMany(orphans)

	if s.pruner != nil {
		if _, err := s.pruner.Prune(ctx, orphans); err != nil {
			s.logger.Error().Err(err).Msg("could not prune asset ledger")
		}
	}

	s.logger.Info().Object("report", report).Msg("deleted orphaned assets")
	return report, nil
}
