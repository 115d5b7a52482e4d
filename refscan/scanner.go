package refscan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DefaultTimeout bounds the mark-phase queries. A scan that cannot finish in
// time is treated like any other query failure: fatal to the caller.
const DefaultTimeout = 2 * time.Minute

type collector func(ctx context.Context, db *gorm.DB) ([]string, error)

func collectKind[T AssetHolder](columns ...string) collector {
	return func(ctx context.Context, db *gorm.DB) ([]string, error) {
		var records []T
		if err := db.WithContext(ctx).Select(columns).Find(&records).Error; err != nil {
			return nil, err
		}
		var urls []string
		for _, record := range records {
			for _, url := range record.AssetURLs() {
				if url != "" {
					urls = append(urls, url)
				}
			}
		}
		return urls, nil
	}
}

// The registry of {entity kind -> asset columns}. Deliberately explicit:
// asset-valued columns cannot be told apart from arbitrary strings, so they
// are enumerated here and nowhere else.
var registry = map[string]collector{
	"catalog_item":   collectKind[CatalogItem]("id", "image", "documents"),
	"service":        collectKind[Service]("id", "image", "icon"),
	"news_post":      collectKind[NewsPost]("id", "cover_image", "images"),
	"team_member":    collectKind[TeamMember]("id", "photo"),
	"partner":        collectKind[Partner]("id", "logo"),
	"career_opening": collectKind[CareerOpening]("id", "image"),
	"gallery_image":  collectKind[GalleryImage]("id", "image"),
}

type ScannerParams struct {
	DB      *gorm.DB
	Timeout time.Duration // 0 means DefaultTimeout
	Logger  zerolog.Logger
}

func NewScanner(params ScannerParams) *Scanner {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scanner{
		db:      params.DB,
		timeout: timeout,
		logger:  params.Logger,
	}
}

// Scanner computes the set of asset URLs currently referenced by site
// records. The result is recomputed from scratch on every call, never
// cached.
type Scanner struct {
	db      *gorm.DB
	timeout time.Duration
	logger  zerolog.Logger
}

// Collect queries every registered entity kind, concurrently, and returns
// the union of all non-empty asset URL values. Any single query failure (or
// the timeout) fails the whole collection: a partial mark set must never
// reach a sweep.
func (s *Scanner) Collect(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Info().Int("kinds", len(registry)).Msg("collecting asset references")

	var mu sync.Mutex
	referenced := map[string]struct{}{}

	g, ctx := errgroup.WithContext(ctx)
	for kind, collect := range registry {
		g.Go(func() error {
			urls, err := collect(ctx, s.db)
			if err != nil {
				return fmt.Errorf("could not scan %s references: %w", kind, err)
			}

			mu.Lock()
			for _, url := range urls {
				referenced[url] = struct{}{}
			}
			mu.Unlock()

			s.logger.Debug().Str("kind", kind).Int("urls", len(urls)).Msg("scanned references")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("referenced", len(referenced)).
		Float64("seconds", time.Since(startTime).Seconds()).
		Msg("done collecting asset references")
	return referenced, nil
}
