package refindex

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetRef is one row of the append-only reference ledger: a record field
// somewhere in the site schema currently holds this asset URL. The CRUD
// layer writes and releases rows in the same transaction as the record
// itself, which turns the sweep's mark phase into a plain table read.
type AssetRef struct {
	URL       string `gorm:"primaryKey"`
	Kind      string `gorm:"primaryKey"`
	RecordID  uint   `gorm:"primaryKey"`
	Field     string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (AssetRef) TableName() string { return "asset_ref" }

// AssetPair links a derived (web-served) asset to its archival original so
// invalidating one half can reclaim the other.
type AssetPair struct {
	DerivedURL  string `gorm:"primaryKey"`
	OriginalURL string
	Hash        int64
	CreatedAt   time.Time
}

func (AssetPair) TableName() string { return "asset_pair" }

func Models() []any {
	return []any{&AssetRef{}, &AssetPair{}}
}

type IndexParams struct {
	DB     *gorm.DB
	Logger zerolog.Logger
}

func NewIndex(params IndexParams) *Index {
	return &Index{
		db:     params.DB,
		logger: params.Logger,
	}
}

type Index struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Record registers that field of the given record now holds url. Recording
// the same reference twice is a no-op.
func (ix *Index) Record(ctx context.Context, url string, kind string, recordID uint, field string) error {
	if url == "" {
		return nil
	}
	return ix.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&AssetRef{URL: url, Kind: kind, RecordID: recordID, Field: field}).
		Error
}

// Release removes a reference previously registered with Record, typically
// when the CRUD layer overwrites the field with a new URL.
func (ix *Index) Release(ctx context.Context, url string, kind string, recordID uint, field string) error {
	return ix.db.WithContext(ctx).
		Delete(&AssetRef{URL: url, Kind: kind, RecordID: recordID, Field: field}).
		Error
}

// LinkPair records the derived-to-original link of one raster ingestion.
func (ix *Index) LinkPair(ctx context.Context, derivedURL string, originalURL string, hash uint64) error {
	return ix.db.WithContext(ctx).Create(&AssetPair{
		DerivedURL:  derivedURL,
		OriginalURL: originalURL,
		Hash:        int64(hash),
	}).Error
}

// OriginalFor returns the archival original linked to a derived URL.
func (ix *Index) OriginalFor(ctx context.Context, derivedURL string) (string, bool, error) {
	var pair AssetPair
	err := ix.db.WithContext(ctx).First(&pair, "derived_url = ?", derivedURL).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return pair.OriginalURL, true, nil
}

// Collect returns every URL the ledger considers live: all recorded
// references plus the originals paired to a referenced derived asset. It
// satisfies the same marker contract as the live reference scan.
func (ix *Index) Collect(ctx context.Context) (map[string]struct{}, error) {
	var urls []string
	err := ix.db.WithContext(ctx).
		Model(&AssetRef{}).
		Distinct().
		Pluck("url", &urls).
		Error
	if err != nil {
		return nil, err
	}

	var originals []string
	err = ix.db.WithContext(ctx).
		Model(&AssetPair{}).
		Joins("JOIN asset_ref ON asset_ref.url = asset_pair.derived_url").
		Distinct().
		Pluck("asset_pair.original_url", &originals).
		Error
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]struct{}, len(urls)+len(originals))
	for _, url := range urls {
		referenced[url] = struct{}{}
	}
	for _, url := range originals {
		referenced[url] = struct{}{}
	}

	ix.logger.Debug().Int("referenced", len(referenced)).Msg("collected ledger references")
	return referenced, nil
}

// Marker is the mark-set contract of the orphan sweep, restated here so the
// index can decorate other mark sources.
type Marker interface {
	Collect(ctx context.Context) (map[string]struct{}, error)
}

// KeepPairedOriginals wraps a mark source so every marked derived URL also
// keeps its archival original alive. A live reference scan cannot see
// originals on its own: no record field points at them, only the pair table
// does.
func (ix *Index) KeepPairedOriginals(base Marker) Marker {
	return &pairedMarker{base: base, ix: ix}
}

type pairedMarker struct {
	base Marker
	ix   *Index
}

func (m *pairedMarker) Collect(ctx context.Context) (map[string]struct{}, error) {
	marked, err := m.base.Collect(ctx)
	if err != nil {
		return nil, err
	}
	originals, err := m.ix.OriginalsFor(ctx, marked)
	if err != nil {
		return nil, err
	}
	for url := range originals {
		marked[url] = struct{}{}
	}
	return marked, nil
}

// OriginalsFor returns the archival originals paired to any of the given
// derived URLs.
func (ix *Index) OriginalsFor(ctx context.Context, derived map[string]struct{}) (map[string]struct{}, error) {
	if len(derived) == 0 {
		return nil, nil
	}
	urls := make([]string, 0, len(derived))
	for url := range derived {
		urls = append(urls, url)
	}

	var originals []string
	err := ix.db.WithContext(ctx).
		Model(&AssetPair{}).
		Where("derived_url IN ?", urls).
		Distinct().
		Pluck("original_url", &originals).
		Error
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(originals))
	for _, url := range originals {
		set[url] = struct{}{}
	}
	return set, nil
}

// Prune drops ledger rows for URLs a destructive sweep has deleted: pair
// links whose derived half is gone and any stale reference rows. Returns
// how many rows were removed.
func (ix *Index) Prune(ctx context.Context, deleted []string) (int64, error) {
	if len(deleted) == 0 {
		return 0, nil
	}

	var pruned int64
	err := ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("derived_url IN ?", deleted).Delete(&AssetPair{})
		if res.Error != nil {
			return res.Error
		}
		pruned += res.RowsAffected

		res = tx.Where("url IN ?", deleted).Delete(&AssetRef{})
		if res.Error != nil {
			return res.Error
		}
		pruned += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}

	if pruned > 0 {
		ix.logger.Info().Int64("rows", pruned).Msg("pruned asset ledger")
	}
	return pruned, nil
}
