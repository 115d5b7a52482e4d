package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/gen2brain/webp"
	"github.com/rs/zerolog"

	"github.com/vetlab-site/labmedia/blob"
	"github.com/vetlab-site/labmedia/fileutils"
)

// DefaultQuality is the fixed lossy quality used for derived WebP renditions.
const DefaultQuality = 80

// OriginalsPrefix is the namespace bucket holding untouched archival copies
// of raster photo uploads.
const OriginalsPrefix = "originals"

// ErrInvalidUpload reports an upload the pipeline refuses to store: empty or
// oversized payloads, or raster photo bytes that do not decode. Rejected
// uploads never leave a broken asset behind.
var ErrInvalidUpload = errors.New("invalid upload")

// PairRecorder persists the derived-to-original link of a raster ingestion.
type PairRecorder interface {
	LinkPair(ctx context.Context, derivedURL string, originalURL string, hash uint64) error
}

type PipelineParams struct {
	Store    *blob.Store
	Pairs    PairRecorder // optional
	Quality  int          // 0 means DefaultQuality
	MaxBytes int64        // 0 means unlimited
	Logger   zerolog.Logger
}

func NewPipeline(params PipelineParams) *Pipeline {
	quality := params.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	return &Pipeline{
		store:    params.Store,
		pairs:    params.Pairs,
		quality:  quality,
		maxBytes: params.MaxBytes,
		logger:   params.Logger,
	}
}

// Pipeline classifies uploads by declared media type and persists them
// through the blob store: raster photos become an archival original plus a
// compressed WebP rendition, anything else is stored verbatim.
type Pipeline struct {
	store    *blob.Store
	pairs    PairRecorder
	quality  int
	maxBytes int64
	logger   zerolog.Logger
}

type Result struct {
	URL         string
	OriginalURL string // only set for raster photo uploads
	Format      string
	Hash        uint64
	Size        int
}

func (r Result) MarshalZerologObject(e *zerolog.Event) {
	e.Str("url", r.URL)
	if r.OriginalURL != "" {
		e.Str("original_url", r.OriginalURL)
	}
	e.Str("format", r.Format)
	e.Uint64("hash", r.Hash)
	e.Int("size", r.Size)
}

func (p *Pipeline) Ingest(ctx context.Context, data []byte, contentType string, module string, filename string) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: empty payload for %q", ErrInvalidUpload, filename)
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return Result{}, fmt.Errorf("%w: %q is %d bytes, maximum is %d", ErrInvalidUpload, filename, len(data), p.maxBytes)
	}

	hash, err := fileutils.ComputeHash(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("could not hash upload: %w", err)
	}

	if isRasterPhoto(contentType) {
		return p.ingestRaster(ctx, data, module, filename, hash)
	}
	return p.ingestVerbatim(data, module, filename, hash)
}

func (p *Pipeline) ingestRaster(ctx context.Context, data []byte, module string, filename string, hash uint64) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: could not decode %q: %v", ErrInvalidUpload, filename, err)
	}

	originalURL, err := p.store.Save(data, path.Join(OriginalsPrefix, module), filepath.Ext(filename))
	if err != nil {
		return Result{}, fmt.Errorf("could not store original: %w", err)
	}

	var derived bytes.Buffer
	if err := webp.Encode(&derived, img, webp.Options{Quality: p.quality}); err != nil {
		p.store.Delete(originalURL)
		return Result{}, fmt.Errorf("could not encode webp rendition of %q: %w", filename, err)
	}

	url, err := p.store.Save(derived.Bytes(), module, ".webp")
	if err != nil {
		p.store.Delete(originalURL)
		return Result{}, fmt.Errorf("could not store webp rendition: %w", err)
	}

	if p.pairs != nil {
		if err := p.pairs.LinkPair(ctx, url, originalURL, hash); err != nil {
			p.store.Delete(url)
			p.store.Delete(originalURL)
			return Result{}, fmt.Errorf("could not record asset pair: %w", err)
		}
	}

	result := Result{
		URL:         url,
		OriginalURL: originalURL,
		Format:      "webp",
		Hash:        hash,
		Size:        derived.Len(),
	}
	p.logger.Info().Object("asset", result).Str("module", module).Msg("ingested raster photo")
	return result, nil
}

func (p *Pipeline) ingestVerbatim(data []byte, module string, filename string, hash uint64) (Result, error) {
	ext := filepath.Ext(filename)

	url, err := p.store.Save(data, module, ext)
	if err != nil {
		return Result{}, fmt.Errorf("could not store upload: %w", err)
	}

	result := Result{
		URL:    url,
		Format: strings.ToLower(strings.TrimPrefix(ext, ".")),
		Hash:   hash,
		Size:   len(data),
	}
	p.logger.Info().Object("asset", result).Str("module", module).Msg("ingested asset")
	return result, nil
}

func isRasterPhoto(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case "image/png", "image/jpeg", "image/jpg":
		return true
	}
	return false
}
