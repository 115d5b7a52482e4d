package config

import "github.com/rs/zerolog"

type Config struct {
	StorageRoot        string        `json:"storage_root"`
	Database           string        `json:"database,omitempty"`
	BaseURL            string        `json:"base_url,omitempty"`
	WebpQuality        int           `json:"webp_quality,omitempty"`
	MaxUploadSize      SizeArgument  `json:"max_upload_size,omitempty"`
	MarkTimeoutSeconds int           `json:"mark_timeout_seconds,omitempty"`
	Sweeps             []ConfigSweep `json:"sweeps,omitempty"`
}

type ConfigSweep struct {
	Schedule   string `json:"cron"`
	Enable     bool   `json:"enable"`
	DryRun     bool   `json:"dry_run,omitempty"`
	MarkMode   string `json:"mark_mode,omitempty"` // scan, ledger or both
	ArchiveDir string `json:"archive_dir,omitempty"`
	SampleSize int    `json:"sample,omitempty"`
}

func (s ConfigSweep) MarshalZerologObject(e *zerolog.Event) {
	e.Str("schedule", s.Schedule)
	e.Bool("enable", s.Enable)
	e.Bool("dry_run", s.DryRun)

	if s.MarkMode != "" {
		e.Str("mark_mode", s.MarkMode)
	}
	if s.ArchiveDir != "" {
		e.Str("archive_dir", s.ArchiveDir)
	}
	if s.SampleSize > 0 {
		e.Int("sample", s.SampleSize)
	}
}
