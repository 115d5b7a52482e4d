package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vetlab-site/labmedia/config"
)

var goodConfig = `
{
	"storage_root": "/srv/labmedia/static",
	"base_url": "https://lab.example.com",
	"webp_quality": 75,
	"max_upload_size": "20MB",
	"sweeps": [
		{
			"cron": "0 3 * * *",
			"enable": true,
			"archive_dir": "/srv/labmedia/quarantine"
		},
		{
			"cron": "30 3 * * 0",
			"enable": false,
			"dry_run": true,
			"mark_mode": "both",
			"sample": 25
		}
	]
}
`

var badConfig = `
[]
`

func TestLoad_Good(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.json")
	err := os.WriteFile(testFile, []byte(goodConfig), 0600)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFromFile(testFile)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.StorageRoot != "/srv/labmedia/static" {
		t.Errorf("expected storage root /srv/labmedia/static, got %s", cfg.StorageRoot)
	}

	if cfg.BaseURL != "https://lab.example.com" {
		t.Errorf("expected base url, got %s", cfg.BaseURL)
	}

	if cfg.MaxUploadSize.Size != 20*1000*1000 {
		t.Errorf("expected 20MB max upload size, got %d", cfg.MaxUploadSize.Size)
	}

	if len(cfg.Sweeps) != 2 {
		t.Fatalf("expected 2 sweeps, got %d", len(cfg.Sweeps))
	}

	if cfg.Sweeps[0].Schedule != "0 3 * * *" {
		t.Errorf("expected schedule 0 3 * * *, got %s", cfg.Sweeps[0].Schedule)
	}

	if !cfg.Sweeps[0].Enable {
		t.Error("expected first sweep enabled")
	}

	if cfg.Sweeps[1].MarkMode != "both" {
		t.Errorf("expected mark mode both, got %s", cfg.Sweeps[1].MarkMode)
	}

	if !cfg.Sweeps[1].DryRun {
		t.Error("expected second sweep dry run")
	}
}

func TestLoad_Bad(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.json")
	err := os.WriteFile(testFile, []byte(badConfig), 0600)
	if err != nil {
		t.Fatal(err)
	}

	_, err = config.LoadFromFile(testFile)
	if err == nil {
		t.Error("expected error")
	}
}

func TestLoad_MissingStorageRoot(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.json")
	err := os.WriteFile(testFile, []byte(`{"base_url": "https://lab.example.com"}`), 0600)
	if err != nil {
		t.Fatal(err)
	}

	_, err = config.LoadFromFile(testFile)
	if err == nil {
		t.Error("expected error")
	}
}

func TestLoad_NoFile(t *testing.T) {
	_, err := config.LoadFromFile("unexisting")
	if err == nil {
		t.Error("expected error")
	}
}

func TestLoad_Unreadable(t *testing.T) {
	_, err := config.LoadFromFile(t.TempDir())
	if err == nil {
		t.Error("expected error")
	}
}
