package config

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.StorageRoot == "" {
		return nil, fmt.Errorf("config %s: storage_root is required", path)
	}
	return &cfg, nil
}
