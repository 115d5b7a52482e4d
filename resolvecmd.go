package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vetlab-site/labmedia/resolve"
)

func resolveCommand(args Command) error {
	var payload any
	decoder := json.NewDecoder(os.Stdin)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return fmt.Errorf("could not decode payload: %w", err)
	}

	baseURL := args.Resolve.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("BASE_URL")
	}
	resolver := resolve.NewResolver(baseURL)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resolver.Resolve(payload))
}
