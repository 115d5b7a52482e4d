package resolve

import (
	"net/url"
	"strings"
)

// Field names whose string values denote assets. Only values reached under
// one of these keys are rewritten; everything else passes through verbatim.
var assetFields = map[string]struct{}{
	"image":       {},
	"images":      {},
	"photo":       {},
	"photos":      {},
	"logo":        {},
	"coverImage":  {},
	"originalUrl": {},
	"icon":        {},
}

// Resolver rewrites relative storage URLs into fully qualified ones for
// outward-facing responses. With an empty base URL it leaves everything
// relative.
type Resolver struct {
	baseURL string
}

func NewResolver(baseURL string) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// ResolveURL makes a single URL absolute. Already absolute URLs come back
// unchanged, so resolving is idempotent.
func (r *Resolver) ResolveURL(value string) string {
	if value == "" || r.baseURL == "" {
		return value
	}
	if parsed, err := url.Parse(value); err == nil && parsed.Scheme != "" {
		return value
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return r.baseURL + value
}

// Resolve walks an arbitrary JSON-like payload (maps, slices, scalars) and
// rewrites string values found under asset field names. It is pure: inputs
// are never mutated, non-asset values pass through untouched, and nil is
// returned as nil.
func (r *Resolver) Resolve(payload any) any {
	return r.walk(payload, false)
}

func (r *Resolver) walk(value any, inAssetField bool) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, member := range v {
			_, isAsset := assetFields[key]
			out[key] = r.walk(member, isAsset)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, member := range v {
			out[i] = r.walk(member, inAssetField)
		}
		return out
	case string:
		if inAssetField {
			return r.ResolveURL(v)
		}
		return v
	default:
		return v
	}
}
