// Package manifest loads the sample category list and per-sample prompt text.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// DefaultPath is where the published site keeps its manifest.
	DefaultPath = "assets/data/samples.json"

	// DefaultAssetBase is the prefix of all per-sample files.
	DefaultAssetBase = "assets/samples"

	// PromptFallback replaces prompt text that could not be fetched.
	PromptFallback = "Prompt not available"
)

// ErrManifest is wrapped by every LoadCategories failure.
var ErrManifest = errors.New("manifest unavailable")

// Category is one group of samples on the results page.
type Category struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	UIDs        []string `json:"uids" yaml:"uids"`
}

// Source yields the category list.
type Source interface {
	LoadCategories(ctx context.Context) ([]Category, error)
}

// Static is a literal, in-code category list.
type Static []Category

// LoadCategories returns a copy of the list so callers cannot mutate it.
func (s Static) LoadCategories(ctx context.Context) ([]Category, error) {
	out := make([]Category, len(s))
	for i, c := range s {
		c.UIDs = slices.Clone(c.UIDs)
		out[i] = c
	}
	return out, nil
}

// ParseStatic decodes a literal category list. JSON is accepted as the YAML
// subset it is.
func ParseStatic(b []byte) (Static, error) {
	cats, err := decodeYAML(b)
	if err != nil {
		return nil, fmt.Errorf("%w: inline list: %w", ErrManifest, err)
	}
	return Static(cats), nil
}

// Loader reads the manifest and prompt files through a Fetcher.
type Loader struct {
	fetcher      Fetcher
	manifestPath string
	assetBase    string
}

// NewLoader constructs a Loader. Empty paths fall back to the defaults.
func NewLoader(f Fetcher, manifestPath, assetBase string) *Loader {
	if manifestPath == "" {
		manifestPath = DefaultPath
	}
	if assetBase == "" {
		assetBase = DefaultAssetBase
	}
	return &Loader{fetcher: f, manifestPath: manifestPath, assetBase: assetBase}
}

// LoadCategories fetches and decodes the manifest.
func (l *Loader) LoadCategories(ctx context.Context) ([]Category, error) {
	b, err := l.fetcher.Fetch(ctx, l.manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrManifest, l.manifestPath, err)
	}
	cats, err := Decode(l.manifestPath, b)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrManifest, l.manifestPath, err)
	}
	return cats, nil
}

// LoadPromptText returns the trimmed prompt for one sample, or PromptFallback
// on any failure.
func (l *Loader) LoadPromptText(ctx context.Context, categoryID, uid string) string {
	b, err := l.fetcher.Fetch(ctx, AssetPath(l.assetBase, categoryID, uid, "text", "txt"))
	if err != nil {
		return PromptFallback
	}
	return strings.TrimSpace(string(b))
}

// AssetPath derives {base}/{categoryID}/{uid}_{suffix}.{ext}.
func AssetPath(base, categoryID, uid, suffix, ext string) string {
	name := categoryID + "/" + uid + "_" + suffix + "." + ext
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return name
	}
	return base + "/" + name
}
