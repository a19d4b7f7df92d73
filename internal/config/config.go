package config

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

// Preset selects one of the known page layouts.
// - spectrograms (default): players with spectrogram images, no prompt text, no sidebar
// - prompts: sidebar navigation + prompt text, no spectrograms
// - full: everything on
// - minimal: players only
type Preset string

const (
	PresetSpectrograms Preset = "spectrograms" // default
	PresetPrompts      Preset = "prompts"
	PresetFull         Preset = "full"
	PresetMinimal      Preset = "minimal"
)

// StorageType controls the render log backend.
type StorageType string

const (
	StorageSQLite StorageType = "sqlite"
	StorageMemory StorageType = "memory"
	StorageOff    StorageType = "off"
)

// Layout is the set of presentation switches derived from PRESET and the
// SHOW_* overrides. It is fixed for the lifetime of a builder.
type Layout struct {
	Spectrograms bool
	Prompts      bool
	Sidebar      bool
}

// ModelSpec names one compared separation system. ID is the file suffix
// (est_<ID>), Label is what the page shows.
type ModelSpec struct {
	ID    string
	Label string
}

// Config contains all runtime configuration.
type Config struct {
	// Core
	ListenAddr string
	LogLevel   string
	PageTitle  string

	// Layout
	Preset           Preset
	ShowSpectrograms *bool // nil = preset default
	ShowPrompts      *bool
	ShowSidebar      *bool
	Models           []ModelSpec

	// Assets
	AssetRoot    string // local directory served under the asset base's first segment
	AssetBase    string // path prefix of per-sample files
	ManifestPath string
	ManifestURL  string // optional remote site root; empty = read from AssetRoot

	// ManifestInline is a literal category list (JSON or YAML). When set it
	// replaces the manifest file; prompts are still read per sample.
	ManifestInline string

	// Fetching
	FetchTimeout      time.Duration
	PromptWait        time.Duration
	PromptConcurrency int

	// Render log
	Storage        StorageType
	StoragePath    string
	StorageMaxRows int
}

// Layout returns the presentation switches for the configured preset,
// with any SHOW_* overrides applied.
func (c *Config) Layout() Layout {
	var l Layout
	switch c.Preset {
	case PresetPrompts:
		l = Layout{Prompts: true, Sidebar: true}
	case PresetFull:
		l = Layout{Spectrograms: true, Prompts: true, Sidebar: true}
	case PresetMinimal:
		l = Layout{}
	default:
		l = Layout{Spectrograms: true}
	}

	if c.ShowSpectrograms != nil {
		l.Spectrograms = *c.ShowSpectrograms
	}
	if c.ShowPrompts != nil {
		l.Prompts = *c.ShowPrompts
	}
	if c.ShowSidebar != nil {
		l.Sidebar = *c.ShowSidebar
	}
	return l
}

// PageAssetBase is the asset prefix as the browser should see it. When the
// manifest comes from a remote site the page links there directly.
func (c *Config) PageAssetBase() string {
	if c.ManifestURL == "" {
		return c.AssetBase
	}
	return strings.TrimSuffix(c.ManifestURL, "/") + "/" + strings.TrimPrefix(c.AssetBase, "/")
}

// Load parses env vars and returns a validated Config.
func Load() (Config, error) {
	cfg := Config{
		// Core
		ListenAddr: getEnvString("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnvString("LOG_LEVEL", "info"),
		PageTitle:  getEnvString("PAGE_TITLE", "Audio Source Separation Results"),

		// Layout
		Preset:           Preset(getEnvString("PRESET", string(PresetSpectrograms))),
		ShowSpectrograms: getEnvBoolPtr("SHOW_SPECTROGRAMS"),
		ShowPrompts:      getEnvBoolPtr("SHOW_PROMPTS"),
		ShowSidebar:      getEnvBoolPtr("SHOW_SIDEBAR"),
		Models:           getEnvModelList("MODELS", DefaultModels()),

		// Assets
		AssetRoot:    getEnvString("ASSET_ROOT", "."),
		AssetBase:    getEnvString("ASSET_BASE", "assets/samples"),
		ManifestPath: getEnvString("MANIFEST_PATH", "assets/data/samples.json"),
		ManifestURL:  getEnvString("MANIFEST_URL", ""),

		ManifestInline: getEnvString("MANIFEST_INLINE", ""),

		// Fetching
		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		PromptWait:        getEnvDuration("PROMPT_WAIT", 2*time.Second),
		PromptConcurrency: getEnvInt("PROMPT_CONCURRENCY", 8),

		// Render log
		Storage:        StorageType(getEnvString("STORAGE", string(StorageMemory))),
		StoragePath:    getEnvString("STORAGE_PATH", "/data/sepdemo.sqlite"),
		StorageMaxRows: getEnvInt("STORAGE_MAX_ROWS", 1000),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultModels is the model order of the published results page.
func DefaultModels() []ModelSpec {
	return []ModelSpec{
		{ID: "audiosep", Label: "AudioSep"},
		{ID: "omnisonix", Label: "OmniSoniX"},
	}
}

// Validate checks configuration constraints.
func (c Config) Validate() error {
	switch c.Preset {
	case PresetSpectrograms, PresetPrompts, PresetFull, PresetMinimal:
		// ok
	default:
		return fmt.Errorf("invalid PRESET: %q (must be spectrograms|prompts|full|minimal)", c.Preset)
	}

	switch c.Storage {
	case StorageSQLite, StorageMemory, StorageOff:
		// ok
	default:
		return fmt.Errorf("invalid STORAGE: %q (must be sqlite|memory|off)", c.Storage)
	}
	if c.StorageMaxRows < 10 {
		return fmt.Errorf("STORAGE_MAX_ROWS must be >= 10")
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("MODELS must not be empty")
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("MODELS entries must have an id")
		}
		if strings.ContainsAny(m.ID, "/ ") {
			return fmt.Errorf("MODELS id %q must not contain '/' or spaces", m.ID)
		}
		if seen[m.ID] {
			return fmt.Errorf("MODELS id %q listed twice", m.ID)
		}
		seen[m.ID] = true
	}

	if err := validateAssetBase(c.AssetBase); err != nil {
		return err
	}
	if c.ManifestPath == "" {
		return fmt.Errorf("MANIFEST_PATH must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be > 0")
	}
	if c.PromptWait < 0 {
		return fmt.Errorf("PROMPT_WAIT must be >= 0")
	}
	if c.PromptConcurrency < 1 {
		return fmt.Errorf("PROMPT_CONCURRENCY must be >= 1")
	}

	return nil
}

// reservedRoots are top-level paths the server routes itself.
var reservedRoots = map[string]bool{
	"api":        true,
	"static":     true,
	"metrics":    true,
	"healthz":    true,
	"index.html": true,
}

// validateAssetBase requires a relative path whose first segment the server
// can route to the asset root.
func validateAssetBase(base string) error {
	b := strings.Trim(base, "/")
	if b == "" || !fs.ValidPath(b) {
		return fmt.Errorf("invalid ASSET_BASE: %q (must be a relative path without '..')", base)
	}
	root, _, _ := strings.Cut(b, "/")
	if reservedRoots[root] {
		return fmt.Errorf("invalid ASSET_BASE: %q (%q is a reserved route)", base, root)
	}
	return nil
}

// Helper functions for parsing environment variables

func getEnvString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvBoolPtr(key string) *bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return &b
		}
	}
	return nil
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func getEnvModelList(key string, def []ModelSpec) []ModelSpec {
	if v, ok := os.LookupEnv(key); ok {
		if parsed := parseModelList(v); len(parsed) > 0 {
			return parsed
		}
	}
	return def
}

// parseModelList reads "id:Label,id2:Label2". A missing label falls back to the id.
func parseModelList(s string) []ModelSpec {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]ModelSpec, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, label, _ := strings.Cut(p, ":")
		id = strings.TrimSpace(id)
		label = strings.TrimSpace(label)
		if label == "" {
			label = id
		}
		out = append(out, ModelSpec{ID: id, Label: label})
	}
	return out
}
