package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sepdemo/internal/config"
	"sepdemo/internal/manifest"
	"sepdemo/internal/metrics"
	"sepdemo/internal/showcase"
	"sepdemo/internal/storage"
	"sepdemo/internal/view"
)

func main() {
	root := &cobra.Command{
		Use:           "sepdemo",
		Short:         "Source separation results page",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newRenderCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds everything both subcommands share.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	source   manifest.Source // category list: the loader or an inline Static
	store    storage.Store
	metrics  *metrics.Metrics
	renderer *showcase.Renderer
}

// setup loads configuration and wires the renderer. Logs go to logOut.
func setup(logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel, logOut)

	logConfig(logger, cfg)

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("manifest fetcher: %w", err)
	}
	loader := manifest.NewLoader(fetcher, cfg.ManifestPath, cfg.AssetBase)

	source, err := newSource(cfg, loader)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	m := metrics.NewMetrics()
	layout := cfg.Layout()
	renderer := showcase.NewRenderer(showcase.Settings{
		Title:  cfg.PageTitle,
		Preset: string(cfg.Preset),
		Options: view.Options{
			AssetBase:    cfg.PageAssetBase(),
			Models:       viewModels(cfg.Models),
			Spectrograms: layout.Spectrograms,
			Prompts:      layout.Prompts,
			Sidebar:      layout.Sidebar,
		},
		PromptWait:  cfg.PromptWait,
		Concurrency: cfg.PromptConcurrency,
	}, source, loader, store, m, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		source:   source,
		store:    store,
		metrics:  m,
		renderer: renderer,
	}, nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close storage", "err", err)
	}
}

func newFetcher(cfg config.Config) (manifest.Fetcher, error) {
	if cfg.ManifestURL != "" {
		return manifest.NewHTTPFetcher(cfg.ManifestURL, cfg.FetchTimeout)
	}
	return manifest.NewFSFetcher(os.DirFS(cfg.AssetRoot)), nil
}

// newSource picks the category list: MANIFEST_INLINE when set, otherwise
// the manifest file read through loader.
func newSource(cfg config.Config, loader *manifest.Loader) (manifest.Source, error) {
	if cfg.ManifestInline == "" {
		return loader, nil
	}
	return manifest.ParseStatic([]byte(cfg.ManifestInline))
}

func openStore(cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageOff:
		return nil, nil
	case config.StorageSQLite:
		return storage.NewSQLiteStore(cfg.StoragePath, cfg.StorageMaxRows, logger)
	default:
		return storage.NewMemoryStore(cfg.StorageMaxRows), nil
	}
}

func viewModels(specs []config.ModelSpec) []view.Model {
	out := make([]view.Model, len(specs))
	for i, s := range specs {
		out[i] = view.Model{ID: s.ID, Label: s.Label}
	}
	return out
}

func newLogger(level string, w io.Writer) *slog.Logger {
	lvl := new(slog.LevelVar)
	switch level {
	case "debug":
		lvl.Set(slog.LevelDebug)
	case "info":
		lvl.Set(slog.LevelInfo)
	case "warn", "warning":
		lvl.Set(slog.LevelWarn)
	case "error":
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

func logConfig(logger *slog.Logger, cfg config.Config) {
	models := make([]string, len(cfg.Models))
	for i, m := range cfg.Models {
		models[i] = m.ID + ":" + m.Label
	}
	layout := cfg.Layout()

	logger.Info("configuration",
		"listen_addr", cfg.ListenAddr,
		"preset", string(cfg.Preset),
		"spectrograms", layout.Spectrograms,
		"prompts", layout.Prompts,
		"sidebar", layout.Sidebar,
		"models", strings.Join(models, ","),
		"asset_root", cfg.AssetRoot,
		"asset_base", cfg.AssetBase,
		"manifest_path", cfg.ManifestPath,
		"manifest_url", cfg.ManifestURL,
		"manifest_inline", cfg.ManifestInline != "",
		"fetch_timeout", cfg.FetchTimeout,
		"prompt_wait", cfg.PromptWait,
		"prompt_concurrency", cfg.PromptConcurrency,
		"storage", string(cfg.Storage),
		"storage_path", cfg.StoragePath,
		"storage_max_rows", cfg.StorageMaxRows,
		"log_level", cfg.LogLevel,
	)
}
