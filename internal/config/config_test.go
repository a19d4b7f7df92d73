package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PRESET", "SHOW_SPECTROGRAMS", "SHOW_PROMPTS", "SHOW_SIDEBAR",
		"MODELS", "STORAGE", "MANIFEST_URL", "MANIFEST_INLINE", "ASSET_BASE", "PROMPT_CONCURRENCY",
	} {
		os.Unsetenv(k)
	}
}

func TestPresetDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Preset != PresetSpectrograms {
		t.Errorf("Default preset = %v, want %v", cfg.Preset, PresetSpectrograms)
	}

	layout := cfg.Layout()
	if !layout.Spectrograms {
		t.Error("Layout.Spectrograms should be true for the default preset")
	}
	if layout.Prompts {
		t.Error("Layout.Prompts should be false for the default preset")
	}
	if layout.Sidebar {
		t.Error("Layout.Sidebar should be false for the default preset")
	}
}

func TestPresetPrompts(t *testing.T) {
	clearEnv(t)
	os.Setenv("PRESET", "prompts")
	defer os.Unsetenv("PRESET")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	layout := cfg.Layout()
	if layout.Spectrograms {
		t.Error("Layout.Spectrograms should be false for PRESET=prompts")
	}
	if !layout.Prompts {
		t.Error("Layout.Prompts should be true for PRESET=prompts")
	}
	if !layout.Sidebar {
		t.Error("Layout.Sidebar should be true for PRESET=prompts")
	}
}

func TestPresetFullAndMinimal(t *testing.T) {
	full := Config{Preset: PresetFull}
	if l := full.Layout(); !l.Spectrograms || !l.Prompts || !l.Sidebar {
		t.Errorf("full layout = %+v, want everything on", l)
	}

	minimal := Config{Preset: PresetMinimal}
	if l := minimal.Layout(); l.Spectrograms || l.Prompts || l.Sidebar {
		t.Errorf("minimal layout = %+v, want everything off", l)
	}
}

func TestLayoutOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("PRESET", "prompts")
	os.Setenv("SHOW_SPECTROGRAMS", "true")
	os.Setenv("SHOW_SIDEBAR", "false")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	layout := cfg.Layout()
	if !layout.Spectrograms {
		t.Error("SHOW_SPECTROGRAMS=true should enable spectrograms")
	}
	if layout.Sidebar {
		t.Error("SHOW_SIDEBAR=false should disable the sidebar")
	}
	if !layout.Prompts {
		t.Error("prompts should keep the preset default")
	}
}

func TestInvalidPreset(t *testing.T) {
	clearEnv(t)
	os.Setenv("PRESET", "fancy")
	defer os.Unsetenv("PRESET")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid PRESET")
	}
}

func TestInvalidStorage(t *testing.T) {
	clearEnv(t)
	os.Setenv("STORAGE", "redis")
	defer os.Unsetenv("STORAGE")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid STORAGE")
	}
}

func TestModelsDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Models) != 2 {
		t.Fatalf("len(Models) = %d, want 2", len(cfg.Models))
	}
	if cfg.Models[0].ID != "audiosep" || cfg.Models[1].ID != "omnisonix" {
		t.Errorf("Models = %+v, want audiosep then omnisonix", cfg.Models)
	}
}

func TestParseModelList(t *testing.T) {
	got := parseModelList(" audiosep:AudioSep, clapsep ,, omnisonix:OmniSoniX ")
	want := []ModelSpec{
		{ID: "audiosep", Label: "AudioSep"},
		{ID: "clapsep", Label: "clapsep"},
		{ID: "omnisonix", Label: "OmniSoniX"},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%+v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("model[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDuplicateModelRejected(t *testing.T) {
	clearEnv(t)
	os.Setenv("MODELS", "a:A,a:B")
	defer os.Unsetenv("MODELS")

	if _, err := Load(); err == nil {
		t.Error("expected error for duplicate model id")
	}
}

func TestPromptConcurrencyValidation(t *testing.T) {
	clearEnv(t)
	os.Setenv("PROMPT_CONCURRENCY", "0")
	defer os.Unsetenv("PROMPT_CONCURRENCY")

	if _, err := Load(); err == nil {
		t.Error("expected error for PROMPT_CONCURRENCY=0")
	}
}

func TestPageAssetBase(t *testing.T) {
	local := Config{AssetBase: "assets/samples"}
	if got := local.PageAssetBase(); got != "assets/samples" {
		t.Errorf("PageAssetBase() = %q, want assets/samples", got)
	}

	remote := Config{AssetBase: "assets/samples", ManifestURL: "https://demo.example.org/site/"}
	if got := remote.PageAssetBase(); got != "https://demo.example.org/site/assets/samples" {
		t.Errorf("PageAssetBase() = %q", got)
	}
}

func TestAssetBaseValidation(t *testing.T) {
	tests := []struct {
		base    string
		wantErr bool
	}{
		{"assets/samples", false},
		{"media/clips/", false},
		{"/assets/samples", false},
		{"", true},
		{"../outside", true},
		{"assets/../../etc", true},
		{"static/samples", true},
		{"api/v1", true},
	}
	for _, tt := range tests {
		err := validateAssetBase(tt.base)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateAssetBase(%q) error = %v, wantErr %v", tt.base, err, tt.wantErr)
		}
	}

	clearEnv(t)
	os.Setenv("ASSET_BASE", "static")
	defer os.Unsetenv("ASSET_BASE")
	if _, err := Load(); err == nil {
		t.Error("expected error for ASSET_BASE=static")
	}
}
