package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Addr != ":8337" {
		t.Errorf("API.Addr = %q, want the default address", cfg.API.Addr)
	}
	if cfg.AI.Model == "" || cfg.AI.MaxTokens == 0 {
		t.Errorf("AI defaults not applied: %+v", cfg.AI)
	}
	if cfg.Local.Path == "" {
		t.Error("Local.Path default not applied")
	}
	if cfg.Remote.DSN != "" {
		t.Errorf("Remote.DSN = %q, want empty for local-only mode", cfg.Remote.DSN)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	in := &Config{
		Remote: RemoteConfig{DSN: "postgres://localhost/tasksync"},
		Local:  LocalConfig{Path: "/tmp/fallback.db"},
		AI:     AIConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 2048},
		API: APIConfig{
			Addr:           ":9000",
			JWTSecret:      "s3cret",
			AllowedOrigins: []string{"https://tasks.example.com"},
		},
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Remote.DSN != in.Remote.DSN {
		t.Errorf("Remote.DSN = %q, want %q", out.Remote.DSN, in.Remote.DSN)
	}
	if out.Local.Path != in.Local.Path {
		t.Errorf("Local.Path = %q, want %q", out.Local.Path, in.Local.Path)
	}
	if out.AI != in.AI {
		t.Errorf("AI = %+v, want %+v", out.AI, in.AI)
	}
	if out.API.Addr != in.API.Addr || out.API.JWTSecret != in.API.JWTSecret {
		t.Errorf("API = %+v, want %+v", out.API, in.API)
	}
	if len(out.API.AllowedOrigins) != 1 || out.API.AllowedOrigins[0] != in.API.AllowedOrigins[0] {
		t.Errorf("AllowedOrigins = %v, want %v", out.API.AllowedOrigins, in.API.AllowedOrigins)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "remote:\n  dsn: postgres://db/tasks\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Remote.DSN != "postgres://db/tasks" {
		t.Errorf("Remote.DSN = %q, want the configured value", cfg.Remote.DSN)
	}
	if cfg.API.Addr != ":8337" {
		t.Errorf("API.Addr = %q, want the default kept for unset keys", cfg.API.Addr)
	}
}
