package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CameraConfig.Driver != "webcam" {
		t.Errorf("default driver = %q, want webcam", cfg.CameraConfig.Driver)
	}
	if cfg.CameraConfig.Facing != "back" || cfg.CameraConfig.Format != "jpeg" {
		t.Errorf("default camera config = %+v", cfg.CameraConfig)
	}
	if cfg.Server.Port != "8080" || cfg.Server.Enabled {
		t.Errorf("default server config = %+v", cfg.Server)
	}
	if !strings.HasSuffix(cfg.StorePath, filepath.Join("camauth", "codes.json")) {
		t.Errorf("default store path = %q", cfg.StorePath)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.CameraConfig.Driver = "fake"
	cfg.Server.Enabled = true
	cfg.Server.Port = "9000"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	if got.CameraConfig.Driver != "fake" {
		t.Errorf("driver = %q, want fake", got.CameraConfig.Driver)
	}
	if !got.Server.Enabled || got.Server.Port != "9000" {
		t.Errorf("server config = %+v", got.Server)
	}
}

func TestLoadFillsMissingFields(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "camauth")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	partial := []byte(`{"server": {"port": "9001"}}`)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), partial, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9001" {
		t.Errorf("port = %q, want 9001", cfg.Server.Port)
	}
	// Fields the file omits keep their defaults.
	if cfg.CameraConfig.Driver != "webcam" {
		t.Errorf("driver = %q, want webcam", cfg.CameraConfig.Driver)
	}
	if cfg.StorePath == "" {
		t.Error("store path not filled in")
	}
}
