package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dudu/glowmirror/internal/pipeline"
	"github.com/dudu/glowmirror/internal/regions"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glowmirror.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Makeup.Intensities != (pipeline.Intensities{Lipstick: 0.7, Eyeshadow: 0.5, Blush: 0.4}) {
		t.Errorf("Intensities = %+v", cfg.Makeup.Intensities)
	}
	if cfg.Makeup.BlushRadius != 30 || cfg.Makeup.BlurKernel != 51 {
		t.Errorf("blush radius/kernel = %d/%d, want 30/51", cfg.Makeup.BlushRadius, cfg.Makeup.BlurKernel)
	}
	if !cfg.Enhance.Enabled || cfg.Enhance.ClipLimit != 2.0 || cfg.Enhance.TileGrid != 8 {
		t.Errorf("Enhance = %+v", cfg.Enhance)
	}
	if cfg.Detection.ConfThreshold != 0.5 {
		t.Errorf("ConfThreshold = %v, want 0.5", cfg.Detection.ConfThreshold)
	}

	pc, err := cfg.PipelineConfig()
	if err != nil {
		t.Fatalf("PipelineConfig: %v", err)
	}
	if !reflect.DeepEqual(pc.Regions, regions.DefaultTable()) {
		t.Error("default config does not use the shipped region table")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
log:
  level: WARN
makeup:
  intensities:
    lipstick: 0.9
enhance:
  enabled: false
  clip_limit: 3.5
regions:
  lips: [0, 1, 2, 3]
batch:
  workers: 2
`)
	t.Setenv("GLOWMIRROR_DETECTION_CONF_THRESHOLD", "0.65")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Makeup.Intensities.Lipstick != 0.9 || cfg.Makeup.Intensities.Blush != 0.4 {
		t.Errorf("Intensities = %+v", cfg.Makeup.Intensities)
	}
	if cfg.Enhance.Enabled || cfg.Enhance.ClipLimit != 3.5 || cfg.Enhance.TileGrid != 8 {
		t.Errorf("Enhance = %+v", cfg.Enhance)
	}
	if cfg.Batch.Workers != 2 {
		t.Errorf("Batch.Workers = %d, want 2", cfg.Batch.Workers)
	}
	if cfg.Detection.ConfThreshold != 0.65 {
		t.Errorf("ConfThreshold = %v, want env override 0.65", cfg.Detection.ConfThreshold)
	}

	table, err := cfg.RegionTable()
	if err != nil {
		t.Fatalf("RegionTable: %v", err)
	}
	if !reflect.DeepEqual(table[regions.Lips], []int{0, 1, 2, 3}) {
		t.Errorf("lips = %v, want override", table[regions.Lips])
	}
	if !reflect.DeepEqual(table[regions.Cheeks], regions.DefaultTable()[regions.Cheeks]) {
		t.Error("cheeks changed without an override")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"backend", "models:\n  backend: tpu\n"},
		{"workers", "batch:\n  workers: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}

func TestRegionTableUnknownName(t *testing.T) {
	cfg := &Config{Regions: map[string][]int{"nose": {1, 2, 3}}}
	if _, err := cfg.RegionTable(); err == nil {
		t.Error("RegionTable accepted an unknown region")
	}
}

func TestDetectorOptions(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Models.Backend = "coreml"

	boxes, mesh, err := cfg.DetectorOptions()
	if err != nil {
		t.Fatalf("DetectorOptions: %v", err)
	}
	if !boxes.Session.CoreML || !mesh.Session.CoreML {
		t.Error("coreml backend not propagated to sessions")
	}
	if boxes.InputSize != 640 || mesh.InputSize != 192 {
		t.Errorf("input sizes = %d/%d, want 640/192", boxes.InputSize, mesh.InputSize)
	}
	if mesh.CropScale != 1.5 || mesh.PresenceThreshold != 0.5 {
		t.Errorf("mesh = %+v", mesh)
	}
}
