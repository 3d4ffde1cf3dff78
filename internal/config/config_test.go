package config

import (
	"os"
	"path/filepath"
	"testing"
)

var keys = []string{
	"ORT_LIBRARY_PATH", "SCORE_THRESHOLD", "IOU_THRESHOLD", "FRONT_CAMERA", "BACK_CAMERA",
	"CAMERA_WIDTH", "CAMERA_HEIGHT", "TARGET_FPS", "ROTATE_CAMERA", "ROTATE_BUFFER",
	"STREAM_ADDR", "STREAM_QUALITY", "LOG_LEVEL",
}

// isolate clears every config key and runs from an empty directory so no
// stray .env is picked up
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestDefaults(t *testing.T) {
	isolate(t)
	cfg := Load()

	if cfg.ScoreThreshold != 0.45 || cfg.IOUThreshold != 0.30 {
		t.Errorf("thresholds = %v/%v", cfg.ScoreThreshold, cfg.IOUThreshold)
	}
	if cfg.FrontCamera != 0 || cfg.BackCamera != 1 {
		t.Errorf("cameras = %d/%d", cfg.FrontCamera, cfg.BackCamera)
	}
	if cfg.TargetFPS != 30 || cfg.CameraWidth != 1280 || cfg.CameraHeight != 720 {
		t.Errorf("capture = %dx%d@%d", cfg.CameraWidth, cfg.CameraHeight, cfg.TargetFPS)
	}
	if cfg.RotateCamera || cfg.RotateBuffer {
		t.Error("rotation should default off")
	}
	if cfg.StreamAddr != "" || cfg.LogLevel != "info" {
		t.Errorf("stream=%q level=%q", cfg.StreamAddr, cfg.LogLevel)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SCORE_THRESHOLD", "0.6")
	t.Setenv("BACK_CAMERA", "3")
	t.Setenv("ROTATE_CAMERA", "true")
	t.Setenv("STREAM_ADDR", ":9000")

	cfg := Load()
	if cfg.ScoreThreshold != 0.6 {
		t.Errorf("score = %v", cfg.ScoreThreshold)
	}
	if cfg.BackCamera != 3 || !cfg.RotateCamera || cfg.StreamAddr != ":9000" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	isolate(t)
	t.Setenv("TARGET_FPS", "fast")
	t.Setenv("IOU_THRESHOLD", "x")
	t.Setenv("ROTATE_BUFFER", "maybe")

	cfg := Load()
	if cfg.TargetFPS != 30 || cfg.IOUThreshold != 0.30 || cfg.RotateBuffer {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestDotEnvFile(t *testing.T) {
	isolate(t)
	// godotenv never overrides variables that exist, even empty ones
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("TARGET_FPS")

	if err := os.WriteFile(filepath.Join(".", ".env"), []byte("LOG_LEVEL=debug\nTARGET_FPS=15\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if cfg.LogLevel != "debug" || cfg.TargetFPS != 15 {
		t.Errorf("level=%q fps=%d", cfg.LogLevel, cfg.TargetFPS)
	}
}
