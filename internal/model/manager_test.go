package model

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/oal/facetengine/internal/detector"
	"github.com/oal/facetengine/internal/inference"
	"github.com/oal/facetengine/internal/pipeline"
)

type stubDetector struct {
	closed int
}

func (s *stubDetector) Detect(gocv.Mat, float32, float32) ([]detector.Face, error) {
	return nil, nil
}

func (s *stubDetector) Close() error {
	s.closed++
	return nil
}

// fallbackDetector reports CPU whatever it was asked for
type fallbackDetector struct {
	stubDetector
}

func (f *fallbackDetector) Device() inference.Device {
	return inference.DeviceCPU
}

// recordingLoader remembers what it was asked to load
type recordingLoader struct {
	variants []Variant
	sizes    []image.Point
	err      error
	made     []*stubDetector
}

func (r *recordingLoader) load(v Variant, size image.Point) (pipeline.FaceDetector, error) {
	r.variants = append(r.variants, v)
	r.sizes = append(r.sizes, size)
	if r.err != nil {
		return nil, r.err
	}
	d := &stubDetector{}
	r.made = append(r.made, d)
	return d, nil
}

func TestSelectVariant(t *testing.T) {
	tests := []struct {
		accel bool
		want  Variant
	}{
		{true, Variant{Path: AcceleratorModelPath, Device: inference.DeviceNPU}},
		{false, Variant{Path: CPUModelPath, Device: inference.DeviceCPU}},
	}
	for _, tt := range tests {
		if got := SelectVariant(tt.accel); got != tt.want {
			t.Errorf("SelectVariant(%v) = %+v, want %+v", tt.accel, got, tt.want)
		}
	}
}

func TestLoadUsesFixedShape(t *testing.T) {
	rl := &recordingLoader{}
	m := NewManager(rl.load)

	if err := m.Load(true); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !m.Loaded() {
		t.Fatal("expected manager to be loaded")
	}
	if rl.sizes[0] != image.Pt(640, 384) {
		t.Errorf("input size = %v, want 640x384", rl.sizes[0])
	}
	v, err := m.Info()
	if err != nil || v.Path != AcceleratorModelPath {
		t.Errorf("variant = %+v, %v", v, err)
	}
}

func TestLoadFailureLeavesNotLoaded(t *testing.T) {
	rl := &recordingLoader{}
	m := NewManager(rl.load)
	if err := m.Load(false); err != nil {
		t.Fatal(err)
	}

	rl.err = errors.New("missing file")
	err := m.Load(true)
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
	if m.Loaded() {
		t.Error("manager must not be loaded after a failed load")
	}
	if rl.made[0].closed != 1 {
		t.Error("previous detector was not released before reloading")
	}
	if _, err := m.Info(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Info() error = %v", err)
	}

	called := false
	loaded, err := m.WithDetector(func(pipeline.FaceDetector) error {
		called = true
		return nil
	})
	if loaded || err != nil || called {
		t.Errorf("WithDetector on empty manager = %v, %v, called=%v", loaded, err, called)
	}
}

func TestLoaderReturningNilIsFailure(t *testing.T) {
	m := NewManager(func(Variant, image.Point) (pipeline.FaceDetector, error) {
		return nil, nil
	})
	if err := m.Load(false); !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
	if m.Loaded() {
		t.Error("nil detector must not count as loaded")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	rl := &recordingLoader{}
	m := NewManager(rl.load)

	m.Release()
	if err := m.Load(false); err != nil {
		t.Fatal(err)
	}
	m.Release()
	m.Release()

	if m.Loaded() {
		t.Error("expected not loaded after release")
	}
	if rl.made[0].closed != 1 {
		t.Errorf("detector closed %d times, want 1", rl.made[0].closed)
	}
}

func TestWithDetectorPropagatesError(t *testing.T) {
	rl := &recordingLoader{}
	m := NewManager(rl.load)
	if err := m.Load(false); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	loaded, err := m.WithDetector(func(d pipeline.FaceDetector) error {
		if d != rl.made[0] {
			t.Error("unexpected detector handed out")
		}
		return boom
	})
	if !loaded || !errors.Is(err, boom) {
		t.Errorf("WithDetector = %v, %v", loaded, err)
	}
}

func TestInfoReportsActualDevice(t *testing.T) {
	m := NewManager(func(Variant, image.Point) (pipeline.FaceDetector, error) {
		return &fallbackDetector{}, nil
	})

	if err := m.Load(true); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	info, err := m.Info()
	if err != nil {
		t.Fatal(err)
	}
	if info.Path != AcceleratorModelPath {
		t.Errorf("path = %s, want %s", info.Path, AcceleratorModelPath)
	}
	if info.Device != inference.DeviceCPU {
		t.Errorf("device = %s, want %s after fallback", info.Device, inference.DeviceCPU)
	}
}
