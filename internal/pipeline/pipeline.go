package pipeline

import (
	"fmt"
	"sync"
	"time"

	golog "github.com/ipfs/go-log/v2"
	"gocv.io/x/gocv"

	"github.com/oal/facetengine/internal/annotate"
	"github.com/oal/facetengine/internal/detector"
	"github.com/oal/facetengine/internal/fps"
)

var log = golog.Logger("facetengine/pipeline")

// Default detector thresholds
const (
	DefaultScoreThreshold float32 = 0.45
	DefaultIOUThreshold   float32 = 0.30
)

// Config holds pipeline configuration
type Config struct {
	ScoreThreshold float32
	IOUThreshold   float32
}

// DefaultConfig returns the stock thresholds
func DefaultConfig() Config {
	return Config{
		ScoreThreshold: DefaultScoreThreshold,
		IOUThreshold:   DefaultIOUThreshold,
	}
}

// Timing holds performance timing information
type Timing struct {
	Detection time.Duration
	Total     time.Duration
	Faces     int
}

// Pipeline runs detection on one frame and annotates it in place
type Pipeline struct {
	config Config
	source DetectorSource
	mu     sync.Mutex
	timing Timing
}

// New creates a pipeline drawing with detectors from source
func New(config Config, source DetectorSource) *Pipeline {
	if config.ScoreThreshold <= 0 {
		config.ScoreThreshold = DefaultScoreThreshold
	}
	if config.IOUThreshold <= 0 {
		config.IOUThreshold = DefaultIOUThreshold
	}
	return &Pipeline{config: config, source: source}
}

// Config returns the effective configuration
func (p *Pipeline) Config() Config {
	return p.config
}

// Process optionally rotates the RGB frame by 180°, detects faces and draws
// them. Without a loaded detector the unsupported placeholder is drawn.
func (p *Pipeline) Process(frame *gocv.Mat, rotate bool) error {
	totalStart := time.Now()
	var timing Timing

	if rotate {
		if err := gocv.Rotate(*frame, frame, gocv.Rotate180Clockwise); err != nil {
			return fmt.Errorf("rotate failed: %w", err)
		}
	}

	var faces []detector.Face
	loaded, err := p.source.WithDetector(func(d FaceDetector) error {
		detectStart := time.Now()
		var err error
		faces, err = d.Detect(*frame, p.config.ScoreThreshold, p.config.IOUThreshold)
		timing.Detection = time.Since(detectStart)
		return err
	})

	canvas := annotate.NewMatCanvas(frame)
	switch {
	case !loaded:
		annotate.DrawUnsupported(canvas)
	case err != nil:
		return fmt.Errorf("detection failed: %w", err)
	default:
		log.Debugf("detect %dx%d: %d faces in %.2fms", frame.Cols(), frame.Rows(), len(faces),
			float64(timing.Detection.Microseconds())/1000)
		annotate.DrawDetections(canvas, faces)
	}

	timing.Faces = len(faces)
	timing.Total = time.Since(totalStart)
	p.mu.Lock()
	p.timing = timing
	p.mu.Unlock()

	return nil
}

// LastTiming returns timing from last Process call
func (p *Pipeline) LastTiming() Timing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timing
}

// Renderer returns a camera render callback: Process plus an FPS overlay
// once the estimator has a full window
func (p *Pipeline) Renderer(rotate bool, estimator *fps.Estimator) func(frame *gocv.Mat) {
	return func(frame *gocv.Mat) {
		if err := p.Process(frame, rotate); err != nil {
			log.Warnf("render: %v", err)
		}
		if estimator == nil {
			return
		}
		if avg, ok := estimator.Tick(); ok {
			annotate.DrawFPS(annotate.NewMatCanvas(frame), avg)
		}
	}
}
