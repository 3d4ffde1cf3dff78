package inference

import (
	"errors"
	"fmt"
	"sync"

	golog "github.com/ipfs/go-log/v2"
	ort "github.com/yalue/onnxruntime_go"
)

var log = golog.Logger("facetengine/inference")

// Device selects the execution backend for a session
type Device string

const (
	// DeviceCPU runs the graph on the default CPU provider
	DeviceCPU Device = "CPU"
	// DeviceNPU asks for the platform accelerator (CoreML) and falls back to CPU
	DeviceNPU Device = "NPU"
)

// DefaultLibraryPath is used when Initialize is given an empty path
const DefaultLibraryPath = "lib/libonnxruntime.so"

var (
	initialized bool
	initMu      sync.Mutex
)

// ErrNotInitialized is returned by NewSession before Initialize
var ErrNotInitialized = errors.New("ONNX Runtime not initialized")

// Initialize sets up the ONNX Runtime environment (call once at startup)
func Initialize(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}
	if libraryPath == "" {
		libraryPath = DefaultLibraryPath
	}

	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime from %s: %w", libraryPath, err)
	}

	initialized = true
	return nil
}

// Shutdown cleans up the ONNX Runtime environment
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}

	initialized = false
	return nil
}

// Session wraps an ONNX Runtime session with its discovered IO names
type Session struct {
	session     *ort.DynamicAdvancedSession
	modelPath   string
	device      Device
	inputNames  []string
	outputNames []string
}

// NewSession opens a model, reading input/output names from the file itself
func NewSession(modelPath string, device Device) (*Session, error) {
	initMu.Lock()
	ready := initialized
	initMu.Unlock()
	if !ready {
		return nil, ErrNotInitialized
	}

	info, err := Describe(modelPath)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if device == DeviceNPU {
		// Flag 0 = default settings, Neural Engine + GPU
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			log.Warnf("accelerator unavailable for %s, using CPU: %v", modelPath, err)
			device = DeviceCPU
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, info.InputNames(), info.OutputNames(), options)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}
	log.Infof("[%s] %s", device, modelPath)

	return &Session{
		session:     session,
		modelPath:   modelPath,
		device:      device,
		inputNames:  info.InputNames(),
		outputNames: info.OutputNames(),
	}, nil
}

// Device returns the backend the session actually runs on
func (s *Session) Device() Device {
	return s.device
}

// NumOutputs returns the number of graph outputs
func (s *Session) NumOutputs() int {
	return len(s.outputNames)
}

// Run feeds one float32 NCHW tensor and returns every output copied out of
// runtime memory, in graph order
func (s *Session) Run(shape []int64, data []float32) ([][]float32, error) {
	input, err := ort.NewTensor(ort.NewShape(shape...), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	// nil outputs are allocated by the runtime
	outputs := make([]ort.Value, len(s.outputNames))
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	result := make([][]float32, len(outputs))
	for i, v := range outputs {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %s is not a float32 tensor", s.outputNames[i])
		}
		result[i] = append([]float32(nil), t.GetData()...)
	}
	return result, nil
}

// Destroy releases session resources
func (s *Session) Destroy() error {
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		return err
	}
	return nil
}
