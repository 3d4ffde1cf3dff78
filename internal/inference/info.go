package inference

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

// ModelInfo describes the graph boundary of a model file
type ModelInfo struct {
	Path    string
	Inputs  []ort.InputOutputInfo
	Outputs []ort.InputOutputInfo
}

// Describe reads input/output metadata without creating a session
func Describe(modelPath string) (*ModelInfo, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", modelPath, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info for %s: %w", modelPath, err)
	}

	return &ModelInfo{Path: modelPath, Inputs: inputs, Outputs: outputs}, nil
}

// InputNames returns input names in graph order
func (m *ModelInfo) InputNames() []string {
	return names(m.Inputs)
}

// OutputNames returns output names in graph order
func (m *ModelInfo) OutputNames() []string {
	return names(m.Outputs)
}

func names(infos []ort.InputOutputInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}
