package detector

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/oal/facetengine/internal/inference"
)

// SCRFD implements the SCRFD face detector with keypoint heads (bnkps)
type SCRFD struct {
	session        *inference.Session
	inputWidth     int
	inputHeight    int
	featureStrides []int
	numAnchors     int
}

// NewSCRFD creates a new SCRFD detector for a fixed input shape
func NewSCRFD(modelPath string, inputSize image.Point, device inference.Device) (*SCRFD, error) {
	session, err := inference.NewSession(modelPath, device)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	// 3 levels × (score, bbox, kps)
	if session.NumOutputs() != 9 {
		session.Destroy()
		return nil, fmt.Errorf("%s has %d outputs, expected 9 (model without keypoints?)", modelPath, session.NumOutputs())
	}

	return &SCRFD{
		session:        session,
		inputWidth:     inputSize.X,
		inputHeight:    inputSize.Y,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2, // anchors per position
	}, nil
}

// Device returns the backend the detector runs on
func (s *SCRFD) Device() inference.Device {
	return s.session.Device()
}

// Detect finds faces in an RGB image
func (s *SCRFD) Detect(img gocv.Mat, scoreThreshold, iouThreshold float32) ([]Face, error) {
	origHeight := img.Rows()
	origWidth := img.Cols()
	if origWidth == 0 || origHeight == 0 {
		return nil, nil
	}

	blob, scale, err := s.preprocess(img)
	if err != nil {
		return nil, err
	}
	data := bytesToFloat32(blob.ToBytes())
	blob.Close()

	outputs, err := s.session.Run([]int64{1, 3, int64(s.inputHeight), int64(s.inputWidth)}, data)
	if err != nil {
		return nil, err
	}

	faces, err := s.decode(outputs, scale, origWidth, origHeight, scoreThreshold)
	if err != nil {
		return nil, err
	}

	return nms(faces, iouThreshold), nil
}

// preprocess letterboxes into the input shape and normalizes to NCHW
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32, error) {
	scale := letterboxScale(img.Cols(), img.Rows(), s.inputWidth, s.inputHeight)

	// a 1 px wide strip still has to survive the downscale
	newWidth := min(max(1, int(float32(img.Cols())*scale)), s.inputWidth)
	newHeight := min(max(1, int(float32(img.Rows())*scale)), s.inputHeight)

	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear); err != nil {
		return gocv.Mat{}, 0, fmt.Errorf("failed to resize %dx%d to %dx%d: %w", img.Cols(), img.Rows(), newWidth, newHeight, err)
	}

	// Pad right and bottom so decoded coordinates only need rescaling
	padded := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), s.inputHeight, s.inputWidth, gocv.MatTypeCV8UC3)
	defer padded.Close()
	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	err := resized.CopyTo(&roi)
	roi.Close()
	if err != nil {
		return gocv.Mat{}, 0, fmt.Errorf("failed to letterbox: %w", err)
	}

	// (x - 127.5) / 128.0, HWC to CHW
	blob := gocv.BlobFromImage(padded, 1.0/128.0, image.Pt(s.inputWidth, s.inputHeight),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), false, false)
	if blob.Empty() {
		blob.Close()
		return gocv.Mat{}, 0, fmt.Errorf("failed to build input blob")
	}

	return blob, scale, nil
}

// decode turns the 9 raw outputs (scores, boxes, keypoints per stride) into
// faces in original image coordinates
func (s *SCRFD) decode(outputs [][]float32, scale float32, origWidth, origHeight int, scoreThreshold float32) ([]Face, error) {
	levels := len(s.featureStrides)
	if len(outputs) != levels*3 {
		return nil, fmt.Errorf("got %d outputs, expected %d", len(outputs), levels*3)
	}

	var faces []Face
	for level, stride := range s.featureStrides {
		fmHeight := s.inputHeight / stride
		fmWidth := s.inputWidth / stride
		count := fmHeight * fmWidth * s.numAnchors

		scores := outputs[level]
		boxes := outputs[level+levels]
		kps := outputs[level+2*levels]
		if len(scores) < count || len(boxes) < count*4 || len(kps) < count*10 {
			return nil, fmt.Errorf("stride %d: output too short for %d anchors", stride, count)
		}

		st := float32(stride)
		anchorIdx := 0
		for y := 0; y < fmHeight; y++ {
			for x := 0; x < fmWidth; x++ {
				for a := 0; a < s.numAnchors; a++ {
					score := scores[anchorIdx]
					if score < scoreThreshold {
						anchorIdx++
						continue
					}

					cx := float32(x) * st
					cy := float32(y) * st

					b := boxes[anchorIdx*4 : anchorIdx*4+4]
					x1 := clamp((cx-b[0]*st)/scale, 0, float32(origWidth))
					y1 := clamp((cy-b[1]*st)/scale, 0, float32(origHeight))
					x2 := clamp((cx+b[2]*st)/scale, 0, float32(origWidth))
					y2 := clamp((cy+b[3]*st)/scale, 0, float32(origHeight))

					var landmarks Landmarks
					k := kps[anchorIdx*10 : anchorIdx*10+10]
					for i := range landmarks {
						landmarks[i] = Point{
							X: (cx + k[2*i]*st) / scale,
							Y: (cy + k[2*i+1]*st) / scale,
						}
					}

					faces = append(faces, Face{
						Score:     score,
						Box:       Box{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1},
						Landmarks: landmarks,
					})
					anchorIdx++
				}
			}
		}
	}

	return faces, nil
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

// letterboxScale is the largest scale that fits src inside dst
func letterboxScale(srcWidth, srcHeight, dstWidth, dstHeight int) float32 {
	sx := float32(dstWidth) / float32(srcWidth)
	sy := float32(dstHeight) / float32(srcHeight)
	if sx < sy {
		return sx
	}
	return sy
}

func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
