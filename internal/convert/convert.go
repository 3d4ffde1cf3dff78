// Package convert moves pixels between caller-owned RGBA buffers and the
// RGB Mats the detection pipeline works on.
package convert

import (
	"errors"
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

var (
	// ErrBufferSize is returned when a buffer does not hold width*height RGBA pixels
	ErrBufferSize = errors.New("pixel buffer size mismatch")
	// ErrFrameFormat is returned for frames that are not 3-channel 8-bit
	ErrFrameFormat = errors.New("unsupported frame format")
)

// ToRGB drops the alpha channel of an interleaved RGBA buffer.
// The returned Mat owns its own memory and must be closed by the caller.
func ToRGB(buf []byte, width, height int) (gocv.Mat, error) {
	if width <= 0 || height <= 0 {
		return gocv.Mat{}, fmt.Errorf("%w: invalid dimensions %dx%d", ErrBufferSize, width, height)
	}
	// Mat geometry is C int; also keeps width*height*4 from wrapping
	if width > math.MaxInt32/4/height {
		return gocv.Mat{}, fmt.Errorf("%w: dimensions %dx%d too large", ErrBufferSize, width, height)
	}
	if len(buf) != width*height*4 {
		return gocv.Mat{}, fmt.Errorf("%w: got %d bytes, want %d for %dx%d", ErrBufferSize, len(buf), width*height*4, width, height)
	}

	rgba, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, buf)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to wrap pixel buffer: %w", err)
	}
	defer rgba.Close()

	rgb := gocv.NewMat()
	if err := gocv.CvtColor(rgba, &rgb, gocv.ColorRGBAToRGB); err != nil {
		rgb.Close()
		return gocv.Mat{}, fmt.Errorf("failed to drop alpha: %w", err)
	}
	return rgb, nil
}

// ToRGBA writes an RGB frame back into buf with alpha set to 255
func ToRGBA(frame gocv.Mat, buf []byte) error {
	if frame.Empty() || frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: want 8-bit 3-channel, got type %v", ErrFrameFormat, frame.Type())
	}
	if want := frame.Rows() * frame.Cols() * 4; len(buf) != want {
		return fmt.Errorf("%w: got %d bytes, want %d for %dx%d", ErrBufferSize, len(buf), want, frame.Cols(), frame.Rows())
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	if err := gocv.CvtColor(frame, &rgba, gocv.ColorRGBToRGBA); err != nil {
		return fmt.Errorf("failed to add alpha: %w", err)
	}

	copy(buf, rgba.ToBytes())
	return nil
}

// BGRToRGB swaps channel order in place (capture devices deliver BGR)
func BGRToRGB(frame *gocv.Mat) error {
	if err := gocv.CvtColor(*frame, frame, gocv.ColorBGRToRGB); err != nil {
		return fmt.Errorf("BGR to RGB: %w", err)
	}
	return nil
}

// RGBToBGR swaps channel order in place (display surfaces expect BGR)
func RGBToBGR(frame *gocv.Mat) error {
	if err := gocv.CvtColor(*frame, frame, gocv.ColorRGBToBGR); err != nil {
		return fmt.Errorf("RGB to BGR: %w", err)
	}
	return nil
}
