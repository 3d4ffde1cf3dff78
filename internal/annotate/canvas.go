package annotate

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Canvas is the drawing surface the annotator renders onto
type Canvas interface {
	Size() image.Point
	Rectangle(r image.Rectangle, c color.RGBA, thickness int)
	Text(text string, org image.Point, font gocv.HersheyFont, scale float64, c color.RGBA, thickness int)
	Circle(center image.Point, radius int, c color.RGBA, thickness int)
	TextSize(text string, font gocv.HersheyFont, scale float64, thickness int) (image.Point, int)
}

// MatCanvas draws directly into a gocv Mat
type MatCanvas struct {
	mat *gocv.Mat
}

// NewMatCanvas wraps frame; drawing mutates it in place
func NewMatCanvas(frame *gocv.Mat) *MatCanvas {
	return &MatCanvas{mat: frame}
}

// Size returns frame width and height
func (m *MatCanvas) Size() image.Point {
	return image.Pt(m.mat.Cols(), m.mat.Rows())
}

// Rectangle draws an outline, or a filled box when thickness is negative
func (m *MatCanvas) Rectangle(r image.Rectangle, c color.RGBA, thickness int) {
	gocv.Rectangle(m.mat, r, c, thickness)
}

// Text draws text with its baseline starting at org
func (m *MatCanvas) Text(text string, org image.Point, font gocv.HersheyFont, scale float64, c color.RGBA, thickness int) {
	gocv.PutText(m.mat, text, org, font, scale, c, thickness)
}

// Circle draws a circle, filled when thickness is negative
func (m *MatCanvas) Circle(center image.Point, radius int, c color.RGBA, thickness int) {
	gocv.Circle(m.mat, center, radius, c, thickness)
}

// TextSize measures text and returns its size and baseline
func (m *MatCanvas) TextSize(text string, font gocv.HersheyFont, scale float64, thickness int) (image.Point, int) {
	return gocv.GetTextSizeWithBaseline(text, font, scale, thickness)
}

// rgb builds a color for an RGB frame. gocv packs color.RGBA into BGR
// scalars, so R and B are swapped to land in the right channels.
func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: b, G: g, B: r, A: 255}
}
