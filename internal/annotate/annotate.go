// Package annotate draws detection results and status overlays onto frames.
package annotate

import (
	"image"
	"math"
	"strconv"

	golog "github.com/ipfs/go-log/v2"
	"gocv.io/x/gocv"

	"github.com/oal/facetengine/internal/detector"
	"github.com/oal/facetengine/internal/fps"
)

var log = golog.Logger("facetengine/annotate")

// UnsupportedText is shown when no detector is loaded
const UnsupportedText = "unsupported"

var (
	boxColor      = rgb(0, 0, 255)
	labelColor    = rgb(255, 255, 0)
	landmarkColor = rgb(255, 255, 0)
	panelColor    = rgb(255, 255, 255)
	panelText     = rgb(0, 0, 0)
)

const (
	boxThickness   = 2
	labelFont      = gocv.FontHersheyTriplex
	labelScale     = 0.6
	landmarkRadius = 2
	filled         = -1

	unsupportedFont  = gocv.FontHersheySimplex
	unsupportedScale = 1.0
	fpsFont          = gocv.FontHersheySimplex
	fpsScale         = 0.5
)

// Label offset from the box's top-left corner
var labelOffset = image.Pt(5, -10)

// DrawDetections draws box, confidence label and landmarks for each face,
// in the order given. An empty slice leaves the canvas untouched.
func DrawDetections(c Canvas, faces []detector.Face) {
	for _, face := range faces {
		log.Debugf("%.5f at %.2f %.2f %.2f x %.2f", face.Score, face.Box.X, face.Box.Y, face.Box.Width, face.Box.Height)

		box := boxRect(face.Box)
		c.Rectangle(box, boxColor, boxThickness)
		c.Text(Label(face.Score), box.Min.Add(labelOffset), labelFont, labelScale, labelColor, 1)

		for _, lm := range face.Landmarks {
			c.Circle(image.Pt(round(lm.X), round(lm.Y)), landmarkRadius, landmarkColor, filled)
		}
	}
}

// Label renders "DET: " plus the confidence with exactly 3 decimals.
// Digits past the third are truncated, not rounded.
func Label(confidence float32) string {
	if confidence < 0 || math.IsNaN(float64(confidence)) {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	s := strconv.FormatFloat(float64(confidence), 'f', 6, 32)
	return "DET: " + s[:5]
}

// DrawUnsupported renders a centered placeholder on a filled panel and
// returns the text origin (top-left of the measured text box)
func DrawUnsupported(c Canvas) image.Point {
	size := c.Size()
	text, baseline := c.TextSize(UnsupportedText, unsupportedFont, unsupportedScale, 1)

	origin := CenterOrigin(size, text)
	c.Rectangle(image.Rect(origin.X, origin.Y, origin.X+text.X, origin.Y+text.Y+baseline), panelColor, filled)
	c.Text(UnsupportedText, image.Pt(origin.X, origin.Y+text.Y), unsupportedFont, unsupportedScale, panelText, 1)
	return origin
}

// CenterOrigin places a box of size text in the middle of frame.
// Halving uses integer division, which truncates toward zero.
func CenterOrigin(frame, text image.Point) image.Point {
	return image.Pt((frame.X-text.X)/2, (frame.Y-text.Y)/2)
}

// DrawFPS renders the frame rate in the top-right corner
func DrawFPS(c Canvas, avg float64) {
	text := fps.Label(avg)
	size, baseline := c.TextSize(text, fpsFont, fpsScale, 1)

	x := c.Size().X - size.X
	c.Rectangle(image.Rect(x, 0, x+size.X, size.Y+baseline), panelColor, filled)
	c.Text(text, image.Pt(x, size.Y), fpsFont, fpsScale, panelText, 1)
}

func boxRect(b detector.Box) image.Rectangle {
	return image.Rect(round(b.X), round(b.Y), round(b.Right()), round(b.Bottom()))
}

func round(v float32) int {
	return int(math.Round(float64(v)))
}
