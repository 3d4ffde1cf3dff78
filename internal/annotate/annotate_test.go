package annotate

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/oal/facetengine/internal/detector"
)

type op struct {
	kind   string
	rect   image.Rectangle
	point  image.Point
	text   string
	radius int
	color  color.RGBA
	thick  int
}

// recorder is a Canvas that records draw calls instead of rendering
type recorder struct {
	size     image.Point
	textSize image.Point
	baseline int
	ops      []op
}

func (r *recorder) Size() image.Point { return r.size }

func (r *recorder) Rectangle(rect image.Rectangle, c color.RGBA, thickness int) {
	r.ops = append(r.ops, op{kind: "rect", rect: rect, color: c, thick: thickness})
}

func (r *recorder) Text(text string, org image.Point, _ gocv.HersheyFont, _ float64, c color.RGBA, thickness int) {
	r.ops = append(r.ops, op{kind: "text", text: text, point: org, color: c, thick: thickness})
}

func (r *recorder) Circle(center image.Point, radius int, c color.RGBA, thickness int) {
	r.ops = append(r.ops, op{kind: "circle", point: center, radius: radius, color: c, thick: thickness})
}

func (r *recorder) TextSize(string, gocv.HersheyFont, float64, int) (image.Point, int) {
	return r.textSize, r.baseline
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, o := range r.ops {
		if o.kind == kind {
			n++
		}
	}
	return n
}

func testFace(score float32) detector.Face {
	return detector.Face{
		Score: score,
		Box:   detector.Box{X: 100, Y: 50, Width: 80, Height: 120},
		Landmarks: detector.Landmarks{
			{X: 120, Y: 90}, {X: 160, Y: 90}, {X: 140, Y: 110}, {X: 125, Y: 140}, {X: 155, Y: 140},
		},
	}
}

func TestDrawDetectionsSingleFace(t *testing.T) {
	r := &recorder{size: image.Pt(640, 480)}
	DrawDetections(r, []detector.Face{testFace(0.98765)})

	if r.count("rect") != 1 || r.count("text") != 1 || r.count("circle") != 5 {
		t.Fatalf("got %d rects, %d texts, %d circles; want 1, 1, 5",
			r.count("rect"), r.count("text"), r.count("circle"))
	}

	box := r.ops[0]
	if box.rect != image.Rect(100, 50, 180, 170) {
		t.Errorf("box = %v", box.rect)
	}
	if box.color != boxColor || box.thick != 2 {
		t.Errorf("box style = %v/%d", box.color, box.thick)
	}

	label := r.ops[1]
	if label.text != "DET: 0.987" {
		t.Errorf("label = %q", label.text)
	}
	if label.point != image.Pt(105, 40) {
		t.Errorf("label origin = %v, want (105,40)", label.point)
	}

	for i, o := range r.ops[2:] {
		if o.radius != 2 || o.thick != filled || o.color != landmarkColor {
			t.Errorf("landmark %d style = r%d t%d %v", i, o.radius, o.thick, o.color)
		}
	}
	if r.ops[4].point != image.Pt(140, 110) {
		t.Errorf("nose at %v", r.ops[4].point)
	}
}

func TestDrawDetectionsKeepsInputOrder(t *testing.T) {
	r := &recorder{size: image.Pt(640, 480)}
	DrawDetections(r, []detector.Face{testFace(0.5), testFace(0.9)})

	var labels []string
	for _, o := range r.ops {
		if o.kind == "text" {
			labels = append(labels, o.text)
		}
	}
	if len(labels) != 2 || labels[0] != "DET: 0.500" || labels[1] != "DET: 0.900" {
		t.Errorf("labels = %v", labels)
	}
}

func TestDrawDetectionsEmptyLeavesFrameUnchanged(t *testing.T) {
	r := &recorder{size: image.Pt(64, 48)}
	DrawDetections(r, nil)
	DrawDetections(r, []detector.Face{})
	if len(r.ops) != 0 {
		t.Fatalf("expected no draw calls, got %d", len(r.ops))
	}

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.SetTo(gocv.NewScalar(10, 20, 30, 0))
	before := frame.ToBytes()

	DrawDetections(NewMatCanvas(&frame), nil)
	if !bytes.Equal(before, frame.ToBytes()) {
		t.Error("frame changed after drawing no detections")
	}
}

func TestDrawDetectionsMutatesMat(t *testing.T) {
	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()
	before := frame.ToBytes()

	DrawDetections(NewMatCanvas(&frame), []detector.Face{testFace(0.9)})
	if bytes.Equal(before, frame.ToBytes()) {
		t.Error("expected annotations to change the frame")
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{0.9, "DET: 0.900"},
		{0.45, "DET: 0.450"},
		{0.98765, "DET: 0.987"},
		{0.57, "DET: 0.570"},
		{1, "DET: 1.000"},
		{0, "DET: 0.000"},
		{1.5, "DET: 1.000"},
		{-0.2, "DET: 0.000"},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Errorf("Label(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCenterOrigin(t *testing.T) {
	tests := []struct {
		name        string
		frame, text image.Point
		want        image.Point
	}{
		{"even", image.Pt(640, 480), image.Pt(200, 22), image.Pt(220, 229)},
		{"odd difference truncates down", image.Pt(641, 481), image.Pt(200, 22), image.Pt(220, 229)},
		{"text wider than frame truncates toward zero", image.Pt(100, 10), image.Pt(201, 23), image.Pt(-50, -6)},
	}
	for _, tt := range tests {
		if got := CenterOrigin(tt.frame, tt.text); got != tt.want {
			t.Errorf("%s: CenterOrigin = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDrawUnsupported(t *testing.T) {
	r := &recorder{size: image.Pt(641, 480), textSize: image.Pt(180, 22), baseline: 8}
	origin := DrawUnsupported(r)

	if origin != image.Pt(230, 229) {
		t.Fatalf("origin = %v, want (230,229)", origin)
	}
	if len(r.ops) != 2 {
		t.Fatalf("expected panel + text, got %d ops", len(r.ops))
	}
	panel, text := r.ops[0], r.ops[1]
	if panel.kind != "rect" || panel.thick != filled || panel.rect != image.Rect(230, 229, 410, 259) {
		t.Errorf("panel = %+v", panel)
	}
	if text.kind != "text" || text.text != UnsupportedText || text.point != image.Pt(230, 251) {
		t.Errorf("text = %+v", text)
	}
}

func TestDrawUnsupportedOnMat(t *testing.T) {
	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()

	canvas := NewMatCanvas(&frame)
	size, _ := canvas.TextSize(UnsupportedText, unsupportedFont, unsupportedScale, 1)
	origin := DrawUnsupported(canvas)

	if origin != CenterOrigin(image.Pt(320, 240), size) {
		t.Errorf("origin = %v for text %v", origin, size)
	}
	// panel is white
	v := frame.GetVecbAt(origin.Y, origin.X)
	if v[0] != 255 || v[1] != 255 || v[2] != 255 {
		t.Errorf("panel pixel = %v", v)
	}
}

func TestDrawFPS(t *testing.T) {
	r := &recorder{size: image.Pt(640, 480), textSize: image.Pt(70, 12), baseline: 4}
	DrawFPS(r, 29.456)

	if len(r.ops) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(r.ops))
	}
	if r.ops[0].rect != image.Rect(570, 0, 640, 16) {
		t.Errorf("panel = %v", r.ops[0].rect)
	}
	if r.ops[1].text != "FPS=29.46" || r.ops[1].point != image.Pt(570, 12) {
		t.Errorf("text = %q at %v", r.ops[1].text, r.ops[1].point)
	}
}
