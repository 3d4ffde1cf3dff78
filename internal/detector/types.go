package detector

// Point represents a 2D point
type Point struct {
	X, Y float32
}

// Box represents a face bounding box as origin plus size
type Box struct {
	X, Y          float32 // top-left
	Width, Height float32
}

// Right returns the x coordinate of the right edge
func (b Box) Right() float32 {
	return b.X + b.Width
}

// Bottom returns the y coordinate of the bottom edge
func (b Box) Bottom() float32 {
	return b.Y + b.Height
}

// Area returns box area
func (b Box) Area() float32 {
	return b.Width * b.Height
}

// NumLandmarks is the number of keypoints SCRFD regresses per face
const NumLandmarks = 5

// Landmarks holds the 5 facial keypoints: eyes, nose, mouth corners
type Landmarks [NumLandmarks]Point

// Face represents a detected face
type Face struct {
	Score     float32
	Box       Box
	Landmarks Landmarks
}
