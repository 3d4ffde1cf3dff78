package detector

import (
	"cmp"
	"slices"
)

// nms keeps the highest scoring face of every overlapping cluster. faces is
// reordered by descending score; equal scores keep decode order.
func nms(faces []Face, iouThreshold float32) []Face {
	if len(faces) < 2 {
		return faces
	}

	slices.SortStableFunc(faces, func(a, b Face) int {
		return cmp.Compare(b.Score, a.Score)
	})

	kept := make([]Face, 0, len(faces))
	for _, candidate := range faces {
		suppressed := false
		for _, k := range kept {
			if iou(k.Box, candidate.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// iou is intersection over union; disjoint or degenerate boxes give 0
func iou(a, b Box) float32 {
	w := min(a.Right(), b.Right()) - max(a.X, b.X)
	h := min(a.Bottom(), b.Bottom()) - max(a.Y, b.Y)
	if w <= 0 || h <= 0 {
		return 0
	}

	inter := w * h
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
