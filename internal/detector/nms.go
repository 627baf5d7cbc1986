package detector

import "sort"

// suppress performs non-maximum suppression, returning the kept faces
// ordered by descending score
func suppress(faces []Face, iouThreshold float32) []Face {
	if len(faces) == 0 {
		return faces
	}

	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Score > faces[j].Score
	})

	kept := make([]Face, 0, len(faces))
	for _, candidate := range faces {
		overlapped := false
		for _, k := range kept {
			if iou(k.BoundingBox, candidate.BoundingBox) > iouThreshold {
				overlapped = true
				break
			}
		}
		if !overlapped {
			kept = append(kept, candidate)
		}
	}

	return kept
}

// iou calculates Intersection over Union of two bounding boxes
func iou(a, b BoundingBox) float32 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}
