package quality

// Point is a pixel coordinate in the decoded image.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox is a face bounding box in [x0, y0, x1, y1] pixel corner format.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// BBoxFromSlice converts a [x0, y0, x1, y1] slice as returned by the detector.
// Returns false when the slice does not have exactly four elements.
func BBoxFromSlice(s []float64) (BBox, bool) {
	if len(s) != 4 {
		return BBox{}, false
	}
	return BBox{X0: s[0], Y0: s[1], X1: s[2], Y1: s[3]}, true
}

// Width returns the horizontal extent, never negative.
func (b BBox) Width() float64 {
	return max(b.X1-b.X0, 0)
}

// Height returns the vertical extent, never negative.
func (b BBox) Height() float64 {
	return max(b.Y1-b.Y0, 0)
}

// Area returns width * height.
func (b BBox) Area() float64 {
	return b.Width() * b.Height()
}

// Landmarks are the five facial keypoints produced by the detector.
type Landmarks struct {
	LeftEye    Point `json:"left_eye"`
	RightEye   Point `json:"right_eye"`
	Nose       Point `json:"nose"`
	LeftMouth  Point `json:"left_mouth"`
	RightMouth Point `json:"right_mouth"`
}

// LandmarksFromSlice converts detector keypoints in the order
// left eye, right eye, nose, left mouth corner, right mouth corner.
func LandmarksFromSlice(kps [][]float64) (Landmarks, bool) {
	if len(kps) != 5 {
		return Landmarks{}, false
	}
	pts := make([]Point, 5)
	for i, kp := range kps {
		if len(kp) < 2 {
			return Landmarks{}, false
		}
		pts[i] = Point{X: kp[0], Y: kp[1]}
	}
	return Landmarks{
		LeftEye:    pts[0],
		RightEye:   pts[1],
		Nose:       pts[2],
		LeftMouth:  pts[3],
		RightMouth: pts[4],
	}, true
}

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Face is a single detected face.
type Face struct {
	BBox         BBox      `json:"bbox"`
	Landmarks    Landmarks `json:"landmarks"`
	HasLandmarks bool      `json:"has_landmarks"`
	DetScore     float64   `json:"det_score"`
}

// LargestFace returns the face with the largest bounding box area, or nil when faces is empty.
// On equal areas the earlier face wins.
func LargestFace(faces []Face) *Face {
	var best *Face
	for i := range faces {
		if best == nil || faces[i].BBox.Area() > best.BBox.Area() {
			best = &faces[i]
		}
	}
	return best
}
