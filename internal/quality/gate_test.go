package quality

import (
	"testing"
)

func frontalFace(size float64) Face {
	s := size / 100
	return Face{
		BBox: BBox{X0: 0, Y0: 0, X1: size, Y1: size},
		Landmarks: Landmarks{
			LeftEye:    Point{X: 30 * s, Y: 40 * s},
			RightEye:   Point{X: 70 * s, Y: 40 * s},
			Nose:       Point{X: 50 * s, Y: 60 * s},
			LeftMouth:  Point{X: 35 * s, Y: 85 * s},
			RightMouth: Point{X: 65 * s, Y: 85 * s},
		},
		HasLandmarks: true,
		DetScore:     0.9,
	}
}

func allChecks() Config {
	cfg := DefaultConfig()
	cfg.Roll.Enabled = true
	cfg.Yaw.Enabled = true
	cfg.Pitch.Enabled = true
	return cfg
}

func TestGateEvaluate(t *testing.T) {
	tilted := frontalFace(100)
	tilted.Landmarks.RightEye.Y = 50 // 10/40 = 0.25

	turned := frontalFace(100)
	turned.Landmarks.Nose.X = 60 // 10/100 = 0.1

	lookingUp := frontalFace(100)
	lookingUp.Landmarks.Nose.Y = 75 // 10/100 = 0.1

	lookingDown := frontalFace(100)
	lookingDown.Landmarks.Nose.Y = 45 // 40/100 = 0.4

	collapsedEyes := frontalFace(100)
	collapsedEyes.Landmarks.RightEye.X = collapsedEyes.Landmarks.LeftEye.X

	noLandmarks := frontalFace(100)
	noLandmarks.HasLandmarks = false
	noLandmarks.Landmarks = Landmarks{}

	wide := frontalFace(100)
	wide.BBox.Y1 = 60

	tests := []struct {
		name string
		cfg  Config
		face *Face
		want Decision
	}{
		{"nil face", DefaultConfig(), nil, Reject(ReasonNoFace)},
		{"60x60 rejected", DefaultConfig(), ptr(frontalFace(60)), Reject(ReasonTooSmall)},
		{"100x100 accepted", DefaultConfig(), ptr(frontalFace(100)), Accept()},
		{"exactly min size", DefaultConfig(), ptr(frontalFace(80)), Accept()},
		{"short height", DefaultConfig(), &wide, Reject(ReasonTooSmall)},
		{"frontal with all checks", allChecks(), ptr(frontalFace(100)), Accept()},
		{"roll rejected", allChecks(), &tilted, Reject(ReasonRoll)},
		{"roll disabled", DefaultConfig(), &tilted, Accept()},
		{"collapsed eyes count as roll", allChecks(), &collapsedEyes, Reject(ReasonRoll)},
		{"yaw rejected", allChecks(), &turned, Reject(ReasonYaw)},
		{"pitch too low", allChecks(), &lookingUp, Reject(ReasonPitch)},
		{"pitch too high", allChecks(), &lookingDown, Reject(ReasonPitch)},
		{"pose skipped without landmarks", allChecks(), &noLandmarks, Accept()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewGate(tt.cfg).Evaluate(tt.face)
			if got != tt.want {
				t.Errorf("Evaluate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func ptr(f Face) *Face { return &f }

func TestLargestFace(t *testing.T) {
	faces := []Face{
		{BBox: BBox{X0: 0, Y0: 0, X1: 50, Y1: 50}},
		{BBox: BBox{X0: 10, Y0: 10, X1: 130, Y1: 110}},
		{BBox: BBox{X0: 0, Y0: 0, X1: 100, Y1: 120}},
	}

	got := LargestFace(faces)
	if got != &faces[1] {
		t.Errorf("expected second face (area 12000), got %+v", got)
	}

	if LargestFace(nil) != nil {
		t.Error("expected nil for empty input")
	}
}

func TestBBoxFromSlice(t *testing.T) {
	b, ok := BBoxFromSlice([]float64{1, 2, 11, 22})
	if !ok || b.Width() != 10 || b.Height() != 20 {
		t.Errorf("unexpected bbox %+v ok=%v", b, ok)
	}
	if _, ok := BBoxFromSlice([]float64{1, 2, 3}); ok {
		t.Error("expected failure for 3 elements")
	}

	inverted := BBox{X0: 10, Y0: 10, X1: 0, Y1: 0}
	if inverted.Area() != 0 {
		t.Errorf("inverted bbox area = %v, want 0", inverted.Area())
	}
}

func TestLandmarksFromSlice(t *testing.T) {
	lm, ok := LandmarksFromSlice([][]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}})
	if !ok {
		t.Fatal("expected ok")
	}
	if lm.Nose != (Point{X: 5, Y: 6}) || lm.RightMouth != (Point{X: 9, Y: 10}) {
		t.Errorf("unexpected landmarks %+v", lm)
	}
	if _, ok := LandmarksFromSlice([][]float64{{1, 2}}); ok {
		t.Error("expected failure for short keypoint list")
	}
	if _, ok := LandmarksFromSlice([][]float64{{1}, {3, 4}, {5, 6}, {7, 8}, {9, 10}}); ok {
		t.Error("expected failure for malformed keypoint")
	}
}

func TestParseConfig(t *testing.T) {
	data := []byte("min_face_size: 120\nyaw:\n  enabled: true\n")
	cfg, err := ParseConfig(data, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MinFaceSize != 120 {
		t.Errorf("MinFaceSize = %v, want 120", cfg.MinFaceSize)
	}
	if !cfg.Yaw.Enabled || cfg.Yaw.MaxRatio != 0.08 {
		t.Errorf("yaw = %+v, want enabled with default ratio", cfg.Yaw)
	}
	if cfg.Roll.Enabled {
		t.Error("roll should stay disabled")
	}

	if _, err := ParseConfig([]byte("min_face_size: 0\n"), DefaultConfig()); err == nil {
		t.Error("expected validation error for zero min size")
	}
	if _, err := ParseConfig([]byte("pitch:\n  enabled: true\n  min_ratio: 0.5\n  max_ratio: 0.2\n"), DefaultConfig()); err == nil {
		t.Error("expected validation error for inverted pitch band")
	}
	if _, err := ParseConfig([]byte("min_face_size: [\n"), DefaultConfig()); err == nil {
		t.Error("expected parse error")
	}
}
