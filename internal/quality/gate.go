// Package quality decides whether a detected face is usable for identity resolution.
package quality

import "math"

// Reason identifies why a face was rejected.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonNoFace   Reason = "no_face"
	ReasonTooSmall Reason = "face_too_small"
	ReasonRoll     Reason = "roll"
	ReasonYaw      Reason = "yaw"
	ReasonPitch    Reason = "pitch"
)

var reasonMessages = map[Reason]string{
	ReasonNoFace:   "no face detected",
	ReasonTooSmall: "face too small",
	ReasonRoll:     "face is tilted (roll)",
	ReasonYaw:      "face is turned sideways (yaw)",
	ReasonPitch:    "face is tilted up or down (pitch)",
}

// Message returns a human readable description of the reason.
func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

// Decision is the result of evaluating a face.
type Decision struct {
	Accepted bool
	Reason   Reason
}

// Accept is the decision for a usable face.
func Accept() Decision { return Decision{Accepted: true} }

// Reject returns a rejecting decision with the given reason.
func Reject(r Reason) Decision { return Decision{Reason: r} }

// Gate evaluates faces against a Config. The zero value is not usable, use NewGate.
type Gate struct {
	cfg Config
}

// NewGate creates a gate. The config is validated by the caller (see Config.Validate).
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Config returns the thresholds in use.
func (g *Gate) Config() Config {
	return g.cfg
}

// Evaluate checks the face. A nil face is rejected as ReasonNoFace.
// Pose checks are skipped when the face carries no landmarks.
func (g *Gate) Evaluate(face *Face) Decision {
	if face == nil {
		return Reject(ReasonNoFace)
	}

	w, h := face.BBox.Width(), face.BBox.Height()
	if w < g.cfg.MinFaceSize || h < g.cfg.MinFaceSize {
		return Reject(ReasonTooSmall)
	}

	if !face.HasLandmarks {
		return Accept()
	}
	lm := face.Landmarks

	if g.cfg.Roll.Enabled {
		dx := lm.RightEye.X - lm.LeftEye.X
		if dx <= 0 || math.Abs(lm.RightEye.Y-lm.LeftEye.Y)/dx > g.cfg.Roll.MaxRatio {
			return Reject(ReasonRoll)
		}
	}

	if g.cfg.Yaw.Enabled {
		eyes := midpoint(lm.LeftEye, lm.RightEye)
		if math.Abs(lm.Nose.X-eyes.X)/w > g.cfg.Yaw.MaxRatio {
			return Reject(ReasonYaw)
		}
	}

	if g.cfg.Pitch.Enabled {
		mouth := midpoint(lm.LeftMouth, lm.RightMouth)
		ratio := math.Abs(lm.Nose.Y-mouth.Y) / h
		if ratio < g.cfg.Pitch.MinRatio || ratio > g.cfg.Pitch.MaxRatio {
			return Reject(ReasonPitch)
		}
	}

	return Accept()
}
