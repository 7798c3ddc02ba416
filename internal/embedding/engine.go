package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/Rohith2006/Facial-Recognition/internal/quality"
)

// FaceDetector is the sidecar call the engine serialises.
type FaceDetector interface {
	ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error)
}

// analysis is the parsed result for one image.
type analysis struct {
	faces      []quality.Face
	embeddings [][]float32
}

// Engine allows one sidecar request in flight and remembers the result for
// the most recent image, so detecting and then extracting costs one call.
type Engine struct {
	detector FaceDetector
	dim      int

	mu      sync.Mutex
	lastSum [sha256.Size]byte
	last    *analysis
}

// NewEngine wraps a detector. Embeddings whose length differs from dim are
// rejected as upstream errors.
func NewEngine(detector FaceDetector, dim int) *Engine {
	return &Engine{detector: detector, dim: dim}
}

func (e *Engine) analyze(ctx context.Context, image []byte) (*analysis, error) {
	sum := sha256.Sum256(image)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.last != nil && sum == e.lastSum {
		return e.last, nil
	}

	resp, err := e.detector.ComputeFaceEmbeddings(ctx, image)
	if err != nil {
		return nil, err
	}

	a := &analysis{}
	for _, det := range resp.Faces {
		face, err := det.Face()
		if err != nil {
			return nil, err
		}
		if len(det.Embedding) != e.dim {
			return nil, fmt.Errorf("%w: face %d embedding has %d dimensions, expected %d",
				ErrUpstream, det.FaceIndex, len(det.Embedding), e.dim)
		}
		a.faces = append(a.faces, face)
		a.embeddings = append(a.embeddings, det.Embedding)
	}

	e.lastSum = sum
	e.last = a
	return a, nil
}

// largest returns the index of the largest face, -1 when there is none.
func (a *analysis) largest() int {
	best := quality.LargestFace(a.faces)
	for i := range a.faces {
		if &a.faces[i] == best {
			return i
		}
	}
	return -1
}

// DetectLargestFace returns the largest face in the image, nil when none was found.
func (e *Engine) DetectLargestFace(ctx context.Context, image []byte) (*quality.Face, error) {
	a, err := e.analyze(ctx, image)
	if err != nil {
		return nil, err
	}
	i := a.largest()
	if i < 0 {
		return nil, nil
	}
	face := a.faces[i]
	return &face, nil
}

// Extract returns the embedding of the largest face.
func (e *Engine) Extract(ctx context.Context, image []byte) ([]float32, error) {
	a, err := e.analyze(ctx, image)
	if err != nil {
		return nil, err
	}
	i := a.largest()
	if i < 0 {
		return nil, ErrNoFaceDetected
	}
	out := make([]float32, len(a.embeddings[i]))
	copy(out, a.embeddings[i])
	return out, nil
}
