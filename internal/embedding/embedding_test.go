package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func faceJSON(index int, bbox []float64, emb []float32) FaceDetection {
	return FaceDetection{FaceIndex: index, Dim: len(emb), Embedding: emb, BBox: bbox, DetScore: 0.9}
}

func newSidecar(t *testing.T, resp FaceResponse, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if len(data) == 0 {
			http.Error(w, "empty file", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEngine_LargestFaceAndMemo(t *testing.T) {
	var calls atomic.Int32
	server := newSidecar(t, FaceResponse{
		FacesCount: 2,
		Faces: []FaceDetection{
			faceJSON(0, []float64{0, 0, 50, 50}, []float32{1, 0, 0}),
			faceJSON(1, []float64{10, 10, 130, 140}, []float32{0, 1, 0}),
		},
	}, &calls)

	engine := NewEngine(NewClient(server.URL, 0), 3)
	ctx := context.Background()
	img := []byte("image-bytes")

	face, err := engine.DetectLargestFace(ctx, img)
	if err != nil {
		t.Fatalf("DetectLargestFace: %v", err)
	}
	if face == nil || face.BBox.Width() != 120 || face.BBox.Height() != 130 {
		t.Fatalf("unexpected face %+v", face)
	}
	if face.HasLandmarks {
		t.Error("face without kps must not report landmarks")
	}

	emb, err := engine.Extract(ctx, img)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if emb[1] != 1 {
		t.Errorf("Extract returned %v, want the larger face's embedding", emb)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("sidecar called %d times, want 1", n)
	}

	// a different image is not served from the memo
	if _, err := engine.Extract(ctx, []byte("other")); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("sidecar called %d times, want 2", n)
	}
}

func TestEngine_NoFace(t *testing.T) {
	var calls atomic.Int32
	server := newSidecar(t, FaceResponse{}, &calls)
	engine := NewEngine(NewClient(server.URL, 0), 3)

	face, err := engine.DetectLargestFace(context.Background(), []byte("x"))
	if err != nil || face != nil {
		t.Errorf("DetectLargestFace = %v, %v; want nil, nil", face, err)
	}
	if _, err := engine.Extract(context.Background(), []byte("x")); !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestEngine_Landmarks(t *testing.T) {
	var calls atomic.Int32
	det := faceJSON(0, []float64{0, 0, 100, 100}, []float32{1, 0})
	det.Kps = [][]float64{{30, 40}, {70, 40}, {50, 60}, {35, 80}, {65, 80}}
	server := newSidecar(t, FaceResponse{FacesCount: 1, Faces: []FaceDetection{det}}, &calls)

	face, err := NewEngine(NewClient(server.URL, 0), 2).DetectLargestFace(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("DetectLargestFace: %v", err)
	}
	if !face.HasLandmarks || face.Landmarks.Nose.X != 50 {
		t.Errorf("unexpected landmarks %+v", face.Landmarks)
	}
}

func TestEngine_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		dim     int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusInternalServerError)
			},
			dim: 2,
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			},
			dim: 2,
		},
		{
			name: "wrong dimension",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(FaceResponse{FacesCount: 1, Faces: []FaceDetection{
					faceJSON(0, []float64{0, 0, 100, 100}, []float32{1, 0, 0}),
				}})
			},
			dim: 2,
		},
		{
			name: "malformed bbox",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(FaceResponse{FacesCount: 1, Faces: []FaceDetection{
					faceJSON(0, []float64{0, 0}, []float32{1, 0}),
				}})
			},
			dim: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewEngine(NewClient(server.URL, 0), tt.dim).Extract(context.Background(), []byte("x"))
			if !errors.Is(err, ErrUpstream) {
				t.Errorf("expected ErrUpstream, got %v", err)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, 5).ComputeFaceEmbeddings(context.Background(), []byte("x"))
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{[]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{[]byte("short"), "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := detectMIMEType(tt.data); got != tt.want {
			t.Errorf("detectMIMEType(%v) = %q, want %q", tt.data, got, tt.want)
		}
	}
}
