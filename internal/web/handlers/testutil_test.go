package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
	"github.com/go-chi/chi/v5"
)

// fakeResolver returns canned outcomes and records what it was called with
type fakeResolver struct {
	identify *resolver.IdentifyOutcome
	register *resolver.RegisterOutcome
	err      error

	records map[int]database.StoredIdentity
	images  map[int][]byte
	stats   *resolver.Stats

	statsCalls int
	lastImage  []byte
	lastName   string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		records: make(map[int]database.StoredIdentity),
		images:  make(map[int][]byte),
	}
}

func (f *fakeResolver) Identify(_ context.Context, image []byte) (*resolver.IdentifyOutcome, error) {
	f.lastImage = image
	return f.identify, f.err
}

func (f *fakeResolver) Register(_ context.Context, image []byte, name string) (*resolver.RegisterOutcome, error) {
	f.lastImage, f.lastName = image, name
	return f.register, f.err
}

func (f *fakeResolver) GetUnnamed(context.Context) ([]database.StoredIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []database.StoredIdentity
	for key := range len(f.records) {
		if rec, ok := f.records[key]; ok && rec.Name == "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeResolver) GetByKey(_ context.Context, key int) (*database.StoredIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %d", resolver.ErrNotFound, key)
	}
	return &rec, nil
}

func (f *fakeResolver) UpdateName(_ context.Context, key int, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	rec, ok := f.records[key]
	if !ok {
		return "", fmt.Errorf("%w: %d", resolver.ErrNotFound, key)
	}
	rec.Name = resolver.NormalizeName(name)
	f.records[key] = rec
	return rec.Name, nil
}

func (f *fakeResolver) GetImage(_ context.Context, key int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	img, ok := f.images[key]
	if !ok {
		return nil, fmt.Errorf("%w: %d", resolver.ErrNotFound, key)
	}
	return img, nil
}

func (f *fakeResolver) Stats(context.Context) (*resolver.Stats, error) {
	f.statsCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

// multipartRequest builds a POST with the image as the "file" part
func multipartRequest(t *testing.T, path string, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if image != nil {
		part, err := w.CreateFormFile("file", "face.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(image)
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
