package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/Rohith2006/Facial-Recognition/internal/embedding"
	"github.com/Rohith2006/Facial-Recognition/internal/imaging"
	"github.com/Rohith2006/Facial-Recognition/internal/quality"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
)

func TestFacesHandler_Identify(t *testing.T) {
	tests := []struct {
		name    string
		outcome *resolver.IdentifyOutcome
		check   func(t *testing.T, resp IdentifyResponse)
	}{
		{
			name:    "matched",
			outcome: &resolver.IdentifyOutcome{Type: resolver.OutcomeMatched, Key: 4, Name: "Alice", Similarity: 0.87},
			check: func(t *testing.T, resp IdentifyResponse) {
				if resp.FaceID != "4" || resp.Name == nil || *resp.Name != "Alice" || resp.Similarity == nil || *resp.Similarity != 0.87 {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name:    "registered",
			outcome: &resolver.IdentifyOutcome{Type: resolver.OutcomeRegistered, Key: 7},
			check: func(t *testing.T, resp IdentifyResponse) {
				if resp.FaceID != "7" || resp.Name != nil || resp.Similarity != nil {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name:    "matched unnamed at zero similarity",
			outcome: &resolver.IdentifyOutcome{Type: resolver.OutcomeMatched, Key: 2},
			check: func(t *testing.T, resp IdentifyResponse) {
				if resp.FaceID != "2" || resp.Name != nil || resp.Similarity == nil || *resp.Similarity != 0 {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name:    "rejected",
			outcome: &resolver.IdentifyOutcome{Type: resolver.OutcomeRejected, Reason: quality.ReasonTooSmall},
			check: func(t *testing.T, resp IdentifyResponse) {
				if resp.Reason != "face_too_small" || resp.Message != "face too small" || resp.FaceID != "" {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name:    "unknown",
			outcome: &resolver.IdentifyOutcome{Type: resolver.OutcomeUnknown},
			check: func(t *testing.T, resp IdentifyResponse) {
				if resp.FaceID != "" || resp.Name != nil {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeResolver()
			fake.identify = tc.outcome
			handler := NewFacesHandler(fake, NewStatsHandler(fake))

			recorder := httptest.NewRecorder()
			handler.Identify(recorder, multipartRequest(t, "/api/v1/faces/identify", []byte("png-bytes"), nil))

			assertStatusCode(t, recorder, http.StatusOK)
			var resp IdentifyResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.Type != tc.outcome.Type {
				t.Errorf("expected type %s, got %s", tc.outcome.Type, resp.Type)
			}
			tc.check(t, resp)
			if !bytes.Equal(fake.lastImage, []byte("png-bytes")) {
				t.Errorf("resolver received %q", fake.lastImage)
			}
		})
	}
}

func TestFacesHandler_Identify_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		err      error
		expected int
	}{
		{
			name: "missing file",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/faces/identify", nil, map[string]string{"x": "y"})
			},
			expected: http.StatusBadRequest,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/v1/faces/identify", strings.NewReader("{}"))
			},
			expected: http.StatusBadRequest,
		},
		{
			name: "invalid image",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/faces/identify", []byte("junk"), nil)
			},
			err:      fmt.Errorf("%w: unknown format", imaging.ErrInvalidImage),
			expected: http.StatusBadRequest,
		},
		{
			name: "embedding service down",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/faces/identify", []byte("img"), nil)
			},
			err:      fmt.Errorf("%w: request failed", embedding.ErrUpstream),
			expected: http.StatusBadGateway,
		},
		{
			name: "index write failed",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/faces/identify", []byte("img"), nil)
			},
			err:      fmt.Errorf("inserting vector: %w", database.ErrPersistence),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeResolver()
			fake.err = tc.err
			handler := NewFacesHandler(fake, nil)

			recorder := httptest.NewRecorder()
			handler.Identify(recorder, tc.req(t))
			assertStatusCode(t, recorder, tc.expected)
		})
	}
}

func TestFacesHandler_Identify_AbsentFields(t *testing.T) {
	fake := newFakeResolver()
	fake.identify = &resolver.IdentifyOutcome{Type: resolver.OutcomeRegistered, Key: 7}
	handler := NewFacesHandler(fake, nil)

	recorder := httptest.NewRecorder()
	handler.Identify(recorder, multipartRequest(t, "/api/v1/faces/identify", []byte("img"), nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if got := strings.TrimSpace(recorder.Body.String()); got != `{"type":"registered","face_id":"7"}` {
		t.Errorf("body = %s", got)
	}
}

func TestFacesHandler_Register(t *testing.T) {
	fake := newFakeResolver()
	fake.register = &resolver.RegisterOutcome{Status: resolver.StatusSuccess, Key: 0, Name: "Alice"}
	handler := NewFacesHandler(fake, nil)

	t.Run("name in query", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.Register(recorder, multipartRequest(t, "/api/v1/faces/register?name=Alice", []byte("img"), nil))

		assertStatusCode(t, recorder, http.StatusOK)
		var resp RegisterResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Status != resolver.StatusSuccess || resp.FaceID != "0" || resp.Name != "Alice" || resp.Similarity != nil {
			t.Errorf("unexpected response %+v", resp)
		}
		if fake.lastName != "Alice" {
			t.Errorf("resolver received name %q", fake.lastName)
		}
	})

	t.Run("name in form", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.Register(recorder, multipartRequest(t, "/api/v1/faces/register", []byte("img"), map[string]string{"name": "Bob"}))

		assertStatusCode(t, recorder, http.StatusOK)
		if fake.lastName != "Bob" {
			t.Errorf("resolver received name %q", fake.lastName)
		}
	})

	t.Run("exists keeps a zero similarity", func(t *testing.T) {
		fake.register = &resolver.RegisterOutcome{Status: resolver.StatusExists, Key: 3, Name: "Alice"}
		recorder := httptest.NewRecorder()
		handler.Register(recorder, multipartRequest(t, "/api/v1/faces/register?name=Alice", []byte("img"), nil))

		assertStatusCode(t, recorder, http.StatusOK)
		var resp RegisterResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Status != resolver.StatusExists || resp.Similarity == nil || *resp.Similarity != 0 {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		handler.Register(recorder, multipartRequest(t, "/api/v1/faces/register", []byte("img"), nil))

		assertStatusCode(t, recorder, http.StatusBadRequest)
		assertJSONError(t, recorder, "name is required")
	})

	t.Run("quality failure", func(t *testing.T) {
		fake.register = &resolver.RegisterOutcome{Status: resolver.StatusFailed, Reason: quality.ReasonYaw}
		recorder := httptest.NewRecorder()
		handler.Register(recorder, multipartRequest(t, "/api/v1/faces/register?name=Carol", []byte("img"), nil))

		assertStatusCode(t, recorder, http.StatusOK)
		var resp RegisterResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Status != resolver.StatusFailed || resp.Reason != "yaw" || resp.FaceID != "" {
			t.Errorf("unexpected response %+v", resp)
		}
	})
}

func TestFacesHandler_ListUnnamed(t *testing.T) {
	fake := newFakeResolver()
	fake.records[0] = database.StoredIdentity{Key: 0, Name: "Alice"}
	fake.records[1] = database.StoredIdentity{Key: 1}
	fake.records[2] = database.StoredIdentity{Key: 2}
	handler := NewFacesHandler(fake, nil)

	recorder := httptest.NewRecorder()
	handler.ListUnnamed(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/faces/unnamed", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp UnnamedResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp.UnnamedFaces) != 2 || resp.UnnamedFaces[0].FaceID != "1" || resp.UnnamedFaces[1].FaceID != "2" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestFacesHandler_ListUnnamed_Empty(t *testing.T) {
	handler := NewFacesHandler(newFakeResolver(), nil)

	recorder := httptest.NewRecorder()
	handler.ListUnnamed(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/faces/unnamed", nil))

	if got := strings.TrimSpace(recorder.Body.String()); got != `{"unnamed_faces":[]}` {
		t.Errorf("expected empty list, got %s", got)
	}
}

func TestFacesHandler_Get(t *testing.T) {
	fake := newFakeResolver()
	fake.records[3] = database.StoredIdentity{Key: 3, Name: "Dana"}
	handler := NewFacesHandler(fake, nil)

	tests := []struct {
		id       string
		expected int
	}{
		{"3", http.StatusOK},
		{"4", http.StatusNotFound},
		{"abc", http.StatusBadRequest},
		{"-1", http.StatusBadRequest},
		{"03", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/faces/"+tc.id, nil), map[string]string{"id": tc.id})
			recorder := httptest.NewRecorder()
			handler.Get(recorder, req)
			assertStatusCode(t, recorder, tc.expected)
		})
	}

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/faces/3", nil), map[string]string{"id": "3"})
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)
	var resp IdentityResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.FaceID != "3" || resp.Name != "Dana" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestFacesHandler_Rename(t *testing.T) {
	fake := newFakeResolver()
	fake.records[1] = database.StoredIdentity{Key: 1}
	handler := NewFacesHandler(fake, nil)

	t.Run("query", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest(http.MethodPut, "/api/v1/faces/1/name?name=Eve", nil), map[string]string{"id": "1"})
		recorder := httptest.NewRecorder()
		handler.Rename(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var resp RenameResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Status != "success" || resp.FaceID != "1" || resp.Name != "Eve" {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("json body", func(t *testing.T) {
		body := strings.NewReader(`{"name":"  Eve   Adams "}`)
		req := requestWithChiParams(httptest.NewRequest(http.MethodPut, "/api/v1/faces/1/name", body), map[string]string{"id": "1"})
		recorder := httptest.NewRecorder()
		handler.Rename(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		if fake.records[1].Name != "Eve Adams" {
			t.Errorf("stored name %q", fake.records[1].Name)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest(http.MethodPut, "/api/v1/faces/1/name", strings.NewReader("{")), map[string]string{"id": "1"})
		recorder := httptest.NewRecorder()
		handler.Rename(recorder, req)

		assertStatusCode(t, recorder, http.StatusBadRequest)
		assertJSONError(t, recorder, errInvalidRequestBody)
	})

	t.Run("missing name", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest(http.MethodPut, "/api/v1/faces/1/name", nil), map[string]string{"id": "1"})
		recorder := httptest.NewRecorder()
		handler.Rename(recorder, req)

		assertStatusCode(t, recorder, http.StatusBadRequest)
	})

	t.Run("unknown key", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest(http.MethodPut, "/api/v1/faces/9/name?name=X", nil), map[string]string{"id": "9"})
		recorder := httptest.NewRecorder()
		handler.Rename(recorder, req)

		assertStatusCode(t, recorder, http.StatusNotFound)
	})
}

func TestFacesHandler_Image(t *testing.T) {
	fake := newFakeResolver()
	fake.images[0] = []byte("\x89PNG fake")
	handler := NewFacesHandler(fake, nil)

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/faces/0/image", nil), map[string]string{"id": "0"})
	recorder := httptest.NewRecorder()
	handler.Image(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/png")
	if recorder.Body.String() != "\x89PNG fake" {
		t.Errorf("unexpected body %q", recorder.Body.String())
	}

	req = requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/faces/1/image", nil), map[string]string{"id": "1"})
	recorder = httptest.NewRecorder()
	handler.Image(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}
