package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/Rohith2006/Facial-Recognition/internal/embedding"
	"github.com/Rohith2006/Facial-Recognition/internal/imaging"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
)

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusCreated, map[string]int{"count": 42})

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")

	var result map[string]int
	parseJSONResponse(t, recorder, &result)
	if result["count"] != 42 {
		t.Errorf("expected count 42, got %d", result["count"])
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "something went wrong")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "something went wrong")
}

func TestErrorStatus(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("outer: %w", err) }
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid image", wrap(imaging.ErrInvalidImage), http.StatusBadRequest},
		{"dimension mismatch", wrap(database.ErrDimensionMismatch), http.StatusBadRequest},
		{"zero vector", wrap(database.ErrZeroVector), http.StatusBadRequest},
		{"invalid key", wrap(resolver.ErrInvalidKey), http.StatusBadRequest},
		{"invalid name", wrap(resolver.ErrInvalidName), http.StatusBadRequest},
		{"not found", wrap(resolver.ErrNotFound), http.StatusNotFound},
		{"upstream", wrap(embedding.ErrUpstream), http.StatusBadGateway},
		{"consistency", wrap(resolver.ErrConsistency), http.StatusInternalServerError},
		{"persistence", wrap(database.ErrPersistence), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorStatus(tc.err); got != tc.expected {
				t.Errorf("errorStatus(%v) = %d, want %d", tc.err, got, tc.expected)
			}
		})
	}
}

func TestRespondResolverError_Messages(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{fmt.Errorf("%w: 9", resolver.ErrNotFound), "identity not found: 9"},
		{fmt.Errorf("%w: key 3", resolver.ErrConsistency), "consistency fault"},
		{fmt.Errorf("%w: status 500", embedding.ErrUpstream), "embedding service unavailable"},
		{errors.New("pq: connection refused"), "internal error"},
	}
	for _, tc := range tests {
		recorder := httptest.NewRecorder()
		respondResolverError(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/faces/3", nil), tc.err)
		assertJSONError(t, recorder, tc.expected)
	}
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodPost} {
		recorder := httptest.NewRecorder()
		HealthCheck(recorder, httptest.NewRequest(method, "/api/v1/health", nil))

		assertStatusCode(t, recorder, http.StatusOK)
		var result map[string]string
		parseJSONResponse(t, recorder, &result)
		if result["status"] != "ok" {
			t.Errorf("%s: expected status 'ok', got '%s'", method, result["status"])
		}
	}
}

func TestWelcome(t *testing.T) {
	recorder := httptest.NewRecorder()
	Welcome(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["api"] != "/api/v1" {
		t.Errorf("unexpected welcome body %v", result)
	}
}
