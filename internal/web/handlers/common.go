package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/Rohith2006/Facial-Recognition/internal/embedding"
	"github.com/Rohith2006/Facial-Recognition/internal/imaging"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps resolver, index and upstream errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, imaging.ErrInvalidImage),
		errors.Is(err, database.ErrDimensionMismatch),
		errors.Is(err, database.ErrZeroVector),
		errors.Is(err, resolver.ErrInvalidKey),
		errors.Is(err, resolver.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, resolver.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, embedding.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondResolverError logs server-side failures and sends the mapped status.
// Client errors carry their message, server errors a fixed one.
func respondResolverError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	switch {
	case status < http.StatusInternalServerError:
		respondError(w, status, err.Error())
	case status == http.StatusBadGateway:
		log.Printf("embedding service error on %s %s: %v", r.Method, sanitizeForLog(r.URL.Path), err)
		respondError(w, status, "embedding service unavailable")
	case errors.Is(err, resolver.ErrConsistency):
		log.Printf("consistency fault on %s %s: %v", r.Method, sanitizeForLog(r.URL.Path), err)
		respondError(w, status, "consistency fault")
	default:
		log.Printf("internal error on %s %s: %v", r.Method, sanitizeForLog(r.URL.Path), err)
		respondError(w, status, "internal error")
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Welcome answers the root path.
func Welcome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Face identity service",
		"api":     "/api/v1",
	})
}
