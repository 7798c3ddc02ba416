package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/Rohith2006/Facial-Recognition/internal/constants"
	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/Rohith2006/Facial-Recognition/internal/resolver"
	"github.com/go-chi/chi/v5"
)

// FaceResolver is the resolver surface used by the face endpoints.
type FaceResolver interface {
	Identify(ctx context.Context, image []byte) (*resolver.IdentifyOutcome, error)
	Register(ctx context.Context, image []byte, name string) (*resolver.RegisterOutcome, error)
	GetUnnamed(ctx context.Context) ([]database.StoredIdentity, error)
	GetByKey(ctx context.Context, key int) (*database.StoredIdentity, error)
	UpdateName(ctx context.Context, key int, name string) (string, error)
	GetImage(ctx context.Context, key int) ([]byte, error)
	Stats(ctx context.Context) (*resolver.Stats, error)
}

// FacesHandler handles identify, register and identity lookup endpoints
type FacesHandler struct {
	resolver FaceResolver
	stats    *StatsHandler
}

// NewFacesHandler creates a new faces handler. Mutations invalidate the stats cache.
func NewFacesHandler(r FaceResolver, stats *StatsHandler) *FacesHandler {
	return &FacesHandler{resolver: r, stats: stats}
}

// IdentityResponse is a single identity.
type IdentityResponse struct {
	FaceID string `json:"face_id"`
	Name   string `json:"name"`
}

// IdentifyResponse is the result of POST /faces/identify.
type IdentifyResponse struct {
	Type       resolver.OutcomeType `json:"type"`
	FaceID     string               `json:"face_id,omitempty"`
	Name       *string              `json:"name,omitempty"`
	Similarity *float64             `json:"similarity,omitempty"`
	Reason     string               `json:"reason,omitempty"`
	Message    string               `json:"message,omitempty"`
}

// RegisterResponse is the result of POST /faces/register.
type RegisterResponse struct {
	Status     resolver.RegisterStatus `json:"status"`
	FaceID     string                  `json:"face_id,omitempty"`
	Name       string                  `json:"name,omitempty"`
	Similarity *float64                `json:"similarity,omitempty"`
	Reason     string                  `json:"reason,omitempty"`
	Message    string                  `json:"message,omitempty"`
}

// UnnamedResponse lists identities without a name.
type UnnamedResponse struct {
	UnnamedFaces []IdentityResponse `json:"unnamed_faces"`
}

// RenameResponse confirms a rename.
type RenameResponse struct {
	Status string `json:"status"`
	FaceID string `json:"face_id"`
	Name   string `json:"name"`
}

// readUpload returns the bytes of the multipart "file" part.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return nil, false
	}
	return data, true
}

// keyParam parses the {id} URL parameter.
func keyParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	key, err := resolver.ParseKey(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return key, true
}

// Identify resolves the face in the uploaded image
func (h *FacesHandler) Identify(w http.ResponseWriter, r *http.Request) {
	data, ok := readUpload(w, r)
	if !ok {
		return
	}

	out, err := h.resolver.Identify(r.Context(), data)
	if err != nil {
		respondResolverError(w, r, err)
		return
	}

	resp := IdentifyResponse{Type: out.Type}
	switch out.Type {
	case resolver.OutcomeMatched, resolver.OutcomeRegistered:
		resp.FaceID = database.FormatKey(out.Key)
		if out.Name != "" {
			resp.Name = &out.Name
		}
		if out.Type == resolver.OutcomeMatched {
			resp.Similarity = &out.Similarity
		}
	case resolver.OutcomeRejected:
		resp.Reason = string(out.Reason)
		resp.Message = out.Reason.Message()
	}
	if out.Type == resolver.OutcomeRegistered {
		h.stats.invalidate()
	}
	respondJSON(w, http.StatusOK, resp)
}

// Register stores a named face
func (h *FacesHandler) Register(w http.ResponseWriter, r *http.Request) {
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	name := r.FormValue("name")
	if strings.TrimSpace(name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	out, err := h.resolver.Register(r.Context(), data, name)
	if err != nil {
		respondResolverError(w, r, err)
		return
	}

	resp := RegisterResponse{Status: out.Status}
	switch out.Status {
	case resolver.StatusSuccess, resolver.StatusExists:
		resp.FaceID = database.FormatKey(out.Key)
		resp.Name = out.Name
		if out.Status == resolver.StatusExists {
			resp.Similarity = &out.Similarity
		}
		h.stats.invalidate()
	case resolver.StatusFailed:
		resp.Reason = string(out.Reason)
		resp.Message = out.Reason.Message()
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListUnnamed returns identities that have no name yet
func (h *FacesHandler) ListUnnamed(w http.ResponseWriter, r *http.Request) {
	rows, err := h.resolver.GetUnnamed(r.Context())
	if err != nil {
		respondResolverError(w, r, err)
		return
	}

	resp := UnnamedResponse{UnnamedFaces: make([]IdentityResponse, 0, len(rows))}
	for _, row := range rows {
		resp.UnnamedFaces = append(resp.UnnamedFaces, IdentityResponse{
			FaceID: database.FormatKey(row.Key),
			Name:   row.Name,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get returns a single identity
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	rec, err := h.resolver.GetByKey(r.Context(), key)
	if err != nil {
		respondResolverError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, IdentityResponse{FaceID: database.FormatKey(rec.Key), Name: rec.Name})
}

// renameRequest is the optional JSON body of PUT /faces/{id}/name
type renameRequest struct {
	Name string `json:"name"`
}

// Rename sets the name of an identity. The name comes from the query string
// or from a JSON body.
func (h *FacesHandler) Rename(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" && r.ContentLength != 0 {
		var req renameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		name = req.Name
	}
	if strings.TrimSpace(name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	stored, err := h.resolver.UpdateName(r.Context(), key, name)
	if err != nil {
		respondResolverError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, RenameResponse{Status: "success", FaceID: database.FormatKey(key), Name: stored})
}

// Image returns the stored PNG of an identity
func (h *FacesHandler) Image(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	img, err := h.resolver.GetImage(r.Context(), key)
	if err != nil {
		respondResolverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}
