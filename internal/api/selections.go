package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"comicvox/pkg/model"
	"comicvox/pkg/selection"
)

// SelectionController defines the selection store operations the API
// exposes.
type SelectionController interface {
	Confirm(rect model.Rect, imageID, imageSrc string) (*model.Selection, error)
	ClearAll()
	Process(ctx context.Context) error
	Selections() []model.Selection
	OrderedTexts() []model.ExtractedText
}

// SelectionHandler handles selection endpoints.
type SelectionHandler struct {
	store SelectionController
}

// NewSelectionHandler creates a new SelectionHandler.
func NewSelectionHandler(store SelectionController) *SelectionHandler {
	return &SelectionHandler{store: store}
}

// ConfirmRequest carries one drawn rectangle from the client.
type ConfirmRequest struct {
	Rect     model.Rect `json:"rect"`
	ImageID  string     `json:"image_id"`
	ImageSrc string     `json:"image_src"`
}

// SelectionsResponse lists current selections with their extracted texts.
type SelectionsResponse struct {
	Selections []model.Selection     `json:"selections"`
	Texts      []model.ExtractedText `json:"texts"`
}

// HandleConfirm handles POST /api/selections
func (h *SelectionHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sel, err := h.store.Confirm(req.Rect, req.ImageID, req.ImageSrc)
	switch {
	case errors.Is(err, selection.ErrTooSmall):
		// Tiny rectangles are accidental clicks, not an error worth
		// surfacing in the reader.
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		slog.Warn("API: selection rejected", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(sel); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// HandleList handles GET /api/selections
func (h *SelectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, SelectionsResponse{
		Selections: h.store.Selections(),
		Texts:      h.store.OrderedTexts(),
	})
}

// HandleClear handles DELETE /api/selections
func (h *SelectionHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.store.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

// HandleProcess handles POST /api/selections/process
func (h *SelectionHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	// Extraction runs in the background queue past this request.
	if err := h.store.Process(context.WithoutCancel(r.Context())); err != nil {
		slog.Error("API: extraction start failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
