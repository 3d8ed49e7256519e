package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"comicvox/pkg/model"
)

// NarrationController defines the sequencer operations the API exposes.
type NarrationController interface {
	Start(ctx context.Context) error
	Stop()
	Pause()
	Resume(ctx context.Context)
	Next(ctx context.Context)
	Previous(ctx context.Context)
	Seek(ctx context.Context, index int)
	Status() model.NarrationStatus
}

// NarrationHandler handles narration control endpoints.
type NarrationHandler struct {
	narrator NarrationController
}

// NewNarrationHandler creates a new NarrationHandler.
func NewNarrationHandler(narrator NarrationController) *NarrationHandler {
	return &NarrationHandler{narrator: narrator}
}

// SeekRequest selects a narration item by index.
type SeekRequest struct {
	Index int `json:"index"`
}

// HandleStart handles POST /api/narration/start
func (h *NarrationHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	// The session outlives the request; only its values carry over.
	if err := h.narrator.Start(context.WithoutCancel(r.Context())); err != nil {
		slog.Warn("API: narration start rejected", "error", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, h.narrator.Status())
}

// HandleStop handles POST /api/narration/stop
func (h *NarrationHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.narrator.Stop()
	writeJSON(w, h.narrator.Status())
}

// HandlePause handles POST /api/narration/pause
func (h *NarrationHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.narrator.Pause()
	writeJSON(w, h.narrator.Status())
}

// HandleResume handles POST /api/narration/resume
func (h *NarrationHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.narrator.Resume(context.WithoutCancel(r.Context()))
	writeJSON(w, h.narrator.Status())
}

// HandleNext handles POST /api/narration/next
func (h *NarrationHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	h.narrator.Next(context.WithoutCancel(r.Context()))
	writeJSON(w, h.narrator.Status())
}

// HandlePrevious handles POST /api/narration/previous
func (h *NarrationHandler) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	h.narrator.Previous(context.WithoutCancel(r.Context()))
	writeJSON(w, h.narrator.Status())
}

// HandleSeek handles POST /api/narration/seek
func (h *NarrationHandler) HandleSeek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.narrator.Seek(context.WithoutCancel(r.Context()), req.Index)
	writeJSON(w, h.narrator.Status())
}

// HandleStatus handles GET /api/narration/status
func (h *NarrationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.narrator.Status())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
