package api

import (
	"net/http"

	"comicvox/pkg/model"
	"comicvox/pkg/queue"
)

// StatsHandler reports engine-side counters for the reader's debug panel.
type StatsHandler struct {
	queue     *queue.Queue
	store     SelectionController
	narration NarrationController
	bridge    *Bridge
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(q *queue.Queue, store SelectionController, narration NarrationController, bridge *Bridge) *StatsHandler {
	return &StatsHandler{queue: q, store: store, narration: narration, bridge: bridge}
}

// StatsResponse is the GET /api/stats payload.
type StatsResponse struct {
	Queue           model.QueueStats      `json:"queue"`
	QueueRunning    bool                  `json:"queue_running"`
	Selections      int                   `json:"selections"`
	ExtractedTexts  int                   `json:"extracted_texts"`
	Narration       model.NarrationStatus `json:"narration"`
	ClientConnected bool                  `json:"client_connected"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Queue:           h.queue.Stats(),
		QueueRunning:    h.queue.IsRunning(),
		Selections:      len(h.store.Selections()),
		ExtractedTexts:  len(h.store.OrderedTexts()),
		Narration:       h.narration.Status(),
		ClientConnected: h.bridge.Connected(),
	}
	writeJSON(w, resp)
}
