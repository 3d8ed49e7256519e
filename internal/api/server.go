package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"comicvox/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, narrationH *NarrationHandler, selectionH *SelectionHandler, statsH *StatsHandler, bridge *Bridge, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 1b. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Narration Endpoints
	mux.HandleFunc("POST /api/narration/start", narrationH.HandleStart)
	mux.HandleFunc("POST /api/narration/stop", narrationH.HandleStop)
	mux.HandleFunc("POST /api/narration/pause", narrationH.HandlePause)
	mux.HandleFunc("POST /api/narration/resume", narrationH.HandleResume)
	mux.HandleFunc("POST /api/narration/next", narrationH.HandleNext)
	mux.HandleFunc("POST /api/narration/previous", narrationH.HandlePrevious)
	mux.HandleFunc("POST /api/narration/seek", narrationH.HandleSeek)
	mux.HandleFunc("GET /api/narration/status", narrationH.HandleStatus)

	// 3. Selection Endpoints
	mux.HandleFunc("POST /api/selections", selectionH.HandleConfirm)
	mux.HandleFunc("GET /api/selections", selectionH.HandleList)
	mux.HandleFunc("DELETE /api/selections", selectionH.HandleClear)
	mux.HandleFunc("POST /api/selections/process", selectionH.HandleProcess)

	// 4. Stats Endpoint
	mux.Handle("GET /api/stats", statsH)

	// 5. Client Bridge
	mux.HandleFunc("GET /ws", bridge.HandleWS)

	// 6. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
