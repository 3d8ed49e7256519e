package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"comicvox/pkg/model"
)

// MockNarrationService matches the interface needed by NarrationHandler.
type MockNarrationService struct {
	startErr error
	status   model.NarrationStatus

	starts, stops, pauses, resumes int
	nexts, previouses              int
	seeks                          []int
}

func (m *MockNarrationService) Start(context.Context) error { m.starts++; return m.startErr }
func (m *MockNarrationService) Stop()                       { m.stops++ }
func (m *MockNarrationService) Pause()                      { m.pauses++ }
func (m *MockNarrationService) Resume(context.Context)      { m.resumes++ }
func (m *MockNarrationService) Next(context.Context)        { m.nexts++ }
func (m *MockNarrationService) Previous(context.Context)    { m.previouses++ }
func (m *MockNarrationService) Seek(_ context.Context, index int) {
	m.seeks = append(m.seeks, index)
}
func (m *MockNarrationService) Status() model.NarrationStatus { return m.status }

func TestNarrationHandler_Start(t *testing.T) {
	mock := &MockNarrationService{status: model.NarrationStatus{State: model.StateSpeaking, Narrating: true}}
	h := NewNarrationHandler(mock)

	req := httptest.NewRequest("POST", "/api/narration/start", http.NoBody)
	w := httptest.NewRecorder()
	h.HandleStart(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.starts != 1 {
		t.Errorf("expected 1 start call, got %d", mock.starts)
	}
	var status model.NarrationStatus
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.State != model.StateSpeaking {
		t.Errorf("expected speaking status, got %s", status.State)
	}
}

func TestNarrationHandler_StartWithNothingToNarrate(t *testing.T) {
	mock := &MockNarrationService{startErr: errors.New("no extracted texts to narrate")}
	h := NewNarrationHandler(mock)

	req := httptest.NewRequest("POST", "/api/narration/start", http.NoBody)
	w := httptest.NewRecorder()
	h.HandleStart(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestNarrationHandler_Transport(t *testing.T) {
	mock := &MockNarrationService{}
	h := NewNarrationHandler(mock)

	for _, tc := range []struct {
		name    string
		handler http.HandlerFunc
		count   *int
	}{
		{"stop", h.HandleStop, &mock.stops},
		{"pause", h.HandlePause, &mock.pauses},
		{"resume", h.HandleResume, &mock.resumes},
		{"next", h.HandleNext, &mock.nexts},
		{"previous", h.HandlePrevious, &mock.previouses},
	} {
		req := httptest.NewRequest("POST", "/api/narration/"+tc.name, http.NoBody)
		w := httptest.NewRecorder()
		tc.handler(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", tc.name, w.Code)
		}
		if *tc.count != 1 {
			t.Errorf("%s: expected 1 call, got %d", tc.name, *tc.count)
		}
	}
}

func TestNarrationHandler_Seek(t *testing.T) {
	mock := &MockNarrationService{}
	h := NewNarrationHandler(mock)

	body := bytes.NewBufferString(`{"index": 3}`)
	req := httptest.NewRequest("POST", "/api/narration/seek", body)
	w := httptest.NewRecorder()
	h.HandleSeek(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(mock.seeks) != 1 || mock.seeks[0] != 3 {
		t.Errorf("expected seek to 3, got %v", mock.seeks)
	}

	req = httptest.NewRequest("POST", "/api/narration/seek", bytes.NewBufferString("not json"))
	w = httptest.NewRecorder()
	h.HandleSeek(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", w.Code)
	}
}
