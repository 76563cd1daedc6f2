package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type fakeSyncRunner struct {
	mu   sync.Mutex
	ran  []string
	err  error
	done chan struct{}
}

func (f *fakeSyncRunner) RunSync(profileID string) error {
	f.mu.Lock()
	f.ran = append(f.ran, profileID)
	f.mu.Unlock()
	if f.done != nil {
		close(f.done)
	}
	return f.err
}

func TestTriggerSync_RequiresProfile(t *testing.T) {
	e := echo.New()
	runner := &fakeSyncRunner{}
	h := NewSyncHandler(runner)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.TriggerSync(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTriggerSync_Accepted(t *testing.T) {
	e := echo.New()
	done := make(chan struct{})
	runner := &fakeSyncRunner{done: done}
	h := NewSyncHandler(runner)

	req := withProfileID(httptest.NewRequest(http.MethodPost, "/sync", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.TriggerSync(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSync was not invoked in the background goroutine")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.ran) != 1 || runner.ran[0] != "profile-1" {
		t.Fatalf("expected RunSync to be called with profile-1, got %v", runner.ran)
	}
}

func TestTriggerSync_RunnerErrorDoesNotFailRequest(t *testing.T) {
	e := echo.New()
	done := make(chan struct{})
	runner := &fakeSyncRunner{err: errors.New("mail unreachable"), done: done}
	h := NewSyncHandler(runner)

	req := withProfileID(httptest.NewRequest(http.MethodPost, "/sync", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.TriggerSync(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 even though the background run will fail, got %d", rec.Code)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSync was not invoked in the background goroutine")
	}
}
