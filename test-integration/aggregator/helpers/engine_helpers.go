// Package helpers provides fake transform engines and server lifecycle helpers for the
// integration tests.
package helpers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// FakeEngine is a transform engine serving a configurable /transform/config response
type FakeEngine struct {
	server *httptest.Server

	mu         sync.Mutex
	statusCode int
	body       string

	requests atomic.Int64
}

// NewFakeEngine starts an engine answering 200 with body
func NewFakeEngine(body string) *FakeEngine {
	e := &FakeEngine{statusCode: http.StatusOK, body: body}
	e.server = httptest.NewServer(http.HandlerFunc(e.serve))
	return e
}

func (e *FakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	e.requests.Add(1)
	if r.URL.Path != "/transform/config" {
		http.NotFound(w, r)
		return
	}

	e.mu.Lock()
	statusCode, body := e.statusCode, e.body
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

// URL returns the engine base URL
func (e *FakeEngine) URL() string {
	return e.server.URL
}

// Respond changes the response served from now on
func (e *FakeEngine) Respond(statusCode int, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusCode = statusCode
	e.body = body
}

// Requests returns the number of requests received
func (e *FakeEngine) Requests() int64 {
	return e.requests.Load()
}

// Close stops the engine
func (e *FakeEngine) Close() {
	e.server.Close()
}
