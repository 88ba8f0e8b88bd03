// Package health implements the dispatcher's own liveness check (spec
// §4.9 "Health"): an HTTP handler that fails if any registered watcher
// has made no progress in the last 5 minutes. Grounded on the teacher's
// readiness-condition idiom, adapted from "is this one resource ready"
// to "has this one watcher made progress recently".
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// staleAfter is spec §4.9's health threshold: a watcher with no progress
// in this long is considered stuck.
const staleAfter = 5 * time.Minute

// Registry tracks the last-progress time of every named watcher,
// satisfying watch.Progress.
type Registry struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{lastSeen: make(map[string]time.Time)}
}

// Touch records that name made progress at at.
func (r *Registry) Touch(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastSeen[name] = at
}

// stale returns the names of every watcher with no recorded progress, or
// whose last progress is older than staleAfter.
func (r *Registry) stale(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []string

	for name, at := range r.lastSeen {
		if now.Sub(at) > staleAfter {
			stale = append(stale, name)
		}
	}

	return stale
}

// Expect registers name as a watcher the handler must see progress from,
// seeding it with now so a watcher that hasn't started its first list
// yet doesn't fail health immediately on process start.
func (r *Registry) Expect(name string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lastSeen[name]; !ok {
		r.lastSeen[name] = now
	}
}

type healthResponse struct {
	OK    bool     `json:"ok"`
	Stale []string `json:"stale_watchers,omitempty"`
}

// Handler serves spec §4.9's /v1/health: 200 if every watcher has
// progressed within staleAfter, 500 otherwise.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		stale := r.stale(time.Now())

		w.Header().Set("Content-Type", "application/json")

		if len(stale) > 0 {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(healthResponse{OK: false, Stale: stale})

			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(healthResponse{OK: true})
	}
}
