package core

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// healthCheckTimeout is the maximum time allowed for all health probes to complete.
// If any probe exceeds this deadline, the health check returns 503 Service Unavailable.
const healthCheckTimeout = 2 * time.Second

// HealthProbe defines the interface for a subsystem health check.
// Each probe represents a critical dependency (snapshot store, payment
// gateway) that must be operational for the service to function correctly.
type HealthProbe interface {
	// Name returns a human-readable identifier for the probe (e.g., "store").
	Name() string

	// Check performs the health check against the subsystem.
	// It should respect the context deadline and return an error if the
	// subsystem is unhealthy or unreachable.
	Check(ctx context.Context) error
}

// componentStatus represents the health state of a single subsystem.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth executes all registered health probes concurrently with a short
// timeout. Returns 200 OK if all probes report healthy, 503 Service
// Unavailable if any critical subsystem fails or the timeout is exceeded.
//
// This endpoint is public and is mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	probes := s.HealthProbes
	if len(probes) == 0 {
		// No probes registered: report healthy with no component details.
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	type probeResult struct {
		name string
		err  error
	}

	results := make(chan probeResult, len(probes))
	var wg sync.WaitGroup
	for _, probe := range probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()
			results <- probeResult{name: p.Name(), err: p.Check(ctx)}
		}(probe)
	}
	wg.Wait()
	close(results)

	components := make(map[string]componentStatus, len(probes))
	healthy := true
	for res := range results {
		if res.err != nil {
			healthy = false
			components[res.name] = componentStatus{
				Status:  "unhealthy",
				Message: fmt.Sprintf("%v", res.err),
			}
			continue
		}
		components[res.name] = componentStatus{Status: "healthy"}
	}

	if !healthy {
		JSON(w, r, http.StatusServiceUnavailable, healthResponse{
			Status:     "unhealthy",
			Components: components,
		})
		return
	}

	JSON(w, r, http.StatusOK, healthResponse{
		Status:     "healthy",
		Components: components,
	})
}
