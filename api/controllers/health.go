package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopvia/shopvia-backend/api/responses"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthLive reports process liveness only.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// HealthReady reports readiness of the service's hard dependencies.
func HealthReady(db, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["db"] = checkDependency(ctx, db, &healthy)
		checks["redis"] = checkDependency(ctx, cache, &healthy)

		status := http.StatusOK
		overall := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		responses.WriteJSON(w, status, healthResponse{Status: overall, Checks: checks})
	}
}

func checkDependency(ctx context.Context, p pinger, healthy *bool) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		*healthy = false
		return "unreachable"
	}
	return "ok"
}
