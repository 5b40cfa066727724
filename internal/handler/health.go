package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/fx"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type RateClock interface {
	Snapshot() *fx.Snapshot
}

// HealthHandler reports liveness and readiness. db may be nil when the
// ledger runs on the in-memory store.
type HealthHandler struct {
	db         Pinger
	rates      RateClock
	maxRateAge time.Duration
	now        func() time.Time
}

func NewHealthHandler(db Pinger, rates RateClock, maxRateAge time.Duration) *HealthHandler {
	return &HealthHandler{
		db:         db,
		rates:      rates,
		maxRateAge: maxRateAge,
		now:        time.Now,
	}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// Readiness fails when the database is unreachable or the rate table is
// older than maxRateAge.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	if h.db != nil {
		checks["database"] = "ok"
		if err := h.db.PingContext(r.Context()); err != nil {
			slog.Warn("readiness check failed: database unreachable", "error", err)
			checks["database"] = "down"
			ready = false
		}
	}

	snap := h.rates.Snapshot()
	age := h.now().Sub(snap.UpdatedAt)
	checks["rates"] = "ok"
	if h.maxRateAge > 0 && age > h.maxRateAge {
		slog.Warn("readiness check failed: rate table stale", "age", age, "source", snap.Source)
		checks["rates"] = "stale"
		ready = false
	}

	status, httpStatus := "ok", http.StatusOK
	if !ready {
		status, httpStatus = "down", ErrServiceUnavailable.Status
	}

	RespondJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"checks":    checks,
		"rates": map[string]any{
			"source":     snap.Source,
			"base":       snap.Base,
			"updated_at": snap.UpdatedAt,
			"age_s":      int64(age.Seconds()),
		},
	})
}
