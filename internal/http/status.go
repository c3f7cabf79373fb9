package http

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/andygrunwald/fuel-price-ingester/internal/models"
	"github.com/andygrunwald/fuel-price-ingester/internal/pipeline"
	"github.com/andygrunwald/fuel-price-ingester/internal/scheduler"
	"github.com/andygrunwald/fuel-price-ingester/internal/storage"
)

// objectCounter is implemented by stores that can count their objects.
type objectCounter interface {
	CountObjects(ctx context.Context) (int64, error)
}

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	pipeline  *pipeline.Pipeline
	scheduler *scheduler.Scheduler
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(p *pipeline.Pipeline, sched *scheduler.Scheduler) *StatusHandler {
	return &StatusHandler{
		pipeline:  p,
		scheduler: sched,
		startTime: time.Now(),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	// Get scheduler status
	if h.scheduler != nil {
		response.SchedulerRunning = h.scheduler.IsRunning()
		response.LastScheduledRun = h.scheduler.LastRunAt()
		nextRun := h.scheduler.NextRunAt()
		if !nextRun.IsZero() {
			response.NextRunAt = &nextRun
		}
	}

	snapshot := h.pipeline.Metrics().GetSnapshot()
	response.Pipeline = models.RunStatus{
		LastRunAt:         snapshot.LastRunAt,
		LastLogicalTime:   snapshot.LastLogicalTime,
		LastRunSuccess:    snapshot.LastRunSuccess,
		LastRunDurationMs: snapshot.LastRunDuration.Milliseconds(),
		LastError:         snapshot.LastError,
		LastFailedStep:    snapshot.LastFailedStep,
		LastObjectKey:     snapshot.LastObjectKey,
		LastPayloadBytes:  snapshot.LastPayloadBytes,
		TotalRuns:         snapshot.TotalRuns,
		TotalErrors:       snapshot.TotalErrors,
	}
	if snapshot.TotalRuns > 0 && !snapshot.LastRunSuccess {
		response.Status = "degraded"
	}

	response.Storage = h.getStorageStatus(ctx, h.pipeline.Store())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (h *StatusHandler) getStorageStatus(ctx context.Context, store storage.Store) models.StorageStatus {
	status := models.StorageStatus{}

	if store == nil {
		return status
	}
	status.Backend = store.Name()

	pinger, ok := store.(storage.Pinger)
	if !ok {
		return status
	}

	connected := pinger.Ping(ctx) == nil
	status.Connected = &connected
	if !connected {
		return status
	}

	if counter, ok := store.(objectCounter); ok {
		if count, err := counter.CountObjects(ctx); err == nil {
			status.ObjectsStored = &count
		}
	}

	return status
}
