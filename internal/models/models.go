// Package models provides shared response types for the fuel price ingester.
package models

import (
	"time"
)

// RunStatus holds the operational status of the ingestion pipeline.
type RunStatus struct {
	LastRunAt         *time.Time `json:"last_run_at"`
	LastLogicalTime   *time.Time `json:"last_logical_time"`
	LastRunSuccess    bool       `json:"last_run_success"`
	LastRunDurationMs int64      `json:"last_run_duration_ms"`
	LastError         *string    `json:"last_error"`
	LastFailedStep    string     `json:"last_failed_step,omitempty"`
	LastObjectKey     string     `json:"last_object_key,omitempty"`
	LastPayloadBytes  int        `json:"last_payload_bytes"`
	TotalRuns         int64      `json:"total_runs"`
	TotalErrors       int64      `json:"total_errors"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status           string        `json:"status"`
	UptimeSeconds    int64         `json:"uptime_seconds"`
	SchedulerRunning bool          `json:"scheduler_running"`
	NextRunAt        *time.Time    `json:"next_run_at,omitempty"`
	LastScheduledRun *time.Time    `json:"last_scheduled_run_at,omitempty"`
	Pipeline         RunStatus     `json:"pipeline"`
	Storage          StorageStatus `json:"storage"`
}

// StorageStatus holds the storage backend status.
type StorageStatus struct {
	Backend       string `json:"backend"`
	Connected     *bool  `json:"connected,omitempty"`
	ObjectsStored *int64 `json:"objects_stored,omitempty"`
}
