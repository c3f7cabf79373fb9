// Package pipeline runs the fuel price ingestion: authenticate, fetch and store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-ingester/internal/api"
	"github.com/andygrunwald/fuel-price-ingester/internal/config"
	"github.com/andygrunwald/fuel-price-ingester/internal/storage"
)

// Step names used in logs, errors and metrics.
const (
	StepConfig = "config"
	StepToken  = "token"
	StepPrices = "prices"
	StepStore  = "store"
)

// Recorder receives Prometheus style observations of pipeline runs.
type Recorder interface {
	RecordStep(step, status string, duration float64)
	RecordRun(status string, duration float64)
	RecordLastSuccess(timestamp float64)
	RecordPayloadSize(bytes float64)
}

// Result describes a completed run.
type Result struct {
	LogicalTime time.Time
	Timestamp   string
	Bucket      string
	ObjectKey   string
	Payload     []byte
	Stored      bool
	Duration    time.Duration
}

// Metrics holds run metrics of the pipeline.
type Metrics struct {
	mu               sync.RWMutex
	TotalRuns        int64
	TotalErrors      int64
	LastRunAt        *time.Time
	LastLogicalTime  *time.Time
	LastRunSuccess   bool
	LastRunDuration  time.Duration
	LastError        *string
	LastFailedStep   string
	LastObjectKey    string
	LastPayloadBytes int
}

// GetSnapshot returns a thread-safe snapshot of the metrics.
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		TotalRuns:        m.TotalRuns,
		TotalErrors:      m.TotalErrors,
		LastRunAt:        m.LastRunAt,
		LastLogicalTime:  m.LastLogicalTime,
		LastRunSuccess:   m.LastRunSuccess,
		LastRunDuration:  m.LastRunDuration,
		LastError:        m.LastError,
		LastFailedStep:   m.LastFailedStep,
		LastObjectKey:    m.LastObjectKey,
		LastPayloadBytes: m.LastPayloadBytes,
	}
}

// MetricsSnapshot is a thread-safe copy of Metrics data.
type MetricsSnapshot struct {
	TotalRuns        int64
	TotalErrors      int64
	LastRunAt        *time.Time
	LastLogicalTime  *time.Time
	LastRunSuccess   bool
	LastRunDuration  time.Duration
	LastError        *string
	LastFailedStep   string
	LastObjectKey    string
	LastPayloadBytes int
}

// StepError reports the step at which a run failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline wires settings, the upstream source and the object store.
type Pipeline struct {
	loader   config.Loader
	source   api.Source
	store    storage.Store
	logger   zerolog.Logger
	metrics  *Metrics
	recorder Recorder
	now      func() time.Time
}

// New creates a new Pipeline. Settings are read through loader at the start of every run.
func New(loader config.Loader, source api.Source, store storage.Store, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		loader:  loader,
		source:  source,
		store:   store,
		logger:  logger.With().Str("component", "pipeline").Logger(),
		metrics: &Metrics{},
		now:     time.Now,
	}
}

// SetPrometheusMetrics attaches a recorder for Prometheus metrics.
func (p *Pipeline) SetPrometheusMetrics(r Recorder) {
	p.recorder = r
}

// Metrics returns the run metrics.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Store returns the configured storage backend.
func (p *Pipeline) Store() storage.Store {
	return p.store
}

// Run executes a complete ingestion for the given logical run time.
// Nothing is stored unless every preceding step succeeded.
func (p *Pipeline) Run(ctx context.Context, logical time.Time) (*Result, error) {
	return p.run(ctx, logical, true)
}

// Fetch executes the ingestion without handing the payload to the store.
func (p *Pipeline) Fetch(ctx context.Context, logical time.Time) (*Result, error) {
	return p.run(ctx, logical, false)
}

func (p *Pipeline) run(ctx context.Context, logical time.Time, store bool) (*Result, error) {
	start := p.now()

	p.metrics.mu.Lock()
	p.metrics.TotalRuns++
	p.metrics.mu.Unlock()

	result, err := p.execute(ctx, logical, store)
	duration := p.now().Sub(start)

	p.recordRun(start, logical, duration, result, err)

	if err != nil {
		p.logger.Error().
			Err(err).
			Time("logicalTime", logical).
			Dur("duration", duration).
			Msg("run failed")
		return nil, err
	}

	result.Duration = duration

	p.logger.Info().
		Time("logicalTime", logical).
		Str("bucket", result.Bucket).
		Str("key", result.ObjectKey).
		Int("bytes", len(result.Payload)).
		Bool("stored", result.Stored).
		Dur("duration", duration).
		Msg("run completed")

	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, logical time.Time, store bool) (*Result, error) {
	settings, err := p.loader.Load()
	if err != nil {
		return nil, &StepError{Step: StepConfig, Err: err}
	}

	timestamp := RunTimestamp(logical)
	logger := p.logger.With().Str("runTimestamp", timestamp).Logger()

	stepStart := p.now()
	token, err := p.source.FetchToken(ctx, settings.FuelAPI)
	if err := p.finishStep(StepToken, stepStart, err); err != nil {
		return nil, err
	}

	logger.Debug().Str("source", p.source.Name()).Msg("authenticated")

	stepStart = p.now()
	payload, err := p.source.FetchNewPrices(ctx, token, settings.FuelAPI)
	if err := p.finishStep(StepPrices, stepStart, err); err != nil {
		return nil, err
	}

	result := &Result{
		LogicalTime: logical,
		Timestamp:   timestamp,
		Bucket:      settings.Storage.Bucket,
		ObjectKey:   ObjectKey(settings.Storage.KeyPrefix, timestamp),
		Payload:     payload,
	}

	if !store {
		return result, nil
	}

	stepStart = p.now()
	err = p.store.Put(ctx, storage.Object{
		Bucket:      result.Bucket,
		Key:         result.ObjectKey,
		ContentType: storage.ContentTypeJSON,
		Body:        result.Payload,
	})
	if err := p.finishStep(StepStore, stepStart, err); err != nil {
		return nil, err
	}
	result.Stored = true

	return result, nil
}

// finishStep records the step duration and wraps a step failure.
func (p *Pipeline) finishStep(step string, start time.Time, err error) error {
	if p.recorder != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.recorder.RecordStep(step, status, p.now().Sub(start).Seconds())
	}
	if err != nil {
		return &StepError{Step: step, Err: err}
	}
	return nil
}

func (p *Pipeline) recordRun(start, logical time.Time, duration time.Duration, result *Result, err error) {
	p.metrics.mu.Lock()
	p.metrics.LastRunAt = &start
	p.metrics.LastLogicalTime = &logical
	p.metrics.LastRunDuration = duration
	if err != nil {
		p.metrics.TotalErrors++
		p.metrics.LastRunSuccess = false
		errStr := err.Error()
		p.metrics.LastError = &errStr
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			p.metrics.LastFailedStep = stepErr.Step
		}
	} else {
		p.metrics.LastRunSuccess = true
		p.metrics.LastError = nil
		p.metrics.LastFailedStep = ""
		p.metrics.LastObjectKey = result.ObjectKey
		p.metrics.LastPayloadBytes = len(result.Payload)
	}
	p.metrics.mu.Unlock()

	if p.recorder == nil {
		return
	}
	if err != nil {
		p.recorder.RecordRun("error", duration.Seconds())
		return
	}
	p.recorder.RecordRun("success", duration.Seconds())
	p.recorder.RecordLastSuccess(float64(start.Unix()))
	p.recorder.RecordPayloadSize(float64(len(result.Payload)))
}
