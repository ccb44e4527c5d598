package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/slatehub-api/internal/metrics"
	"github.com/isdelr/slatehub-api/internal/services"
	"github.com/isdelr/slatehub-api/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const checkTimeout = 10 * time.Second

// StorageMonitor periodically checks that the image directory is usable and
// records transitions in the activity feed.
type StorageMonitor struct {
	store    storage.ImageStore
	eventSvc services.EventServiceProvider
	cron     *cron.Cron

	// healthy is the result of the previous check, nil before the first one.
	// Checks are serial; the lock is for readers such as the health endpoint.
	mu      sync.RWMutex
	healthy *bool
}

// NewStorageMonitor creates a monitor that runs on the given cron spec, e.g.
// "@every 5m" or "*/5 * * * *".
func NewStorageMonitor(spec string, store storage.ImageStore, eventSvc services.EventServiceProvider) (*StorageMonitor, error) {
	m := &StorageMonitor{
		store:    store,
		eventSvc: eventSvc,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
	if _, err := m.cron.AddFunc(spec, m.Check); err != nil {
		return nil, fmt.Errorf("invalid storage check schedule %q: %w", spec, err)
	}
	return m, nil
}

// Start runs one check immediately and then starts the schedule.
func (m *StorageMonitor) Start() {
	log.Info().Msg("Starting storage monitor...")
	m.Check()
	m.cron.Start()
}

// Stop halts the schedule and waits for a running check to finish.
func (m *StorageMonitor) Stop() {
	<-m.cron.Stop().Done()
	log.Info().Msg("Stopped storage monitor.")
}

// Check performs a single health check.
func (m *StorageMonitor) Check() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	ok, err := m.store.HealthCheck(ctx)
	if err != nil {
		log.Error().Err(err).Str("path", m.store.Root()).Msg("StorageMonitor: health check failed")
		ok = false
	}
	metrics.SetStorageHealthy(ok)

	m.mu.Lock()
	previous := m.healthy
	m.healthy = &ok
	m.mu.Unlock()

	switch {
	case previous == nil && ok:
		log.Debug().Str("path", m.store.Root()).Msg("StorageMonitor: storage available")
	case !ok && (previous == nil || *previous):
		log.Error().Str("path", m.store.Root()).Msg("StorageMonitor: storage directory unavailable")
		m.record(ctx, "storage.unavailable", "error", fmt.Sprintf("Image storage at '%s' is unavailable.", m.store.Root()))
	case ok && previous != nil && !*previous:
		log.Info().Str("path", m.store.Root()).Msg("StorageMonitor: storage directory recovered")
		m.record(ctx, "storage.recovered", "info", fmt.Sprintf("Image storage at '%s' is available again.", m.store.Root()))
	}
}

// Healthy returns the result of the last check and whether one has run.
func (m *StorageMonitor) Healthy() (healthy, checked bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.healthy == nil {
		return false, false
	}
	return *m.healthy, true
}

func (m *StorageMonitor) record(ctx context.Context, eventType, level, message string) {
	if err := m.eventSvc.CreateEvent(ctx, eventType, level, message, nil); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("StorageMonitor: failed to record event")
	}
}
