// Package orchestrator runs the ingestion loops: one goroutine per
// connector, with retry, backoff, dedup and failure isolation.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/connector"
	"github.com/yourusername/footy-edge/internal/metrics"
	"github.com/yourusername/footy-edge/internal/models"
	"github.com/yourusername/footy-edge/internal/store"
)

// SelectorFunc produces the fixture selector for each poll cycle
type SelectorFunc func(now time.Time) connector.FixtureSelector

// DefaultSelector polls fixtures kicking off in the next 48 hours
func DefaultSelector(now time.Time) connector.FixtureSelector {
	return connector.FixtureSelector{
		From: now.Add(-2 * time.Hour),
		To:   now.Add(48 * time.Hour),
	}
}

// Orchestrator coordinates the per-connector ingestion loops
type Orchestrator struct {
	cfg        *config.IngestionConfig
	connectors []connector.Connector
	records    store.RecordStore
	selector   SelectorFunc
	logger     *logrus.Logger

	mu        sync.RWMutex
	stats     map[models.SourceKind]*PollStats
	isRunning bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates an orchestrator over the given connectors
func New(cfg *config.IngestionConfig, connectors []connector.Connector, records store.RecordStore, logger *logrus.Logger) *Orchestrator {
	stats := make(map[models.SourceKind]*PollStats, len(connectors))
	for _, c := range connectors {
		stats[c.Kind()] = NewPollStats()
	}

	return &Orchestrator{
		cfg:        cfg,
		connectors: connectors,
		records:    records,
		selector:   DefaultSelector,
		logger:     logger,
		stats:      stats,
	}
}

// SetSelector overrides the fixture selector used for each poll cycle
func (o *Orchestrator) SetSelector(fn SelectorFunc) {
	o.selector = fn
}

// Start launches one polling goroutine per connector. A failing connector
// never blocks or delays the others.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.isRunning {
		return nil
	}

	ctx, o.cancel = context.WithCancel(ctx)
	for _, c := range o.connectors {
		o.wg.Add(1)
		go o.runLoop(ctx, c)
	}
	o.isRunning = true

	o.logger.WithField("connectors", len(o.connectors)).Info("Ingestion orchestrator started")
	return nil
}

// Stop cancels all polling loops and waits for them to drain
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.isRunning {
		o.mu.Unlock()
		return
	}
	o.cancel()
	o.isRunning = false
	o.mu.Unlock()

	o.wg.Wait()
	o.logger.Info("Ingestion orchestrator stopped")
}

// Stats returns a snapshot of every connector's rolling stats
func (o *Orchestrator) Stats() map[models.SourceKind]PollStatsSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[models.SourceKind]PollStatsSnapshot, len(o.stats))
	for kind, s := range o.stats {
		out[kind] = s.Snapshot()
	}
	return out
}

// Health returns each connector's current health
func (o *Orchestrator) Health() map[models.SourceKind]connector.Health {
	out := make(map[models.SourceKind]connector.Health, len(o.connectors))
	for _, c := range o.connectors {
		out[c.Kind()] = c.Health()
	}
	return out
}

// Sync runs a single on-demand poll cycle for one source kind with an
// explicit selector, used by the daily-sync scheduler.
func (o *Orchestrator) Sync(ctx context.Context, kind models.SourceKind, sel connector.FixtureSelector) error {
	for _, c := range o.connectors {
		if c.Kind() != kind {
			continue
		}
		return o.pollOnce(ctx, c, sel)
	}
	return fmt.Errorf("no connector registered for kind %s", kind)
}

// runLoop drives a single connector: idle on a cadence ticker, poll with a
// deadline, back off exponentially after failures.
func (o *Orchestrator) runLoop(ctx context.Context, c connector.Connector) {
	defer o.wg.Done()

	kind := c.Kind()
	log := o.logger.WithField("connector", string(kind))
	cadence := c.Cadence()
	backoff := time.Duration(0)

	log.WithField("cadence", cadence).Info("Connector polling loop started")

	for {
		wait := cadence
		if backoff > 0 {
			wait = backoff
		}

		select {
		case <-ctx.Done():
			log.Info("Connector polling loop stopped")
			return
		case <-time.After(wait):
		}

		if err := o.pollOnce(ctx, c, o.selector(time.Now())); err != nil {
			if ctx.Err() != nil {
				return
			}
			backoff = o.nextBackoff(backoff)
			log.WithError(err).WithField("backoff", backoff).Warn("Poll failed, backing off")
			continue
		}
		backoff = 0
	}
}

// nextBackoff doubles the previous backoff, bounded by the configured max
func (o *Orchestrator) nextBackoff(prev time.Duration) time.Duration {
	initial := time.Duration(o.cfg.BackoffInitialSeconds) * time.Second
	max := time.Duration(o.cfg.BackoffMaxSeconds) * time.Second

	if prev <= 0 {
		return initial
	}
	next := prev * 2
	if next > max {
		next = max
	}
	return next
}

// pollOnce runs a single poll cycle: fetch, dedup, persist
func (o *Orchestrator) pollOnce(ctx context.Context, c connector.Connector, sel connector.FixtureSelector) error {
	kind := c.Kind()
	stats := o.stats[kind]
	start := time.Now()

	pollCtx, cancel := context.WithTimeout(ctx, c.Cadence())
	defer cancel()

	recs, err := c.Poll(pollCtx, sel)
	latency := time.Since(start)
	metrics.ConnectorPollLatency.WithLabelValues(string(kind)).Observe(latency.Seconds())

	if err != nil {
		stats.RecordError(latency)
		metrics.ConnectorPollsTotal.WithLabelValues(string(kind), "error").Inc()
		o.publishHealth(c)

		if !connector.IsTransient(err) {
			o.logger.WithField("connector", string(kind)).WithError(err).Error("Non-transient poll failure")
		}
		return err
	}

	persisted, deduped, err := o.persist(ctx, recs)
	if err != nil {
		stats.RecordError(latency)
		metrics.ConnectorPollsTotal.WithLabelValues(string(kind), "error").Inc()
		return err
	}

	stats.RecordSuccess(latency, persisted, deduped)
	metrics.ConnectorPollsTotal.WithLabelValues(string(kind), "success").Inc()
	metrics.RecordsPersistedTotal.WithLabelValues(string(kind)).Add(float64(persisted))
	metrics.RecordsDedupedTotal.WithLabelValues(string(kind)).Add(float64(deduped))
	metrics.ConnectorSuccessRate.WithLabelValues(string(kind)).Set(stats.SuccessRate())
	o.publishHealth(c)

	if persisted > 0 || deduped > 0 {
		o.logger.WithFields(logrus.Fields{
			"connector": string(kind),
			"persisted": persisted,
			"deduped":   deduped,
			"latency":   latency,
		}).Debug("Poll cycle complete")
	}
	return nil
}

// persist writes records, dropping any that duplicate a capture already
// persisted inside the dedup window.
func (o *Orchestrator) persist(ctx context.Context, recs []models.SourceRecord) (persisted, deduped int, err error) {
	window := o.cfg.DedupWindow()
	keep := make([]models.SourceRecord, 0, len(recs))

	for i := range recs {
		rec := &recs[i]
		since := rec.CapturedAt.Add(-window)
		dup, err := o.records.HasRecordSince(ctx, rec.Source, rec.FixtureID, since)
		if err != nil {
			return 0, 0, err
		}
		if dup {
			deduped++
			continue
		}
		keep = append(keep, *rec)
	}

	if len(keep) > 0 {
		if err := o.records.WriteRecords(ctx, keep); err != nil {
			return 0, deduped, err
		}
	}
	return len(keep), deduped, nil
}

func (o *Orchestrator) publishHealth(c connector.Connector) {
	var v float64
	switch c.Health().Status {
	case connector.StatusHealthy:
		v = 1
	case connector.StatusDegraded:
		v = 0.5
	default:
		v = 0
	}
	metrics.ConnectorHealth.WithLabelValues(string(c.Kind())).Set(v)
}
