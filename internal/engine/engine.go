// Package engine orchestrates the alerting pipeline: threshold evaluation,
// day-scoped deduplication, persistence, and urgent-tier dispatch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/classify"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/config"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/db"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/dedup"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/dispatch"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/observability"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/threshold"
)

// AlertStore is the persistence surface the engine consumes. The engine only
// appends alerts and flips read flags; it never mutates or deletes other fields.
type AlertStore interface {
	AppendAlert(ctx context.Context, c models.CandidateAlert) (models.Alert, bool, error)
	QueryAlerts(ctx context.Context, entityID string, alertType models.AlertType, since time.Time) ([]models.Alert, error)
	ListRecent(ctx context.Context, limit int, unreadOnly bool) ([]models.Alert, error)
	SetRead(ctx context.Context, alertID string, isRead bool) error
	SetReadBatch(ctx context.Context, alertIDs []string) error
	MarkAllRead(ctx context.Context) (int64, error)
}

// ConfigStore persists the threshold configuration.
type ConfigStore interface {
	LoadThresholds(ctx context.Context) (models.ThresholdConfig, error)
	SaveThresholds(ctx context.Context, cfg models.ThresholdConfig) error
}

// Service is the alerting engine's public face to the rest of the application.
type Service struct {
	store      AlertStore
	cfgStore   ConfigStore
	classifier *classify.Classifier
	dedup      *dedup.Deduplicator
	dispatcher *dispatch.Dispatcher
	logger     *logging.Logger
	metrics    *observability.Metrics
	maxWorkers int
	hub        *Hub

	mu         sync.RWMutex
	thresholds models.ThresholdConfig
}

// New constructs the Service and loads the threshold snapshot. An empty config
// store is seeded from the bootstrap values in cfg.
func New(store AlertStore, cfgStore ConfigStore, classifier *classify.Classifier,
	dispatcher *dispatch.Dispatcher, logger *logging.Logger,
	metrics *observability.Metrics, cfg config.Config) (*Service, error) {

	s := &Service{
		store:      store,
		cfgStore:   cfgStore,
		classifier: classifier,
		dedup:      dedup.New(store, logger),
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		maxWorkers: cfg.Engine.MaxWorkers,
		hub:        NewHub(logger),
	}

	thresholds, err := cfgStore.LoadThresholds(context.Background())
	if errors.Is(err, db.ErrNoThresholds) {
		thresholds = models.ThresholdConfig{
			LoadPercentage:      cfg.Thresholds.LoadPercentage,
			UnbalancePercentage: cfg.Thresholds.UnbalancePercentage,
		}
		if err := cfgStore.SaveThresholds(context.Background(), thresholds); err != nil {
			return nil, fmt.Errorf("failed to seed thresholds: %w", err)
		}
		logger.Infof("seeded threshold config: load>%.0f%% unbalance>%.0f%%",
			thresholds.LoadPercentage, thresholds.UnbalancePercentage)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load thresholds: %w", err)
	}

	s.thresholds = thresholds
	return s, nil
}

// Hub exposes the websocket hub for the API layer.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Thresholds returns the current threshold snapshot. Each evaluation cycle
// reads it once and works on the copy for the whole cycle.
func (s *Service) Thresholds() models.ThresholdConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

// UpdateThresholds merges a partial update onto the current config, persists
// it, and atomically publishes the new snapshot. A failed save keeps the
// previous snapshot.
func (s *Service) UpdateThresholds(ctx context.Context, update models.ThresholdUpdate) (models.ThresholdConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := update.Apply(s.thresholds)
	if err := s.cfgStore.SaveThresholds(ctx, merged); err != nil {
		return s.thresholds, fmt.Errorf("failed to persist thresholds: %w", err)
	}
	s.thresholds = merged
	s.logger.Infof("thresholds updated: load>%.2f%% unbalance>%.2f%%",
		merged.LoadPercentage, merged.UnbalancePercentage)
	return merged, nil
}

// Evaluate runs one full cycle over a measurement batch: candidate generation,
// deduplication, persistence, dispatch. It returns the alerts actually
// persisted this cycle. Per-candidate failures are isolated; a store or
// dispatch error for one candidate never aborts the rest of the batch.
func (s *Service) Evaluate(ctx context.Context, measurements []models.MeasurementRecord) ([]models.Alert, error) {
	start := time.Now()
	s.metrics.CyclesRun.Inc()

	cfg := s.Thresholds()
	candidates := threshold.Evaluate(measurements, cfg)
	s.metrics.CandidatesGenerated.Add(float64(len(candidates)))

	survivors := s.dedup.Filter(ctx, candidates)
	s.metrics.DuplicatesSuppressed.Add(float64(len(candidates) - len(survivors)))

	alerts := s.persistAndDispatch(ctx, survivors)

	s.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	s.logger.Infof("cycle done: %d measurements, %d candidates, %d persisted",
		len(measurements), len(candidates), len(alerts))
	return alerts, nil
}

// persistAndDispatch fans survivors out across a bounded worker pool. Each
// candidate's append+dispatch is independent, so an abandoned cycle leaves no
// inconsistency behind.
func (s *Service) persistAndDispatch(ctx context.Context, survivors []models.CandidateAlert) []models.Alert {
	if len(survivors) == 0 {
		return nil
	}

	tasks := make(chan models.CandidateAlert)

	var mu sync.Mutex
	var alerts []models.Alert

	var wg sync.WaitGroup
	workers := s.maxWorkers
	if workers > len(survivors) {
		workers = len(survivors)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range tasks {
				alert, ok := s.handleCandidate(ctx, c)
				if ok {
					mu.Lock()
					alerts = append(alerts, alert)
					mu.Unlock()
				}
			}
		}()
	}

	for _, c := range survivors {
		select {
		case tasks <- c:
		case <-ctx.Done():
			// Abandon remaining candidates; everything handled so far is
			// already consistent.
			close(tasks)
			wg.Wait()
			return alerts
		}
	}
	close(tasks)
	wg.Wait()
	return alerts
}

func (s *Service) handleCandidate(ctx context.Context, c models.CandidateAlert) (models.Alert, bool) {
	alert, inserted, err := s.store.AppendAlert(ctx, c)
	if err != nil {
		s.logger.Errorf("persist failed for %s/%s, dropping candidate: %v", c.EntityID, c.Type, err)
		return models.Alert{}, false
	}
	if !inserted {
		// Another cycle won the day-scoped race; no duplicate dispatch.
		s.metrics.DuplicatesSuppressed.Inc()
		s.logger.Debugf("concurrent duplicate suppressed for %s/%s", c.EntityID, c.Type)
		return models.Alert{}, false
	}
	s.metrics.AlertsPersisted.Inc()

	s.hub.Broadcast(alert)

	if err := s.dispatcher.Send(ctx, alert.Message, ""); err != nil {
		// Non-fatal: the alert stays persisted and visible in the portal.
		s.metrics.DispatchFailures.Inc()
	} else {
		s.metrics.DispatchSuccesses.Inc()
	}
	return alert, true
}

// ClassifyHazard returns the current risk assessment for a hazard entity.
// The assessment is recomputed on every call; it is never cached.
func (s *Service) ClassifyHazard(entity models.HazardEntity) models.RiskAssessment {
	return s.classifier.Assess(entity)
}

// ListNeedingAction classifies a batch of hazards and returns those whose tier
// calls for action, most severe first.
func (s *Service) ListNeedingAction(entities []models.HazardEntity) []models.EntityAssessment {
	var out []models.EntityAssessment
	for _, e := range entities {
		a := s.classifier.Assess(e)
		if a.NeedsAction {
			out = append(out, models.EntityAssessment{Entity: e, Assessment: a})
		}
	}
	sortByTierDesc(out)
	return out
}

// NotifyIfUrgent dispatches a bot message for the hazard if its tier warrants
// auto-escalation. It reports whether a dispatch was attempted; a delivery
// failure is returned but the caller may treat it as non-fatal.
func (s *Service) NotifyIfUrgent(ctx context.Context, entity models.HazardEntity) (bool, error) {
	a := s.classifier.Assess(entity)
	if !a.ShouldTriggerBot {
		return false, nil
	}

	text := fmt.Sprintf("*HAZARD CRITICAL*\n%s\nLocation: %s\nEstimate: %s\n%s",
		entity.Name, entity.Location, entity.Estimate, a.FullDisplayText)
	if err := s.dispatcher.Send(ctx, text, ""); err != nil {
		s.metrics.DispatchFailures.Inc()
		return true, err
	}
	s.metrics.DispatchSuccesses.Inc()
	return true, nil
}

// ListAlerts returns recent alerts for the portal.
func (s *Service) ListAlerts(ctx context.Context, limit int, unreadOnly bool) ([]models.Alert, error) {
	return s.store.ListRecent(ctx, limit, unreadOnly)
}

// MarkRead flips one alert's read flag.
func (s *Service) MarkRead(ctx context.Context, alertID string, isRead bool) error {
	return s.store.SetRead(ctx, alertID, isRead)
}

// MarkReadBatch marks a set of alerts read.
func (s *Service) MarkReadBatch(ctx context.Context, alertIDs []string) error {
	return s.store.SetReadBatch(ctx, alertIDs)
}

// MarkAllRead marks every unread alert read and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	return s.store.MarkAllRead(ctx)
}

func sortByTierDesc(list []models.EntityAssessment) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Assessment.Tier > list[j].Assessment.Tier
	})
}
