package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/classify"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/config"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/db"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/dispatch"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/engine"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/observability"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/threshold"
)

// --- mocks ---

// memStore is an in-memory AlertStore enforcing the same uniqueness the
// database index provides: one alert per (entity, type, day).
type memStore struct {
	mu        sync.Mutex
	alerts    map[string]models.Alert
	order     []string
	appendErr map[string]error // per-entity failures
	seq       int
}

func newMemStore() *memStore {
	return &memStore{alerts: make(map[string]models.Alert), appendErr: make(map[string]error)}
}

func dayKey(entityID string, alertType models.AlertType, day time.Time) string {
	return fmt.Sprintf("%s/%s/%s", entityID, alertType, day.Format("2006-01-02"))
}

func (m *memStore) AppendAlert(_ context.Context, c models.CandidateAlert) (models.Alert, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.appendErr[c.EntityID]; err != nil {
		return models.Alert{}, false, err
	}
	key := dayKey(c.EntityID, c.Type, c.OccurredOn)
	if _, exists := m.alerts[key]; exists {
		return models.Alert{}, false, nil
	}
	m.seq++
	alert := models.Alert{
		ID:         fmt.Sprintf("alert-%d", m.seq),
		Type:       c.Type,
		EntityID:   c.EntityID,
		EntityName: c.EntityName,
		Message:    c.Message,
		Severity:   c.Severity,
		Value:      c.Value,
		OccurredOn: c.OccurredOn,
		CreatedAt:  c.OccurredOn,
	}
	m.alerts[key] = alert
	m.order = append(m.order, key)
	return alert, true, nil
}

func (m *memStore) QueryAlerts(_ context.Context, entityID string, alertType models.AlertType, since time.Time) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for _, a := range m.alerts {
		if a.EntityID == entityID && a.Type == alertType && !a.OccurredOn.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListRecent(_ context.Context, limit int, unreadOnly bool) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		a := m.alerts[m.order[i]]
		if unreadOnly && a.IsRead {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) SetRead(_ context.Context, alertID string, isRead bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, a := range m.alerts {
		if a.ID == alertID {
			a.IsRead = isRead
			m.alerts[key] = a
			return nil
		}
	}
	return fmt.Errorf("no alert found with id %s", alertID)
}

func (m *memStore) SetReadBatch(ctx context.Context, alertIDs []string) error {
	for _, id := range alertIDs {
		if err := m.SetRead(ctx, id, true); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStore) MarkAllRead(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, a := range m.alerts {
		if !a.IsRead {
			a.IsRead = true
			m.alerts[key] = a
			n++
		}
	}
	return n, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

type memConfigStore struct {
	mu      sync.Mutex
	cfg     models.ThresholdConfig
	empty   bool
	saveErr error
	saves   int
}

func (m *memConfigStore) LoadThresholds(context.Context) (models.ThresholdConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.empty {
		return models.ThresholdConfig{}, db.ErrNoThresholds
	}
	return m.cfg, nil
}

func (m *memConfigStore) SaveThresholds(_ context.Context, cfg models.ThresholdConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.cfg = cfg
	m.empty = false
	m.saves++
	return nil
}

type mockGateway struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (g *mockGateway) Send(_ context.Context, text, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sends = append(g.sends, text)
	return nil
}

func (g *mockGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sends)
}

// --- helpers ---

func testConfig() config.Config {
	var cfg config.Config
	cfg.Engine.MaxWorkers = 4
	cfg.Thresholds.LoadPercentage = 80
	cfg.Thresholds.UnbalancePercentage = 20
	return cfg
}

func newService(t *testing.T, store *memStore, cfgStore *memConfigStore, gw dispatch.Gateway) *engine.Service {
	t.Helper()
	logger := logging.NewNop()
	dispatcher := dispatch.New(gw, logger, time.Second, 100)
	classifier := classify.New(nil, classify.Boundaries{}, logger)
	svc, err := engine.New(store, cfgStore, classifier, dispatcher, logger,
		observability.NewMetricsForTesting(), testConfig())
	require.NoError(t, err)
	return svc
}

func overloadedReading() []models.MeasurementRecord {
	return []models.MeasurementRecord{
		{EntityID: "gd-001", EntityName: "GarduA", LoadPercentKVA: 85.5, UnbalancePercent: 10},
	}
}

// --- tests ---

func TestEvaluate_PersistsAndDispatches(t *testing.T) {
	store := newMemStore()
	gw := &mockGateway{}
	svc := newService(t, store, &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, gw)

	alerts, err := svc.Evaluate(context.Background(), overloadedReading())
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	assert.Equal(t, models.AlertTypeLoad, alerts[0].Type)
	assert.Equal(t, "GarduA exceeds 80% kapasitas (85.50%)", alerts[0].Message)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, gw.count())
}

func TestEvaluate_SameDayIsIdempotent(t *testing.T) {
	store := newMemStore()
	gw := &mockGateway{}
	svc := newService(t, store, &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, gw)

	first, err := svc.Evaluate(context.Background(), overloadedReading())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.Evaluate(context.Background(), overloadedReading())
	require.NoError(t, err)
	assert.Empty(t, second)

	assert.Equal(t, 1, store.count(), "same hazard twice in one day must persist once")
	assert.Equal(t, 1, gw.count(), "and dispatch once")
}

func TestEvaluate_NewDayResetsDeduplication(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC))
	threshold.SetClock(fake)
	defer threshold.SetClock(nil)

	store := newMemStore()
	gw := &mockGateway{}
	svc := newService(t, store, &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, gw)

	_, err := svc.Evaluate(context.Background(), overloadedReading())
	require.NoError(t, err)

	fake.Advance(4 * time.Hour) // crosses midnight

	alerts, err := svc.Evaluate(context.Background(), overloadedReading())
	require.NoError(t, err)
	require.Len(t, alerts, 1, "a new calendar day starts a fresh dedup window")
	assert.Equal(t, 2, store.count())
	assert.Equal(t, 2, gw.count())
}

func TestEvaluate_DispatchFailureDoesNotBlockPersistence(t *testing.T) {
	store := newMemStore()
	gw := &mockGateway{err: errors.New("gateway down")}
	svc := newService(t, store, &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, gw)

	alerts, err := svc.Evaluate(context.Background(), overloadedReading())
	require.NoError(t, err)
	require.Len(t, alerts, 1, "the alert must be returned despite the failed dispatch")
	assert.Equal(t, 1, store.count())
}

func TestEvaluate_StoreFailureIsolatedPerCandidate(t *testing.T) {
	store := newMemStore()
	store.appendErr["gd-001"] = errors.New("disk full")
	gw := &mockGateway{}
	svc := newService(t, store, &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, gw)

	alerts, err := svc.Evaluate(context.Background(), []models.MeasurementRecord{
		{EntityID: "gd-001", EntityName: "GarduA", LoadPercentKVA: 95},
		{EntityID: "gd-002", EntityName: "GarduB", LoadPercentKVA: 95},
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "gd-002", alerts[0].EntityID)
}

func TestEvaluate_ConcurrentCyclesPersistOnce(t *testing.T) {
	store := newMemStore()
	gw := &mockGateway{}
	svc := newService(t, store, &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, gw)

	// Two overlapping ticks can both pass the dedup pre-check; the store's
	// day-unique append is what keeps the invariant.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Evaluate(context.Background(), overloadedReading())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, gw.count())
}

func TestUpdateThresholds_PartialMerge(t *testing.T) {
	store := newMemStore()
	cfgStore := &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}
	svc := newService(t, store, cfgStore, &mockGateway{})

	load := 90.0
	updated, err := svc.UpdateThresholds(context.Background(), models.ThresholdUpdate{LoadPercentage: &load})
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.LoadPercentage)
	assert.Equal(t, 20.0, updated.UnbalancePercentage, "unset fields keep their previous value")

	// The 85.5% reading no longer crosses the raised threshold.
	alerts, err := svc.Evaluate(context.Background(), overloadedReading())
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, 0, store.count())
}

func TestUpdateThresholds_FailedSaveKeepsSnapshot(t *testing.T) {
	cfgStore := &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}
	svc := newService(t, newMemStore(), cfgStore, &mockGateway{})

	cfgStore.saveErr = errors.New("store offline")
	load := 90.0
	_, err := svc.UpdateThresholds(context.Background(), models.ThresholdUpdate{LoadPercentage: &load})
	require.Error(t, err)

	assert.Equal(t, 80.0, svc.Thresholds().LoadPercentage, "a failed save must not publish the new config")
}

func TestNew_SeedsEmptyConfigStore(t *testing.T) {
	cfgStore := &memConfigStore{empty: true}
	svc := newService(t, newMemStore(), cfgStore, &mockGateway{})

	assert.Equal(t, 80.0, svc.Thresholds().LoadPercentage)
	assert.Equal(t, 20.0, svc.Thresholds().UnbalancePercentage)
	assert.Equal(t, 1, cfgStore.saves, "bootstrap values are written back to the store")
}

func TestNotifyIfUrgent_CriticalDispatchesOnce(t *testing.T) {
	gw := &mockGateway{}
	svc := newService(t, newMemStore(), &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, gw)

	dispatched, err := svc.NotifyIfUrgent(context.Background(), models.HazardEntity{
		ID:       "hz-1",
		Name:     "Pohon rawan di span GD-012",
		Location: "Penyulang Selong 3",
		Estimate: "<1 day",
	})
	require.NoError(t, err)
	assert.True(t, dispatched)
	require.Equal(t, 1, gw.count())
	assert.Contains(t, gw.sends[0], "Pohon rawan di span GD-012")
}

func TestNotifyIfUrgent_LowerTiersStayInApp(t *testing.T) {
	gw := &mockGateway{}
	svc := newService(t, newMemStore(), &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, gw)

	for _, estimate := range []string{"1-5 days", "5-7 days", "7-30 days", ">30 days"} {
		dispatched, err := svc.NotifyIfUrgent(context.Background(), models.HazardEntity{Estimate: estimate})
		require.NoError(t, err)
		assert.Falsef(t, dispatched, "estimate %q must not auto-escalate", estimate)
	}
	assert.Equal(t, 0, gw.count())
}

func TestNotifyIfUrgent_ReportsGatewayFailure(t *testing.T) {
	gw := &mockGateway{err: errors.New("bot unreachable")}
	svc := newService(t, newMemStore(), &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, gw)

	dispatched, err := svc.NotifyIfUrgent(context.Background(), models.HazardEntity{Estimate: "<1 day"})
	assert.True(t, dispatched)

	var de *dispatch.DispatchError
	require.ErrorAs(t, err, &de)
}

func TestListNeedingAction_FiltersAndSorts(t *testing.T) {
	svc := newService(t, newMemStore(), &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, &mockGateway{})

	entities := []models.HazardEntity{
		{ID: "hz-safe", Estimate: ">30 days"},
		{ID: "hz-attention", Estimate: "5-7 days"},
		{ID: "hz-critical", Estimate: "<1 day"},
		{ID: "hz-monitoring", Estimate: "7-30 days"},
		{ID: "hz-urgent", Estimate: "1-5 days"},
	}

	list := svc.ListNeedingAction(entities)
	require.Len(t, list, 3)
	assert.Equal(t, "hz-critical", list[0].Entity.ID)
	assert.Equal(t, "hz-urgent", list[1].Entity.ID)
	assert.Equal(t, "hz-attention", list[2].Entity.ID)
}

func TestMarkAllRead_OnlyFlipsReadFlag(t *testing.T) {
	store := newMemStore()
	svc := newService(t, store, &memConfigStore{cfg: models.ThresholdConfig{LoadPercentage: 80, UnbalancePercentage: 20}}, &mockGateway{})

	alerts, err := svc.Evaluate(context.Background(), []models.MeasurementRecord{
		{EntityID: "gd-001", EntityName: "GarduA", LoadPercentKVA: 95, UnbalancePercent: 30},
	})
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	before := alerts[0]

	n, err := svc.MarkAllRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	listed, err := svc.ListAlerts(context.Background(), 10, false)
	require.NoError(t, err)
	for _, a := range listed {
		assert.True(t, a.IsRead)
	}
	for _, a := range listed {
		if a.ID == before.ID {
			assert.Equal(t, before.Message, a.Message)
			assert.Equal(t, before.Value, a.Value)
			assert.Equal(t, before.CreatedAt, a.CreatedAt)
		}
	}

	unread, err := svc.ListAlerts(context.Background(), 10, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
