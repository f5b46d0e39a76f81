// Package sim is a development stand-in for the vehicles channel server. It
// moves a few vehicles around a loop per route and pushes snapshots.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	mmetrics "skate-feed/internal/metrics"
	"skate-feed/internal/publisher"
	"skate-feed/internal/realtime"
	"skate-feed/internal/vehicles"
)

const lapDuration = 20 * time.Minute

// Publisher is the server side of the channel protocol.
type Publisher interface {
	PublishEvent(topic, event string, payload any) error
	ServeJoins(topic string, snapshot func() any) (publisher.Subscription, error)
}

type Manager struct {
	pub              Publisher
	publishInterval  time.Duration
	vehiclesPerRoute int
	authExpireAfter  time.Duration
	metrics          *mmetrics.Collector
	now              func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	running map[string]context.CancelFunc // routeID -> cancel
	latest  map[string]vehicles.SnapshotData
	wg      conc.WaitGroup
}

func NewManager(pub Publisher, publishInterval time.Duration, vehiclesPerRoute int, authExpireAfter time.Duration, metrics *mmetrics.Collector) *Manager {
	return &Manager{
		pub:              pub,
		publishInterval:  publishInterval,
		vehiclesPerRoute: vehiclesPerRoute,
		authExpireAfter:  authExpireAfter,
		metrics:          metrics,
		now:              time.Now,
		running:          make(map[string]context.CancelFunc),
		latest:           make(map[string]vehicles.SnapshotData),
	}
}

// Start begins publishing for each route and, when configured, schedules
// one auth expiry broadcast.
func (m *Manager) Start(parent context.Context, routes []string) {
	ctx, cancel := context.WithCancel(parent)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	for _, r := range routes {
		m.startRoute(ctx, r)
	}
	if m.authExpireAfter > 0 {
		m.wg.Go(func() { m.expireAuth(ctx) })
	}
}

func (m *Manager) startRoute(parent context.Context, routeID string) {
	m.mu.Lock()
	if _, exists := m.running[routeID]; exists {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.running[routeID] = cancel
	if m.metrics != nil {
		m.metrics.SimRoutes.Set(float64(len(m.running)))
	}
	m.mu.Unlock()

	log.Info().Str("route", routeID).Int("vehicles", m.vehiclesPerRoute).Msg("simulating route")
	m.wg.Go(func() {
		if err := m.runRoute(ctx, routeID); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("route", routeID).Msg("route simulation stopped")
		}
		m.mu.Lock()
		delete(m.running, routeID)
		delete(m.latest, routeID)
		if m.metrics != nil {
			m.metrics.SimRoutes.Set(float64(len(m.running)))
		}
		m.mu.Unlock()
	})
}

func (m *Manager) runRoute(ctx context.Context, routeID string) error {
	topic := realtime.VehiclesTopic(routeID)
	shape := loopShape(routeID)
	cum := cumDistances(shape)
	started := m.now()

	m.publishTick(topic, routeID, shape, cum, started)

	sub, err := m.pub.ServeJoins(topic, func() any { return m.Latest(routeID) })
	if err != nil {
		return fmt.Errorf("serve joins: %w", err)
	}
	defer sub.Unsubscribe()

	tick := time.NewTicker(m.publishInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			m.publishTick(topic, routeID, shape, cum, started)
		}
	}
}

func (m *Manager) publishTick(topic, routeID string, shape []shapePoint, cum []float64, started time.Time) {
	now := m.now()
	snap := buildSnapshot(routeID, shape, cum, m.vehiclesPerRoute, now.Sub(started), now)
	m.mu.Lock()
	m.latest[routeID] = snap
	m.mu.Unlock()
	if err := m.pub.PublishEvent(topic, realtime.EventVehicles, snap); err != nil {
		log.Error().Err(err).Str("route", routeID).Msg("publish vehicles")
	}
}

// Latest returns the last snapshot published for routeID.
func (m *Manager) Latest(routeID string) vehicles.SnapshotData {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.latest[routeID]
	if !ok {
		return vehicles.SnapshotData{Data: []any{}}
	}
	return snap
}

func (m *Manager) expireAuth(ctx context.Context) {
	timer := time.NewTimer(m.authExpireAfter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	m.mu.Lock()
	routes := make([]string, 0, len(m.running))
	for r := range m.running {
		routes = append(routes, r)
	}
	m.mu.Unlock()
	log.Warn().Int("routes", len(routes)).Msg("broadcasting auth expiry")
	for _, r := range routes {
		if err := m.pub.PublishEvent(realtime.VehiclesTopic(r), realtime.EventAuthExpired, nil); err != nil {
			log.Error().Err(err).Str("route", r).Msg("publish auth expiry")
		}
	}
}

// Stop cancels every route and waits for their goroutines.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	for _, cancel := range m.running {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// buildSnapshot places n vehicles evenly around the loop, advanced by
// elapsed, followed by one ghost.
func buildSnapshot(routeID string, shape []shapePoint, cum []float64, n int, elapsed time.Duration, now time.Time) vehicles.SnapshotData {
	data := make([]any, 0, n+1)
	total := 0.0
	if len(cum) > 0 {
		total = cum[len(cum)-1]
	}
	lap := float64(elapsed%lapDuration) / float64(lapDuration)
	token := realtime.SubjectToken(routeID)
	for i := 0; i < n; i++ {
		frac := lap + float64(i)/float64(n)
		if frac >= 1 {
			frac--
		}
		lat, lon, bearing := interpolateShape(shape, cum, frac*total)
		id := fmt.Sprintf("y%s%02d", token, i)
		prev := ""
		if n > 1 {
			prev = fmt.Sprintf("y%s%02d", token, (i+n-1)%n)
		}
		data = append(data, vehicles.VehicleData{
			ID:                    id,
			Label:                 fmt.Sprintf("%s%02d", token, i),
			RunID:                 fmt.Sprintf("123-%04d", 1000+i),
			BlockID:               fmt.Sprintf("%s-%02d", token, i),
			TripID:                fmt.Sprintf("%s-trip-%02d", token, i),
			RouteID:               routeID,
			DirectionID:           i % 2,
			Headsign:              "Loop",
			OperatorID:            fmt.Sprintf("7%04d", i),
			OperatorFirstName:     "SIM",
			OperatorLastName:      fmt.Sprintf("OPERATOR%d", i),
			Latitude:              lat,
			Longitude:             lon,
			Bearing:               bearing,
			Timestamp:             now.Unix(),
			ScheduleAdherenceSecs: i*240 - 120,
			HeadwaySecs:           int(lapDuration.Seconds()) / max(n, 1),
			ScheduledHeadwaySecs:  int(lapDuration.Seconds()) / max(n, 1),
			PreviousVehicleID:     prev,
			TimepointStatus:       &vehicles.TimepointStatusData{TimepointID: "tp" + token, FractionUntilTimepoint: 1 - frac},
			RouteStatus:           string(vehicles.RouteStatusOnRoute),
			IsRevenue:             true,
		})
	}
	data = append(data, vehicles.GhostData{
		ID:                       "ghost-" + token + "-trip",
		RouteID:                  routeID,
		TripID:                   token + "-trip-ghost",
		Headsign:                 "Loop",
		BlockID:                  token + "-ghost",
		RunID:                    "123-9999",
		ScheduledTimepointStatus: vehicles.TimepointStatusData{TimepointID: "tp" + token, FractionUntilTimepoint: 0.5},
		RouteStatus:              string(vehicles.RouteStatusOnRoute),
	})
	return vehicles.SnapshotData{Data: data}
}
