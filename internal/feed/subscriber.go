package feed

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"skate-feed/internal/realtime"
	"skate-feed/internal/reload"
	"skate-feed/internal/vehicles"
)

// Metrics receives subscriber events. All methods must be cheap; they are
// called with the dispatch lock held.
type Metrics interface {
	RoutesSubscribed(n int)
	ChannelJoined(status realtime.JoinStatus)
	ChannelLeft()
	SnapshotApplied(nVehicles, nGhosts int)
	SnapshotRejected()
	ReloadRequested(reason string)
}

// SnapshotFunc is notified after a snapshot replaced a route's list.
type SnapshotFunc func(routeID RouteID, list []vehicles.VehicleOrGhost)

type Option func(*Subscriber)

func WithReloader(r reload.Reloader) Option {
	return func(s *Subscriber) { s.reloader = r }
}

func WithMetrics(m Metrics) Option {
	return func(s *Subscriber) { s.metrics = m }
}

func WithOnSnapshot(f SnapshotFunc) Option {
	return func(s *Subscriber) { s.onSnapshot = f }
}

// Subscriber keeps the set of open channels equal to the selected routes
// and exposes the latest snapshot per route.
type Subscriber struct {
	socket     realtime.Socket
	reloader   reload.Reloader
	metrics    Metrics
	onSnapshot SnapshotFunc

	mu    sync.Mutex
	state State
}

func NewSubscriber(socket realtime.Socket, opts ...Option) *Subscriber {
	s := &Subscriber{
		socket: socket,
		state:  InitialState(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// dispatch must be called with mu held.
func (s *Subscriber) dispatch(a Action) {
	s.state = Reduce(s.state, a)
}

// Reconcile leaves channels for routes no longer in selected, then opens
// channels for newly selected routes. Routes that stay selected keep their
// channel.
func (s *Subscriber) Reconcile(selected []RouteID) {
	want := make(map[RouteID]struct{}, len(selected))
	for _, id := range selected {
		want[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedKeys(s.state.ChannelsByRoute) {
		if _, keep := want[id]; keep {
			continue
		}
		s.state.ChannelsByRoute[id].Leave()
		s.dispatch(RemoveRoute{RouteID: id})
		if s.metrics != nil {
			s.metrics.ChannelLeft()
		}
		log.Debug().Str("route", string(id)).Msg("left route channel")
	}

	seen := make(map[RouteID]struct{}, len(selected))
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := s.state.ChannelsByRoute[id]; ok {
			continue
		}
		s.subscribe(id)
	}

	if s.metrics != nil {
		s.metrics.RoutesSubscribed(len(s.state.ChannelsByRoute))
	}
}

// subscribe must be called with mu held.
func (s *Subscriber) subscribe(id RouteID) {
	ch := s.socket.Channel(realtime.VehiclesTopic(string(id)))
	ch.On(realtime.EventVehicles, func(payload json.RawMessage) {
		s.handleSnapshot(id, ch, payload)
	})
	ch.On(realtime.EventAuthExpired, func(json.RawMessage) {
		s.requestReload("auth_expired", id, ch)
	})
	s.dispatch(SetChannelForRoute{RouteID: id, Channel: ch})
	ch.Join(func(r realtime.JoinReply) {
		s.handleJoin(id, ch, r)
	})
	log.Debug().Str("route", string(id)).Str("topic", ch.Topic()).Msg("joining route channel")
}

// current reports whether ch is still the channel for id. Events from a
// channel that was left may still arrive and are dropped. mu must be held.
func (s *Subscriber) current(id RouteID, ch realtime.Channel) bool {
	return s.state.ChannelsByRoute[id] == ch
}

func (s *Subscriber) handleJoin(id RouteID, ch realtime.Channel, r realtime.JoinReply) {
	s.mu.Lock()
	if !s.current(id, ch) {
		s.mu.Unlock()
		return
	}
	if s.metrics != nil {
		s.metrics.ChannelJoined(r.Status)
	}
	s.mu.Unlock()

	switch r.Status {
	case realtime.JoinOK:
		s.handleSnapshot(id, ch, r.Payload)
	case realtime.JoinTimeout:
		s.requestReload("join_timeout", id, ch)
	default:
		log.Error().Str("route", string(id)).Str("reason", r.Reason).Msg("failed to join route channel")
	}
}

func (s *Subscriber) handleSnapshot(id RouteID, ch realtime.Channel, payload json.RawMessage) {
	list, err := vehicles.DecodeSnapshot(payload)

	s.mu.Lock()
	if !s.current(id, ch) {
		s.mu.Unlock()
		return
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.SnapshotRejected()
		}
		s.mu.Unlock()
		log.Error().Err(err).Str("route", string(id)).Msg("discarding vehicles snapshot")
		return
	}
	s.dispatch(SetVehiclesForRoute{RouteID: id, Vehicles: list})
	if s.metrics != nil {
		s.metrics.SnapshotApplied(vehicles.Count(list))
	}
	onSnapshot := s.onSnapshot
	s.mu.Unlock()

	if onSnapshot != nil {
		onSnapshot(id, slices.Clone(list))
	}
}

func (s *Subscriber) requestReload(reason string, id RouteID, ch realtime.Channel) {
	s.mu.Lock()
	if !s.current(id, ch) {
		s.mu.Unlock()
		log.Debug().Str("route", string(id)).Str("reason", reason).Msg("ignoring reload from left channel")
		return
	}
	if s.metrics != nil {
		s.metrics.ReloadRequested(reason)
	}
	s.mu.Unlock()

	log.Warn().Str("route", string(id)).Str("reason", reason).Msg("reloading feed")
	if s.reloader != nil {
		s.reloader.Reload(false)
	}
}

// VehiclesByRoute returns a copy of the latest list per route.
func (s *Subscriber) VehiclesByRoute() map[RouteID][]vehicles.VehicleOrGhost {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[RouteID][]vehicles.VehicleOrGhost, len(s.state.VehiclesByRoute))
	for id, list := range s.state.VehiclesByRoute {
		out[id] = slices.Clone(list)
	}
	return out
}

// VehiclesForRoute returns the latest list for id and whether a snapshot
// has been received for it.
func (s *Subscriber) VehiclesForRoute(id RouteID) ([]vehicles.VehicleOrGhost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.state.VehiclesByRoute[id]
	return slices.Clone(list), ok
}

// SubscribedRoutes returns the routes with an open channel, sorted.
func (s *Subscriber) SubscribedRoutes() []RouteID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.state.ChannelsByRoute)
}

// Close leaves every channel.
func (s *Subscriber) Close() {
	s.Reconcile(nil)
}

func sortedKeys[V any](m map[RouteID]V) []RouteID {
	return slices.Sorted(maps.Keys(m))
}
