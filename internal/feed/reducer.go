// Package feed keeps one realtime channel per selected route and folds the
// snapshots they push into a per-route list of vehicles and ghosts.
package feed

import (
	"maps"

	"skate-feed/internal/realtime"
	"skate-feed/internal/vehicles"
)

type RouteID = vehicles.RouteID

// State is the reducer state. Values returned by Reduce share nothing
// mutable with their input.
type State struct {
	ChannelsByRoute map[RouteID]realtime.Channel
	VehiclesByRoute map[RouteID][]vehicles.VehicleOrGhost
}

func InitialState() State {
	return State{
		ChannelsByRoute: map[RouteID]realtime.Channel{},
		VehiclesByRoute: map[RouteID][]vehicles.VehicleOrGhost{},
	}
}

type Action interface{ isAction() }

type SetChannelForRoute struct {
	RouteID RouteID
	Channel realtime.Channel
}

type SetVehiclesForRoute struct {
	RouteID  RouteID
	Vehicles []vehicles.VehicleOrGhost
}

type RemoveRoute struct {
	RouteID RouteID
}

func (SetChannelForRoute) isAction()  {}
func (SetVehiclesForRoute) isAction() {}
func (RemoveRoute) isAction()         {}

// Reduce applies a to s and returns the resulting state.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetChannelForRoute:
		channels := maps.Clone(s.ChannelsByRoute)
		if channels == nil {
			channels = map[RouteID]realtime.Channel{}
		}
		channels[a.RouteID] = a.Channel
		return State{ChannelsByRoute: channels, VehiclesByRoute: s.VehiclesByRoute}

	case SetVehiclesForRoute:
		byRoute := maps.Clone(s.VehiclesByRoute)
		if byRoute == nil {
			byRoute = map[RouteID][]vehicles.VehicleOrGhost{}
		}
		byRoute[a.RouteID] = a.Vehicles
		return State{ChannelsByRoute: s.ChannelsByRoute, VehiclesByRoute: byRoute}

	case RemoveRoute:
		_, hasChannel := s.ChannelsByRoute[a.RouteID]
		_, hasVehicles := s.VehiclesByRoute[a.RouteID]
		if !hasChannel && !hasVehicles {
			return s
		}
		channels := maps.Clone(s.ChannelsByRoute)
		delete(channels, a.RouteID)
		byRoute := maps.Clone(s.VehiclesByRoute)
		delete(byRoute, a.RouteID)
		return State{ChannelsByRoute: channels, VehiclesByRoute: byRoute}
	}
	return s
}
