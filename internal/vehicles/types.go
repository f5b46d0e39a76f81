package vehicles

import "time"

// RouteID identifies a transit route. Compared by value.
type RouteID string

// VehicleOrGhost is either a *Vehicle or a *Ghost.
type VehicleOrGhost interface {
	ID() string
	Route() RouteID
	isVehicleOrGhost()
}

type AdherenceStatus string

const (
	OnTime AdherenceStatus = "on-time"
	Early  AdherenceStatus = "early"
	Late   AdherenceStatus = "late"
)

const (
	earlyThresholdSecs = -60
	lateThresholdSecs  = 360
)

type RouteStatus string

const (
	RouteStatusOnRoute    RouteStatus = "on_route"
	RouteStatusLayingOver RouteStatus = "laying_over"
	RouteStatusPulling    RouteStatus = "pulling_out"
)

type StopStatus struct {
	StopID   string
	StopName string
}

type TimepointStatus struct {
	TimepointID            string
	FractionUntilTimepoint float64
}

type ScheduledLocation struct {
	RouteID                RouteID
	DirectionID            int
	TripID                 string
	RunID                  string
	TimeSinceTripStartTime int
	Headsign               string
	ViaVariant             string
	TimepointStatus        TimepointStatus
}

type BlockWaiver struct {
	StartTime        time.Time
	EndTime          time.Time
	CauseID          int
	CauseDescription string
	Remark           string
}

type Crowding struct {
	Load            int
	Capacity        int
	OccupancyStatus string
}

type Operator struct {
	ID        string
	FirstName string
	LastName  string
	LogonTime time.Time
}

// Vehicle is an actively reporting vehicle.
type Vehicle struct {
	VehicleID             string
	Label                 string
	RunID                 string
	BlockID               string
	TripID                string
	RouteID               RouteID
	DirectionID           int
	Headsign              string
	ViaVariant            string
	Operator              Operator
	Latitude              float64
	Longitude             float64
	Bearing               float64
	Timestamp             time.Time
	ScheduleAdherenceSecs int
	HeadwaySecs           int
	ScheduledHeadwaySecs  int
	PreviousVehicleID     string
	StopStatus            StopStatus
	TimepointStatus       *TimepointStatus
	ScheduledLocation     *ScheduledLocation
	RouteStatus           RouteStatus
	IsShuttle             bool
	IsOverload            bool
	IsOffCourse           bool
	IsRevenue             bool
	BlockWaivers          []BlockWaiver
	Crowding              *Crowding
	EndOfTripType         string
	LayoverDepartureTime  *time.Time
}

func (v *Vehicle) ID() string        { return v.VehicleID }
func (v *Vehicle) Route() RouteID    { return v.RouteID }
func (v *Vehicle) isVehicleOrGhost() {}

// Adherence classifies ScheduleAdherenceSecs; positive values are late.
func (v *Vehicle) Adherence() AdherenceStatus {
	switch {
	case v.ScheduleAdherenceSecs < earlyThresholdSecs:
		return Early
	case v.ScheduleAdherenceSecs > lateThresholdSecs:
		return Late
	default:
		return OnTime
	}
}

// Ghost is a placeholder for a scheduled vehicle that is not reporting.
type Ghost struct {
	GhostID                  string
	DirectionID              int
	RouteID                  RouteID
	TripID                   string
	Headsign                 string
	BlockID                  string
	RunID                    string
	ViaVariant               string
	LayoverDepartureTime     *time.Time
	ScheduledTimepointStatus TimepointStatus
	ScheduledLogon           *time.Time
	RouteStatus              RouteStatus
	BlockWaivers             []BlockWaiver
	CurrentPieceFirstRoute   RouteID
	CurrentPieceStartPlace   string
	IncomingTripDirectionID  *int
}

func (g *Ghost) ID() string        { return g.GhostID }
func (g *Ghost) Route() RouteID    { return g.RouteID }
func (g *Ghost) isVehicleOrGhost() {}

// Count returns the number of vehicles and ghosts in list.
func Count(list []VehicleOrGhost) (nVehicles, nGhosts int) {
	for _, vg := range list {
		switch vg.(type) {
		case *Vehicle:
			nVehicles++
		case *Ghost:
			nGhosts++
		}
	}
	return nVehicles, nGhosts
}
