package vehicles

// Wire records as pushed on the vehicles channel. Field names follow the
// server's snake_case JSON.

type StopStatusData struct {
	StopID   string `json:"stop_id"`
	StopName string `json:"stop_name"`
}

type TimepointStatusData struct {
	TimepointID            string  `json:"timepoint_id"`
	FractionUntilTimepoint float64 `json:"fraction_until_timepoint"`
}

type ScheduledLocationData struct {
	RouteID                string              `json:"route_id"`
	DirectionID            int                 `json:"direction_id"`
	TripID                 string              `json:"trip_id"`
	RunID                  string              `json:"run_id"`
	TimeSinceTripStartTime int                 `json:"time_since_trip_start_time"`
	Headsign               string              `json:"headsign"`
	ViaVariant             string              `json:"via_variant"`
	TimepointStatus        TimepointStatusData `json:"timepoint_status"`
}

type BlockWaiverData struct {
	StartTime        int64  `json:"start_time"`
	EndTime          int64  `json:"end_time"`
	CauseID          int    `json:"cause_id"`
	CauseDescription string `json:"cause_description"`
	Remark           string `json:"remark"`
}

type CrowdingData struct {
	Load            int    `json:"load"`
	Capacity        int    `json:"capacity"`
	OccupancyStatus string `json:"occupancy_status"`
}

type VehicleData struct {
	ID                    string                 `json:"id"`
	Label                 string                 `json:"label"`
	RunID                 string                 `json:"run_id"`
	BlockID               string                 `json:"block_id"`
	TripID                string                 `json:"trip_id"`
	RouteID               string                 `json:"route_id"`
	DirectionID           int                    `json:"direction_id"`
	Headsign              string                 `json:"headsign"`
	ViaVariant            string                 `json:"via_variant"`
	OperatorID            string                 `json:"operator_id"`
	OperatorFirstName     string                 `json:"operator_first_name"`
	OperatorLastName      string                 `json:"operator_last_name"`
	OperatorLogonTime     *int64                 `json:"operator_logon_time"`
	Latitude              float64                `json:"latitude"`
	Longitude             float64                `json:"longitude"`
	Bearing               float64                `json:"bearing"`
	Timestamp             int64                  `json:"timestamp"`
	ScheduleAdherenceSecs int                    `json:"schedule_adherence_secs"`
	HeadwaySecs           int                    `json:"headway_secs"`
	ScheduledHeadwaySecs  int                    `json:"scheduled_headway_secs"`
	PreviousVehicleID     string                 `json:"previous_vehicle_id"`
	StopStatus            StopStatusData         `json:"stop_status"`
	TimepointStatus       *TimepointStatusData   `json:"timepoint_status"`
	ScheduledLocation     *ScheduledLocationData `json:"scheduled_location"`
	RouteStatus           string                 `json:"route_status"`
	IsShuttle             bool                   `json:"is_shuttle"`
	IsOverload            bool                   `json:"is_overload"`
	IsOffCourse           bool                   `json:"is_off_course"`
	IsRevenue             bool                   `json:"is_revenue"`
	BlockWaivers          []BlockWaiverData      `json:"block_waivers"`
	Crowding              *CrowdingData          `json:"crowding"`
	EndOfTripType         string                 `json:"end_of_trip_type"`
	LayoverDepartureTime  *int64                 `json:"layover_departure_time"`
}

type GhostData struct {
	ID                       string              `json:"id"`
	DirectionID              int                 `json:"direction_id"`
	RouteID                  string              `json:"route_id"`
	TripID                   string              `json:"trip_id"`
	Headsign                 string              `json:"headsign"`
	BlockID                  string              `json:"block_id"`
	RunID                    string              `json:"run_id"`
	ViaVariant               string              `json:"via_variant"`
	LayoverDepartureTime     *int64              `json:"layover_departure_time"`
	ScheduledTimepointStatus TimepointStatusData `json:"scheduled_timepoint_status"`
	ScheduledLogon           *int64              `json:"scheduled_logon"`
	RouteStatus              string              `json:"route_status"`
	BlockWaivers             []BlockWaiverData   `json:"block_waivers"`
	CurrentPieceFirstRoute   string              `json:"current_piece_first_route"`
	CurrentPieceStartPlace   string              `json:"current_piece_start_place"`
	IncomingTripDirectionID  *int                `json:"incoming_trip_direction_id"`
}

// SnapshotData is the payload of a vehicles event and of a successful join.
type SnapshotData struct {
	Data []any `json:"data"`
}
