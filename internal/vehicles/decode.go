package vehicles

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GhostIDPrefix marks wire records that describe ghosts.
const GhostIDPrefix = "ghost-"

// ErrMalformedSnapshot is returned when a snapshot payload cannot be decoded.
var ErrMalformedSnapshot = errors.New("malformed vehicles snapshot")

type idProbe struct {
	ID *string `json:"id"`
}

// DecodeSnapshot decodes a {"data": [...]} payload. Decoding is all or
// nothing: one bad record fails the whole snapshot. A payload without a
// data key is malformed; {"data": null} is an empty snapshot.
func DecodeSnapshot(payload json.RawMessage) ([]VehicleOrGhost, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedSnapshot)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if env == nil {
		return nil, fmt.Errorf("%w: null payload", ErrMalformedSnapshot)
	}
	data, ok := env["data"]
	if !ok {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedSnapshot)
	}
	return Decode(data)
}

// Decode maps a JSON array of wire records to domain objects, preserving
// order and length.
func Decode(raw json.RawMessage) ([]VehicleOrGhost, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return decodeRecords(records)
}

func decodeRecords(records []json.RawMessage) ([]VehicleOrGhost, error) {
	out := make([]VehicleOrGhost, 0, len(records))
	for i, rec := range records {
		vg, err := decodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedSnapshot, i, err)
		}
		out = append(out, vg)
	}
	return out, nil
}

func decodeRecord(rec json.RawMessage) (VehicleOrGhost, error) {
	var probe idProbe
	if err := json.Unmarshal(rec, &probe); err != nil {
		return nil, err
	}
	if probe.ID == nil || *probe.ID == "" {
		return nil, errors.New("missing id")
	}
	if strings.HasPrefix(*probe.ID, GhostIDPrefix) {
		var gd GhostData
		if err := json.Unmarshal(rec, &gd); err != nil {
			return nil, err
		}
		return GhostFromData(gd), nil
	}
	var vd VehicleData
	if err := json.Unmarshal(rec, &vd); err != nil {
		return nil, err
	}
	return VehicleFromData(vd), nil
}

func VehicleFromData(d VehicleData) *Vehicle {
	v := &Vehicle{
		VehicleID:   d.ID,
		Label:       d.Label,
		RunID:       d.RunID,
		BlockID:     d.BlockID,
		TripID:      d.TripID,
		RouteID:     RouteID(d.RouteID),
		DirectionID: d.DirectionID,
		Headsign:    d.Headsign,
		ViaVariant:  d.ViaVariant,
		Operator: Operator{
			ID:        d.OperatorID,
			FirstName: d.OperatorFirstName,
			LastName:  d.OperatorLastName,
		},
		Latitude:              d.Latitude,
		Longitude:             d.Longitude,
		Bearing:               d.Bearing,
		Timestamp:             time.Unix(d.Timestamp, 0).UTC(),
		ScheduleAdherenceSecs: d.ScheduleAdherenceSecs,
		HeadwaySecs:           d.HeadwaySecs,
		ScheduledHeadwaySecs:  d.ScheduledHeadwaySecs,
		PreviousVehicleID:     d.PreviousVehicleID,
		StopStatus:            StopStatus{StopID: d.StopStatus.StopID, StopName: d.StopStatus.StopName},
		RouteStatus:           RouteStatus(d.RouteStatus),
		IsShuttle:             d.IsShuttle,
		IsOverload:            d.IsOverload,
		IsOffCourse:           d.IsOffCourse,
		IsRevenue:             d.IsRevenue,
		BlockWaivers:          blockWaiversFromData(d.BlockWaivers),
		EndOfTripType:         d.EndOfTripType,
		LayoverDepartureTime:  unixPtr(d.LayoverDepartureTime),
	}
	if d.OperatorLogonTime != nil {
		v.Operator.LogonTime = time.Unix(*d.OperatorLogonTime, 0).UTC()
	}
	if d.TimepointStatus != nil {
		ts := timepointStatusFromData(*d.TimepointStatus)
		v.TimepointStatus = &ts
	}
	if d.ScheduledLocation != nil {
		sl := d.ScheduledLocation
		v.ScheduledLocation = &ScheduledLocation{
			RouteID:                RouteID(sl.RouteID),
			DirectionID:            sl.DirectionID,
			TripID:                 sl.TripID,
			RunID:                  sl.RunID,
			TimeSinceTripStartTime: sl.TimeSinceTripStartTime,
			Headsign:               sl.Headsign,
			ViaVariant:             sl.ViaVariant,
			TimepointStatus:        timepointStatusFromData(sl.TimepointStatus),
		}
	}
	if d.Crowding != nil {
		v.Crowding = &Crowding{
			Load:            d.Crowding.Load,
			Capacity:        d.Crowding.Capacity,
			OccupancyStatus: d.Crowding.OccupancyStatus,
		}
	}
	return v
}

func GhostFromData(d GhostData) *Ghost {
	return &Ghost{
		GhostID:                  d.ID,
		DirectionID:              d.DirectionID,
		RouteID:                  RouteID(d.RouteID),
		TripID:                   d.TripID,
		Headsign:                 d.Headsign,
		BlockID:                  d.BlockID,
		RunID:                    d.RunID,
		ViaVariant:               d.ViaVariant,
		LayoverDepartureTime:     unixPtr(d.LayoverDepartureTime),
		ScheduledTimepointStatus: timepointStatusFromData(d.ScheduledTimepointStatus),
		ScheduledLogon:           unixPtr(d.ScheduledLogon),
		RouteStatus:              RouteStatus(d.RouteStatus),
		BlockWaivers:             blockWaiversFromData(d.BlockWaivers),
		CurrentPieceFirstRoute:   RouteID(d.CurrentPieceFirstRoute),
		CurrentPieceStartPlace:   d.CurrentPieceStartPlace,
		IncomingTripDirectionID:  d.IncomingTripDirectionID,
	}
}

func timepointStatusFromData(d TimepointStatusData) TimepointStatus {
	return TimepointStatus{
		TimepointID:            d.TimepointID,
		FractionUntilTimepoint: d.FractionUntilTimepoint,
	}
}

func blockWaiversFromData(ds []BlockWaiverData) []BlockWaiver {
	if len(ds) == 0 {
		return nil
	}
	out := make([]BlockWaiver, len(ds))
	for i, d := range ds {
		out[i] = BlockWaiver{
			StartTime:        time.Unix(d.StartTime, 0).UTC(),
			EndTime:          time.Unix(d.EndTime, 0).UTC(),
			CauseID:          d.CauseID,
			CauseDescription: d.CauseDescription,
			Remark:           d.Remark,
		}
	}
	return out
}

func unixPtr(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}
