package vehicles

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vehicleJSON = `{
	"id": "y1261",
	"label": "1261",
	"run_id": "123-1038",
	"block_id": "A505-106",
	"trip_id": "39984755",
	"route_id": "28",
	"direction_id": 1,
	"headsign": "Mattapan",
	"via_variant": "X",
	"operator_id": "72032",
	"operator_first_name": "PATTI",
	"operator_last_name": "SMITH",
	"operator_logon_time": 1534340301,
	"latitude": 42.31777347,
	"longitude": -71.08206019,
	"bearing": 33,
	"timestamp": 1534340406,
	"schedule_adherence_secs": 400,
	"stop_status": {"stop_id": "s1", "stop_name": "Stop Name"},
	"timepoint_status": {"timepoint_id": "tp1", "fraction_until_timepoint": 0.5},
	"route_status": "on_route",
	"is_shuttle": false,
	"is_revenue": true,
	"block_waivers": [{"start_time": 10, "end_time": 20, "cause_id": 23, "cause_description": "B - Manpower", "remark": "E:1106"}],
	"crowding": {"load": 14, "capacity": 36, "occupancy_status": "some_crowding"}
}`

const ghostJSON = `{
	"id": "ghost-trip",
	"direction_id": 0,
	"route_id": "28",
	"trip_id": "trip",
	"headsign": "headsign",
	"block_id": "block",
	"run_id": "123-0123",
	"scheduled_timepoint_status": {"timepoint_id": "t0", "fraction_until_timepoint": 0.0},
	"route_status": "on_route",
	"incoming_trip_direction_id": 1
}`

func TestDecodeSnapshotPreservesOrderAndKind(t *testing.T) {
	payload := json.RawMessage(`{"data": [` + ghostJSON + `,` + vehicleJSON + `]}`)

	list, err := DecodeSnapshot(payload)
	require.NoError(t, err)
	require.Len(t, list, 2)

	ghost, ok := list[0].(*Ghost)
	require.True(t, ok, "first record should be a ghost")
	assert.Equal(t, "ghost-trip", ghost.ID())
	assert.Equal(t, RouteID("28"), ghost.Route())
	assert.Equal(t, "t0", ghost.ScheduledTimepointStatus.TimepointID)
	require.NotNil(t, ghost.IncomingTripDirectionID)
	assert.Equal(t, 1, *ghost.IncomingTripDirectionID)

	vehicle, ok := list[1].(*Vehicle)
	require.True(t, ok, "second record should be a vehicle")
	assert.Equal(t, "y1261", vehicle.ID())
	assert.Equal(t, "PATTI", vehicle.Operator.FirstName)
	assert.Equal(t, time.Unix(1534340301, 0).UTC(), vehicle.Operator.LogonTime)
	assert.Equal(t, time.Unix(1534340406, 0).UTC(), vehicle.Timestamp)
	assert.Equal(t, Late, vehicle.Adherence())
	require.NotNil(t, vehicle.TimepointStatus)
	assert.InDelta(t, 0.5, vehicle.TimepointStatus.FractionUntilTimepoint, 1e-9)
	require.Len(t, vehicle.BlockWaivers, 1)
	assert.Equal(t, "E:1106", vehicle.BlockWaivers[0].Remark)
	require.NotNil(t, vehicle.Crowding)
	assert.Equal(t, 36, vehicle.Crowding.Capacity)

	nv, ng := Count(list)
	assert.Equal(t, 1, nv)
	assert.Equal(t, 1, ng)
}

func TestDecodeSnapshotNullData(t *testing.T) {
	list, err := DecodeSnapshot(json.RawMessage(`{"data": null}`))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDecodeSnapshotMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"null":           `null`,
		"no data key":    `{"vehicles": []}`,
		"not an object":  `[]`,
		"not json":       `{"data": [`,
		"data not array": `{"data": 7}`,
		"missing id":     `{"data": [{"label": "1261"}]}`,
		"bad field type": `{"data": [{"id": "y1", "latitude": "north"}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			list, err := DecodeSnapshot(json.RawMessage(payload))
			assert.ErrorIs(t, err, ErrMalformedSnapshot)
			assert.Nil(t, list)
		})
	}
}

func TestDecodeArray(t *testing.T) {
	list, err := Decode(json.RawMessage(`[` + vehicleJSON + `]`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "y1261", list[0].ID())
}

func TestAdherence(t *testing.T) {
	assert.Equal(t, Early, (&Vehicle{ScheduleAdherenceSecs: -61}).Adherence())
	assert.Equal(t, OnTime, (&Vehicle{ScheduleAdherenceSecs: -60}).Adherence())
	assert.Equal(t, OnTime, (&Vehicle{ScheduleAdherenceSecs: 360}).Adherence())
	assert.Equal(t, Late, (&Vehicle{ScheduleAdherenceSecs: 361}).Adherence())
}
