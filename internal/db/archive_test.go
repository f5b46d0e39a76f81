package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skate-feed/internal/vehicles"
)

type countingMetrics struct {
	inserted, dropped, errs int
}

func (m *countingMetrics) ArchiveInsertedInc()          { m.inserted++ }
func (m *countingMetrics) ArchiveDroppedInc()           { m.dropped++ }
func (m *countingMetrics) ArchiveErrInc()               { m.errs++ }
func (m *countingMetrics) ArchiveObserve(time.Duration) {}

func TestArchivePayload(t *testing.T) {
	list := []vehicles.VehicleOrGhost{
		&vehicles.Vehicle{VehicleID: "y1261", RouteID: "28", Label: "1261"},
		&vehicles.Ghost{GhostID: "ghost-trip", RouteID: "28"},
	}

	b, err := archivePayload(list)
	require.NoError(t, err)

	var items []struct {
		Kind   string         `json:"kind"`
		Record map[string]any `json:"record"`
	}
	require.NoError(t, json.Unmarshal(b, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "vehicle", items[0].Kind)
	assert.Equal(t, "y1261", items[0].Record["VehicleID"])
	assert.Equal(t, "ghost", items[1].Kind)
	assert.Equal(t, "ghost-trip", items[1].Record["GhostID"])
}

func TestArchiverDropsWhenFull(t *testing.T) {
	m := &countingMetrics{}
	a := NewArchiver(nil, 1, m)

	assert.True(t, a.Record("28", nil))
	assert.False(t, a.Record("28", nil))
	assert.Equal(t, 1, m.dropped)
}

func TestArchiverRejectsAfterStop(t *testing.T) {
	a := NewArchiver(nil, 4, nil)
	a.Stop()
	a.Stop()

	assert.False(t, a.Record("28", nil))
}
