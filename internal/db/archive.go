package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"skate-feed/internal/vehicles"
)

type ArchiveMetrics interface {
	ArchiveInsertedInc()
	ArchiveDroppedInc()
	ArchiveErrInc()
	ArchiveObserve(d time.Duration)
}

type snapshotRecord struct {
	routeID    vehicles.RouteID
	receivedAt time.Time
	list       []vehicles.VehicleOrGhost
}

// Archiver writes received snapshots to Postgres from a single worker so
// that the feed never waits on the database.
type Archiver struct {
	db      *sql.DB
	metrics ArchiveMetrics
	now     func() time.Time

	mu     sync.Mutex
	queue  chan snapshotRecord
	closed bool
	wg     sync.WaitGroup
}

func NewArchiver(db *sql.DB, queueSize int, m ArchiveMetrics) *Archiver {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Archiver{
		db:      db,
		metrics: m,
		now:     time.Now,
		queue:   make(chan snapshotRecord, queueSize),
	}
}

// Start launches the insert worker. It runs until Stop drains the queue.
func (a *Archiver) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for rec := range a.queue {
			start := time.Now()
			err := a.insert(ctx, rec)
			if a.metrics != nil {
				a.metrics.ArchiveObserve(time.Since(start))
				if err != nil {
					a.metrics.ArchiveErrInc()
				} else {
					a.metrics.ArchiveInsertedInc()
				}
			}
			if err != nil {
				log.Error().Err(err).Str("route", string(rec.routeID)).Msg("archive snapshot")
			}
		}
	}()
}

// Record queues a snapshot. It reports false when the snapshot was dropped
// because the queue is full or the archiver is stopped.
func (a *Archiver) Record(routeID vehicles.RouteID, list []vehicles.VehicleOrGhost) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	select {
	case a.queue <- snapshotRecord{routeID: routeID, receivedAt: a.now(), list: list}:
		return true
	default:
		if a.metrics != nil {
			a.metrics.ArchiveDroppedInc()
		}
		return false
	}
}

// Stop stops accepting snapshots and waits for queued ones to be written.
func (a *Archiver) Stop() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Archiver) insert(ctx context.Context, rec snapshotRecord) error {
	payload, err := archivePayload(rec.list)
	if err != nil {
		return err
	}
	nVehicles, nGhosts := vehicles.Count(rec.list)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO vehicle_snapshots (route_id, received_at, vehicle_count, ghost_count, payload)
         VALUES ($1, $2, $3, $4, $5)`,
		string(rec.routeID), rec.receivedAt, nVehicles, nGhosts, payload)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

type archivedItem struct {
	Kind   string `json:"kind"`
	Record any    `json:"record"`
}

func archivePayload(list []vehicles.VehicleOrGhost) ([]byte, error) {
	items := make([]archivedItem, 0, len(list))
	for _, vg := range list {
		switch vg.(type) {
		case *vehicles.Ghost:
			items = append(items, archivedItem{Kind: "ghost", Record: vg})
		default:
			items = append(items, archivedItem{Kind: "vehicle", Record: vg})
		}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return b, nil
}
