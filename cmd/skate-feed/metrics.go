package main

import (
	"time"

	"skate-feed/internal/db"
	"skate-feed/internal/feed"
	"skate-feed/internal/metrics"
	"skate-feed/internal/publisher"
	"skate-feed/internal/realtime"
)

// The adapters below map component metric hooks onto the shared Collector.
// A nil collector yields nil hooks, which the components treat as disabled.

func wrapFeedMetrics(c *metrics.Collector) feed.Metrics {
	if c == nil {
		return nil
	}
	return &feedMetrics{c: c}
}

type feedMetrics struct{ c *metrics.Collector }

func (f *feedMetrics) RoutesSubscribed(n int) { f.c.RoutesSubscribed.Set(float64(n)) }
func (f *feedMetrics) ChannelJoined(status realtime.JoinStatus) {
	f.c.ChannelJoins.WithLabelValues(string(status)).Inc()
}
func (f *feedMetrics) ChannelLeft()      { f.c.ChannelLeaves.Inc() }
func (f *feedMetrics) SnapshotRejected() { f.c.SnapshotsRejected.Inc() }
func (f *feedMetrics) ReloadRequested(reason string) {
	f.c.Reloads.WithLabelValues(reason).Inc()
}
func (f *feedMetrics) SnapshotApplied(nVehicles, nGhosts int) {
	f.c.SnapshotsApplied.Inc()
	f.c.VehiclesReceived.Add(float64(nVehicles))
	f.c.GhostsReceived.Add(float64(nGhosts))
}

func wrapSocketMetrics(c *metrics.Collector) realtime.SocketMetrics {
	if c == nil {
		return nil
	}
	return &socketMetrics{c: c}
}

type socketMetrics struct{ c *metrics.Collector }

func (s *socketMetrics) SocketSetConnected(b bool) { s.c.SocketConnected.Set(boolGauge(b)) }

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.Published.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.PublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool)        { p.c.SocketConnected.Set(boolGauge(b)) }
func (p *pubMetrics) JoinServedInc()                 { p.c.JoinsServed.Inc() }

func wrapArchiveMetrics(c *metrics.Collector) db.ArchiveMetrics {
	if c == nil {
		return nil
	}
	return &archiveMetrics{c: c}
}

type archiveMetrics struct{ c *metrics.Collector }

func (a *archiveMetrics) ArchiveInsertedInc()            { a.c.ArchiveInserted.Inc() }
func (a *archiveMetrics) ArchiveDroppedInc()             { a.c.ArchiveDropped.Inc() }
func (a *archiveMetrics) ArchiveErrInc()                 { a.c.ArchiveErrs.Inc() }
func (a *archiveMetrics) ArchiveObserve(d time.Duration) { a.c.ArchiveDuration.Observe(d.Seconds()) }

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
