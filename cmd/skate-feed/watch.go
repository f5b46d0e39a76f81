package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"skate-feed/internal/config"
	"skate-feed/internal/db"
	"skate-feed/internal/feed"
	"skate-feed/internal/metrics"
	"skate-feed/internal/realtime"
	"skate-feed/internal/reload"
	"skate-feed/internal/vehicles"
)

const archiveQueueSize = 256

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Subscribe to the vehicles channels of the selected routes",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "route",
				Usage: "route to watch, overrides SKATE_ROUTES",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if routes := c.StringSlice("route"); len(routes) > 0 {
				cfg.Routes = routes
			}

			ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			mcol, stopMetrics := startMetrics(cfg)
			defer stopMetrics()

			var archiver *db.Archiver
			if cfg.DatabaseURL != "" {
				sqlDB, err := db.Open(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer sqlDB.Close()
				if err := db.Ping(ctx, sqlDB); err != nil {
					return err
				}
				if err := db.EnsureSchema(ctx, sqlDB); err != nil {
					return err
				}
				// Background so queued snapshots still land after SIGINT.
				archiver = db.NewArchiver(sqlDB, archiveQueueSize, wrapArchiveMetrics(mcol))
				archiver.Start(context.Background())
				defer archiver.Stop()
				log.Info().Msg("archiving snapshots")
			}

			return watch(ctx, cfg, mcol, archiver)
		},
	}
}

// watch runs subscribers until ctx is done. A reload request replaces the
// subscriber; a forced one also redials the socket.
func watch(ctx context.Context, cfg *config.Config, mcol *metrics.Collector, archiver *db.Archiver) error {
	socket, err := realtime.DialNATS(cfg.NATSURL, cfg.JoinTimeout, cfg.LogNATSSubjects, wrapSocketMetrics(mcol))
	if err != nil {
		return err
	}
	defer func() { socket.Close() }()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	reloads := reload.NewSignal()
	onSnapshot := func(routeID vehicles.RouteID, list []vehicles.VehicleOrGhost) {
		nVehicles, nGhosts := vehicles.Count(list)
		log.Debug().Str("route", string(routeID)).Int("vehicles", nVehicles).Int("ghosts", nGhosts).Msg("snapshot")
		if archiver != nil {
			archiver.Record(routeID, list)
		}
	}

	routes := cfg.Routes
	for {
		sub := feed.NewSubscriber(socket,
			feed.WithReloader(reloads),
			feed.WithMetrics(wrapFeedMetrics(mcol)),
			feed.WithOnSnapshot(onSnapshot),
		)
		sub.Reconcile(routeIDs(routes))
		log.Info().Strs("routes", routes).Msg("watching routes")

		forced, done := supervise(ctx, sub, hup, reloads, &routes)
		sub.Close()
		if done {
			return nil
		}
		// Requests raised by the old subscriber before Close belong to this
		// reload; the next generation starts with an empty signal.
		forced = drainReloads(reloads) || forced

		if forced {
			socket.Close()
			for {
				next, err := realtime.DialNATS(cfg.NATSURL, cfg.JoinTimeout, cfg.LogNATSSubjects, wrapSocketMetrics(mcol))
				if err == nil {
					socket = next
					break
				}
				log.Error().Err(err).Msg("redial nats")
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// supervise blocks until ctx is done (done) or a reload is requested.
func supervise(ctx context.Context, sub *feed.Subscriber, hup <-chan os.Signal, reloads *reload.Signal, routes *[]string) (forced, done bool) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, true
		case forced := <-reloads.C():
			log.Info().Bool("forced", forced).Msg("reloading feed")
			return forced, false
		case <-hup:
			cfg, err := config.Reload()
			if err != nil {
				log.Error().Err(err).Msg("reload config")
				continue
			}
			*routes = cfg.Routes
			sub.Reconcile(routeIDs(cfg.Routes))
			log.Info().Strs("routes", cfg.Routes).Msg("routes updated")
		case <-ticker.C:
			for id, list := range sub.VehiclesByRoute() {
				nVehicles, nGhosts := vehicles.Count(list)
				log.Info().Str("route", string(id)).Int("vehicles", nVehicles).Int("ghosts", nGhosts).Msg("route summary")
			}
		}
	}
}

// drainReloads empties reloads without blocking and reports whether a
// pending request was forced.
func drainReloads(reloads *reload.Signal) bool {
	select {
	case forced := <-reloads.C():
		return forced
	default:
		return false
	}
}

func routeIDs(routes []string) []vehicles.RouteID {
	ids := make([]vehicles.RouteID, 0, len(routes))
	for _, r := range routes {
		ids = append(ids, vehicles.RouteID(r))
	}
	return ids
}

func startMetrics(cfg *config.Config) (*metrics.Collector, func()) {
	if cfg.MetricsAddr == "" {
		return nil, func() {}
	}
	mcol := metrics.NewCollector()
	srv := mcol.Serve(cfg.MetricsAddr)
	return mcol, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
