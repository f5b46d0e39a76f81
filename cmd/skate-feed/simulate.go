package main

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"skate-feed/internal/config"
	"skate-feed/internal/publisher"
	"skate-feed/internal/sim"
)

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Publish simulated vehicles for SKATE_ROUTES over NATS",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.Routes) == 0 {
				log.Warn().Msg("SKATE_ROUTES is empty, nothing to simulate")
			}

			ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			mcol, stopMetrics := startMetrics(cfg)
			defer stopMetrics()

			pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
			if err != nil {
				return err
			}
			defer pub.Close()

			mgr := sim.NewManager(pub, cfg.SimPublishInterval, cfg.SimVehiclesPerRoute, cfg.SimAuthExpireAfter, mcol)
			mgr.Start(ctx, cfg.Routes)

			<-ctx.Done()
			mgr.Stop()
			log.Info().Msg("shutdown complete")
			return nil
		},
	}
}
