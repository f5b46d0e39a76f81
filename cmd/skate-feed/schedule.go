package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"skate-feed/internal/api"
	"skate-feed/internal/apicall"
	"skate-feed/internal/config"
)

var errNotFound = errors.New("not found")

type runSummary struct {
	RunID      string `json:"run_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Pieces     int    `json:"pieces"`
	Breaks     int    `json:"breaks"`
	Trips      int    `json:"trips"`
	FirstPlace string `json:"first_place"`
	LastPlace  string `json:"last_place"`
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Fetch timepoints, runs and blocks from the dispatcher API",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "route", Usage: "route whose timepoints to fetch"},
			&cli.StringFlag{Name: "trip", Usage: "trip whose run and block to fetch"},
			&cli.StringFlag{Name: "run", Usage: "run id to disambiguate the trip's run"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := api.NewClient(cfg.APIBaseURL, nil)
			out := os.Stdout

			routes := c.StringSlice("route")
			if len(routes) == 0 {
				routes = cfg.Routes
			}
			if len(routes) > 0 {
				tps, err := await(c.Context, func(ctx context.Context) (map[string][]api.Timepoint, error) {
					return client.FetchTimepointsForRoutes(ctx, routes)
				})
				if err != nil {
					return err
				}
				if err := writeJSON(out, tps); err != nil {
					return err
				}
			}

			tripID := c.String("trip")
			if tripID == "" {
				return nil
			}
			runID := c.String("run")

			run, err := await(c.Context, apicall.Parsed(func(ctx context.Context) (*api.Run, error) {
				return client.FetchScheduleRun(ctx, tripID, runID)
			}, summarizeRun))
			switch {
			case errors.Is(err, errNotFound):
				log.Warn().Str("trip", tripID).Msg("no run for trip")
			case err != nil:
				return err
			default:
				if err := writeJSON(out, run); err != nil {
					return err
				}
			}

			block, err := await(c.Context, func(ctx context.Context) (*api.Block, error) {
				return client.FetchScheduleBlock(ctx, tripID)
			})
			if err != nil {
				return err
			}
			if block == nil {
				log.Warn().Str("trip", tripID).Msg("no block for trip")
				return nil
			}
			return writeJSON(out, block)
		},
	}
}

// await runs fn through an apicall.Call and waits for its outcome.
func await[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	call := apicall.New[T]()
	defer call.Close()
	<-call.Run(ctx, fn)
	v, _, err := call.Result()
	return v, err
}

func summarizeRun(run *api.Run) (runSummary, error) {
	if run == nil {
		return runSummary{}, errNotFound
	}
	s := runSummary{RunID: run.ID}
	for i, a := range run.Activities {
		if i == 0 {
			s.Start = clockTime(a.StartTime)
			s.FirstPlace = a.StartPlace
		}
		s.End = clockTime(a.EndTime)
		s.LastPlace = a.EndPlace
		if a.IsBreak() {
			s.Breaks++
			continue
		}
		s.Pieces++
		s.Trips += len(a.Trips)
	}
	return s, nil
}

// clockTime formats seconds after midnight; service days run past 24:00.
func clockTime(secs int) string {
	return fmt.Sprintf("%02d:%02d", secs/3600, secs%3600/60)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
