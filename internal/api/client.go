// Package api is a client for the dispatcher REST endpoints that back the
// schedule views: route timepoints, runs and blocks.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

const (
	defaultTimeout   = 10 * time.Second
	timepointsTTL    = 10 * time.Minute
	maxRouteFetchers = 4
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

type Client struct {
	baseURL    string
	client     *http.Client
	timepoints *ttlCache[[]Timepoint]
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     httpClient,
		timepoints: newTTLCache[[]Timepoint](timepointsTTL),
	}
}

type dataEnvelope[T any] struct {
	Data *T `json:"data"`
}

// FetchTimepointsForRoute returns the timepoints of a route in order.
func (c *Client) FetchTimepointsForRoute(ctx context.Context, routeID string) ([]Timepoint, error) {
	if cached, ok := c.timepoints.Get(routeID); ok {
		return cached, nil
	}
	tps, err := getData[[]Timepoint](ctx, c, "/api/routes/"+url.PathEscape(routeID), nil)
	if err != nil {
		return nil, fmt.Errorf("timepoints for route %s: %w", routeID, err)
	}
	var out []Timepoint
	if tps != nil {
		out = *tps
	}
	c.timepoints.Set(routeID, out)
	return out, nil
}

// FetchTimepointsForRoutes fetches several routes concurrently. Any error
// cancels the remaining fetches.
func (c *Client) FetchTimepointsForRoutes(ctx context.Context, routeIDs []string) (map[string][]Timepoint, error) {
	type routeTimepoints struct {
		routeID    string
		timepoints []Timepoint
	}
	p := pool.NewWithResults[routeTimepoints]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(maxRouteFetchers)
	for _, id := range routeIDs {
		p.Go(func(ctx context.Context) (routeTimepoints, error) {
			tps, err := c.FetchTimepointsForRoute(ctx, id)
			return routeTimepoints{routeID: id, timepoints: tps}, err
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Timepoint, len(results))
	for _, r := range results {
		out[r.routeID] = r.timepoints
	}
	return out, nil
}

// FetchScheduleRun returns the run a trip belongs to, or nil when the
// server has none.
func (c *Client) FetchScheduleRun(ctx context.Context, tripID, runID string) (*Run, error) {
	q := url.Values{}
	q.Set("trip_id", tripID)
	if runID != "" {
		q.Set("run_id", runID)
	}
	run, err := getData[Run](ctx, c, "/api/schedule/run", q)
	if err != nil {
		return nil, fmt.Errorf("schedule run for trip %s: %w", tripID, err)
	}
	return run, nil
}

// FetchScheduleBlock returns the block a trip belongs to, or nil when the
// server has none.
func (c *Client) FetchScheduleBlock(ctx context.Context, tripID string) (*Block, error) {
	q := url.Values{}
	q.Set("trip_id", tripID)
	block, err := getData[Block](ctx, c, "/api/schedule/block", q)
	if err != nil {
		return nil, fmt.Errorf("schedule block for trip %s: %w", tripID, err)
	}
	return block, nil
}

func getData[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	log.Debug().Str("url", u).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: u}
	}
	var env dataEnvelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return env.Data, nil
}
