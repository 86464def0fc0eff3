// Package ors implements route.Provider on top of the OpenRouteService
// directions API.
package ors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/route"
)

// Defaults for the public OpenRouteService endpoint
const (
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultProfile = "foot-walking"
)

// ErrNoRoute is returned when the response carries no route geometry
var ErrNoRoute = errors.New("ors: response contains no route")

// HTTPStatusError is returned for non-2xx responses
type HTTPStatusError struct {
	Code int
	Body string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("ors: status %d: %s", e.Code, e.Body)
}

// Config holds client settings
type Config struct {
	APIKey  string
	BaseURL string
	Profile string
	Timeout time.Duration
}

// Client is an OpenRouteService directions client. It is safe for
// concurrent use.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
	profile string
}

var _ route.Provider = (*Client)(nil)

// NewClient creates a Client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ors: api key is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		profile: cfg.Profile,
	}, nil
}

// directionsResponse is the GeoJSON body of GET /v2/directions/{profile}
type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// Route fetches the walking path from origin to destination. The call is
// made once; retry policy belongs to the caller.
func (c *Client) Route(ctx context.Context, origin, destination geo.Point) (*route.Route, error) {
	start := time.Now()

	req, err := c.newRequest(ctx, origin, destination)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ors: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // nolint:errcheck // Close in defer, error not actionable

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var parsed directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ors: decode response: %w", err)
	}

	r, err := toRoute(parsed)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("origin", origin.String()).
		Str("destination", destination.String()).
		Int("points", len(r.Geometry)).
		Float64("distance_m", r.DistanceMeters).
		Dur("took", time.Since(start)).
		Msg("ORS route fetched")

	return r, nil
}

func (c *Client) newRequest(ctx context.Context, origin, destination geo.Point) (*http.Request, error) {
	q := url.Values{}
	q.Set("start", lngLat(origin))
	q.Set("end", lngLat(destination))

	endpoint := fmt.Sprintf("%s/v2/directions/%s?%s", c.baseURL, c.profile, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ors: create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")

	return req, nil
}

// toRoute flips GeoJSON [lng, lat] pairs into points
func toRoute(parsed directionsResponse) (*route.Route, error) {
	if len(parsed.Features) == 0 || len(parsed.Features[0].Geometry.Coordinates) == 0 {
		return nil, ErrNoRoute
	}

	feature := parsed.Features[0]
	geometry := make([]geo.Point, 0, len(feature.Geometry.Coordinates))
	for i, pair := range feature.Geometry.Coordinates {
		if len(pair) < 2 {
			return nil, fmt.Errorf("ors: coordinate %d has %d values", i, len(pair))
		}
		geometry = append(geometry, geo.Point{Latitude: pair[1], Longitude: pair[0]})
	}

	return &route.Route{
		Geometry:        geometry,
		DistanceMeters:  feature.Properties.Summary.Distance,
		DurationSeconds: feature.Properties.Summary.Duration,
	}, nil
}

func lngLat(p geo.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Longitude, p.Latitude)
}
