// Package database provides PostgreSQL access for walkroute: OwnTracks
// position history used to replay walks, and a persistent cache of routes
// returned by the routing provider.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/route"
)

// Client wraps a PostgreSQL database connection
type Client struct {
	db       *sql.DB
	routeTTL time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithRouteTTL makes cached routes older than ttl invisible to GetRoute.
// Zero keeps them forever.
func WithRouteTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.routeTTL = ttl
	}
}

var _ route.Store = (*Client)(nil)

// Location is a GPS fix recorded by an OwnTracks device
type Location struct {
	ID        int64
	DeviceID  string
	Latitude  float64
	Longitude float64
	Accuracy  int
	CreatedAt time.Time
}

// Point returns the location as a geo.Point
func (l Location) Point() geo.Point {
	return geo.Point{Latitude: l.Latitude, Longitude: l.Longitude}
}

// NewClient creates a new database client with connection pooling
func NewClient(dsn string, opts ...Option) (*Client, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (also failed to close: %w)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &Client{db: db}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// HealthCheck verifies database connectivity
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// EnsureSchema creates the route cache table if it does not exist
func (c *Client) EnsureSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS route_cache (
			cache_key        TEXT PRIMARY KEY,
			geometry         JSONB NOT NULL,
			distance_meters  DOUBLE PRECISION NOT NULL,
			duration_seconds DOUBLE PRECISION NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create route_cache: %w", err)
	}
	return nil
}

// GetLocationsByDate retrieves GPS locations for a specific date in
// chronological order. Date should be in YYYY-MM-DD format
func (c *Client) GetLocationsByDate(ctx context.Context, date string, deviceID string) ([]Location, error) {
	if date == "" {
		return nil, errors.New("date is required")
	}

	query := `
		SELECT id, device_id, latitude, longitude, accuracy, created_at
		FROM public.locations
		WHERE DATE(created_at) = $1
	`

	args := []interface{}{date}

	// Add device_id filter if specified
	if deviceID != "" {
		query += " AND device_id = $2"
		args = append(args, deviceID)
	}

	query += " ORDER BY created_at ASC"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }() // nolint:errcheck // Close in defer, error not actionable

	var locations []Location
	for rows.Next() {
		var loc Location
		var accuracy sql.NullInt64

		if err := rows.Scan(
			&loc.ID,
			&loc.DeviceID,
			&loc.Latitude,
			&loc.Longitude,
			&accuracy,
			&loc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		if accuracy.Valid {
			loc.Accuracy = int(accuracy.Int64)
		}

		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return locations, nil
}

// GetRoute looks up a cached route that has not outlived the route TTL
func (c *Client) GetRoute(ctx context.Context, key string) (*route.Route, bool, error) {
	var (
		raw []byte
		r   route.Route
	)

	err := c.db.QueryRowContext(ctx, `
		SELECT geometry, distance_meters, duration_seconds
		FROM route_cache
		WHERE cache_key = $1
		  AND ($2::float8 <= 0 OR created_at > now() - make_interval(secs => $2::float8))
	`, key, c.routeTTL.Seconds()).Scan(&raw, &r.DistanceMeters, &r.DurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route cache: %w", err)
	}

	if err := json.Unmarshal(raw, &r.Geometry); err != nil {
		return nil, false, fmt.Errorf("get route cache: decode geometry: %w", err)
	}

	return &r, true, nil
}

// PutRoute stores a route, replacing any existing entry for key
func (c *Client) PutRoute(ctx context.Context, key string, r *route.Route) error {
	if key == "" {
		return errors.New("put route cache: key must not be empty")
	}
	if r == nil {
		return errors.New("put route cache: route is nil")
	}

	raw, err := json.Marshal(r.Geometry)
	if err != nil {
		return fmt.Errorf("put route cache: encode geometry: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO route_cache (cache_key, geometry, distance_meters, duration_seconds)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cache_key) DO UPDATE
		SET geometry = EXCLUDED.geometry,
			distance_meters = EXCLUDED.distance_meters,
			duration_seconds = EXCLUDED.duration_seconds,
			created_at = now()
	`, key, string(raw), r.DistanceMeters, r.DurationSeconds)
	if err != nil {
		return fmt.Errorf("put route cache: %w", err)
	}

	return nil
}
