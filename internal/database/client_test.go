package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stuartshay/walkroute/internal/geo"
)

// Integration tests with a real PostgreSQL instance are in client_integration_test.go

func TestLocation_Point(t *testing.T) {
	loc := Location{
		ID:        123,
		DeviceID:  "test-device",
		Latitude:  40.736097,
		Longitude: -74.039373,
		Accuracy:  10,
		CreatedAt: time.Now(),
	}

	assert.Equal(t, geo.Point{Latitude: 40.736097, Longitude: -74.039373}, loc.Point())
}

func TestNewClient_InvalidDSN(t *testing.T) {
	_, err := NewClient("invalid-dsn")
	if err == nil {
		t.Error("expected error for invalid DSN, got nil")
	}
}

func TestWithRouteTTL(t *testing.T) {
	c := &Client{}
	assert.Zero(t, c.routeTTL)

	WithRouteTTL(24 * time.Hour)(c)
	assert.Equal(t, 24*time.Hour, c.routeTTL)
}
