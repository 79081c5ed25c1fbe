package hotspot

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasLocation(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"bengaluru", 12.9716, 77.5946, true},
		{"zero zero sentinel", 0, 0, false},
		{"zero lat only", 0, 77.59, true},
		{"zero lon only", 12.97, 0, true},
		{"nan lat", math.NaN(), 77.59, false},
		{"inf lon", 12.97, math.Inf(1), false},
		{"lat out of range", 91, 77.59, false},
		{"lon out of range", 12.97, 181, false},
		{"southern edge", -90, 0.1, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, HasLocation(c.lat, c.lon))
		})
	}
}

func TestNormalizeValidRecord(t *testing.T) {
	h := Hotspot{
		ID:        "h1",
		Lat:       12.9716,
		Lon:       77.5946,
		RiskScore: 0.82,
		ScamType:  "UPI_Fraud",
		Timestamp: "2026-03-01T12:30:00Z",
	}
	require.True(t, Normalize(&h))
	assert.Equal(t, ScamUPIFraud, h.ScamType)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC), h.At)
}

func TestNormalizeFractionalTimestamp(t *testing.T) {
	h := Hotspot{ID: "h1", Lat: 12.97, Lon: 77.59, Timestamp: "2026-03-01T12:30:00.250+05:30"}
	require.True(t, Normalize(&h))
	assert.Equal(t, 250*time.Millisecond, time.Duration(h.At.Nanosecond()))
}

func TestNormalizeRejects(t *testing.T) {
	cases := []struct {
		name string
		h    Hotspot
	}{
		{"missing id", Hotspot{Lat: 12.97, Lon: 77.59}},
		{"zero zero", Hotspot{ID: "x", Lat: 0, Lon: 0}},
		{"nan lat", Hotspot{ID: "x", Lat: math.NaN(), Lon: 77.59}},
		{"lat overflow", Hotspot{ID: "x", Lat: 95, Lon: 77.59}},
		{"garbled timestamp", Hotspot{ID: "x", Lat: 12.97, Lon: 77.59, Timestamp: "yesterday-ish"}},
		{"truncated timestamp", Hotspot{ID: "x", Lat: 12.97, Lon: 77.59, Timestamp: "2026-03-01"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := c.h
			assert.False(t, Normalize(&h))
		})
	}
}

func TestNormalizeEmptyTimestampIsValid(t *testing.T) {
	h := Hotspot{ID: "x", Lat: 12.97, Lon: 77.59}
	require.True(t, Normalize(&h))
	assert.True(t, h.At.IsZero())
}

func TestNormalizeClampsRisk(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1.5, 1},
		{-0.2, 0},
		{math.NaN(), 0},
		{0.64, 0.64},
	}
	for _, c := range cases {
		h := Hotspot{ID: "x", Lat: 12.97, Lon: 77.59, RiskScore: c.in}
		require.True(t, Normalize(&h))
		assert.Equal(t, c.want, h.RiskScore)
	}
}

func TestNormalizeScamType(t *testing.T) {
	assert.Equal(t, ScamLoanApp, NormalizeScamType("  Loan_App "))
	assert.Equal(t, ScamOther, NormalizeScamType("crypto_rugpull"))
	assert.Equal(t, ScamOther, NormalizeScamType(""))
	assert.Equal(t, ScamImpersonation, NormalizeScamType("impersonation"))
}
