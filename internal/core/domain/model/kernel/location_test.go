package kernel_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/internal/core/domain/model/kernel"
	"relay/internal/pkg/errs"
)

func TestNewLocation(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{name: "valid location", lat: 52.52, lng: 13.405},
		{name: "origin is valid", lat: 0, lng: 0},
		{name: "min bounds", lat: kernel.LatitudeMin, lng: kernel.LongitudeMin},
		{name: "max bounds", lat: kernel.LatitudeMax, lng: kernel.LongitudeMax},
		{name: "lat too small", lat: -90.1, lng: 0, wantErr: true},
		{name: "lat too large", lat: 90.1, lng: 0, wantErr: true},
		{name: "lng too small", lat: 0, lng: -180.5, wantErr: true},
		{name: "lng too large", lat: 0, lng: 181, wantErr: true},
		{name: "NaN lat", lat: math.NaN(), lng: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := kernel.NewLocation(tt.lat, tt.lng)

			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
				return
			}
			require.NoError(t, err)
			require.NoError(t, loc.Validate())
			assert.InDelta(t, tt.lat, loc.Lat(), 1e-9)
			assert.InDelta(t, tt.lng, loc.Lng(), 1e-9)
		})
	}
}

func TestLocation_ZeroValueIsInvalid(t *testing.T) {
	var loc kernel.Location

	require.ErrorIs(t, loc.Validate(), kernel.ErrLocationIsNotConstructed)

	other, _ := kernel.NewLocation(1, 1)
	_, err := loc.DistanceMeters(other)
	require.Error(t, err)
	_, err = loc.IsEqual(other)
	require.Error(t, err)
}

func TestLocation_DistanceMeters(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		a, _ := kernel.NewLocation(40.7128, -74.0060)

		d, err := a.DistanceMeters(a)

		require.NoError(t, err)
		assert.InDelta(t, 0, d, 1e-6)
	})

	t.Run("one degree of latitude is about 111km", func(t *testing.T) {
		a, _ := kernel.NewLocation(0, 0)
		b, _ := kernel.NewLocation(1, 0)

		d, err := a.DistanceMeters(b)

		require.NoError(t, err)
		assert.InDelta(t, 111195, d, 50)
	})

	t.Run("distance is symmetric", func(t *testing.T) {
		a, _ := kernel.NewLocation(52.52, 13.405)
		b, _ := kernel.NewLocation(48.8566, 2.3522)

		ab, _ := a.DistanceMeters(b)
		ba, _ := b.DistanceMeters(a)

		assert.InDelta(t, ab, ba, 1e-6)
	})
}

func TestLocation_IsEqual(t *testing.T) {
	a, _ := kernel.NewLocation(10, 20)
	b, _ := kernel.NewLocation(10, 20)
	c, _ := kernel.NewLocation(10, 21)

	eq, err := a.IsEqual(b)
	require.NoError(t, err)
	assert.True(t, eq)

	eq, err = a.IsEqual(c)
	require.NoError(t, err)
	assert.False(t, eq)
}
