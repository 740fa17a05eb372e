package kernel

import (
	"errors"
	"fmt"
	"math"

	"relay/internal/pkg/errs"
	"relay/internal/pkg/guard"
)

const (
	LatitudeMin  = -90.0
	LatitudeMax  = 90.0
	LongitudeMin = -180.0
	LongitudeMax = 180.0

	earthRadiusMeters = 6371000.0
)

// ErrLocationIsNotConstructed is returned when a Location was not built with NewLocation.
var ErrLocationIsNotConstructed = errs.NewValueIsRequiredError("location must be created via NewLocation constructor")

// Location is a validated latitude/longitude pair in degrees.
// The zero value is invalid; (0,0) built through NewLocation is valid.
//
// Example:
//
//	loc, err := kernel.NewLocation(52.5200, 13.4050)
//	if err != nil {
//	    // Handle validation error
//	}
//	fmt.Println(loc) // Location(52.520000,13.405000)
type Location struct { //nolint:recvcheck //using for validation
	lat   float64
	lng   float64
	guard guard.ConstructorGuard
}

// NewLocation validates both coordinates and returns all violations joined.
func NewLocation(lat, lng float64) (Location, error) {
	loc := Location{guard: guard.NewConstructorGuard()}

	if err := errors.Join(loc.setLat(lat), loc.setLng(lng)); err != nil {
		return Location{}, err
	}

	return loc, nil
}

// Validate checks the Location was built via NewLocation.
func (l Location) Validate() error {
	return l.guard.Validate(ErrLocationIsNotConstructed)
}

func (l Location) Lat() float64 { return l.lat }
func (l Location) Lng() float64 { return l.lng }

func (l Location) String() string {
	return fmt.Sprintf("Location(%f,%f)", l.lat, l.lng)
}

// IsEqual compares two constructed locations.
func (l Location) IsEqual(other Location) (bool, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return false, err
	}
	return l == other, nil
}

// DistanceMeters returns the great-circle distance between two locations using the
// haversine formula.
func (l Location) DistanceMeters(other Location) (float64, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return 0, err
	}

	lat1 := l.lat * math.Pi / 180
	lat2 := other.lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (other.lng - l.lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a))), nil
}

func (l *Location) setLat(lat float64) error {
	if math.IsNaN(lat) || lat < LatitudeMin || lat > LatitudeMax {
		return errs.NewValueIsOutOfRangeError("lat", lat, LatitudeMin, LatitudeMax)
	}
	l.lat = lat
	return nil
}

func (l *Location) setLng(lng float64) error {
	if math.IsNaN(lng) || lng < LongitudeMin || lng > LongitudeMax {
		return errs.NewValueIsOutOfRangeError("lng", lng, LongitudeMin, LongitudeMax)
	}
	l.lng = lng
	return nil
}
