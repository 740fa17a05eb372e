package notify

import (
	"time"

	"relay/internal/core/domain/model/event"
)

// Profile is the sound cue and vibration pattern of one kind of alert.
// Pattern alternates wait and vibrate durations, starting with a wait.
type Profile struct {
	Name    string
	Sound   string
	Pattern []time.Duration
}

func getProfiles() map[event.Type]Profile {
	ms := time.Millisecond
	return map[event.Type]Profile{
		event.OrderNew: {
			Name:    "new_order",
			Sound:   "new_order",
			Pattern: []time.Duration{0, 800 * ms, 400 * ms, 800 * ms, 400 * ms, 800 * ms},
		},
		event.StatusChanged: {
			Name:    "status_update",
			Sound:   "status_update",
			Pattern: []time.Duration{0, 200 * ms},
		},
		event.DriverAssign: {
			Name:    "driver_assigned",
			Sound:   "driver_assigned",
			Pattern: []time.Duration{0, 300 * ms, 150 * ms, 300 * ms},
		},
		event.DriverNearby: {
			Name:    "driver_nearby",
			Sound:   "driver_nearby",
			Pattern: []time.Duration{0, 500 * ms, 250 * ms, 500 * ms},
		},
	}
}

// ProfileFor returns the alert for an event type. Events without an alert
// report false.
func ProfileFor(t event.Type) (Profile, bool) {
	p, ok := getProfiles()[t]
	return p, ok
}
