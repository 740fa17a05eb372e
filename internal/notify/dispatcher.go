// Package notify turns relay events into local alerts on a participant's device.
// Audio and vibration hardware sit behind the Player and Vibrator interfaces.
//
// At most one alert plays at a time. A new alert cancels the one in progress,
// waits until it has stopped and only then starts, so cues never overlap.
// Hardware failures are logged and never reach the caller.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"relay/internal/core/domain/model/event"
)

// Player plays a sound cue. Play returns once the cue finished or ctx is done.
type Player interface {
	Play(ctx context.Context, sound string) error
}

// Vibrator runs a vibration pattern. Vibrate returns once the pattern finished
// or ctx is done.
type Vibrator interface {
	Vibrate(ctx context.Context, pattern []time.Duration) error
}

type alert struct {
	profile Profile
	cancel  context.CancelFunc
	done    chan struct{}
}

// Dispatcher owns the device's alert channel.
type Dispatcher struct {
	player   Player
	vibrator Vibrator
	logger   *slog.Logger

	mu      sync.Mutex
	current *alert
	closed  bool
}

func NewDispatcher(player Player, vibrator Vibrator, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		player:   player,
		vibrator: vibrator,
		logger:   logger.With("component", "notification_dispatcher"),
	}
}

// OnEvent starts the alert mapped to t, preempting the one in progress. It
// reports whether an alert was started.
func (d *Dispatcher) OnEvent(t event.Type) bool {
	profile, ok := ProfileFor(t)
	if !ok {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	a := &alert{profile: profile, cancel: cancel, done: make(chan struct{})}
	d.current = a

	go d.play(ctx, a)
	return true
}

// Playing returns the name of the alert in progress, or "" when idle.
func (d *Dispatcher) Playing() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ""
	}
	select {
	case <-d.current.done:
		return ""
	default:
		return d.current.profile.Name
	}
}

// Close stops the alert in progress and ignores later events.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopLocked()
}

func (d *Dispatcher) stopLocked() {
	if d.current == nil {
		return
	}
	d.current.cancel()
	<-d.current.done
	d.current = nil
}

func (d *Dispatcher) play(ctx context.Context, a *alert) {
	defer close(a.done)
	defer a.cancel()

	var wg sync.WaitGroup
	if d.player != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.player.Play(ctx, a.profile.Sound); err != nil && ctx.Err() == nil {
				d.logger.Warn("sound cue failed", "alert", a.profile.Name, "error", err)
			}
		}()
	}
	if d.vibrator != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.vibrator.Vibrate(ctx, a.profile.Pattern); err != nil && ctx.Err() == nil {
				d.logger.Warn("vibration failed", "alert", a.profile.Name, "error", err)
			}
		}()
	}
	wg.Wait()
}
