package notify

import (
	"context"
	"fmt"
	"io"
	"time"
)

// ConsolePlayer rings the terminal bell and holds the cue for Hold.
// cmd/client uses it on machines without audio hardware.
type ConsolePlayer struct {
	Out  io.Writer
	Hold time.Duration
}

func (p ConsolePlayer) Play(ctx context.Context, sound string) error {
	if _, err := fmt.Fprintf(p.Out, "\a[alert] %s\n", sound); err != nil {
		return err
	}
	return wait(ctx, p.Hold)
}

// PatternVibrator walks a vibration pattern by sleeping through it.
type PatternVibrator struct{}

func (PatternVibrator) Vibrate(ctx context.Context, pattern []time.Duration) error {
	for _, step := range pattern {
		if err := wait(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
