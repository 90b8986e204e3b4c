package network

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// HumanDelay draws a bell-shaped duration centred between min and max,
// resampling until the value falls inside the range.
func HumanDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	mean := float64(min+max) / 2
	stddev := float64(max-min) / 6
	for {
		u1 := rand.Float64()
		if u1 == 0 {
			continue
		}
		u2 := rand.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
		delay := time.Duration(math.Round(mean + z*stddev))
		if delay >= min && delay <= max {
			return delay
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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

// HumanSleep sleeps for HumanDelay(min, max).
func HumanSleep(ctx context.Context, min, max time.Duration) error {
	return Sleep(ctx, HumanDelay(min, max))
}

// Sleeper is the humanized sleep used for backoff and politeness pauses.
type Sleeper func(ctx context.Context, min, max time.Duration) error
