package indicator

import (
	"context"
	"time"
)

// minDutyInterval keeps the duty cycle from spinning when a half is configured as zero.
const minDutyInterval = 10 * time.Millisecond

// DutyCycleBuzzer beeps the buzzer, SirenOn on and SirenOff off, until
// duration has elapsed on the monotonic clock or ctx is done. The deadline
// is fixed up front, so slow wake-ups shorten the last beep instead of
// extending the total. The buzzer is off when this returns, on every path.
func (o *Output) DutyCycleBuzzer(ctx context.Context, duration time.Duration) {
	if !o.hasBuzzer {
		return
	}

	deadline := time.Now().Add(duration)

	defer o.SetBuzzer(ctx, false)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}

		o.SetBuzzer(ctx, true)

		if !sleepCtx(ctx, min(o.sirenOn, remaining)) {
			return
		}

		remaining = time.Until(deadline)
		if remaining <= 0 {
			return
		}

		o.SetBuzzer(ctx, false)

		if !sleepCtx(ctx, min(o.sirenOff, remaining)) {
			return
		}
	}
}

// sleepCtx sleeps for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
