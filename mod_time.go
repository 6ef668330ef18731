package mosaic

import (
	"time"
)

type Time struct {
	Time time.Time
	Dt   time.Duration
}

func (t *Time) DtSeconds() float64 { return t.Dt.Seconds() }

type TimeModule struct {
	// Fixed, when positive, replaces wall-clock frame times. Headless runs and
	// tests use it to get the same sequence of frames every time.
	Fixed time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	t := &Time{Time: time.Now()}
	cmd.AddResources(t)

	if mod.Fixed > 0 {
		step := mod.Fixed
		cmd.UseSystem(System(func(t *Time) {
			t.Dt = step
			t.Time = t.Time.Add(step)
		}).InStage(PreUpdate))
		return
	}
	cmd.UseSystem(System(timeSystem).InStage(PreUpdate))
}

func timeSystem(timeResource *Time) {
	now := time.Now()

	timeResource.Dt = now.Sub(timeResource.Time)
	timeResource.Time = now
}
