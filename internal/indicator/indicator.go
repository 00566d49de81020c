// Package indicator implements the three-LED observable-side-effect
// contract of spec.md §6.3: green toggles once per successful send, red
// lights on error, blue tracks a ring-overflow run. Out of scope per
// spec.md §1's "LED/button I/O is an external collaborator", the physical
// GPIO wiring is left to a future embedded Go target; LogIndicator is the
// default implementation for hosts with no LEDs, following the teacher's
// preference for a structured slog line over a bare fmt.Println wherever a
// side effect needs to be observable.
package indicator

import "log/slog"

// Indicator is the green/red/blue contract spec.md §6.3 describes.
type Indicator interface {
	// Green toggles the green indicator, called once per successful send.
	Green()
	// Red lights the red indicator to signal an error condition.
	Red()
	// Blue sets the blue indicator on (overflow begins) or off (overflow ends).
	Blue(on bool)
}

// LogIndicator implements Indicator by emitting a structured log line per
// transition, tracking the green LED's toggle state so its log reflects
// what a physical LED would be doing rather than just "an event happened".
type LogIndicator struct {
	logger  *slog.Logger
	greenOn bool
}

// New creates a LogIndicator. If logger is nil, slog.Default() is used.
func New(logger *slog.Logger) *LogIndicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogIndicator{logger: logger.With("component", "indicator")}
}

func (i *LogIndicator) Green() {
	i.greenOn = !i.greenOn
	i.logger.Debug("green", "on", i.greenOn)
}

func (i *LogIndicator) Red() {
	i.logger.Warn("red")
}

func (i *LogIndicator) Blue(on bool) {
	i.logger.Info("blue", "on", on)
}
