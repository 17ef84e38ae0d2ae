// Package alert delivers edge alerts to one or more channels. Alerts fan out
// to every registered sink; a single sink failure never blocks delivery to
// the remaining sinks.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sink is the interface each alert channel must implement.
type Sink interface {
	// Send delivers a formatted alert line.
	Send(ctx context.Context, message string) error
	// Name returns a short identifier for the sink (e.g. "slack").
	Name() string
}

// Fanout dispatches alerts to all registered sinks.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanout creates a Fanout over the given sinks.
func NewFanout(sinks []Sink, logger *slog.Logger) *Fanout {
	return &Fanout{
		sinks:  sinks,
		logger: logger.With(slog.String("component", "alert")),
	}
}

// Send delivers the message to every sink. Errors from individual sinks are
// collected and returned as a combined error after all sinks were tried.
func (f *Fanout) Send(ctx context.Context, message string) error {
	if len(f.sinks) == 0 {
		return nil
	}

	var errs []string
	for _, s := range f.sinks {
		if err := s.Send(ctx, message); err != nil {
			f.logger.ErrorContext(ctx, "sink failed",
				slog.String("sink", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		f.logger.DebugContext(ctx, "alert sent", slog.String("sink", s.Name()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("alert: %d sink(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Name implements Sink so a Fanout can itself be wrapped.
func (f *Fanout) Name() string { return "fanout" }
