package alert

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ConsoleSink writes alerts as plain lines, one per alert.
type ConsoleSink struct {
	w io.Writer
}

// NewConsoleSink creates a ConsoleSink writing to stdout.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{w: os.Stdout}
}

// NewConsoleSinkTo creates a ConsoleSink writing to w.
func NewConsoleSinkTo(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Send writes the alert line.
func (c *ConsoleSink) Send(_ context.Context, message string) error {
	if _, err := fmt.Fprintln(c.w, message); err != nil {
		return fmt.Errorf("console: write alert: %w", err)
	}
	return nil
}

// Name returns the sink identifier.
func (c *ConsoleSink) Name() string { return "console" }
