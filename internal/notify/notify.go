// Package notify delivers confirmed spike candidates to the outbound
// channels: ntfy.sh push notifications, Telegram, and a Notion database.
//
// The spike ledger is committed before any sink runs, so a delivery failure
// can at worst lose a notification; it can never cause a duplicate alert on
// the next cycle. Sinks are independent of each other and a failing channel
// does not block the rest.
package notify

import (
	"context"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/earlyshift/earlyshift/internal/logger"
	"github.com/earlyshift/earlyshift/internal/models"
)

// Sink delivers a batch of spike candidates to one destination.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Send delivers the batch. Implementations deliver as much of the
	// batch as they can and report one error summarizing any failures.
	Send(ctx context.Context, spikes []models.SpikeCandidate) error
}

// Dispatcher fans a batch of spikes out to every configured sink.
type Dispatcher struct {
	sinks []Sink
}

// NewDispatcher creates a dispatcher over the given sinks. Nil entries are
// skipped so callers can pass conditionally constructed sinks directly.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	d := &Dispatcher{}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Sinks returns the number of active sinks.
func (d *Dispatcher) Sinks() int {
	return len(d.sinks)
}

// Dispatch sends the batch to every sink. A sink failure is logged and
// counted while the remaining sinks still run; the returned error reports
// how many sinks failed in total.
func (d *Dispatcher) Dispatch(ctx context.Context, spikes []models.SpikeCandidate) error {
	if len(spikes) == 0 || len(d.sinks) == 0 {
		return nil
	}

	failed := 0
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, spikes); err != nil {
			failed++
			logger.Error("Failed to deliver %d spikes via %s: %v", len(spikes), sink.Name(), err)
			continue
		}
		logger.Info("Delivered %d spikes via %s", len(spikes), sink.Name())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d notification sinks failed", failed, len(d.sinks))
	}
	return nil
}

var countPrinter = message.NewPrinter(language.English)

// formatCount renders a CCU figure with thousands separators.
func formatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}
