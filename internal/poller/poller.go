// Package poller repeatedly asks a discovery function for runnable experiments
// and hands them out one at a time.
package poller

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/example/embexp/internal/models"
)

// ListFunc returns the experiments of class that have no complete results for runKey.
// It may return IDs the Poller already yielded; those are skipped.
type ListFunc func(ctx context.Context, class models.ExperimentClass, runKey models.RunKey) ([]models.ExperimentID, error)

// Options configures a Poller.
type Options struct {
	// MaxRounds is the number of discovery attempts per refill. Values below 1 mean 1.
	MaxRounds int
	// RoundDelay is waited between two empty attempts.
	RoundDelay time.Duration
}

type state int

const (
	stateDrain state = iota
	stateRefill
	stateDone
)

// Poller is a state machine over (batch, position, round). Next drains the
// current batch; an exhausted batch triggers a refill, which retries discovery
// with a fixed delay until it finds work or runs out of attempts.
type Poller struct {
	list   ListFunc
	class  models.ExperimentClass
	runKey models.RunKey
	opts   Options
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	state   state
	batch   []models.ExperimentID
	pos     int
	round   int
	yielded map[models.ExperimentID]bool
}

// New creates a Poller. No discovery happens before the first call to Next.
// An ID is handed out at most once until Reset: discovered IDs that were already
// yielded are dropped, and a batch left empty by that counts as an empty round.
func New(list ListFunc, class models.ExperimentClass, runKey models.RunKey, opts Options, logger *slog.Logger) *Poller {
	if opts.MaxRounds < 1 {
		opts.MaxRounds = 1
	}
	p := &Poller{
		list:   list,
		class:  class,
		runKey: runKey,
		opts:   opts,
		logger: logger,
		sleep:  sleepContext,
	}
	p.Reset()
	return p
}

// Reset restarts the sequence: the next call to Next performs a fresh discovery.
func (p *Poller) Reset() {
	p.state = stateRefill
	p.batch = nil
	p.pos = 0
	p.round = 0
	p.yielded = make(map[models.ExperimentID]bool)
}

// Round is the number of batches adopted so far.
func (p *Poller) Round() int { return p.round }

// Position is the 1-based position of the last returned experiment in the current batch.
func (p *Poller) Position() int { return p.pos }

// BatchSize is the length of the current batch.
func (p *Poller) BatchSize() int { return len(p.batch) }

// Next returns the next experiment. ok is false once discovery has come back
// empty MaxRounds times in a row.
func (p *Poller) Next(ctx context.Context) (id models.ExperimentID, ok bool, err error) {
	for {
		switch p.state {
		case stateDrain:
			if p.pos < len(p.batch) {
				id = p.batch[p.pos]
				p.pos++
				p.yielded[id] = true
				return id, true, nil
			}
			p.state = stateRefill
		case stateRefill:
			if err := p.refill(ctx); err != nil {
				return models.ExperimentID{}, false, err
			}
		case stateDone:
			return models.ExperimentID{}, false, nil
		}
	}
}

// refill asks for new work up to MaxRounds times. Experiments this poller has
// already handed out are not handed out again, so one that keeps failing does
// not keep the poller busy.
func (p *Poller) refill(ctx context.Context) error {
	for attempt := 1; attempt <= p.opts.MaxRounds; attempt++ {
		ids, err := p.list(ctx, p.class, p.runKey)
		if err != nil {
			return fmt.Errorf("failed to list incomplete experiments: %w", err)
		}
		var batch []models.ExperimentID
		for _, id := range ids {
			if !p.yielded[id] {
				batch = append(batch, id)
			}
		}
		if len(batch) > 0 {
			p.batch = batch
			p.pos = 0
			p.round++
			p.state = stateDrain
			p.logger.Info("new batch", "round", p.round, "size", len(batch), "class", p.class.String())
			return nil
		}
		if attempt == p.opts.MaxRounds {
			break
		}
		p.logger.Debug("no work found, waiting", "attempt", attempt, "max_rounds", p.opts.MaxRounds, "delay", p.opts.RoundDelay)
		if err := p.sleep(ctx, p.opts.RoundDelay); err != nil {
			return err
		}
	}
	p.batch = nil
	p.pos = 0
	p.state = stateDone
	return nil
}

// All adapts the poller to a range-over-func sequence. Iteration stops after
// the first error.
func (p *Poller) All(ctx context.Context) iter.Seq2[models.ExperimentID, error] {
	return func(yield func(models.ExperimentID, error) bool) {
		for {
			id, ok, err := p.Next(ctx)
			if err != nil {
				yield(models.ExperimentID{}, err)
				return
			}
			if !ok || !yield(id, nil) {
				return
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
