package acquisition

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"WasteReminder/internal/domain"
	"WasteReminder/internal/reminder"
)

// Stage is the position of an Execution in its lifecycle.
type Stage string

const (
	StageInit        Stage = "init"
	StageResolving   Stage = "resolving"
	StageFetching    Stage = "fetching"
	StageExtracting  Stage = "extracting"
	StageNormalizing Stage = "normalizing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Execution drives one Run through resolve, fetch, extract, normalize and
// aggregate. It runs at most once; build a new Execution for the next refresh.
type Execution struct {
	addr     domain.Address
	strategy string
	run      Run
	stage    Stage
	logger   *slog.Logger
}

// NewExecution prepares a fresh run of strategy for addr.
func NewExecution(strategy Strategy, addr domain.Address, logger *slog.Logger) *Execution {
	return &Execution{
		addr:     addr,
		strategy: strategy.Name(),
		run:      strategy.NewRun(addr),
		stage:    StageInit,
		logger:   logger,
	}
}

// Stage reports the current lifecycle stage.
func (e *Execution) Stage() Stage {
	return e.stage
}

// Execute performs the run. Any error leaves the execution in StageFailed and
// no mapping is returned.
func (e *Execution) Execute(ctx context.Context) (domain.ReminderMapping, error) {
	if e.stage != StageInit {
		return nil, errors.Wrapf(domain.ErrRunConsumed, "stage %s", e.stage)
	}

	if resolver, ok := e.run.(Resolver); ok {
		e.enter(StageResolving)
		if err := resolver.Resolve(ctx); err != nil {
			return nil, e.fail(err, "resolve address")
		}
	}

	e.enter(StageFetching)
	if err := e.run.Fetch(ctx); err != nil {
		return nil, e.fail(err, "fetch calendar")
	}

	e.enter(StageExtracting)
	tokens := make(map[domain.Category][]string, len(domain.Categories))
	for _, category := range domain.Categories {
		extracted, err := e.run.Extract(category)
		if err != nil {
			return nil, e.fail(err, "extract "+string(category))
		}
		e.debug("extracted tokens", "category", category, "count", len(extracted))
		tokens[category] = extracted
	}

	e.enter(StageNormalizing)
	dates := make(map[domain.Category][]domain.ReminderDate, len(tokens))
	for _, category := range domain.Categories {
		for _, token := range tokens[category] {
			date, err := e.run.Normalize(token)
			if err != nil {
				return nil, e.fail(err, "normalize "+string(category))
			}
			dates[category] = append(dates[category], date)
		}
	}

	mapping := reminder.Aggregate(dates)
	e.enter(StageDone)
	return mapping, nil
}

func (e *Execution) enter(stage Stage) {
	e.stage = stage
	e.debug("acquisition stage", "stage", stage)
}

func (e *Execution) fail(err error, op string) error {
	failedAt := e.stage
	e.stage = StageFailed
	if e.logger != nil {
		e.logger.Error("acquisition failed",
			"strategy", e.strategy,
			"address", e.addr.String(),
			"stage", failedAt,
			"error", err,
		)
	}
	return errors.Wrapf(err, "%s (%s)", op, e.strategy)
}

func (e *Execution) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, append(args, "strategy", e.strategy)...)
	}
}
