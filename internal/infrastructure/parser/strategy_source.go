package parser

import (
	"context"
	"log/slog"
	"time"

	"WasteReminder/internal/acquisition"
	"WasteReminder/internal/config"
	"WasteReminder/internal/domain"
	"WasteReminder/internal/infrastructure/upstream"
	"WasteReminder/internal/ports"
	"WasteReminder/internal/reminder"
)

// StrategySource implements ReminderSource for the configured address and strategy.
type StrategySource struct {
	engine   *acquisition.Engine
	strategy string
	address  domain.Address
	logger   *slog.Logger
}

var _ ports.ReminderSource = (*StrategySource)(nil)

// NewStrategySource binds the engine to one configured address.
func NewStrategySource(engine *acquisition.Engine, strategy string, addr domain.Address, log *slog.Logger) *StrategySource {
	return &StrategySource{
		engine:   engine,
		strategy: strategy,
		address:  addr,
		logger:   log,
	}
}

// FetchReminders executes one acquisition run.
func (s *StrategySource) FetchReminders(ctx context.Context) (domain.ReminderMapping, error) {
	s.debug("acquire", "strategy", s.strategy, "address", s.address.String())

	mapping, err := s.engine.Acquire(ctx, s.strategy, s.address)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, dates := range mapping {
		total += len(dates)
	}
	s.debug("strategy source done", "strategy", s.strategy, "total_dates", total)
	return mapping, nil
}

// NewRegistry registers the three upstream strategies with shared plumbing.
// now drives the feed's year window and should match the normalizer's clock.
func NewRegistry(cfg config.SourceConfig, client *upstream.Client, n *reminder.Normalizer, now func() time.Time, baseLogger *slog.Logger) *acquisition.Registry {
	reg := acquisition.NewRegistry()
	reg.Register(NewTextRegexStrategy(client, cfg.BaseURL, n, baseLogger.With("component", "strategy."+TextRegexName)))
	reg.Register(NewTextDirectStrategy(client, cfg.BaseURL, n, baseLogger.With("component", "strategy."+TextDirectName)))
	reg.Register(NewFeedStrategy(client, n, FeedOptions{
		LookupURL: cfg.LookupURL,
		FeedURL:   cfg.FeedURL,
		Codes:     categoryCodes(cfg.CategoryCodes, baseLogger),
		Now:       now,
		Logger:    baseLogger.With("component", "strategy."+RestFeedName),
	}))
	return reg
}

func categoryCodes(raw map[int]string, log *slog.Logger) map[int]domain.Category {
	if len(raw) == 0 {
		return nil
	}
	codes := make(map[int]domain.Category, len(raw))
	for code, label := range raw {
		category, ok := domain.ParseCategory(label)
		if !ok {
			log.Warn("ignoring category code with unknown label", "code", code, "label", label)
			continue
		}
		codes[code] = category
	}
	return codes
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
