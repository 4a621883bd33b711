package acquisition

import (
	"context"
	"log/slog"

	"WasteReminder/internal/domain"
)

// Engine resolves the configured strategy and executes one run per call.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
}

// NewEngine wires a strategy registry.
func NewEngine(reg *Registry, logger *slog.Logger) *Engine {
	return &Engine{registry: reg, logger: logger}
}

// Acquire runs strategy for addr and returns the reminder mapping.
func (e *Engine) Acquire(ctx context.Context, strategy string, addr domain.Address) (domain.ReminderMapping, error) {
	impl, err := e.registry.Resolve(strategy)
	if err != nil {
		return nil, err
	}
	return NewExecution(impl, addr, e.logger).Execute(ctx)
}
