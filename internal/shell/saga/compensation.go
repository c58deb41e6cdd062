package saga

import (
	"context"
	"log/slog"
)

// compensation is one rollback action, pushed after the stage that created
// the resource it undoes.
type compensation struct {
	name string
	run  func(ctx context.Context) error
}

// compensationStack unwinds pushed actions in reverse order. Rollback is
// best-effort: a failing action is logged and the unwind continues, so the
// original stage error always reaches the caller.
type compensationStack struct {
	items  []compensation
	logger *slog.Logger
}

func newCompensationStack(logger *slog.Logger) *compensationStack {
	return &compensationStack{logger: logger}
}

func (s *compensationStack) push(name string, run func(ctx context.Context) error) {
	s.items = append(s.items, compensation{name: name, run: run})
}

func (s *compensationStack) empty() bool {
	return len(s.items) == 0
}

func (s *compensationStack) unwind(ctx context.Context) {
	for i := len(s.items) - 1; i >= 0; i-- {
		c := s.items[i]
		if err := c.run(ctx); err != nil {
			s.logger.Error("compensation failed", "action", c.name, "error", err)
			continue
		}
		s.logger.Info("compensation applied", "action", c.name)
	}
	s.items = nil
}
