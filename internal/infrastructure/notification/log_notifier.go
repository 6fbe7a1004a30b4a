package notification

import (
	"context"

	"go.uber.org/zap"

	tracking "github.com/cashtrack/backend/internal/application/tracking"
	domain "github.com/cashtrack/backend/internal/domain/tracking"
)

// LogNotifier records budget notifications in the structured log.
// Actual delivery channels (email, chat) plug in behind the same port.
type LogNotifier struct {
	logger *zap.Logger
}

var _ tracking.BudgetNotifier = (*LogNotifier)(nil)

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyBudget logs the budget position for the given recipients
func (n *LogNotifier) NotifyBudget(ctx context.Context, recipients []string, category domain.ReferenceCategory, summary domain.BudgetSummary) error {
	n.logger.Info("budget notification",
		zap.Strings("recipients", recipients),
		zap.String("category", string(category)),
		zap.String("total_budget", summary.TotalBudget.String()),
		zap.String("remaining_budget", summary.RemainingBudget.String()),
	)
	return nil
}
