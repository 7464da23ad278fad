package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"vividly/internal/logging"
	"vividly/internal/notifications"
	"vividly/internal/tracker"
)

// notify publishes a pipeline milestone. Delivery failures are logged and
// swallowed; notifications never influence request state.
func (m *Manager) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("notification delivery failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func requestTitle(request *tracker.Request) string {
	if title := strings.TrimSpace(request.ResolvedTitle); title != "" {
		return title
	}
	return requestTopic(request)
}
