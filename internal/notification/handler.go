package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/events"
)

var (
	ErrEmptyWorkerID       = errors.New("worker id is required")
	ErrEmptyContributionID = errors.New("contribution id is required")
)

type eventHandler struct {
	notifier Notifier
	logger   zerolog.Logger
}

func NewEventHandler(notifier Notifier, logger zerolog.Logger) events.Handler {
	return &eventHandler{
		notifier: notifier,
		logger:   logger,
	}
}

func (h *eventHandler) HandleEvent(ctx context.Context, event events.LifecycleEvent) error {
	notification, ok := fromEvent(event)
	if !ok {
		h.logger.Debug().Str("kind", string(event.Kind)).Msg("event needs no notification")
		return nil
	}
	if strings.TrimSpace(event.ContributionID) == "" {
		return ErrEmptyContributionID
	}
	if strings.TrimSpace(event.WorkerID) == "" {
		return ErrEmptyWorkerID
	}

	if err := h.notifier.SendNotification(ctx, notification); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
