package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/academy_portal/internal/events"
	"github.com/Freeeeeet/academy_portal/internal/notify"
	"go.uber.org/zap"
)

const sideEffectTimeout = 5 * time.Second

// Dispatcher runs post-commit side effects. Их ошибки только логируются:
// основная операция уже зафиксирована в БД.
type Dispatcher struct {
	publisher events.Publisher
	notifier  notify.Notifier
	logger    *zap.Logger
}

func NewDispatcher(publisher events.Publisher, notifier notify.Notifier, logger *zap.Logger) *Dispatcher {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Dispatcher{
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
	}
}

// Emit publishes the event and, when message is not empty, notifies the admins
func (d *Dispatcher) Emit(ctx context.Context, event events.Event, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Warn("Failed to publish event",
			zap.String("event_type", event.Type),
			zap.String("key", event.Key),
			zap.Error(fmt.Errorf("%w: %w", ErrDependencyFailure, err)),
		)
	}

	if message == "" {
		return
	}

	if err := d.notifier.Notify(ctx, message); err != nil {
		d.logger.Warn("Failed to notify admins",
			zap.String("event_type", event.Type),
			zap.Error(fmt.Errorf("%w: %w", ErrDependencyFailure, err)),
		)
	}
}
