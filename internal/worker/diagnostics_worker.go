package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/events"
)

// StartDiagnosticsWorker subscribes debug-level handlers for the tracker's
// domain events so operators can trace the pipeline without raising the
// global log level on the hot path.
func StartDiagnosticsWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}

	log := func(ctx context.Context, event events.Event) error {
		logger.Debug("domain event",
			zap.String("event", string(event.Type)),
			zap.String("id", event.ID),
			zap.Any("payload", event.Payload),
		)
		return nil
	}

	for _, eventType := range []events.EventType{
		events.EventActivityRecorded,
		events.EventMessageLogged,
		events.EventChannelTracked,
		events.EventChannelPruned,
		events.EventWindowReset,
		events.EventReportSent,
		events.EventDataWiped,
	} {
		dispatcher.Subscribe(eventType, log)
	}
}
