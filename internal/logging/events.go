package logging

import (
	"github.com/jaa/ytmp3/internal/output"
	"go.uber.org/zap"
)

// EventSink mirrors user-facing events into the diagnostic log.
type EventSink struct {
	logger *zap.Logger
}

func NewEventSink(logger *zap.Logger) *EventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventSink{logger: logger}
}

func (s *EventSink) Emit(event output.Event) error {
	fields := []zap.Field{zap.String("event", string(event.Event))}
	if event.BatchID != "" {
		fields = append(fields, zap.String("batch_id", event.BatchID))
	}
	if event.ItemIndex > 0 {
		fields = append(fields, zap.Int("item_index", event.ItemIndex))
	}
	if len(event.Details) > 0 {
		fields = append(fields, zap.Any("details", event.Details))
	}

	switch event.Level {
	case output.LevelError:
		s.logger.Error(event.Message, fields...)
	case output.LevelWarn:
		s.logger.Warn(event.Message, fields...)
	default:
		s.logger.Info(event.Message, fields...)
	}
	return nil
}
