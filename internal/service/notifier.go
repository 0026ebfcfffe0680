package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/edutrack/gradebook-api/internal/models"
)

// Notifier receives discrete event payloads destined for the messaging
// subsystem. The core only emits; delivery lives behind this interface.
type Notifier interface {
	Notify(ctx context.Context, event models.GradeEvent)
}

// NopNotifier drops events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, models.GradeEvent) {}

// LogNotifier records events on the application log. It stands in until a
// real delivery channel is attached.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event models.GradeEvent) {
	n.logger.Info("grade_event",
		zap.String("type", event.Type),
		zap.String("school_id", event.SchoolID),
		zap.String("subject_id", event.SubjectID),
		zap.String("student_id", event.StudentID),
		zap.String("grade", event.Grade),
	)
}
