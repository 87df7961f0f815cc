package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
)

// AuditService writes a structured log line for every auth event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	events.SubscribeAll(a.dispatcher, a.handle)
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("role", string(event.Role)),
		zap.Time("at", event.Timestamp),
	}
	if session, ok := event.Payload.(events.SessionPayload); ok {
		fields = append(fields, zap.String("refresh_token_id", session.RefreshTokenID))
		if session.PreviousRefreshTokenID != "" {
			fields = append(fields, zap.String("previous_refresh_token_id", session.PreviousRefreshTokenID))
		}
	}
	a.logger.Info("auth event", fields...)
	return nil
}
