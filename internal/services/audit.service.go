package services

import (
	"context"

	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/models"
	"github.com/vigilops/vigil-core/internal/storage"
)

// StreamPublisher pushes engine events to connected dashboard clients. The
// websocket hub implements it; a nil publisher disables streaming.
type StreamPublisher interface {
	Publish(eventType string, data interface{})
}

// AuditService is the engine's audit sink: every state transition and every
// notification attempt lands here. Audit failures are logged, never
// propagated; losing an audit row must not fail the transition it records.
type AuditService struct {
	store  storage.AuditStore
	logger logging.Logger
	stream StreamPublisher
}

func NewAuditService(store storage.AuditStore, log logging.Logger, stream StreamPublisher) *AuditService {
	return &AuditService{store: store, logger: log, stream: stream}
}

func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) {
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.logger.Error("Audit append failed",
			"category", entry.Category, "action", entry.Action, "error", err)
	}
	if s.stream != nil {
		s.stream.Publish(entry.Category, entry)
	}
}

func (s *AuditService) Query(ctx context.Context, q models.AuditQuery) ([]models.AuditEntry, error) {
	return s.store.QueryAudit(ctx, q)
}
