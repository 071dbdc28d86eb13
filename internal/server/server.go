// Package server exposes the pharmacy store over a JSON REST API.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"

	"github.com/alfredjeanlab/pharmacy/internal/auth"
	"github.com/alfredjeanlab/pharmacy/internal/events"
	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// Server holds the dependencies shared by every handler.
type Server struct {
	store     store.Store
	publisher events.Publisher
	tokens    *auth.Issuer
	sseHub    *sseHub

	validate *validator.Validate
	trans    ut.Translator
}

// New returns a Server backed by the given store. A nil publisher disables
// event publishing.
func New(s store.Store, p events.Publisher, tokens *auth.Issuer) *Server {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	v, trans := newValidator()
	return &Server{
		store:     s,
		publisher: p,
		tokens:    tokens,
		sseHub:    newSSEHub(),
		validate:  v,
		trans:     trans,
	}
}

// recordAndPublish persists an audit event, publishes it to the bus and fans
// it out to SSE clients. All three are best-effort: the mutation has already
// been committed, so failures are logged and the request still succeeds.
func (s *Server) recordAndPublish(ctx context.Context, topic, entity, id string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "entity_id", id, "error", err)
		return
	}
	if err := s.store.RecordAuditEvent(ctx, &model.AuditEvent{
		Topic:      topic,
		EntityType: entity,
		EntityID:   id,
		Actor:      auth.Actor(ctx),
		Payload:    payload,
	}); err != nil {
		slog.Warn("failed to record audit event", "topic", topic, "entity_id", id, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "entity_id", id, "error", err)
	}
	s.sseHub.broadcast(topic, payload)
}

// Notify records and publishes an event raised outside a request, such as a
// completed backup.
func (s *Server) Notify(ctx context.Context, topic, entity, id string, event any) {
	s.recordAndPublish(ctx, topic, entity, id, event)
}
