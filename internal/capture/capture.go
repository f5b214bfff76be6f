// Package capture is the document capture module: file validation, per-side
// slots with previews, and the orchestrated upload workflow.
package capture

import (
	"log/slog"
	"net/http"

	"veridoc/internal/capture/handler"
	"veridoc/internal/capture/preview"
	"veridoc/internal/capture/registry"
	"veridoc/internal/capture/service"
	"veridoc/internal/capture/upload"
	"veridoc/internal/capture/validator"
	"veridoc/internal/platform/middleware"
)

// Service coordinates capture sessions and submissions.
type Service = service.Service

// Handler wires the capture HTTP endpoints.
type Handler = handler.Handler

// Orchestrator runs the multi-stage upload workflow.
type Orchestrator = upload.Orchestrator

// NewService constructs the capture service with the production signature
// table and document type registry. The preview manager is injected so the
// caller can point the leak gauge at it.
func NewService(orchestrator *upload.Orchestrator, previews *preview.Manager, logger *slog.Logger, opts ...service.Option) (*Service, error) {
	fileValidator, err := validator.New(registry.DefaultSignatureTable(), validator.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	opts = append([]service.Option{service.WithLogger(logger)}, opts...)
	return service.New(registry.DefaultDocumentTypes(), fileValidator, previews, orchestrator, opts...)
}

// NewHandler constructs the HTTP handler for operator-facing capture routes.
// Extra middlewares (rate limiting and the like) run after authentication.
func NewHandler(s *Service, logger *slog.Logger, validator middleware.TokenValidator, middlewares ...func(http.Handler) http.Handler) *Handler {
	return handler.New(s, logger, validator, middlewares...)
}
