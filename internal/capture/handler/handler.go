// Package handler exposes the capture workflow over HTTP for the operator
// dashboard.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veridoc/internal/capture/models"
	"veridoc/internal/capture/service"
	"veridoc/internal/platform/middleware"
	id "veridoc/pkg/domain"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/requestcontext"
)

// maxUploadBytes bounds the multipart body. Slightly above the file ceiling
// so the validator, not the transport, produces the size rejection message.
const maxUploadBytes = 52*1024*1024 + 1024

// Handler handles capture endpoints.
type Handler struct {
	logger      *slog.Logger
	capture     *service.Service
	validator   middleware.TokenValidator
	middlewares []func(http.Handler) http.Handler
}

// New creates a capture Handler. Extra middlewares run after authentication,
// so they see the operator identity in the request context.
func New(capture *service.Service, logger *slog.Logger, validator middleware.TokenValidator, middlewares ...func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:      logger,
		capture:     capture,
		validator:   validator,
		middlewares: middlewares,
	}
}

// Register mounts the capture routes.
func (h *Handler) Register(r chi.Router) {
	captureRouter := chi.NewRouter()
	if h.validator != nil {
		captureRouter.Use(middleware.RequireAuth(h.validator, h.logger))
	}
	captureRouter.Use(h.middlewares...)

	captureRouter.Get("/capture/document-types", h.handleDocumentTypes)
	captureRouter.Post("/capture/sessions", h.handleCreateSession)
	captureRouter.Post("/capture/sessions/{sessionID}/files/{side}", h.handleAttachFile)
	captureRouter.Delete("/capture/sessions/{sessionID}/files/{side}", h.handleClearSlot)
	captureRouter.Post("/capture/sessions/{sessionID}/submit", h.handleSubmit)
	captureRouter.Post("/capture/sessions/{sessionID}/cancel", h.handleCancel)
	captureRouter.Get("/capture/sessions/{sessionID}/progress", h.handleProgress)
	captureRouter.Delete("/capture/sessions/{sessionID}", h.handleDiscard)
	captureRouter.Get("/capture/applicants/{applicantID}/documents", h.handleListDocuments)

	r.Mount("/", captureRouter)
}

// RegisterAdmin mounts the back-office routes behind the pre-shared admin
// key, bypassing operator tokens. An empty hash leaves the surface dark.
func (h *Handler) RegisterAdmin(r chi.Router, adminKeyHash string) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.RequireAdmin(adminKeyHash))
	adminRouter.Get("/applicants/{applicantID}/documents", h.handleListDocuments)
	r.Mount("/admin", adminRouter)
}

func (h *Handler) handleDocumentTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"document_types": h.capture.DocumentTypes(),
	})
}

type createSessionRequest struct {
	ApplicantID  string `json:"applicant_id"`
	DocumentType string `json:"document_type"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	applicantID, err := id.ParseApplicantID(req.ApplicantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sess, err := h.capture.CreateSession(ctx, applicantID, req.DocumentType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id":    sess.ID().String(),
		"applicant_id":  applicantID.String(),
		"document_type": sess.DocumentType(),
	})
}

func (h *Handler) handleAttachFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseCaptureSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	side := models.Side(chi.URLParam(r, "side"))

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		h.writeError(w, r, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "multipart field 'file' is required"))
		return
	}
	defer part.Close()

	// The multipart form is torn down when this request finishes, so the
	// candidate is spooled to storage the slot owns; the background upload
	// reads it long after the form's temp files are gone.
	file, err := models.SpoolCandidateFile(header.Filename, header.Header.Get("Content-Type"), part)
	if err != nil {
		h.writeError(w, r, dErrors.Wrap(err, dErrors.CodeInternal, "failed to buffer upload"))
		return
	}

	verdict, err := h.capture.AttachFile(ctx, sessionID, side, file)
	if err != nil {
		file.Discard()
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (h *Handler) handleClearSlot(w http.ResponseWriter, r *http.Request) {
	sessionID, err := id.ParseCaptureSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.capture.ClearSlot(r.Context(), sessionID, models.Side(chi.URLParam(r, "side"))); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submitRequest struct {
	TriggerAnalysis bool `json:"trigger_analysis"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseCaptureSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req submitRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	if err := h.capture.Submit(ctx, sessionID, req.TriggerAnalysis); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id": sessionID.String(),
		"status":     "submitted",
	})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	sessionID, err := id.ParseCaptureSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.capture.Cancel(r.Context(), sessionID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	sessionID, err := id.ParseCaptureSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.capture.Progress(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	sessionID, err := id.ParseCaptureSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.capture.Discard(r.Context(), sessionID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	applicantID, err := id.ParseApplicantID(chi.URLParam(r, "applicantID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	docs, err := h.capture.Documents(r.Context(), applicantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 && h.logger != nil {
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, map[string]any{
		"error":             string(dErrors.CodeOf(err)),
		"error_description": dErrors.MessageOf(err),
	})
}

func statusFor(err error) int {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvariantViolation, dErrors.CodeCancelled:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
