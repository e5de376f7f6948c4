package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credvault/internal/credential/models"
	"credvault/internal/credential/service"
	"credvault/internal/platform/middleware"
	"credvault/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/credential_mocks.go -package=mocks Service

// Service defines the interface for credential operations.
type Service interface {
	Issue(ctx context.Context, req *models.IssueRequest) (*service.IssueResult, error)
	Verify(ctx context.Context, req *models.VerifyRequest) (*service.VerifyResult, error)
}

// Handler wires the credential HTTP endpoints to the service. Each binary
// registers only the surface it serves.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a new credential Handler.
func New(s Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: s,
	}
}

// RegisterIssuance mounts the issuance route.
func (h *Handler) RegisterIssuance(r chi.Router) {
	r.Post("/api/issue", h.handleIssue)
}

// RegisterVerification mounts the verification route.
func (h *Handler) RegisterVerification(r chi.Router) {
	r.Post("/api/verify", h.handleVerify)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.IssueRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	result, err := h.service.Issue(ctx, req)
	if err != nil {
		var dup *service.DuplicateError
		if errors.As(err, &dup) {
			httputil.WriteJSON(w, http.StatusConflict, duplicateResponse(dup))
			return
		}
		h.logger.ErrorContext(ctx, "failed to issue credential",
			"request_id", requestID,
			"credential_id", req.CredentialID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{
		Success: true,
		Message: result.Message,
		Data:    issuedData(result.Credential),
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.VerifyRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req)
	if err != nil {
		var nf *service.NotFoundError
		if errors.As(err, &nf) {
			httputil.WriteJSON(w, http.StatusNotFound, NotFoundResponse{
				Success:    false,
				Message:    nf.Error(),
				Verified:   false,
				VerifiedBy: nf.VerifiedBy,
				Timestamp:  nf.Timestamp.Format(time.RFC3339),
			})
			return
		}
		h.logger.ErrorContext(ctx, "failed to verify credential",
			"request_id", requestID,
			"credential_id", req.CredentialID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{
		Success:   true,
		Verified:  result.Verified,
		Message:   result.Message,
		Data:      verifiedData(result),
		Timestamp: result.Timestamp.Format(time.RFC3339),
	})
}

func duplicateResponse(dup *service.DuplicateError) DuplicateResponse {
	resp := DuplicateResponse{
		Success:  false,
		Message:  dup.Error(),
		IssuedBy: dup.IssuedBy,
	}
	if !dup.IssuedAt.IsZero() {
		issuedAt := dup.IssuedAt
		resp.IssuedAt = &issuedAt
	}
	return resp
}

// NotFound is the JSON fallback for unrecognized routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{
		Success: false,
		Message: "Route not found",
	})
}
