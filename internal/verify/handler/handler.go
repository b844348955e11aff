// Package handler exposes the identity verification endpoint.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"concierge/internal/verify"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	"concierge/pkg/platform/httputil"
	"concierge/pkg/requestcontext"
)

// Service defines the verification operation the handler needs.
type Service interface {
	Verify(ctx context.Context, userID id.UserID, dni, birthDate, redirectKey string) (*verify.Result, error)
}

// Handler wires the verification endpoint to the verify service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the verification endpoint. The router wraps it with the
// authentication gate; verification itself is what unlocks verified-only
// routes, so it must not require verification.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identity/verify", h.HandleVerify)
}

// VerifyRequest is the HTTP request body for POST /identity/verify.
type VerifyRequest struct {
	DocumentNumber string `json:"document_number"`
	BirthDate      string `json:"birth_date"`
}

func (r *VerifyRequest) Normalize() {
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
}

func (r *VerifyRequest) Validate() error {
	if err := verify.ValidateDNI(r.DocumentNumber); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", r.BirthDate); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "birth_date must be formatted YYYY-MM-DD")
	}
	return nil
}

type verifyResponse struct {
	Principal  any    `json:"principal"`
	RedirectTo string `json:"redirect_to"`
}

// HandleVerify handles POST /identity/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, userID, req.DocumentNumber, req.BirthDate, requestcontext.DeviceID(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "identity verification failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity verified",
		"request_id", requestID,
		"user_id", userID,
	)

	httputil.WriteJSON(w, http.StatusOK, verifyResponse{
		Principal:  result.Principal,
		RedirectTo: result.RedirectTo,
	})
}
