// Package handler exposes the payment endpoints, mounted behind the verified
// gate.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"concierge/internal/gate"
	"concierge/internal/payment"
	"concierge/internal/session"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	"concierge/pkg/platform/httputil"
	"concierge/pkg/requestcontext"
)

// Service defines the payment operations the handler needs.
type Service interface {
	Record(ctx context.Context, callerID id.UserID, resID id.ReservationID, amountCents int64, method payment.Method) (*payment.Payment, error)
	ForReservation(ctx context.Context, callerID id.UserID, resID id.ReservationID, isStaff bool) (*payment.Payment, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the payment endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payments", h.HandleRecord)
	r.Get("/reservations/{reservationID}/payment", h.HandleForReservation)
}

// RecordPaymentRequest is the HTTP request body for POST /payments.
type RecordPaymentRequest struct {
	ReservationID string `json:"reservation_id"`
	AmountCents   int64  `json:"amount_cents"`
	Method        string `json:"method"`

	parsedReservationID id.ReservationID
	parsedMethod        payment.Method
}

func (r *RecordPaymentRequest) Normalize() {
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))
}

func (r *RecordPaymentRequest) Validate() error {
	resID, err := id.ParseReservationID(r.ReservationID)
	if err != nil {
		return err
	}
	r.parsedReservationID = resID

	if r.AmountCents <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	method, err := payment.ParseMethod(r.Method)
	if err != nil {
		return err
	}
	r.parsedMethod = method
	return nil
}

// HandleRecord handles POST /payments.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RecordPaymentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.Record(ctx, userID, req.parsedReservationID, req.AmountCents, req.parsedMethod)
	if err != nil {
		h.logger.WarnContext(ctx, "payment rejected",
			"request_id", requestID,
			"user_id", userID,
			"reservation_id", req.ReservationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "payment recorded",
		"request_id", requestID,
		"user_id", userID,
		"reservation_id", req.ReservationID,
		"amount_cents", p.AmountCents,
	)
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// HandleForReservation handles GET /reservations/{reservationID}/payment.
func (h *Handler) HandleForReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resID, err := id.ParseReservationID(chi.URLParam(r, "reservationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	isStaff := false
	if p, ok := gate.PrincipalFrom(ctx); ok {
		isStaff = p.Role == session.RoleStaff
	}

	p, err := h.service.ForReservation(ctx, requestcontext.UserID(ctx), resID, isStaff)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}
