// Package handler exposes the reservation endpoints. All of them sit behind
// the verified gate; staff listing sits behind the staff gate.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"concierge/internal/gate"
	"concierge/internal/reservation"
	"concierge/internal/session"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	"concierge/pkg/platform/httputil"
	"concierge/pkg/requestcontext"
)

const dateLayout = "2006-01-02"

// Service defines the reservation operations the handler needs.
type Service interface {
	QuoteStay(ctx context.Context, roomID id.RoomID, checkIn, checkOut time.Time, services []reservation.Extra) (*reservation.Quote, error)
	Create(ctx context.Context, req reservation.CreateRequest) (*reservation.Reservation, error)
	Get(ctx context.Context, resID id.ReservationID, callerID id.UserID, isStaff bool) (*reservation.Reservation, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*reservation.Reservation, error)
	ListAll(ctx context.Context) ([]*reservation.Reservation, error)
	Cancel(ctx context.Context, resID id.ReservationID, callerID id.UserID, isStaff bool) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the guest-facing reservation endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/reservations/quote", h.HandleQuote)
	r.Post("/reservations", h.HandleCreate)
	r.Get("/reservations", h.HandleList)
	r.Get("/reservations/{reservationID}", h.HandleGet)
	r.Delete("/reservations/{reservationID}", h.HandleCancel)
}

// RegisterAdmin mounts the staff-only endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/reservations", h.HandleListAll)
}

// StayRequest is the HTTP request body for quoting and creating a stay.
type StayRequest struct {
	RoomID   string   `json:"room_id"`
	CheckIn  string   `json:"check_in"`
	CheckOut string   `json:"check_out"`
	Guests   int      `json:"guests"`
	Services []string `json:"services"`

	parsedRoomID   id.RoomID
	parsedCheckIn  time.Time
	parsedCheckOut time.Time
	parsedServices []reservation.Extra
}

func (r *StayRequest) Validate() error {
	roomID, err := id.ParseRoomID(r.RoomID)
	if err != nil {
		return err
	}
	r.parsedRoomID = roomID

	r.parsedCheckIn, err = time.Parse(dateLayout, r.CheckIn)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "check_in must be formatted YYYY-MM-DD")
	}
	r.parsedCheckOut, err = time.Parse(dateLayout, r.CheckOut)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "check_out must be formatted YYYY-MM-DD")
	}

	r.parsedServices = make([]reservation.Extra, 0, len(r.Services))
	for _, raw := range r.Services {
		extra, err := reservation.ParseExtra(raw)
		if err != nil {
			return err
		}
		r.parsedServices = append(r.parsedServices, extra)
	}
	return nil
}

// HandleQuote handles POST /reservations/quote.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[StayRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	quote, err := h.service.QuoteStay(ctx, req.parsedRoomID, req.parsedCheckIn, req.parsedCheckOut, req.parsedServices)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, quote)
}

// HandleCreate handles POST /reservations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[StayRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Create(ctx, reservation.CreateRequest{
		UserID:   userID,
		RoomID:   req.parsedRoomID,
		CheckIn:  req.parsedCheckIn,
		CheckOut: req.parsedCheckOut,
		Guests:   req.Guests,
		Services: req.parsedServices,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "reservation failed",
			"request_id", requestID,
			"user_id", userID,
			"room_id", req.RoomID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reservation created",
		"request_id", requestID,
		"user_id", userID,
		"reservation_id", res.ID,
		"total_cents", res.TotalCents,
	)
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// HandleList handles GET /reservations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	list, err := h.service.ListByUser(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]*reservation.Reservation{"reservations": list})
}

// HandleGet handles GET /reservations/{reservationID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resID, err := id.ParseReservationID(chi.URLParam(r, "reservationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Get(ctx, resID, requestcontext.UserID(ctx), isStaff(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleCancel handles DELETE /reservations/{reservationID}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resID, err := id.ParseReservationID(chi.URLParam(r, "reservationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Cancel(ctx, resID, requestcontext.UserID(ctx), isStaff(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListAll handles GET /admin/reservations.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAll(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]*reservation.Reservation{"reservations": list})
}

func isStaff(ctx context.Context) bool {
	p, ok := gate.PrincipalFrom(ctx)
	return ok && p.Role == session.RoleStaff
}
