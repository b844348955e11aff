// Package handler exposes the room catalog endpoints. Browsing is public;
// catalog management is mounted behind the staff gate.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"concierge/internal/rooms"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	"concierge/pkg/platform/httputil"
	"concierge/pkg/requestcontext"
)

// Service defines the catalog operations the handler needs.
type Service interface {
	List(ctx context.Context, availableOnly bool) ([]*rooms.Room, error)
	Get(ctx context.Context, roomID id.RoomID) (*rooms.Room, error)
	Create(ctx context.Context, room *rooms.Room) (*rooms.Room, error)
	Update(ctx context.Context, roomID id.RoomID, patch rooms.RoomPatch) (*rooms.Room, error)
	Delete(ctx context.Context, roomID id.RoomID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public catalog endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/rooms", h.HandleList)
	r.Get("/rooms/{roomID}", h.HandleGet)
}

// RegisterAdmin mounts the staff-only catalog management endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/rooms", h.HandleCreate)
	r.Patch("/admin/rooms/{roomID}", h.HandleUpdate)
	r.Delete("/admin/rooms/{roomID}", h.HandleDelete)
}

// HandleList handles GET /rooms. Guests see available rooms; ?all=true shows
// the whole catalog.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	availableOnly := r.URL.Query().Get("all") != "true"

	list, err := h.service.List(r.Context(), availableOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]*rooms.Room{"rooms": list})
}

// HandleGet handles GET /rooms/{roomID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	roomID, err := id.ParseRoomID(chi.URLParam(r, "roomID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	room, err := h.service.Get(r.Context(), roomID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, room)
}

// CreateRoomRequest is the HTTP request body for POST /admin/rooms.
type CreateRoomRequest struct {
	Number           string `json:"number"`
	Type             string `json:"type"`
	Description      string `json:"description"`
	Capacity         int    `json:"capacity"`
	NightlyRateCents int64  `json:"nightly_rate_cents"`

	parsedType rooms.RoomType
}

func (r *CreateRoomRequest) Normalize() {
	r.Number = strings.TrimSpace(r.Number)
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
}

func (r *CreateRoomRequest) Validate() error {
	if r.Number == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "number is required")
	}
	parsed, err := rooms.ParseRoomType(r.Type)
	if err != nil {
		return err
	}
	r.parsedType = parsed
	return nil
}

// HandleCreate handles POST /admin/rooms.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRoomRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	room, err := h.service.Create(ctx, &rooms.Room{
		Number:           req.Number,
		Type:             req.parsedType,
		Description:      req.Description,
		Capacity:         req.Capacity,
		NightlyRateCents: req.NightlyRateCents,
		Available:        true,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "room created",
		"request_id", requestID,
		"room_id", room.ID,
		"number", room.Number,
	)
	httputil.WriteJSON(w, http.StatusCreated, room)
}

// UpdateRoomRequest is the HTTP request body for PATCH /admin/rooms/{roomID}.
type UpdateRoomRequest struct {
	Description      *string `json:"description"`
	Capacity         *int    `json:"capacity"`
	NightlyRateCents *int64  `json:"nightly_rate_cents"`
	Available        *bool   `json:"available"`
}

func (r *UpdateRoomRequest) Validate() error {
	if r.Description == nil && r.Capacity == nil && r.NightlyRateCents == nil && r.Available == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "nothing to update")
	}
	return nil
}

// HandleUpdate handles PATCH /admin/rooms/{roomID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roomID, err := id.ParseRoomID(chi.URLParam(r, "roomID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateRoomRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	room, err := h.service.Update(ctx, roomID, rooms.RoomPatch{
		Description:      req.Description,
		Capacity:         req.Capacity,
		NightlyRateCents: req.NightlyRateCents,
		Available:        req.Available,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, room)
}

// HandleDelete handles DELETE /admin/rooms/{roomID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	roomID, err := id.ParseRoomID(chi.URLParam(r, "roomID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), roomID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
