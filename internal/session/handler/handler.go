// Package handler exposes the authentication endpoints: credential exchange,
// local login, logout, profile, and the device sessions listing.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"concierge/internal/gate"
	"concierge/internal/redirect"
	"concierge/internal/session"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	"concierge/pkg/platform/httputil"
	"concierge/pkg/platform/middleware/metadata"
	"concierge/pkg/requestcontext"
)

// Service defines the session operations the handler needs.
//
//go:generate mockgen -source=handler.go -destination=mocks/mock_service.go -package=mocks
type Service interface {
	ExchangeCredential(ctx context.Context, credential string, meta session.Meta) (*session.LoginResult, error)
	LoginLocal(ctx context.Context, email, password string, meta session.Meta) (*session.LoginResult, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, userID id.UserID, patch session.PrincipalPatch) (*session.Principal, error)
	Sessions(ctx context.Context, userID id.UserID, current id.SessionID) ([]session.Summary, error)
}

// Handler wires authentication endpoints to the session service.
type Handler struct {
	service        Service
	memory         redirect.Memory
	logger         *slog.Logger
	tokenTTL       time.Duration
	defaultLanding string
}

func New(service Service, memory redirect.Memory, logger *slog.Logger, tokenTTL time.Duration, defaultLanding string) *Handler {
	if defaultLanding == "" {
		defaultLanding = "/rooms"
	}
	return &Handler{
		service:        service,
		memory:         memory,
		logger:         logger,
		tokenTTL:       tokenTTL,
		defaultLanding: defaultLanding,
	}
}

// Register mounts the public authentication endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/external", h.HandleExternalLogin)
	r.Post("/auth/login", h.HandleLocalLogin)
}

// RegisterProtected mounts the endpoints that require an authenticated
// caller. The router is expected to wrap them with the gate.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/sessions", h.HandleSessions)
	r.Get("/me", h.HandleMe)
	r.Patch("/me", h.HandleUpdateProfile)
}

// loginResponse is the body for both login endpoints. RedirectTo is where the
// client should navigate next: the path stashed when the gate blocked them,
// or the default landing page.
type loginResponse struct {
	Token      string             `json:"token"`
	Principal  *session.Principal `json:"principal"`
	RedirectTo string             `json:"redirect_to"`
}

// HandleExternalLogin handles POST /auth/external.
func (h *Handler) HandleExternalLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ExternalLoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.ExchangeCredential(ctx, req.Credential, h.meta(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "external login failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.finishLogin(w, r, result, requestID)
}

// HandleLocalLogin handles POST /auth/login.
func (h *Handler) HandleLocalLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LocalLoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.LoginLocal(ctx, req.Email, req.Password, h.meta(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "local login failed",
			"request_id", requestID,
			"email", req.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.finishLogin(w, r, result, requestID)
}

func (h *Handler) finishLogin(w http.ResponseWriter, r *http.Request, result *session.LoginResult, requestID string) {
	ctx := r.Context()

	redirectTo := h.defaultLanding
	if h.memory != nil {
		if key := requestcontext.DeviceID(ctx); key != "" {
			target, err := h.memory.ConsumeOrDefault(ctx, key, h.defaultLanding)
			if err != nil {
				h.logger.WarnContext(ctx, "failed to consume redirect path",
					"request_id", requestID,
					"error", err,
				)
			} else {
				redirectTo = target
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     gate.TokenCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  requestcontext.Now(ctx).Add(h.tokenTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.InfoContext(ctx, "login succeeded",
		"request_id", requestID,
		"user_id", result.Principal.ID,
		"session_id", result.SessionID,
	)

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:      result.Token,
		Principal:  result.Principal,
		RedirectTo: redirectTo,
	})
}

// HandleLogout handles POST /auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Logout(ctx, gate.TokenFromRequest(r)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Expire the cookie regardless of whether the session still existed.
	http.SetCookie(w, &http.Cookie{
		Name:     gate.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := gate.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, principal)
}

// HandleUpdateProfile handles PATCH /me.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	principal, err := h.service.UpdateProfile(ctx, userID, session.PrincipalPatch{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, principal)
}

// HandleSessions handles GET /auth/sessions.
func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	summaries, err := h.service.Sessions(ctx, userID, requestcontext.SessionID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string][]session.Summary{"sessions": summaries})
}

func (h *Handler) meta(ctx context.Context) session.Meta {
	return session.Meta{
		DeviceName: metadata.DeviceDisplayName(requestcontext.UserAgent(ctx)),
		IPAddress:  requestcontext.ClientIP(ctx),
	}
}
