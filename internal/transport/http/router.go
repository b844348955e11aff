// Package httptransport assembles the HTTP router: platform middleware, the
// public surface, and the gated groups.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"concierge/internal/gate"
	paymenthandler "concierge/internal/payment/handler"
	reservationhandler "concierge/internal/reservation/handler"
	roomshandler "concierge/internal/rooms/handler"
	"concierge/internal/session"
	sessionhandler "concierge/internal/session/handler"
	verifyhandler "concierge/internal/verify/handler"
	"concierge/pkg/platform/httputil"
	"concierge/pkg/platform/middleware/metadata"
	"concierge/pkg/platform/middleware/request"
	"concierge/pkg/platform/middleware/requesttime"
)

// Handlers groups the per-feature handlers the router mounts.
type Handlers struct {
	Session     *sessionhandler.Handler
	Verify      *verifyhandler.Handler
	Rooms       *roomshandler.Handler
	Reservation *reservationhandler.Handler
	Payment     *paymenthandler.Handler
}

// NewRouter wires middleware and routes. Route protection levels:
// public (catalog, login), authenticated (profile, verification), verified
// (reservations, payments), staff (admin).
func NewRouter(g *gate.Gate, h Handlers, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(requesttime.Middleware)
	r.Use(request.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// Public: browsing and the login flows blocked navigation lands on.
	h.Rooms.Register(r)
	h.Session.Register(r)

	// Authenticated, verified or not. Verification itself lives here.
	r.Group(func(r chi.Router) {
		r.Use(g.RequireAuth)
		h.Session.RegisterProtected(r)
		h.Verify.Register(r)
	})

	// Verified guests only.
	r.Group(func(r chi.Router) {
		r.Use(g.RequireVerified)
		h.Reservation.Register(r)
		h.Payment.Register(r)
	})

	// Staff.
	r.Group(func(r chi.Router) {
		r.Use(g.RequireAuth)
		r.Use(g.RequireRole(session.RoleStaff))
		h.Rooms.RegisterAdmin(r)
		h.Reservation.RegisterAdmin(r)
	})

	return r
}
