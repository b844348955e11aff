package httptransport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge/internal/gate"
	jwttoken "concierge/internal/jwt_token"
	"concierge/internal/lockout"
	"concierge/internal/payment"
	paymenthandler "concierge/internal/payment/handler"
	paymentstore "concierge/internal/payment/store"
	"concierge/internal/redirect"
	"concierge/internal/reservation"
	reservationhandler "concierge/internal/reservation/handler"
	reservationstore "concierge/internal/reservation/store"
	"concierge/internal/rooms"
	roomshandler "concierge/internal/rooms/handler"
	roomsstore "concierge/internal/rooms/store"
	"concierge/internal/session"
	sessionhandler "concierge/internal/session/handler"
	sessionstore "concierge/internal/session/store"
	httptransport "concierge/internal/transport/http"
	"concierge/internal/verify"
	verifyhandler "concierge/internal/verify/handler"
	"concierge/pkg/platform/middleware/metadata"
	"concierge/pkg/testutil"
)

type staticIDP struct{}

func (staticIDP) Verify(context.Context, string) (*session.ExternalIdentity, error) {
	return &session.ExternalIdentity{Email: "ana@example.com", Name: "Ana"}, nil
}

type adultRegistry struct{}

func (adultRegistry) Lookup(context.Context, string) (*verify.Record, error) {
	return &verify.Record{
		FullName:  "Ana María Torres",
		BirthDate: time.Date(1994, 6, 2, 0, 0, 0, 0, time.UTC),
	}, nil
}

// newServer wires the whole stack on memory stores, the way main does.
func newServer(t *testing.T) (http.Handler, *rooms.Service) {
	t.Helper()
	log := testutil.DiscardLogger()

	userStore := sessionstore.NewInMemoryUserStore()
	memory := redirect.NewInMemoryMemory(time.Minute)
	tokens := jwttoken.NewJWTService("test-key", "concierge", "concierge-web")

	sessionSvc := session.NewService(userStore, sessionstore.NewInMemorySessionStore(),
		tokens, staticIDP{}, lockout.New(5, time.Minute, time.Minute), nil, log, time.Hour)
	roomSvc := rooms.NewService(roomsstore.NewInMemoryStore(), nil, log)
	reservationSvc := reservation.NewService(reservationstore.NewInMemoryStore(), roomSvc, nil, log)
	paymentSvc := payment.NewService(paymentstore.NewInMemoryStore(), reservationSvc, nil, log)
	verifySvc := verify.NewService(userStore, sessionSvc, adultRegistry{}, memory, nil, log, "/rooms")

	g := gate.New(sessionSvc, tokens, memory, gate.Paths{}, log, nil)

	router := httptransport.NewRouter(g, httptransport.Handlers{
		Session:     sessionhandler.New(sessionSvc, memory, log, time.Hour, "/rooms"),
		Verify:      verifyhandler.New(verifySvc, log),
		Rooms:       roomshandler.New(roomSvc, log),
		Reservation: reservationhandler.New(reservationSvc, log),
		Payment:     paymenthandler.New(paymentSvc, log),
	}, nil)

	return router, roomSvc
}

// client keeps cookies across requests like a browser would.
type client struct {
	t       *testing.T
	router  http.Handler
	cookies []*http.Cookie
	token   string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body != nil {
		req = testutil.NewJSONRequest(c.t, method, path, body)
	} else {
		req = testutil.NewRequest(c.t, method, path)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	rr := testutil.DoRequest(c.router, req)
	for _, cookie := range rr.Result().Cookies() {
		c.storeCookie(cookie)
	}
	return rr
}

func (c *client) storeCookie(cookie *http.Cookie) {
	for i, existing := range c.cookies {
		if existing.Name == cookie.Name {
			c.cookies[i] = cookie
			return
		}
	}
	c.cookies = append(c.cookies, cookie)
}

func (c *client) login() {
	c.t.Helper()
	rr := c.do(http.MethodPost, "/auth/external", map[string]string{"credential": "cred"})
	testutil.AssertStatus(c.t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Token string `json:"token"`
	}](c.t, rr)
	c.token = resp.Token
}

func (c *client) verifyIdentity() {
	c.t.Helper()
	rr := c.do(http.MethodPost, "/identity/verify",
		map[string]string{"document_number": "40123456", "birth_date": "1994-06-02"})
	testutil.AssertStatus(c.t, rr, http.StatusOK)
}

func TestBookingJourney(t *testing.T) {
	router, roomSvc := newServer(t)
	room, err := roomSvc.Create(context.Background(), &rooms.Room{
		Number:           "301",
		Type:             rooms.TypeDouble,
		Capacity:         2,
		NightlyRateCents: 25000,
		Available:        true,
	})
	require.NoError(t, err)

	c := &client{t: t, router: router}

	checkIn := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	checkOut := time.Now().AddDate(0, 0, 10).Format("2006-01-02")
	stay := map[string]any{
		"room_id":   room.ID.String(),
		"check_in":  checkIn,
		"check_out": checkOut,
		"guests":    2,
	}

	testutil.Given(t, "an anonymous visitor tries to reserve", func(t *testing.T) {
		rr := c.do(http.MethodPost, "/reservations", stay)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
	})

	testutil.When(t, "they log in and verify their identity", func(t *testing.T) {
		c.login()

		// Authenticated but unverified still cannot reserve.
		rr := c.do(http.MethodPost, "/reservations", stay)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/verify-dni", rr.Header().Get("Location"))

		c.verifyIdentity()
	})

	testutil.Then(t, "they can reserve and pay, confirming the booking", func(t *testing.T) {
		rr := c.do(http.MethodPost, "/reservations", stay)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		created := testutil.UnmarshalResponse[struct {
			ID         string `json:"id"`
			TotalCents int64  `json:"total_cents"`
			Status     string `json:"status"`
		}](t, rr)
		assert.Equal(t, "pending", created.Status)
		assert.Equal(t, int64(75000), created.TotalCents)

		rr = c.do(http.MethodPost, "/payments", map[string]any{
			"reservation_id": created.ID,
			"amount_cents":   created.TotalCents,
			"method":         "card",
		})
		testutil.AssertStatus(t, rr, http.StatusCreated)

		rr = c.do(http.MethodGet, "/reservations/"+created.ID, nil)
		testutil.AssertStatus(t, rr, http.StatusOK)
		confirmed := testutil.UnmarshalResponse[struct {
			Status string `json:"status"`
		}](t, rr)
		assert.Equal(t, "confirmed", confirmed.Status)
	})
}

func TestBlockedPathIsResumedAfterLogin(t *testing.T) {
	router, _ := newServer(t)
	c := &client{t: t, router: router}

	// The block stashes the attempted path under the device cookie.
	rr := c.do(http.MethodGet, "/auth/sessions", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	var deviceCookie bool
	for _, cookie := range c.cookies {
		if cookie.Name == metadata.DeviceCookieName {
			deviceCookie = true
		}
	}
	require.True(t, deviceCookie, "blocked request should have set a device cookie")

	rr = c.do(http.MethodPost, "/auth/external", map[string]string{"credential": "cred"})
	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		RedirectTo string `json:"redirect_to"`
	}](t, rr)
	assert.Equal(t, "/auth/sessions", resp.RedirectTo)
}

func TestHealthAndPublicCatalog(t *testing.T) {
	router, _ := newServer(t)
	c := &client{t: t, router: router}

	rr := c.do(http.MethodGet, "/healthz", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = c.do(http.MethodGet, "/rooms", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestStaffOnlyRoutes(t *testing.T) {
	router, _ := newServer(t)
	c := &client{t: t, router: router}
	c.login() // guest role

	rr := c.do(http.MethodGet, "/admin/reservations", nil)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}
