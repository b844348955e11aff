package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"concierge/internal/gate"
	"concierge/internal/redirect"
	"concierge/internal/session"
	"concierge/internal/session/handler"
	"concierge/internal/session/handler/mocks"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	"concierge/pkg/requestcontext"
	"concierge/pkg/testutil"
)

type fixture struct {
	service *mocks.MockService
	memory  *redirect.InMemoryMemory
	router  chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	service := mocks.NewMockService(ctrl)
	memory := redirect.NewInMemoryMemory(time.Minute)

	h := handler.New(service, memory, testutil.DiscardLogger(), time.Hour, "/rooms")
	router := chi.NewRouter()
	h.Register(router)
	h.RegisterProtected(router)

	return &fixture{service: service, memory: memory, router: router}
}

func loginResult() *session.LoginResult {
	return &session.LoginResult{
		Token:     "signed-token",
		SessionID: id.SessionID(uuid.New()),
		Principal: &session.Principal{
			ID:    id.UserID(uuid.New()),
			Email: "ana@example.com",
			Name:  "Ana",
			Role:  session.RoleGuest,
		},
	}
}

func withDevice(req *http.Request, deviceID string) *http.Request {
	return req.WithContext(requestcontext.WithDeviceID(req.Context(), deviceID))
}

func TestExternalLogin(t *testing.T) {
	t.Run("returns token, principal, and the stashed redirect", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.memory.Stash(context.Background(), "device-1", "/reservations/new"))
		f.service.EXPECT().
			ExchangeCredential(gomock.Any(), "idp-credential", gomock.Any()).
			Return(loginResult(), nil)

		req := withDevice(testutil.NewJSONRequest(t, http.MethodPost, "/auth/external",
			map[string]string{"credential": "idp-credential"}), "device-1")
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[struct {
			Token      string `json:"token"`
			RedirectTo string `json:"redirect_to"`
		}](t, rr)
		assert.Equal(t, "signed-token", resp.Token)
		assert.Equal(t, "/reservations/new", resp.RedirectTo)

		cookies := rr.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, gate.TokenCookieName, cookies[0].Name)
		assert.Equal(t, "signed-token", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("falls back to the default landing page", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().
			ExchangeCredential(gomock.Any(), "idp-credential", gomock.Any()).
			Return(loginResult(), nil)

		req := withDevice(testutil.NewJSONRequest(t, http.MethodPost, "/auth/external",
			map[string]string{"credential": "idp-credential"}), "device-1")
		rr := testutil.DoRequest(f.router, req)

		resp := testutil.UnmarshalResponse[struct {
			RedirectTo string `json:"redirect_to"`
		}](t, rr)
		assert.Equal(t, "/rooms", resp.RedirectTo)
	})

	t.Run("rejects a missing credential before calling the service", func(t *testing.T) {
		f := newFixture(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/external", map[string]string{})
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}

func TestLocalLogin(t *testing.T) {
	t.Run("passes credentials through and sets the cookie", func(t *testing.T) {
		f := newFixture(t)
		result := loginResult()
		result.Principal.Role = session.RoleStaff
		f.service.EXPECT().
			LoginLocal(gomock.Any(), "staff@example.com", "s3cret", gomock.Any()).
			Return(result, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "Staff@Example.com", "password": "s3cret"})
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("maps invalid credentials to 401", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().
			LoginLocal(gomock.Any(), "staff@example.com", "wrong", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "staff@example.com", "password": "wrong"})
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("rejects a malformed email", func(t *testing.T) {
		f := newFixture(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "not-an-email", "password": "x"})
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.service.EXPECT().Logout(gomock.Any(), "signed-token").Return(nil)

	req := testutil.NewRequest(t, http.MethodPost, "/auth/logout")
	req.Header.Set("Authorization", "Bearer signed-token")
	rr := testutil.DoRequest(f.router, req)

	testutil.AssertStatus(t, rr, http.StatusNoContent)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, gate.TokenCookieName, cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestSessions(t *testing.T) {
	t.Run("lists sessions for the authenticated user", func(t *testing.T) {
		f := newFixture(t)
		userID := id.UserID(uuid.New())
		current := id.SessionID(uuid.New())
		f.service.EXPECT().
			Sessions(gomock.Any(), userID, current).
			Return([]session.Summary{{SessionID: current.String(), IsCurrent: true}}, nil)

		req := testutil.NewRequest(t, http.MethodGet, "/auth/sessions")
		ctx := requestcontext.WithUserID(req.Context(), userID)
		ctx = requestcontext.WithSessionID(ctx, current)
		rr := testutil.DoRequest(f.router, req.WithContext(ctx))

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string][]session.Summary](t, rr)
		require.Len(t, (*resp)["sessions"], 1)
		assert.True(t, (*resp)["sessions"][0].IsCurrent)
	})

	t.Run("refuses when no user is attached", func(t *testing.T) {
		f := newFixture(t)

		req := testutil.NewRequest(t, http.MethodGet, "/auth/sessions")
		rr := testutil.DoRequest(f.router, req)

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("persists the patch", func(t *testing.T) {
		f := newFixture(t)
		userID := id.UserID(uuid.New())
		f.service.EXPECT().
			UpdateProfile(gomock.Any(), userID, gomock.Any()).
			Return(&session.Principal{ID: userID, Name: "Ana María"}, nil)

		req := testutil.NewJSONRequest(t, http.MethodPatch, "/me", map[string]string{"name": "Ana María"})
		rr := testutil.DoRequest(f.router, req.WithContext(requestcontext.WithUserID(req.Context(), userID)))

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("rejects an empty patch", func(t *testing.T) {
		f := newFixture(t)
		userID := id.UserID(uuid.New())

		req := testutil.NewJSONRequest(t, http.MethodPatch, "/me", map[string]string{})
		rr := testutil.DoRequest(f.router, req.WithContext(requestcontext.WithUserID(req.Context(), userID)))

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}
