// Package gate guards protected routes. It resolves the caller's session
// snapshot, evaluates it against the route's requirement, and either lets the
// request through with the principal attached or blocks it toward the right
// remediation flow, remembering where the caller was headed.
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	jwttoken "concierge/internal/jwt_token"
	"concierge/internal/redirect"
	"concierge/internal/session"
	id "concierge/pkg/domain"
	dErrors "concierge/pkg/domain-errors"
	audit "concierge/pkg/platform/audit"
	"concierge/pkg/platform/audit/publisher"
	"concierge/pkg/platform/httputil"
	"concierge/pkg/requestcontext"
)

// TokenCookieName is the cookie carrying the access token for browser
// clients. API clients send the same token as a bearer header.
const TokenCookieName = "concierge_token"

// Decision is the outcome of evaluating a snapshot against a requirement.
type Decision int

const (
	// DecisionPending means the session state is not resolved yet. The gate
	// must suspend judgment, never treat an unresolved session as anonymous.
	DecisionPending Decision = iota
	DecisionAllowed
	DecisionBlockedUnauthenticated
	DecisionBlockedUnverified
)

func (d Decision) String() string {
	switch d {
	case DecisionAllowed:
		return "allowed"
	case DecisionBlockedUnauthenticated:
		return "blocked_unauthenticated"
	case DecisionBlockedUnverified:
		return "blocked_unverified"
	default:
		return "pending"
	}
}

// Evaluate is the pure gate rule. It never performs IO; callers resolve the
// snapshot first and act on the decision afterwards.
func Evaluate(snap session.Snapshot, needVerified bool) Decision {
	switch snap.State {
	case session.StateUnknown:
		return DecisionPending
	case session.StateAnonymous:
		return DecisionBlockedUnauthenticated
	case session.StateAuthenticated:
		if needVerified && !snap.Principal.IsVerified() {
			return DecisionBlockedUnverified
		}
		return DecisionAllowed
	default:
		return DecisionPending
	}
}

// SnapshotResolver turns a persisted token into a session snapshot.
type SnapshotResolver interface {
	Bootstrap(ctx context.Context, token string) (session.Snapshot, error)
}

// TokenValidator recovers the claims behind a token so the gate can attach
// the session reference to the request context.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// Paths are the remediation targets blocked requests are redirected to.
type Paths struct {
	Login  string
	Verify string
}

// Gate is the HTTP face of Evaluate.
type Gate struct {
	resolver SnapshotResolver
	tokens   TokenValidator
	memory   redirect.Memory
	paths    Paths
	logger   *slog.Logger
	metrics  *Metrics
	audit    *publisher.Publisher
}

// New builds a Gate. A nil resolver is a wiring bug that would silently let
// every protected route fail closed, so it panics at construction instead of
// at first request.
func New(resolver SnapshotResolver, tokens TokenValidator, memory redirect.Memory, paths Paths, logger *slog.Logger, metrics *Metrics) *Gate {
	if resolver == nil {
		panic("gate: nil snapshot resolver")
	}
	if paths.Login == "" {
		paths.Login = "/login"
	}
	if paths.Verify == "" {
		paths.Verify = "/verify-dni"
	}
	return &Gate{
		resolver: resolver,
		tokens:   tokens,
		memory:   memory,
		paths:    paths,
		logger:   logger,
		metrics:  metrics,
	}
}

// WithAudit makes the gate record blocked navigations.
func (g *Gate) WithAudit(auditPub *publisher.Publisher) *Gate {
	g.audit = auditPub
	return g
}

type principalKey struct{}

// PrincipalFrom returns the principal the gate attached to the request
// context. ok is false on routes the gate did not guard.
func PrincipalFrom(ctx context.Context) (*session.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*session.Principal)
	return p, ok
}

// TokenFromRequest extracts the access token from the bearer header or the
// session cookie. Empty when the request carries neither.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(TokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireAuth admits authenticated callers, verified or not.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return g.guard(next, false)
}

// RequireVerified admits only callers whose identity has been verified.
func (g *Gate) RequireVerified(next http.Handler) http.Handler {
	return g.guard(next, true)
}

// RequireRole layers a role check on top of authentication. There is no
// remediation flow for a missing role, so the block is a plain 403 with no
// redirect.
func (g *Gate) RequireRole(role session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok || p.Role != role {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) guard(next http.Handler, needVerified bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := TokenFromRequest(r)

		snap, err := g.resolver.Bootstrap(ctx, token)
		if err != nil {
			snap = session.Unknown()
		}

		decision := Evaluate(snap, needVerified)
		g.metrics.ObserveDecision(decision)

		switch decision {
		case DecisionAllowed:
			ctx = context.WithValue(ctx, principalKey{}, snap.Principal)
			ctx = requestcontext.WithUserID(ctx, snap.Principal.ID)
			ctx = g.withSessionID(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))

		case DecisionBlockedUnauthenticated:
			g.block(w, r, g.paths.Login)

		case DecisionBlockedUnverified:
			g.block(w, r, g.paths.Verify)

		default:
			// Resolution did not complete. Refusing to decide beats guessing;
			// the caller retries.
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "session state unresolved"))
		}
	})
}

// block stashes the attempted path before redirecting, so the remediation
// flow observes the stash even if the client disconnects mid-redirect.
func (g *Gate) block(w http.ResponseWriter, r *http.Request, target string) {
	ctx := r.Context()
	if g.memory != nil {
		if key := requestcontext.DeviceID(ctx); key != "" {
			if err := g.memory.Stash(ctx, key, r.URL.RequestURI()); err != nil {
				g.logger.WarnContext(ctx, "failed to stash redirect path",
					"path", r.URL.Path,
					"error", err,
				)
			} else {
				g.metrics.ObserveStash()
			}
		}
	}
	if g.audit != nil {
		event := audit.Event{
			Timestamp: requestcontext.Now(ctx),
			Action:    string(audit.EventNavigationBlocked),
			Subject:   r.URL.Path,
			DeviceID:  requestcontext.DeviceID(ctx),
			ClientIP:  requestcontext.ClientIP(ctx),
			RequestID: requestcontext.RequestID(ctx),
		}
		if err := g.audit.Emit(ctx, event); err != nil {
			g.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (g *Gate) withSessionID(ctx context.Context, token string) context.Context {
	if g.tokens == nil || token == "" {
		return ctx
	}
	claims, err := g.tokens.ValidateToken(token)
	if err != nil {
		return ctx
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return ctx
	}
	return requestcontext.WithSessionID(ctx, sessionID)
}
