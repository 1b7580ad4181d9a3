package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"marketplace/internal/access"
	"marketplace/internal/identity"
	"marketplace/internal/metrics"
	"marketplace/internal/routing"
	"marketplace/internal/service"

	"github.com/rs/zerolog"
)

// PlanGate sends identified users without the right plan to the plan
// selection page. Anonymous callers and callers with unverifiable tokens are
// let through: the gate only ever redirects, it never rejects.
type PlanGate struct {
	verifier      identity.Verifier
	entitlements  service.EntitlementService
	routes        *routing.PlanRoutes
	selectionPath string
	cookieName    string
	logger        zerolog.Logger
}

func NewPlanGate(verifier identity.Verifier, entitlements service.EntitlementService, routes *routing.PlanRoutes, selectionPath, cookieName string, logger zerolog.Logger) *PlanGate {
	return &PlanGate{
		verifier:      verifier,
		entitlements:  entitlements,
		routes:        routes,
		selectionPath: selectionPath,
		cookieName:    cookieName,
		logger:        logger.With().Str("middleware", "PlanGate").Logger(),
	}
}

func (g *PlanGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := g.identify(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx := withUserID(r.Context(), userID)

		required, gated := g.routes.RequiredPlan(r.URL.Path)
		if !gated {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		snap, err := g.entitlements.Snapshot(ctx, userID)
		if err != nil {
			g.logger.Error().Err(err).Str("user_id", userID).Str("path", r.URL.Path).Msg("Snapshot failed, letting request through")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		decision := access.Decide(snap, required)
		metrics.GateDecisionsTotal.
			WithLabelValues(string(required), strconv.FormatBool(decision.Allowed), decision.Reason).
			Inc()

		if !decision.Allowed {
			g.logger.Info().
				Str("user_id", userID).
				Str("plan_id", string(required)).
				Str("reason", decision.Reason).
				Str("path", r.URL.Path).
				Msg("Redirecting to plan selection")
			http.Redirect(w, r, g.selectionURL(r, decision), http.StatusSeeOther)
			return
		}

		ctx = context.WithValue(ctx, DecisionContextKey, decision)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *PlanGate) identify(r *http.Request) (string, bool) {
	token, err := TokenFromRequest(r, g.cookieName)
	if errors.Is(err, errNoToken) {
		return "", false
	}
	if err == nil {
		var userID string
		userID, err = g.verifier.Verify(token)
		if err == nil {
			return userID, true
		}
	}
	g.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Unverifiable token, treating caller as anonymous")
	return "", false
}

func (g *PlanGate) selectionURL(r *http.Request, d access.Decision) string {
	q := url.Values{}
	q.Set("redirect", r.URL.RequestURI())
	q.Set("plan", string(d.RequiredPlan))
	q.Set("reason", d.Reason)
	return g.selectionPath + "?" + q.Encode()
}
