// Package test holds module-level smoke tests: the service assembled the
// way cmd/server assembles it, probed over HTTP.
package test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"warden/internal/allowlist"
	"warden/internal/approval/engine"
	apihandler "warden/internal/approval/handler"
	"warden/internal/approval/notifier"
	"warden/internal/approval/registry"
	gatewaymemory "warden/internal/gateway/memory"
	httpapi "warden/internal/http"
	"warden/internal/platform/token"
	"warden/pkg/platform/audit/publisher"
	auditmemory "warden/pkg/platform/audit/store/memory"
	"warden/pkg/testutil"
)

const (
	smokeCommunityID = "820000000000000001"
	smokeSigningKey  = "smoke-signing-key"
)

func newService(t *testing.T) (http.Handler, *token.Service) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := gatewaymemory.New()
	t.Cleanup(gw.Close)

	audits := publisher.NewPublisher(auditmemory.NewInMemoryStore(), publisher.WithLogger(logger))
	t.Cleanup(func() { audits.Close() })

	notif, err := notifier.New(gw, gw, notifier.WithLogger(logger))
	require.NoError(t, err)

	eng, err := engine.New(registry.New(), allowlist.NewInMemory(), notif, gw, gw,
		engine.WithLogger(logger),
		engine.WithAuditPublisher(audits),
		engine.WithAuditReader(audits),
	)
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	tokens := token.New(smokeSigningKey, "warden", "warden-ops")
	api, err := apihandler.New(eng, audits,
		apihandler.WithLogger(logger),
		apihandler.WithTokenValidator(token.NewMiddlewareAdapter(tokens)),
	)
	require.NoError(t, err)

	return httpapi.New(api), tokens
}

func TestServiceSmoke(t *testing.T) {
	router, tokens := newService(t)

	testutil.Given(t, "the assembled service", func(t *testing.T) {
		testutil.When(t, "probing liveness", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
			testutil.Then(t, "it reports ok", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusOK)
				testutil.AssertJSONContains(t, rec, "status", "ok")
			})
		})

		testutil.When(t, "probing readiness", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/readyz"))
			testutil.Then(t, "it reports ready", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusOK)
				testutil.AssertJSONContains(t, rec, "status", "ready")
			})
		})

		testutil.When(t, "reading status without credentials", func(t *testing.T) {
			rec := testutil.DoRequest(router,
				testutil.NewRequest(t, http.MethodGet, "/api/v1/communities/"+smokeCommunityID+"/status"))
			testutil.Then(t, "it refuses", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rec, http.StatusUnauthorized, "unauthorized")
			})
		})

		bearer, err := tokens.Issue("op-smoke", time.Hour)
		require.NoError(t, err)

		testutil.When(t, "reading status with a token", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/api/v1/communities/"+smokeCommunityID+"/status")
			req.Header.Set("Authorization", "Bearer "+bearer)
			rec := testutil.DoRequest(router, req)
			testutil.Then(t, "it answers an empty community", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusOK)
				testutil.AssertJSONContains(t, rec, "community_id", smokeCommunityID)
				testutil.AssertJSONContains(t, rec, "allowlist_size", float64(0))
			})
		})

		testutil.When(t, "deciding on an unknown participant", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost,
				"/api/v1/communities/"+smokeCommunityID+"/participants/900000000000000001/decision",
				map[string]string{"decision": "approve"})
			req.Header.Set("Authorization", "Bearer "+bearer)
			rec := testutil.DoRequest(router, req)
			testutil.Then(t, "it reports not found", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
			})
		})
	})
}
