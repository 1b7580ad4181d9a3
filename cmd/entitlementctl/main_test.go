package main

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketplace/internal/api/v1/dto"
	"marketplace/internal/api/v1/router"
	"marketplace/internal/catalog"
	"marketplace/internal/identity"
	"marketplace/internal/repository"
	"marketplace/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	deps := &router.Dependencies{
		Entitlements: service.NewEntitlementService(repository.NewMemorySubscriptionRepo(), catalog.Default(), zerolog.Nop()),
		JWTSecret:    "cli-secret",
	}
	return &cli{out: out, load: func(context.Context) (*router.Dependencies, func(), error) {
		return deps, func() {}, nil
	}}, out
}

func run(t *testing.T, c *cli, args ...string) error {
	t.Helper()
	cmd := newRootCmd(c)
	cmd.SetArgs(args)
	cmd.SetOut(c.out)
	return cmd.ExecuteContext(context.Background())
}

func TestPlansCmd(t *testing.T) {
	c, out := newTestCLI(t)
	require.NoError(t, run(t, c, "plans"))

	var plans []dto.PlanResponseDTO
	require.NoError(t, json.Unmarshal(out.Bytes(), &plans))
	assert.Len(t, plans, 3)
}

func TestSubscriptionCmds(t *testing.T) {
	c, out := newTestCLI(t)

	require.NoError(t, run(t, c, "start-trial", "u1", "supplier"))
	var snap dto.SubscriptionResponseDTO
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, "trial", snap.Status)
	assert.True(t, snap.IsTrialActive)

	out.Reset()
	require.NoError(t, run(t, c, "activate", "u1", "trader"))
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, "trader", snap.PlanID)
	assert.Equal(t, "active", snap.Status)

	out.Reset()
	require.NoError(t, run(t, c, "cancel", "u1"))
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, "free", snap.PlanID)
	assert.Equal(t, "canceled", snap.Status)

	out.Reset()
	require.NoError(t, run(t, c, "snapshot", "u1"))
	require.NoError(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, "canceled", snap.Status)
}

func TestStartTrialCmdRejectsFree(t *testing.T) {
	c, _ := newTestCLI(t)

	err := run(t, c, "start-trial", "u1", "free")
	assert.ErrorIs(t, err, service.ErrPlanNotTrialable)

	err = run(t, c, "activate", "u1", "platinum")
	assert.ErrorIs(t, err, catalog.ErrUnknownPlan)
}

func TestTokenCmd(t *testing.T) {
	c, out := newTestCLI(t)
	require.NoError(t, run(t, c, "token", "u42", "--ttl", "1h"))

	verifier, err := identity.NewJWTVerifier("cli-secret")
	require.NoError(t, err)
	userID, err := verifier.Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u42", userID)
}

func TestArgsAreValidated(t *testing.T) {
	c, _ := newTestCLI(t)
	assert.Error(t, run(t, c, "snapshot"))
	assert.Error(t, run(t, c, "activate", "u1"))
}

func TestLoaderErrorSurfaces(t *testing.T) {
	c := &cli{out: &bytes.Buffer{}, load: func(context.Context) (*router.Dependencies, func(), error) {
		return nil, nil, errors.New("no store")
	}}
	assert.EqualError(t, run(t, c, "plans"), "no store")
}

func TestJWKSToPEMCmd(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(identity.JWKS{Keys: []identity.JWK{{
			Kty: "EC", Crv: "P-256", Alg: "ES256", Use: "sig", Kid: "k1",
			X: base64.RawURLEncoding.EncodeToString(key.X.FillBytes(make([]byte, 32))),
			Y: base64.RawURLEncoding.EncodeToString(key.Y.FillBytes(make([]byte, 32))),
		}}})
	}))
	t.Cleanup(srv.Close)

	c, out := newTestCLI(t)
	require.NoError(t, run(t, c, "jwks-to-pem", srv.URL, "--kid", "k1"))
	assert.True(t, strings.HasPrefix(out.String(), "-----BEGIN PUBLIC KEY-----"))

	pub, err := identity.ParsePublicKey(out.String())
	require.NoError(t, err)
	assert.IsType(t, &ecdsa.PublicKey{}, pub)

	assert.Error(t, run(t, c, "jwks-to-pem", srv.URL, "--kid", "missing"))
}
