package service

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccessor struct {
	requested string
	payload   string
	err       error
	closed    bool
}

func (f *fakeAccessor) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.requested = req.GetName()
	if f.err != nil {
		return nil, f.err
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(f.payload)},
	}, nil
}

func (f *fakeAccessor) Close() error {
	f.closed = true
	return nil
}

func TestAccessSecretDefaultsToLatestVersion(t *testing.T) {
	acc := &fakeAccessor{payload: "s3cret\n"}
	sm := &secretManagerService{client: acc}

	got, err := sm.AccessSecret(context.Background(), "projects/p/secrets/jwt")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	assert.Equal(t, "projects/p/secrets/jwt/versions/latest", acc.requested)

	_, err = sm.AccessSecret(context.Background(), "projects/p/secrets/jwt/versions/3")
	require.NoError(t, err)
	assert.Equal(t, "projects/p/secrets/jwt/versions/3", acc.requested)
}

func TestAccessSecretRejectsMalformedResource(t *testing.T) {
	sm := &secretManagerService{client: &fakeAccessor{}}

	_, err := sm.AccessSecret(context.Background(), "jwt-secret")
	assert.Error(t, err)
}

func TestResolveJWTSecret(t *testing.T) {
	ctx := context.Background()
	acc := &fakeAccessor{payload: "from-sm"}
	factory := func(context.Context) (SecretManagerService, error) {
		return &secretManagerService{client: acc}, nil
	}

	got, err := ResolveJWTSecret(ctx, "inline", "projects/p/secrets/jwt", factory)
	require.NoError(t, err)
	assert.Equal(t, "inline", got)
	assert.Empty(t, acc.requested)

	got, err = ResolveJWTSecret(ctx, "", "projects/p/secrets/jwt", factory)
	require.NoError(t, err)
	assert.Equal(t, "from-sm", got)
	assert.True(t, acc.closed)

	_, err = ResolveJWTSecret(ctx, "", "", factory)
	assert.Error(t, err)

	acc.err = errors.New("permission denied")
	_, err = ResolveJWTSecret(ctx, "", "projects/p/secrets/jwt", factory)
	assert.Error(t, err)
}
