package service

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// SecretManagerService reads secret payloads such as the token signing key.
type SecretManagerService interface {
	AccessSecret(ctx context.Context, resourceName string) (string, error)
	Close() error
}

type secretVersionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

type secretManagerService struct {
	client secretVersionAccessor
}

func NewSecretManagerService(ctx context.Context, opts ...option.ClientOption) (SecretManagerService, error) {
	// Note: Secret Manager requires a real GCP project even for local development.
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManagerService{client: client}, nil
}

// AccessSecret returns the payload of resourceName. A resource without a
// version segment resolves to the latest version.
func (s *secretManagerService) AccessSecret(ctx context.Context, resourceName string) (string, error) {
	name, err := secretVersionName(resourceName)
	if err != nil {
		return "", err
	}

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	return strings.TrimSpace(string(result.GetPayload().GetData())), nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}

func secretVersionName(resource string) (string, error) {
	parts := strings.Split(strings.Trim(resource, "/"), "/")
	switch {
	case len(parts) == 4 && parts[0] == "projects" && parts[2] == "secrets":
		return strings.Join(append(parts, "versions", "latest"), "/"), nil
	case len(parts) == 6 && parts[0] == "projects" && parts[2] == "secrets" && parts[4] == "versions":
		return strings.Join(parts, "/"), nil
	default:
		return "", fmt.Errorf("invalid secret resource %q", resource)
	}
}

// ResolveJWTSecret returns the inline secret when set, otherwise reads it
// from Secret Manager.
func ResolveJWTSecret(ctx context.Context, inline, resource string, newService func(context.Context) (SecretManagerService, error)) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if resource == "" {
		return "", fmt.Errorf("no JWT secret configured")
	}

	sm, err := newService(ctx)
	if err != nil {
		return "", err
	}
	defer sm.Close()

	secret, err := sm.AccessSecret(ctx, resource)
	if err != nil {
		return "", fmt.Errorf("resolve JWT secret: %w", err)
	}
	if secret == "" {
		return "", fmt.Errorf("secret %s is empty", resource)
	}
	return secret, nil
}
