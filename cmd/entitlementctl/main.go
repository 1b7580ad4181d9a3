package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"marketplace/internal/api/v1/dto"
	"marketplace/internal/api/v1/router"
	"marketplace/internal/config"
	"marketplace/internal/identity"
	"marketplace/internal/logger"
	"marketplace/internal/model"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type loaderFunc func(ctx context.Context) (*router.Dependencies, func(), error)

type cli struct {
	out     io.Writer
	load    loaderFunc
	client  *http.Client
	deps    *router.Dependencies
	cleanup func()
}

func (c *cli) httpClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func fetchSigningKeyPEM(ctx context.Context, client *http.Client, jwksURL, kid string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch JWKS: unexpected status %s", resp.Status)
	}

	jwks, err := identity.DecodeJWKS(resp.Body)
	if err != nil {
		return "", err
	}
	key, err := jwks.SigningKey(kid)
	if err != nil {
		return "", err
	}
	return key.PEM()
}

func loadFromEnv(ctx context.Context) (*router.Dependencies, func(), error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return router.BuildDependencies(ctx, cfg, logger.New().Level(cfg.ZerologLevel()))
}

func (c *cli) ensure(ctx context.Context) (*router.Dependencies, error) {
	if c.deps != nil {
		return c.deps, nil
	}
	deps, cleanup, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.deps, c.cleanup = deps, cleanup
	return deps, nil
}

func (c *cli) close() {
	if c.cleanup != nil {
		c.cleanup()
	}
}

func (c *cli) print(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "entitlementctl",
		Short:         "Inspect and change marketplace subscriptions",
		Long:          `Operate on the configured entitlement store with the same rules as the HTTP service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "plans",
		Short: "List the plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.ensure(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(dto.NewPlanListResponse(deps.Entitlements.ListPlans(cmd.Context())))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "snapshot <user-id>",
		Short: "Show a user's current entitlements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.ensure(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := deps.Entitlements.Snapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(dto.NewSubscriptionResponse(snap))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:     "start-trial <user-id> <plan>",
		Short:   "Start or restart a plan trial",
		Example: `  entitlementctl start-trial user-123 supplier`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.ensure(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := deps.Entitlements.StartTrial(cmd.Context(), args[0], model.PlanID(args[1]))
			if err != nil {
				return err
			}
			return c.print(dto.NewSubscriptionResponse(snap))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "activate <user-id> <plan>",
		Short: "Activate a plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.ensure(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := deps.Entitlements.Activate(cmd.Context(), args[0], model.PlanID(args[1]))
			if err != nil {
				return err
			}
			return c.print(dto.NewSubscriptionResponse(snap))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "cancel <user-id>",
		Short: "Cancel a subscription and return the user to the free plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.ensure(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := deps.Entitlements.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(dto.NewSubscriptionResponse(snap))
		},
	})

	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign a development HS256 token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.ensure(cmd.Context())
			if err != nil {
				return err
			}
			tok, err := identity.IssueHS256(deps.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.out, tok)
			return err
		},
	}
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	root.AddCommand(tokenCmd)

	var kid string
	jwksCmd := &cobra.Command{
		Use:     "jwks-to-pem <jwks-url>",
		Short:   "Convert an identity provider's signing key to PEM for JWT_SECRET",
		Example: `  entitlementctl jwks-to-pem http://127.0.0.1:54321/auth/v1/.well-known/jwks.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pemKey, err := fetchSigningKeyPEM(cmd.Context(), c.httpClient(), args[0], kid)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(c.out, pemKey)
			return err
		},
	}
	jwksCmd.Flags().StringVar(&kid, "kid", "", "key id to export (default: first signing key)")
	root.AddCommand(jwksCmd)

	return root
}

func main() {
	c := &cli{out: os.Stdout, load: loadFromEnv}
	defer c.close()

	if err := newRootCmd(c).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		c.close()
		os.Exit(1)
	}
}
