// qrctl is the operator tool for the profile QR service: it generates
// signing keys, issues and verifies envelopes offline, and mints bearer
// tokens for owners and operators.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hoyn-app/profile-qr/internal/auth"
	"github.com/hoyn-app/profile-qr/internal/config"
	"github.com/hoyn-app/profile-qr/internal/domain"
	"github.com/hoyn-app/profile-qr/internal/observability"
	"github.com/hoyn-app/profile-qr/internal/persistence"
	"github.com/hoyn-app/profile-qr/internal/qrtoken"
	"github.com/hoyn-app/profile-qr/internal/repository"
)

type command struct {
	summary string
	run     func(ctx context.Context, args []string, out io.Writer) error
}

var commands = map[string]command{
	"keygen":     {summary: "print a fresh hex signing key", run: runKeygen},
	"issue":      {summary: "issue an envelope for a profile id", run: runIssue},
	"verify":     {summary: "verify an envelope", run: runVerify},
	"mint-token": {summary: "mint a bearer token for an owner or operator", run: runMintToken},
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(out)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(ctx, args[1:], out)
}

func printUsage(out io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Usage: qrctl <command> [flags]")
	fmt.Fprintln(out)
	for _, name := range names {
		fmt.Fprintf(out, "  %-11s %s\n", name, commands[name].summary)
	}
}

func parseFlags(fs *pflag.FlagSet, args []string, want int, usage string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) != want {
		return nil, fmt.Errorf("usage: qrctl %s", usage)
	}
	return rest, nil
}

func runKeygen(_ context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	size := fs.Int("bytes", config.MinSigningKeyBytes, "key length in bytes")
	if _, err := parseFlags(fs, args, 0, "keygen [--bytes N]"); err != nil {
		return err
	}
	if *size < config.MinSigningKeyBytes {
		return fmt.Errorf("--bytes must be at least %d", config.MinSigningKeyBytes)
	}

	key := make([]byte, *size)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, hex.EncodeToString(key))
	return err
}

func runIssue(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("issue", pflag.ContinueOnError)
	rest, err := parseFlags(fs, args, 1, "issue <profile-id>")
	if err != nil {
		return err
	}
	subject := strings.TrimSpace(rest[0])

	env, err := withTokens(ctx, []string{subject}, func(cfg *config.Config, tokens *qrtoken.Service) (*qrtoken.Envelope, error) {
		ok, err := tokens.SubjectExists(ctx, subject)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("profile %s not found", subject)
		}
		return tokens.Issue(subject)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, env.Text)
	fmt.Fprintf(out, "expires_at: %s\n", env.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

func runVerify(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	origin := fs.String("origin", "", "scanner origin (defaults to the authorized origin)")
	profiles := fs.StringSlice("profile", nil, "profile ids known when running without Postgres")
	rest, err := parseFlags(fs, args, 1, "verify [--origin ORIGIN] [--profile ID...] [--] <envelope>")
	if err != nil {
		return err
	}

	accepted, err := withTokens(ctx, *profiles, func(cfg *config.Config, tokens *qrtoken.Service) (*qrtoken.Accepted, error) {
		o := *origin
		if !fs.Changed("origin") {
			o = cfg.Token.AuthorizedOrigin
		}
		return tokens.Verify(ctx, strings.TrimSpace(rest[0]), o)
	})
	if err != nil {
		if reason, ok := qrtoken.ReasonOf(err); ok {
			fmt.Fprintf(out, "rejected: %s\n", reason)
		}
		return err
	}

	fmt.Fprintf(out, "accepted: %s\n", accepted.SubjectID())
	fmt.Fprintf(out, "issued_at: %s\n", time.Unix(accepted.Token.IssuedAt, 0).UTC().Format(time.RFC3339))
	return nil
}

func runMintToken(_ context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("mint-token", pflag.ContinueOnError)
	operator := fs.Bool("operator", false, "mint an operator token instead of an owner token")
	rest, err := parseFlags(fs, args, 1, "mint-token <subject-id> [--operator]")
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	subjectType := domain.SubjectTypeOwner
	if *operator {
		subjectType = domain.SubjectTypeOperator
	}

	tm := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	token, exp, err := tm.GenerateToken(strings.TrimSpace(rest[0]), subjectType)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "expires_at: %s\n", exp.UTC().Format(time.RFC3339))
	return nil
}

// withTokens builds a token service from the environment. Profiles come from
// Postgres when POSTGRES_DSN is set, otherwise from the given ids.
func withTokens[T any](ctx context.Context, profileIDs []string, fn func(*config.Config, *qrtoken.Service) (T, error)) (T, error) {
	var zero T

	cfg, err := config.Load()
	if err != nil {
		return zero, err
	}
	logger, err := observability.NewLogger(config.LoggerConfig{Level: "warn"}, cfg.App)
	if err != nil {
		return zero, err
	}
	defer logger.Sync() //nolint:errcheck

	key, created, err := qrtoken.NewKeyStore(cfg.Token.KeyPath).LoadOrCreate()
	if err != nil {
		return zero, err
	}
	if created {
		logger.Warn("generated new encryption key; envelopes issued by the service will not verify", zap.String("path", cfg.Token.KeyPath))
	}

	var profiles qrtoken.ProfileStore
	if cfg.Postgres.DSN != "" {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return zero, err
		}
		defer pg.Close()
		profiles = repository.NewProfileRepository(pg.PoolHandle())
	} else {
		mem := repository.NewMemoryProfiles()
		for _, id := range profileIDs {
			if id == "" {
				continue
			}
			if err := mem.Create(ctx, &domain.Profile{ID: id, Active: true}); err != nil {
				return zero, err
			}
		}
		profiles = mem
	}

	tokens, err := qrtoken.NewService(qrtoken.Config{
		IssuerTag:        cfg.Token.IssuerTag,
		AuthorizedOrigin: cfg.Token.AuthorizedOrigin,
		MaxAge:           cfg.Token.MaxAge(),
		ClockSkew:        cfg.Token.ClockSkew(),
	}, qrtoken.Dependencies{
		EncryptionKey: key,
		SigningKey:    cfg.Token.SigningKey,
		Profiles:      profiles,
		Logger:        logger,
	})
	if err != nil {
		return zero, err
	}
	return fn(cfg, tokens)
}
