package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tdx/internal/auth"
	"github.com/desertthunder/tdx/internal/models"
	"github.com/desertthunder/tdx/internal/shared"
	"github.com/urfave/cli/v3"
)

// sessionStatus is the JSON shape written by `auth status --json`.
type sessionStatus struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	Expired       bool         `json:"expired"`
}

// credentials reads email and password from flags, prompting for whichever is missing.
func (r *Runner) credentials(cmd *cli.Command) (email, password string, err error) {
	email = cmd.String("email")
	if email == "" {
		if email, err = r.prompt("Email: "); err != nil {
			return "", "", err
		}
	}

	password = cmd.String("password")
	if password == "" {
		if password, err = r.prompt("Password: "); err != nil {
			return "", "", err
		}
	}

	if email == "" || password == "" {
		return "", "", fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}
	return email, password, nil
}

// AuthLogin signs in and persists the returned access token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	ctx, err := r.withSession(ctx)
	if err != nil {
		return err
	}

	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	resp, err := auth.Use(ctx).Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	r.logger.Info("signed in", "user_id", resp.User.ID)
	return r.writePlain("✓ Signed in as %s\n", resp.User.Email)
}

// AuthLogout clears the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	ctx, err := r.withSession(ctx)
	if err != nil {
		return err
	}

	provider := auth.Use(ctx)
	if !provider.State().Authenticated() {
		return r.writePlain("Not signed in\n")
	}

	provider.Logout()
	return r.writePlain("✓ Signed out\n")
}

// AuthRegister creates an account. It does not sign in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	ctx, err := r.withSession(ctx)
	if err != nil {
		return err
	}

	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	resp, err := auth.Use(ctx).Register(ctx, models.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: cmd.String("first-name"),
		LastName:  cmd.String("last-name"),
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	r.logger.Debug("registered", "id", resp.ID)
	r.writePlain("✓ Registered %s\n", email)
	r.writePlainln("Next steps:")
	r.writePlain("1. Confirm your email if the service asks you to\n")
	r.writePlain("2. Run 'tdx auth login --email %s'\n", email)
	return nil
}

// AuthStatus reports the session restored from local storage without calling the service.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.withSession(ctx); err != nil {
		return err
	}

	state := r.provider.State()
	status := sessionStatus{Authenticated: state.Authenticated(), User: state.User}
	if claims := r.store.GetUserInfo(); claims != nil {
		status.ExpiresAt = claims.ExpiresAt
		status.Expired = claims.Expired(time.Now())
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.Authenticated {
		return r.writePlain("Not signed in\n")
	}

	r.writePlain("Signed in as %s (id %s)\n", status.User.Email, status.User.ID)
	switch {
	case status.ExpiresAt == nil:
	case status.Expired:
		r.writePlain("Token expired at %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	default:
		r.writePlain("Token expires at %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthVerify asks the service whether the stored token is still accepted.
func (r *Runner) AuthVerify(ctx context.Context, cmd *cli.Command) error {
	ctx, err := r.withSession(ctx)
	if err != nil {
		return err
	}

	provider := auth.Use(ctx)
	if _, ok := provider.Token(); !ok {
		return fmt.Errorf("%w: run 'tdx auth login' first", shared.ErrNotAuthenticated)
	}

	if !provider.VerifyToken(ctx) {
		return fmt.Errorf("%w: the service rejected the stored token", shared.ErrAuthFailed)
	}
	return r.writePlain("✓ Token is valid\n")
}
