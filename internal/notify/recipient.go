package notify

import (
	"context"
	"log/slog"

	"bdcsubs/internal/store"
)

// Recipient is the filer a run reports to
type Recipient struct {
	Email string
	Name  string
}

// RecipientResolver finds the recipient for an org
type RecipientResolver interface {
	Resolve(ctx context.Context, org string) (Recipient, error)
}

// UserLookup finds the account of an org
type UserLookup interface {
	UserByOrg(ctx context.Context, org string) (store.User, error)
}

// LookupResolver addresses the first user account of the org
type LookupResolver struct {
	users    UserLookup
	fallback string
	logger   *slog.Logger
}

// NewLookupResolver creates a resolver backed by the users table
func NewLookupResolver(users UserLookup, fallbackName string, logger *slog.Logger) *LookupResolver {
	return &LookupResolver{users: users, fallback: fallbackName, logger: logger}
}

// Resolve returns the org's user; the name falls back when blank
func (r *LookupResolver) Resolve(ctx context.Context, org string) (Recipient, error) {
	u, err := r.users.UserByOrg(ctx, org)
	if err != nil {
		return Recipient{}, err
	}
	name := u.Name
	if name == "" {
		name = r.fallback
	}
	return Recipient{Email: u.Email, Name: name}, nil
}

// OverrideResolver addresses a fixed email, typically the uploader's, and
// looks the display name up on a best-effort basis
type OverrideResolver struct {
	email    string
	users    UserLookup
	fallback string
	logger   *slog.Logger
}

// NewOverrideResolver creates a resolver that always returns email
func NewOverrideResolver(email string, users UserLookup, fallbackName string, logger *slog.Logger) *OverrideResolver {
	return &OverrideResolver{email: email, users: users, fallback: fallbackName, logger: logger}
}

// Resolve never fails; a failed name lookup yields the fallback name
func (r *OverrideResolver) Resolve(ctx context.Context, org string) (Recipient, error) {
	rcpt := Recipient{Email: r.email, Name: r.fallback}
	if r.users == nil {
		return rcpt, nil
	}
	u, err := r.users.UserByOrg(ctx, org)
	if err != nil {
		r.logger.WarnContext(ctx, "Could not look up recipient name",
			slog.String("org_id", org),
			slog.String("error", err.Error()))
		return rcpt, nil
	}
	if u.Name != "" {
		rcpt.Name = u.Name
	}
	return rcpt, nil
}
