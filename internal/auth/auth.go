// Package auth answers the two questions the core asks of authentication:
// who is calling, and did they prove it again recently enough for a
// sensitive operation.
package auth

import (
	"context"
	"strings"
	"time"
)

// Identity is a verified caller.
type Identity struct {
	UID      string
	AuthTime time.Time
}

// Provider verifies bearer tokens and re-verifies credentials.
type Provider interface {
	// Verify resolves a bearer token to its identity.
	Verify(ctx context.Context, token string) (Identity, error)
	// Reverify checks a fresh credential of uid before a sensitive operation.
	// The credential is a password for the local provider and a freshly
	// issued ID token for Firebase.
	Reverify(ctx context.Context, uid, credential string) error
	// DeleteUser removes the account itself.
	DeleteUser(ctx context.Context, uid string) error
}

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID stores the authenticated uid.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userIDKey, uid)
}

// UserID extracts the authenticated uid, "" when unauthenticated.
func UserID(ctx context.Context) string {
	uid, ok := ctx.Value(userIDKey).(string)
	if !ok {
		return ""
	}
	return uid
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
