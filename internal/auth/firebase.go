package auth

import (
	"context"
	"fmt"
	"time"

	fbauth "firebase.google.com/go/v4/auth"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

// FirebaseVerifier verifies Firebase ID tokens with the Admin SDK.
type FirebaseVerifier struct {
	client      *fbauth.Client
	recentLogin time.Duration
	now         func() time.Time
}

func NewFirebaseVerifier(client *fbauth.Client, recentLogin time.Duration) *FirebaseVerifier {
	return &FirebaseVerifier{client: client, recentLogin: recentLogin, now: time.Now}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", svcErr.ErrUnauthenticated, err)
	}
	return Identity{UID: tok.UID, AuthTime: time.Unix(tok.AuthTime, 0)}, nil
}

// Reverify expects a freshly issued ID token of uid.
func (v *FirebaseVerifier) Reverify(ctx context.Context, uid, credential string) error {
	id, err := v.Verify(ctx, credential)
	if err != nil {
		return err
	}
	return checkRecent(id, uid, v.now(), v.recentLogin)
}

func (v *FirebaseVerifier) DeleteUser(ctx context.Context, uid string) error {
	if err := v.client.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("firebase delete user: %w", err)
	}
	return nil
}

func checkRecent(id Identity, uid string, now time.Time, window time.Duration) error {
	if id.UID != uid {
		return fmt.Errorf("%w: credential belongs to another user", svcErr.ErrPermissionDenied)
	}
	if window > 0 && now.Sub(id.AuthTime) > window {
		return svcErr.ErrRecentLoginRequired
	}
	return nil
}
