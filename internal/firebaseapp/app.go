// Package firebaseapp builds the Firebase Admin SDK app shared by the hosted
// tree store and the hosted auth verifier.
package firebaseapp

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/config"
)

// New initializes the Admin SDK app from config.
// Without explicit credentials the SDK falls back to application default credentials.
func New(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	if cfg.Firebase.ProjectID == "" && cfg.Firebase.DatabaseURL == "" {
		return nil, errors.New("firebase: FIREBASE_PROJECT_ID or FIREBASE_DATABASE_URL is required")
	}

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.Firebase.CredentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   cfg.Firebase.ProjectID,
		DatabaseURL: cfg.Firebase.DatabaseURL,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}
	return app, nil
}
