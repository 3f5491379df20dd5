package session

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/app"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

// Accounts is the credential store behind the session service.
type Accounts interface {
	SignUp(ctx context.Context, email, password string) (auth.Session, error)
	SignIn(ctx context.Context, email, password string) (auth.Session, error)
	ChangePassword(ctx context.Context, uid, current, next string) error
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Session auth.Session `json:"session"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Service issues bearer tokens for email/password accounts.
type Service struct {
	appCtx   *app.AppContext
	accounts Accounts
}

// NewSessionService creates a new Session service over accounts.
func NewSessionService(appCtx *app.AppContext, accounts Accounts) *Service {
	return &Service{appCtx: appCtx, accounts: accounts}
}

// SignUp creates an account and signs it in. The profile is written
// separately by CompleteRegistration.
func (s *Service) SignUp(ctx context.Context, req *CredentialsRequest) (*SessionResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, svcErr.InvalidArgument("email and password are required")
	}
	sess, err := s.accounts.SignUp(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}
	s.appCtx.Log(ctx).Info("account created", "user", sess.UID)
	return &SessionResponse{Session: sess}, nil
}

func (s *Service) SignIn(ctx context.Context, req *CredentialsRequest) (*SessionResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, svcErr.InvalidArgument("email and password are required")
	}
	sess, err := s.accounts.SignIn(ctx, email, req.Password)
	if err != nil {
		s.appCtx.Log(ctx).Debug("sign-in rejected", "err", err)
		return nil, err
	}
	return &SessionResponse{Session: sess}, nil
}

// ChangePassword re-verifies the current password of the caller first.
func (s *Service) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*emptypb.Empty, error) {
	uid := auth.UserID(ctx)
	if uid == "" {
		return nil, svcErr.ErrUnauthenticated
	}
	if err := s.accounts.ChangePassword(ctx, uid, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, err
	}
	s.appCtx.Log(ctx).Info("password changed", "user", uid)
	return &emptypb.Empty{}, nil
}
