package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", svcErr.ErrUnauthenticated)

// Session is an issued bearer token.
type Session struct {
	UID       string    `json:"uid"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type credential struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    int64  `json:"createdAt"`
}

type tokenClaims struct {
	AuthTime int64 `json:"auth_time"`
	jwt.RegisteredClaims
}

// LocalProvider keeps bcrypt credentials in the tree (outside every user's
// reach) and issues HS256 tokens whose subject is the uid.
type LocalProvider struct {
	store  tree.Store
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewLocalProvider(store tree.Store, secret string, ttl time.Duration) *LocalProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LocalProvider{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// WithCost overrides the bcrypt cost (tests use bcrypt.MinCost).
func (p *LocalProvider) WithCost(cost int) *LocalProvider {
	p.cost = cost
	return p
}

// WithClock overrides the token clock.
func (p *LocalProvider) WithClock(now func() time.Time) *LocalProvider {
	p.now = now
	return p
}

// EmailKey is the tree key indexing an email address.
func EmailKey(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strings.ToLower(strings.TrimSpace(email))))
}

// SignUp creates an account and returns its first session.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return Session{}, svcErr.InvalidArgument("a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return Session{}, svcErr.InvalidArgument(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	uid := uuid.NewString()
	_, err = p.store.Transaction(ctx, domain.EmailIndexPath(EmailKey(email)), func(cur tree.Snapshot) (any, error) {
		if cur.Exists() {
			return nil, svcErr.AlreadyExists("email already registered")
		}
		return uid, nil
	})
	if err != nil {
		return Session{}, err
	}

	cred := credential{Email: strings.ToLower(email), PasswordHash: string(hash), CreatedAt: p.now().UnixMilli()}
	if err := p.store.Set(ctx, domain.CredentialPath(uid), cred); err != nil {
		return Session{}, err
	}
	return p.issue(uid)
}

// SignIn checks the password and returns a new session.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	snap, err := p.store.Get(ctx, domain.EmailIndexPath(EmailKey(email)))
	if err != nil {
		return Session{}, err
	}
	uid := snap.String()
	if uid == "" {
		return Session{}, errInvalidCredentials
	}
	if err := p.Reverify(ctx, uid, password); err != nil {
		return Session{}, errInvalidCredentials
	}
	return p.issue(uid)
}

// ChangePassword replaces the password after checking the current one.
func (p *LocalProvider) ChangePassword(ctx context.Context, uid, current, next string) error {
	if len(next) < MinPasswordLength {
		return svcErr.InvalidArgument(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if err := p.Reverify(ctx, uid, current); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), p.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return p.store.Set(ctx, tree.Join(domain.CredentialPath(uid), "passwordHash"), string(hash))
}

func (p *LocalProvider) Verify(ctx context.Context, token string) (Identity, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(p.now))
	if err != nil || parsed == nil || !parsed.Valid || claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: invalid or expired token", svcErr.ErrUnauthenticated)
	}

	// tokens of deleted accounts stop working immediately
	cred, err := p.store.Get(ctx, domain.CredentialPath(claims.Subject))
	if err != nil {
		return Identity{}, err
	}
	if !cred.Exists() {
		return Identity{}, fmt.Errorf("%w: account no longer exists", svcErr.ErrUnauthenticated)
	}
	return Identity{UID: claims.Subject, AuthTime: time.Unix(claims.AuthTime, 0)}, nil
}

// Reverify checks the password of uid.
func (p *LocalProvider) Reverify(ctx context.Context, uid, password string) error {
	cred, err := p.credential(ctx, uid)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return fmt.Errorf("%w: wrong password", svcErr.ErrPermissionDenied)
	}
	return nil
}

func (p *LocalProvider) DeleteUser(ctx context.Context, uid string) error {
	cred, err := p.credential(ctx, uid)
	if err != nil {
		return err
	}
	index := domain.EmailIndexPath(EmailKey(cred.Email))
	return p.store.Update(ctx, map[string]any{
		domain.CredentialPath(uid): nil,
		index:                      nil,
	})
}

func (p *LocalProvider) credential(ctx context.Context, uid string) (credential, error) {
	var cred credential
	snap, err := p.store.Get(ctx, domain.CredentialPath(uid))
	if err != nil {
		return cred, err
	}
	if !snap.Exists() {
		return cred, svcErr.NotFound("account")
	}
	if err := snap.Unmarshal(&cred); err != nil {
		return cred, fmt.Errorf("decode credential: %w", err)
	}
	if cred.PasswordHash == "" {
		return cred, errors.New("credential without password hash")
	}
	return cred, nil
}

func (p *LocalProvider) issue(uid string) (Session, error) {
	now := p.now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := tokenClaims{
		AuthTime: now.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}
	return Session{UID: uid, Token: signed, ExpiresAt: expiresAt}, nil
}
