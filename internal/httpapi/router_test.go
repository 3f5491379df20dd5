package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/httpapi"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/session"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c client) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (c client) as(token string) client {
	c.token = token
	return c
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func setupRouter(t *testing.T) (client, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	provider := env.App.Auth.(*auth.LocalProvider)
	router := httpapi.NewRouter(env.App, []string{"https://app.example"}, session.NewSessionService(env.App, provider))
	return client{t: t, router: router}, env
}

// member signs up an account and stores a complete profile for it.
func member(t *testing.T, env *testutil.Env, email, name string, gender, seeking string) auth.Session {
	t.Helper()
	s, err := env.App.Auth.(*auth.LocalProvider).SignUp(context.Background(), email, "secret1")
	require.NoError(t, err)
	testutil.PutProfiles(t, env.Store, testutil.Profile(s.UID, name, 30, gender, seeking))
	return s
}

func TestHealth(t *testing.T) {
	c, _ := setupRouter(t)

	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequiresBearerToken(t *testing.T) {
	c, _ := setupRouter(t)

	code, env := c.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = c.as("nope").do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCORSPreflight(t *testing.T) {
	c, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/likes", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionAndRegistration(t *testing.T) {
	c, _ := setupRouter(t)

	code, env := c.do(http.MethodPost, "/api/session/signup", session.CredentialsRequest{Email: "nina@example.com", Password: "secret1"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	s := decode[session.SessionResponse](t, env).Session

	code, env = c.do(http.MethodPost, "/api/session/signup", session.CredentialsRequest{Email: "nina@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.NotEmpty(t, env.Error)

	me := c.as(s.Token)
	code, env = me.do(http.MethodPut, "/api/me", map[string]any{
		"name": "Nina", "age": 28, "gender": domain.GenderFemale, "seeking": domain.SeekingMen, "country": "France",
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = c.as(s.Token).do(http.MethodGet, "/api/users/"+s.UID, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	p := decode[struct {
		Profile domain.Profile `json:"profile"`
	}](t, env).Profile
	assert.Equal(t, "Nina", p.Name)
	assert.True(t, p.IsComplete)

	code, _ = me.do(http.MethodPut, "/api/me", map[string]any{"name": "Nina", "age": 12})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = me.do(http.MethodPut, "/api/me/settings/"+"incognitoMode", map[string]any{"value": true})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, _ = me.do(http.MethodGet, "/api/discover/candidates?minAge=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLikeMatchAndChat(t *testing.T) {
	c, env := setupRouter(t)
	alice := member(t, env, "alice@example.com", "Alice", domain.GenderFemale, domain.SeekingMen)
	bob := member(t, env, "bob@example.com", "Bob", domain.GenderMale, domain.SeekingWomen)
	a, b := c.as(alice.Token), c.as(bob.Token)
	conv := domain.ConversationID(alice.UID, bob.UID)

	code, _ := a.do(http.MethodPost, "/api/likes", map[string]string{"targetUserId": "ghost"})
	assert.Equal(t, http.StatusNotFound, code)

	code, resp := a.do(http.MethodPost, "/api/likes", map[string]string{"targetUserId": bob.UID})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.False(t, decode[struct {
		Matched bool `json:"matched"`
	}](t, resp).Matched)

	code, resp = b.do(http.MethodGet, "/api/likes?pageSize=10", nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, 1, decode[struct {
		Total int `json:"total"`
	}](t, resp).Total)

	code, resp = b.do(http.MethodPost, "/api/likes/"+alice.UID+"/accept", nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, conv, decode[struct {
		ConversationID string `json:"conversationId"`
	}](t, resp).ConversationID)

	code, resp = a.do(http.MethodPost, "/api/conversations/"+conv+"/messages", map[string]string{"text": "salut"})
	require.Equal(t, http.StatusCreated, code, resp.Error)
	msg := decode[struct {
		Message domain.Message `json:"message"`
	}](t, resp).Message
	assert.Equal(t, "salut", msg.Text)

	type list struct {
		TotalUnread int64 `json:"totalUnread"`
	}
	_, resp = b.do(http.MethodGet, "/api/conversations", nil)
	assert.Equal(t, int64(1), decode[list](t, resp).TotalUnread)

	path := "/api/conversations/" + conv + "/messages/" + msg.ID
	code, _ = a.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusPreconditionRequired, code)
	code, _ = b.do(http.MethodDelete, path+"?confirm=true", nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, resp = a.do(http.MethodDelete, path+"?confirm=true", nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.True(t, resp.Success)

	code, _ = b.do(http.MethodPost, "/api/conversations/"+conv+"/read", nil)
	require.Equal(t, http.StatusOK, code)
	_, resp = b.do(http.MethodGet, "/api/me/badges", nil)
	assert.Equal(t, int64(0), decode[struct {
		Unread int64 `json:"unread"`
	}](t, resp).Unread)

	m, ok := testutil.Meta(t, env.Store, bob.UID, conv)
	require.True(t, ok)
	assert.Equal(t, domain.Tombstone, m.LastMessage)
}
