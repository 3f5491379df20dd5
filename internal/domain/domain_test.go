package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

func TestConversationID_Symmetric(t *testing.T) {
	pairs := [][2]string{{"a", "b"}, {"zed", "amy"}, {"u1", "u10"}, {"X", "x"}}
	for _, p := range pairs {
		assert.Equal(t, domain.ConversationID(p[0], p[1]), domain.ConversationID(p[1], p[0]))
	}
	assert.Equal(t, "amy_zed", domain.ConversationID("zed", "amy"))
}

func TestCounterpart(t *testing.T) {
	assert.Equal(t, "bob", domain.Counterpart("alice_bob", "alice"))
	assert.Equal(t, "alice", domain.Counterpart("alice_bob", "bob"))
	assert.Equal(t, "", domain.Counterpart("alice_bob", "carol"))
	// "a_b_c" could be a+"b_c" or "a_b"+c: neither side is trusted
	assert.Equal(t, "", domain.Counterpart("a_b_c", "a"))
	assert.Equal(t, "", domain.Counterpart("a_b_c", "c"))
	assert.Equal(t, "", domain.Counterpart("alicebob", "alice"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hello", domain.Preview("  hello ", false))
	assert.Equal(t, domain.FilePreview, domain.Preview("   ", true))
	assert.Equal(t, domain.GenericPreview, domain.Preview("", false))
}

func TestProfile_DefaultsResolvedOnDecode(t *testing.T) {
	var p domain.Profile
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Alice","age":"31"}`), &p))
	assert.Equal(t, 31, p.Age)
	assert.False(t, p.IsComplete)
	assert.Equal(t, domain.DefaultSettings(), p.Settings)

	require.NoError(t, json.Unmarshal([]byte(`{"age":25,"settings":{"isPublic":false}}`), &p))
	assert.Equal(t, 25, p.Age)
	assert.False(t, p.Settings.IsPublic)
	assert.False(t, p.Settings.IncognitoMode)
	assert.True(t, p.Settings.Notifications)

	assert.Error(t, json.Unmarshal([]byte(`{"age":"old"}`), &p))
}

func TestDecodeProfile_FallsBackToKey(t *testing.T) {
	v, err := tree.Normalize(map[string]any{"name": "Bob", "age": 40})
	require.NoError(t, err)

	p, err := domain.DecodeProfile(tree.NewSnapshot("users/bob", v))
	require.NoError(t, err)
	assert.Equal(t, "bob", p.ID)
	assert.Equal(t, 40, p.Age)

	_, err = domain.DecodeProfile(tree.NewSnapshot("users/ghost", nil))
	assert.Error(t, err)
}

func TestPrimaryInterestAndDisplayName(t *testing.T) {
	assert.Equal(t, "Voyage", domain.PrimaryInterest([]string{" ", "Voyage"}))
	assert.Equal(t, domain.DefaultInterest, domain.PrimaryInterest(nil))
	assert.Equal(t, domain.AnonymousName, domain.Profile{}.DisplayName())
}
