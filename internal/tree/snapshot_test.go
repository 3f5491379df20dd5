package tree_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

func TestNormalize_PrunesAndRebuildsArrays(t *testing.T) {
	v, err := tree.Normalize(map[string]any{
		"name":      "Alice",
		"empty":     map[string]any{},
		"gone":      nil,
		"interests": []string{"Voyage", "Cuisine"},
		"sparse":    map[string]any{"0": "a", "2": "c"},
	})
	require.NoError(t, err)

	m := v.(map[string]any)
	assert.NotContains(t, m, "empty")
	assert.NotContains(t, m, "gone")
	assert.Equal(t, []any{"Voyage", "Cuisine"}, m["interests"])
	assert.Equal(t, map[string]any{"0": "a", "2": "c"}, m["sparse"])

	v, err = tree.Normalize(map[string]any{"a": nil})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSnapshot_Accessors(t *testing.T) {
	v, err := tree.Normalize(map[string]any{
		"u1_u2": map[string]any{"unreadCount": 3, "isMatch": true, "lastMessage": "hello"},
		"u1_u3": map[string]any{"unreadCount": 1},
	})
	require.NoError(t, err)
	snap := tree.NewSnapshot("user_chats/u1", v)

	assert.True(t, snap.Exists())
	assert.Equal(t, "u1", snap.Key())
	assert.Equal(t, []string{"u1_u2", "u1_u3"}, snap.Keys())

	meta := snap.Child("u1_u2")
	assert.Equal(t, "user_chats/u1/u1_u2", meta.Path())
	assert.Equal(t, int64(3), meta.Child("unreadCount").Int())
	assert.True(t, meta.Child("isMatch").Bool())
	assert.Equal(t, "hello", meta.Child("lastMessage").String())
	assert.False(t, snap.Child("u1_u9/unreadCount").Exists())

	var decoded struct {
		UnreadCount int  `json:"unreadCount"`
		IsMatch     bool `json:"isMatch"`
	}
	require.NoError(t, meta.Unmarshal(&decoded))
	assert.Equal(t, 3, decoded.UnreadCount)
	assert.True(t, decoded.IsMatch)

	assert.JSONEq(t, `{"unreadCount":1}`, string(snap.Child("u1_u3").JSON()))
	assert.Equal(t, "null", string(tree.NewSnapshot("x", nil).JSON()))
}

func TestSnapshot_ArrayChildren(t *testing.T) {
	v, err := tree.Normalize(json.RawMessage(`{"users":["a","b"]}`))
	require.NoError(t, err)
	snap := tree.NewSnapshot("matches/a_b", v)

	assert.Equal(t, "b", snap.Child("users/1").String())
	assert.Len(t, snap.Child("users").Children(), 2)
}
