package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

func TestCleanPath(t *testing.T) {
	p, err := tree.CleanPath("/users//u1/")
	require.NoError(t, err)
	assert.Equal(t, "users/u1", p)

	p, err = tree.CleanPath("/")
	require.NoError(t, err)
	assert.Equal(t, "", p)

	for _, bad := range []string{"users/a.b", "users/#", "users/$x", "a/[0]", "a/\x01"} {
		_, err := tree.CleanPath(bad)
		assert.ErrorIs(t, err, svcErr.ErrInvalidArgument, bad)
	}
}

func TestAncestry(t *testing.T) {
	assert.Equal(t, []string{"a", "a/b"}, tree.Ancestors("a/b/c"))
	assert.Empty(t, tree.Ancestors("a"))

	assert.True(t, tree.IsAncestor("", "a"))
	assert.True(t, tree.IsAncestor("a/b", "a/b/c"))
	assert.False(t, tree.IsAncestor("a/b", "a/bc"))
	assert.False(t, tree.IsAncestor("a/b", "a/b"))

	assert.True(t, tree.Related("likes/u1", "likes/u1/u2"))
	assert.True(t, tree.Related("likes/u1/u2", "likes/u1"))
	assert.False(t, tree.Related("likes/u1", "likes/u10"))
}

func TestJoinAndKey(t *testing.T) {
	assert.Equal(t, "chats/a_b/messages/m1", tree.Join("chats", "a_b/", "/messages", "m1"))
	assert.Equal(t, "m1", tree.Key("chats/a_b/messages/m1"))
	assert.Equal(t, "users", tree.Key("users"))
}

func TestIsParticipant(t *testing.T) {
	assert.True(t, tree.IsParticipant("u1_u2", "u1"))
	assert.True(t, tree.IsParticipant("u1_u2", "u2"))
	assert.False(t, tree.IsParticipant("u1_u2", "u"))
	assert.False(t, tree.IsParticipant("u1_u2", ""))
	assert.False(t, tree.IsParticipant("a_b_c", "a"))
	assert.False(t, tree.IsParticipant("a_b_c", "c"))
	assert.False(t, tree.IsParticipant("a_b_c", "b_c"))
}
