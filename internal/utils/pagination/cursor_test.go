package pagination_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/utils/pagination"
)

func TestCursor_EncodeDecode(t *testing.T) {
	token, err := pagination.Encode(pagination.Cursor{ID: "u7", Timestamp: 1700000000000})
	require.NoError(t, err)

	c, err := pagination.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "u7", c.ID)
	assert.Equal(t, int64(1700000000000), c.Timestamp)

	empty, err := pagination.Decode("")
	require.NoError(t, err)
	assert.Equal(t, pagination.Cursor{}, empty)

	_, err = pagination.Decode("%%%")
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}

func TestCursor_After(t *testing.T) {
	c := pagination.Cursor{ID: "m", Timestamp: 100}
	assert.True(t, c.After(99, "z"))
	assert.True(t, c.After(100, "a"))
	assert.False(t, c.After(100, "m"))
	assert.False(t, c.After(100, "n"))
	assert.False(t, c.After(101, "a"))
	assert.True(t, pagination.Cursor{}.After(0, ""))
}

func TestPageSize(t *testing.T) {
	assert.Equal(t, pagination.DefaultPageSize, pagination.PageSize(0))
	assert.Equal(t, 5, pagination.PageSize(5))
	assert.Equal(t, pagination.MaxPageSize, pagination.PageSize(1000))
}
