package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/chat"
)

func ids(msgs []domain.Message) []string {
	out := []string{}
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestTimeline_SortsAndReportsNewMessages(t *testing.T) {
	tl := chat.NewTimeline()

	added := tl.Apply([]domain.Message{
		{ID: "c", Timestamp: 3},
		{ID: "a", Timestamp: 1},
		{ID: "b2", Timestamp: 2},
		{ID: "b1", Timestamp: 2},
	})
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, ids(added))
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, ids(tl.Messages()))

	added = tl.Apply([]domain.Message{{ID: "a", Timestamp: 1}, {ID: "d", Timestamp: 4}})
	assert.Equal(t, []string{"d"}, ids(added))
	assert.Equal(t, []string{"a", "d"}, ids(tl.Messages()))
}

func TestTimeline_RemoveHidesUntilRemoteCatchesUp(t *testing.T) {
	tl := chat.NewTimeline()
	tl.Apply([]domain.Message{{ID: "a", Timestamp: 1}, {ID: "b", Timestamp: 2}})

	tl.Remove("b")
	assert.Equal(t, []string{"a"}, ids(tl.Messages()))

	// the remote delete has not landed yet
	tl.Apply([]domain.Message{{ID: "a", Timestamp: 1}, {ID: "b", Timestamp: 2}})
	assert.Equal(t, []string{"a"}, ids(tl.Messages()))

	tl.Apply([]domain.Message{{ID: "a", Timestamp: 1}})
	assert.Equal(t, []string{"a"}, ids(tl.Messages()))

	// an id that comes back later is shown again
	tl.Apply([]domain.Message{{ID: "a", Timestamp: 1}, {ID: "b", Timestamp: 2}})
	assert.Equal(t, []string{"a", "b"}, ids(tl.Messages()))
}
