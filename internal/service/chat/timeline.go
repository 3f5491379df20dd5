package chat

import (
	"sort"
	"sync"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
)

// Timeline is the resident view of one conversation: the remote message list
// kept sorted, minus the messages removed locally whose remote delete has not
// landed yet.
type Timeline struct {
	mu     sync.Mutex
	remote []domain.Message
	seen   map[string]bool
	hidden map[string]bool
}

func NewTimeline() *Timeline {
	return &Timeline{seen: map[string]bool{}, hidden: map[string]bool{}}
}

// Apply replaces the remote state with msgs and returns the messages it had
// not seen before, oldest first.
func (t *Timeline) Apply(msgs []domain.Message) []domain.Message {
	sorted := append([]domain.Message(nil), msgs...)
	sortMessages(sorted)

	t.mu.Lock()
	defer t.mu.Unlock()

	present := make(map[string]bool, len(sorted))
	var added []domain.Message
	for _, m := range sorted {
		present[m.ID] = true
		if !t.seen[m.ID] {
			t.seen[m.ID] = true
			added = append(added, m)
		}
	}
	for id := range t.hidden {
		if !present[id] {
			delete(t.hidden, id)
		}
	}
	t.remote = sorted
	return added
}

// Remove hides id until the remote state no longer contains it.
func (t *Timeline) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hidden[id] = true
}

// Messages returns the visible messages, oldest first.
func (t *Timeline) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, 0, len(t.remote))
	for _, m := range t.remote {
		if !t.hidden[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// sortMessages orders by timestamp, then id.
func sortMessages(msgs []domain.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
}
