package testutil

import (
	"context"
	"sync"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/events"
)

// Recorder is an events.Publisher that keeps everything it receives.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Sounds returns the sounds played for uid, in order.
func (r *Recorder) Sounds(uid string) []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.UserID == uid && ev.Sound != "" {
			out = append(out, ev.Sound)
		}
	}
	return out
}
