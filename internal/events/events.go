// Package events carries the named side effects of the core (sounds and
// notifications) to whoever renders them.
package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

type Kind string

const (
	LikeReceived    Kind = "like.received"
	MatchCreated    Kind = "match.created"
	MessageSent     Kind = "message.sent"
	MessageReceived Kind = "message.received"
)

// Sound names understood by clients.
const (
	SoundSent     = "sent"
	SoundReceived = "received"
	SoundMatch    = "match"
	SoundNotif    = "notif"
)

// Event is addressed to UserID; ActorID caused it.
type Event struct {
	Kind           Kind   `json:"kind"`
	UserID         string `json:"userId"`
	ActorID        string `json:"actorId,omitempty"`
	Sound          string `json:"sound,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Preview        string `json:"preview,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// Notification reports whether the event notifies someone other than the actor.
func (e Event) Notification() bool {
	return e.Kind != MessageSent
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events to the log. It is the default when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Info("event",
		"kind", ev.Kind,
		"user", ev.UserID,
		"actor", ev.ActorID,
		"sound", ev.Sound,
		"conversation", ev.ConversationID,
	)
	return nil
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PreferenceGate drops notifications addressed to users who turned
// notifications off. The actor's own events always pass.
type PreferenceGate struct {
	store tree.Store
	next  Publisher
}

func NewPreferenceGate(store tree.Store, next Publisher) *PreferenceGate {
	return &PreferenceGate{store: store, next: next}
}

func (g *PreferenceGate) Publish(ctx context.Context, ev Event) error {
	if ev.Notification() {
		snap, err := g.store.Get(ctx, domain.SettingPath(ev.UserID, "notifications"))
		if err != nil {
			return err
		}
		if snap.Exists() && !snap.Bool() {
			return nil
		}
	}
	return g.next.Publish(ctx, ev)
}
