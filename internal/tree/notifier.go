package tree

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ChangeChannel is the Redis pub/sub channel carrying written paths.
const ChangeChannel = "tree:changes"

const listenerBuffer = 1024

// Notifier fans out the paths written by a store to its subscriptions.
type Notifier interface {
	Publish(ctx context.Context, paths ...string) error
	// Listen streams every published path until ctx ends.
	Listen(ctx context.Context) (<-chan string, error)
}

// LocalNotifier fans out inside the process.
type LocalNotifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan string
	log    *slog.Logger
}

func NewLocalNotifier(log *slog.Logger) *LocalNotifier {
	return &LocalNotifier{subs: map[int]chan string{}, log: log}
}

// Publish never blocks; a listener whose buffer is full misses the path.
func (n *LocalNotifier) Publish(_ context.Context, paths ...string) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for id, ch := range n.subs {
		for _, p := range paths {
			select {
			case ch <- p:
			default:
				n.log.Warn("tree listener lagging, change dropped", "listener", id, "path", p)
			}
		}
	}
	return nil
}

func (n *LocalNotifier) Listen(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, listenerBuffer)

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = ch
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, id)
		close(ch)
		n.mu.Unlock()
	}()
	return ch, nil
}

// RedisNotifier fans out through Redis pub/sub so that every server
// instance sees the writes of the others.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisNotifier(client *redis.Client, log *slog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: ChangeChannel, log: log}
}

func (n *RedisNotifier) Publish(ctx context.Context, paths ...string) error {
	pipe := n.client.Pipeline()
	for _, p := range paths {
		pipe.Publish(ctx, n.channel, p)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish tree changes: %w", err)
	}
	return nil
}

// Listen returns once the subscription is confirmed by Redis, so no write
// published after Listen returns can be missed.
func (n *RedisNotifier) Listen(ctx context.Context) (<-chan string, error) {
	ps := n.client.Subscribe(ctx, n.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	out := make(chan string, listenerBuffer)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- m.Payload:
				default:
					n.log.Warn("tree listener lagging, change dropped", "path", m.Payload)
				}
			}
		}
	}()
	return out, nil
}
