package tree

import (
	"bytes"
	"context"
	"log/slog"
	"time"
)

type getFunc func(ctx context.Context, path string) (Snapshot, error)

// watch turns a stream of changed paths into a stream of snapshots of path.
//
// Changes are collapsed into a single pending re-read, so a slow consumer
// never stalls the change stream; it only sees fewer intermediate states.
// Consecutive identical values are sent once.
func watch(ctx context.Context, path string, get getFunc, changes <-chan string, log *slog.Logger) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	dirty := make(chan struct{}, 1)
	mark := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}
	mark()

	go func() {
		for p := range changes {
			if Related(path, p) {
				mark()
			}
		}
	}()

	go func() {
		defer close(out)
		var last []byte
		sent := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-dirty:
			}

			snap, err := get(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("tree subscription read failed", "path", path, "err", err)
				continue
			}

			b := snap.JSON()
			if sent && bytes.Equal(b, last) {
				continue
			}
			sent, last = true, b

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// pollChanges reports path as changed every interval, for backends without
// server push.
func pollChanges(ctx context.Context, path string, interval time.Duration) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
