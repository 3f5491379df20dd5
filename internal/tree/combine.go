package tree

import "context"

// SubscribeAll subscribes to every path and emits the latest snapshot of
// each, in path order, once all of them delivered a first value and again
// after every change. A slow consumer only ever sees the newest combination.
func SubscribeAll(ctx context.Context, store Store, paths ...string) (<-chan []Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)

	type update struct {
		i    int
		snap Snapshot
	}
	merged := make(chan update)

	for i, p := range paths {
		ch, err := store.Subscribe(ctx, p)
		if err != nil {
			cancel()
			return nil, err
		}
		go func() {
			for s := range ch {
				select {
				case merged <- update{i: i, snap: s}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	out := make(chan []Snapshot, 1)
	go func() {
		defer close(out)
		defer cancel()

		latest := make([]Snapshot, len(paths))
		seen := make([]bool, len(paths))
		pending := len(paths)
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-merged:
				latest[u.i] = u.snap
				if !seen[u.i] {
					seen[u.i] = true
					pending--
				}
				if pending > 0 {
					continue
				}
				// replace a value the consumer has not taken yet
				select {
				case <-out:
				default:
				}
				out <- append([]Snapshot(nil), latest...)
			}
		}
	}()
	return out, nil
}
