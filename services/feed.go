// services/feed.go - Change notifications for live queries
package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// ChangeFeed fans out "something changed" signals per topic. Signals carry no
// payload: subscribers re-read the full snapshot, so a burst of changes may
// collapse into one signal.
type ChangeFeed interface {
	Publish(ctx context.Context, topic string) error
	// Subscribe returns a channel that receives a signal after each change.
	// It is closed once ctx is done.
	Subscribe(ctx context.Context, topic string) (<-chan struct{}, error)
}

func threadsTopic(teamID string) string   { return "threads:" + teamID }
func messagesTopic(threadID string) string { return "messages:" + threadID }

// LocalFeed is an in-process ChangeFeed for single-replica deployments and tests.
type LocalFeed struct {
	mu   sync.RWMutex
	subs map[string]map[chan struct{}]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: map[string]map[chan struct{}]struct{}{}}
}

func (f *LocalFeed) Publish(_ context.Context, topic string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for ch := range f.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
			// a signal is already pending
		}
	}
	return nil
}

func (f *LocalFeed) Subscribe(ctx context.Context, topic string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	if f.subs[topic] == nil {
		f.subs[topic] = map[chan struct{}]struct{}{}
	}
	f.subs[topic][ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if set, ok := f.subs[topic]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(f.subs, topic)
			}
		}
		f.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Subscribers returns how many live subscriptions a topic has.
func (f *LocalFeed) Subscribers(topic string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[topic])
}

// watch turns a feed topic into a stream of snapshots produced by load. The
// first snapshot is sent right away; each later signal triggers a reload.
// Failed loads are logged and skipped.
func watch[T any](ctx context.Context, feed ChangeFeed, topic, kind string, load func(ctx context.Context) ([]T, error)) (<-chan []T, error) {
	// subscribe before the first load so no change slips in between
	signals, err := feed.Subscribe(ctx, topic)
	if err != nil {
		return nil, wrap("Subscribe", err)
	}

	log := logrus.WithFields(logrus.Fields{"component": "watch", "topic": topic})
	out := make(chan []T)
	liveSubscriptions.WithLabelValues(kind).Inc()

	go func() {
		defer close(out)
		defer liveSubscriptions.WithLabelValues(kind).Dec()

		emit := func() bool {
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Warn("live query reload failed")
				}
				return ctx.Err() == nil
			}
			select {
			case out <- snapshot:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out, nil
}
