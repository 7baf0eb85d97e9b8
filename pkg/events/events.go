// Package events delivers committed preference changes to listeners, inside
// the process and optionally across processes.
package events

import (
	"context"
	"sync"

	"github.com/segmentio/ksuid"
)

// Event describes one changed key of a store. Every event of one commit
// carries the same CommitID.
type Event struct {
	Store    string      `json:"store"`
	Key      string      `json:"key"`
	Removed  bool        `json:"removed"`
	CommitID ksuid.KSUID `json:"commit_id"`
	// Remote is set on events that arrived from another process
	Remote bool `json:"-"`
}

// Listener receives events. It runs on the notifying goroutine and must not
// block for long.
type Listener func(Event)

// Bridge routes the events of a commit to the listeners of a store
type Bridge interface {
	// Subscribe registers l for store. Listeners of one store run in
	// subscription order.
	Subscribe(store string, l Listener) (unsubscribe func())
	// Notify delivers events to the listeners of each event's store
	Notify(ctx context.Context, events []Event) error
	Close() error
}

type subscription struct {
	id       uint64
	listener Listener
}

// LocalBridge fans events out to listeners in this process
type LocalBridge struct {
	listeners map[string][]subscription
	nextID    uint64
	mutex     sync.RWMutex
}

var _ Bridge = (*LocalBridge)(nil)

// NewLocalBridge creates a bridge with no listeners
func NewLocalBridge() *LocalBridge {
	return &LocalBridge{listeners: make(map[string][]subscription)}
}

func (b *LocalBridge) Subscribe(store string, l Listener) func() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[store] = append(b.listeners[store], subscription{id: id, listener: l})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(store, id) })
	}
}

func (b *LocalBridge) unsubscribe(store string, id uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	subs := b.listeners[store]
	for i, s := range subs {
		if s.id == id {
			b.listeners[store] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.listeners[store]) == 0 {
		delete(b.listeners, store)
	}
}

// Listeners returns the number of listeners of store
func (b *LocalBridge) Listeners(store string) int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return len(b.listeners[store])
}

func (b *LocalBridge) Notify(_ context.Context, events []Event) error {
	for _, ev := range events {
		b.mutex.RLock()
		subs := b.listeners[ev.Store]
		b.mutex.RUnlock()

		for _, s := range subs {
			s.listener(ev)
		}
	}
	return nil
}

func (b *LocalBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.listeners = make(map[string][]subscription)
	return nil
}
