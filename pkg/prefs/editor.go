package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/yandextaxitech/binaryprefs/pkg/codec"
	"github.com/yandextaxitech/binaryprefs/pkg/events"
)

type change struct {
	key     string
	value   any
	blob    []byte
	removed bool
}

// Editor collects changes and writes them in one commit. Puts are encoded
// immediately, so later changes to a record passed to PutPersistable are not
// seen. An Editor can be reused after Commit or Apply.
type Editor struct {
	p       *Preferences
	changes []change
	index   map[string]int
	clear   bool
	errs    []error
	mutex   sync.Mutex
}

// Edit starts a new set of changes
func (p *Preferences) Edit() *Editor {
	return &Editor{p: p, index: make(map[string]int)}
}

func (e *Editor) set(c change) *Editor {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if err := e.p.checkKey(c.key); err != nil {
		e.errs = append(e.errs, err)
		return e
	}
	if i, ok := e.index[c.key]; ok {
		e.changes[i] = c
		return e
	}
	e.index[c.key] = len(e.changes)
	e.changes = append(e.changes, c)
	return e
}

func (e *Editor) fail(err error) *Editor {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.errs = append(e.errs, err)
	return e
}

// Put stores any value the codec supports
func (e *Editor) Put(key string, v any) *Editor {
	if p, ok := v.(codec.Persistable); ok {
		return e.PutPersistable(key, p)
	}
	blob, err := codec.EncodeValue(v)
	if err != nil {
		return e.fail(fmt.Errorf("prefs: put %q: %w", key, err))
	}
	return e.set(change{key: key, value: copyValue(v), blob: blob})
}

func (e *Editor) PutBool(key string, v bool) *Editor { return e.Put(key, v) }

func (e *Editor) PutInt8(key string, v int8) *Editor { return e.Put(key, v) }

func (e *Editor) PutInt16(key string, v int16) *Editor { return e.Put(key, v) }

func (e *Editor) PutChar(key string, v uint16) *Editor { return e.Put(key, v) }

func (e *Editor) PutInt32(key string, v int32) *Editor { return e.Put(key, v) }

func (e *Editor) PutInt64(key string, v int64) *Editor { return e.Put(key, v) }

func (e *Editor) PutFloat32(key string, v float32) *Editor { return e.Put(key, v) }

func (e *Editor) PutFloat64(key string, v float64) *Editor { return e.Put(key, v) }

func (e *Editor) PutString(key string, v string) *Editor { return e.Put(key, v) }

// PutBytes stores a copy of v. A nil slice is stored as empty.
func (e *Editor) PutBytes(key string, v []byte) *Editor {
	if v == nil {
		v = []byte{}
	}
	return e.Put(key, v)
}

// PutStringSet stores a copy of v. A nil set is stored as empty.
func (e *Editor) PutStringSet(key string, v codec.StringSet) *Editor {
	if v == nil {
		v = codec.NewStringSet()
	}
	return e.Put(key, v)
}

// PutPersistable stores the current state of v. Reading it back needs a
// factory registered under key.
func (e *Editor) PutPersistable(key string, v codec.Persistable) *Editor {
	blob, err := e.p.codec.Serialize(v)
	if err != nil {
		return e.fail(fmt.Errorf("prefs: put %q: %w", key, err))
	}
	return e.set(change{key: key, value: record(blob), blob: blob})
}

// PutRaw stores an already serialized, unencrypted blob
func (e *Editor) PutRaw(key string, blob []byte) *Editor {
	v, err := decodeBlob(blob)
	if err != nil {
		return e.fail(fmt.Errorf("prefs: put %q: %w", key, err))
	}
	return e.set(change{key: key, value: v, blob: clone(blob)})
}

// Remove deletes key
func (e *Editor) Remove(key string) *Editor {
	return e.set(change{key: key, removed: true})
}

// Clear deletes every key stored before this commit. Puts in the same
// commit are kept.
func (e *Editor) Clear() *Editor {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.clear = true
	return e
}

// take hands over the collected changes and resets the editor
func (e *Editor) take() ([]change, bool, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	changes, clear, err := e.changes, e.clear, errors.Join(e.errs...)
	e.changes = nil
	e.index = make(map[string]int)
	e.clear = false
	e.errs = nil
	return changes, clear, err
}

// Commit writes the changes and waits for them to reach storage. Listeners
// are notified after the store is unlocked.
func (e *Editor) Commit(ctx context.Context) error {
	if e.p.closed.Load() {
		return ErrClosed
	}
	changes, clear, err := e.take()
	if err != nil {
		return err
	}
	return e.p.commit(ctx, changes, clear)
}

// Apply commits in the background. Failures are logged; Close waits for
// pending commits.
func (e *Editor) Apply() {
	changes, clear, err := e.take()
	if err != nil {
		e.p.logger.WithError(err).Error("discarding invalid changes")
		return
	}
	if !e.p.begin() {
		e.p.logger.WithError(ErrClosed).Error("discarding changes")
		return
	}
	go func() {
		defer e.p.pending.Done()
		if err := e.p.commit(context.Background(), changes, clear); err != nil {
			e.p.logger.WithError(err).WithField("keys", len(changes)).Error("apply failed")
		}
	}()
}

func (p *Preferences) commit(ctx context.Context, changes []change, clear bool) (err error) {
	if len(changes) == 0 && !clear {
		return nil
	}
	if err := p.strategy.wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	var changed []events.Event
	defer func() {
		p.metrics.RecordCommit(p.name, len(changed), time.Since(start), err)
	}()

	// Keys written before a failure are committed and still announced
	changed, err = p.write(changes, clear)
	if len(changed) > 0 {
		if notifyErr := p.bridge.Notify(ctx, changed); notifyErr != nil {
			p.logger.WithError(notifyErr).Warn("failed to broadcast changes")
		}
	}
	return err
}

// write applies changes under the process and write locks and returns the
// events to deliver
func (p *Preferences) write(changes []change, clear bool) ([]events.Event, error) {
	if err := p.locks.Process.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := p.locks.Process.Unlock(); err != nil {
			p.logger.WithError(err).Warn("failed to release process lock")
		}
	}()
	p.locks.Write.Lock()
	defer p.locks.Write.Unlock()

	id := ksuid.New()
	var changed []events.Event

	if clear {
		keys, err := p.storedKeys()
		if err != nil {
			return nil, err
		}
		touched := make(map[string]bool, len(changes))
		for _, c := range changes {
			touched[c.key] = true
		}
		for _, key := range keys {
			if touched[key] {
				continue
			}
			if err := p.removeKey(key); err != nil {
				return changed, err
			}
			changed = append(changed, events.Event{Store: p.name, Key: key, Removed: true, CommitID: id})
		}
	}

	for _, c := range changes {
		if c.removed {
			if err := p.removeKey(c.key); err != nil {
				return changed, err
			}
		} else if err := p.saveKey(c.key, c.value, c.blob); err != nil {
			return changed, err
		}
		changed = append(changed, events.Event{Store: p.name, Key: c.key, Removed: c.removed, CommitID: id})
	}
	return changed, nil
}

func (p *Preferences) saveKey(key string, value any, blob []byte) error {
	name, err := p.keyEnc.Encrypt(key)
	if err != nil {
		return err
	}
	data, err := p.valueEnc.Encrypt(blob)
	if err != nil {
		return fmt.Errorf("prefs: encrypt %q: %w", key, err)
	}
	if err := p.adapter.Save(name, data); err != nil {
		return fmt.Errorf("prefs: save %q: %w", key, err)
	}
	p.strategy.committed(key, value, false)
	return nil
}

func (p *Preferences) removeKey(key string) error {
	name, err := p.keyEnc.Encrypt(key)
	if err != nil {
		return err
	}
	if err := p.adapter.Remove(name); err != nil {
		return fmt.Errorf("prefs: remove %q: %w", key, err)
	}
	p.strategy.committed(key, nil, true)
	return nil
}
