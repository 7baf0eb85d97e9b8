package file

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleAdapter keeps the values of one store in a pebble database under
// the key prefix "{store}/". Several stores can share one database.
type PebbleAdapter struct {
	db     *pebble.DB
	prefix []byte
	owned  bool
}

// NewPebbleAdapter serves store from an already open database. The caller
// keeps ownership of db.
func NewPebbleAdapter(db *pebble.DB, store string) (*PebbleAdapter, error) {
	if err := ValidateName(store); err != nil {
		return nil, err
	}
	return &PebbleAdapter{db: db, prefix: []byte(store + "/")}, nil
}

// OpenPebbleAdapter opens the database at path for store. Close releases it.
func OpenPebbleAdapter(path, store string) (*PebbleAdapter, error) {
	if err := ValidateName(store); err != nil {
		return nil, err
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &PebbleAdapter{db: db, prefix: []byte(store + "/"), owned: true}, nil
}

func (a *PebbleAdapter) key(name string) []byte {
	k := make([]byte, 0, len(a.prefix)+len(name))
	k = append(k, a.prefix...)
	return append(k, name...)
}

func (a *PebbleAdapter) Names() ([]string, error) {
	upper := make([]byte, len(a.prefix))
	copy(upper, a.prefix)
	upper[len(upper)-1]++

	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: a.prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	var names []string
	for iter.First(); iter.Valid(); iter.Next() {
		names = append(names, string(iter.Key()[len(a.prefix):]))
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return nil, err
	}
	return names, iter.Close()
}

func (a *PebbleAdapter) Fetch(name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	value, closer, err := a.db.Get(a.key(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(value))
	copy(data, value)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return data, nil
}

func (a *PebbleAdapter) Save(name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return a.db.Set(a.key(name), data, pebble.Sync)
}

func (a *PebbleAdapter) Remove(name string) error {
	if name == "" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return a.db.Delete(a.key(name), pebble.Sync)
}

// Close closes the database if the adapter opened it
func (a *PebbleAdapter) Close() error {
	if !a.owned {
		return nil
	}
	return a.db.Close()
}
