// Package snapshot exports a store to a portable document and imports it
// back. Documents can be written as JSON, YAML or MessagePack.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/yandextaxitech/binaryprefs/pkg/codec"
	"github.com/yandextaxitech/binaryprefs/pkg/prefs"
	"gopkg.in/yaml.v3"
)

// Format names a document encoding
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat accepts a format name or a file extension
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack", "mp", "mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("snapshot: unknown format %q", s)
	}
}

// FormatForPath picks the format from a file extension
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Snapshot is the exported content of one store
type Snapshot struct {
	Store   string    `json:"store" yaml:"store" msgpack:"store"`
	Version int32     `json:"version" yaml:"version" msgpack:"version"`
	Taken   time.Time `json:"taken" yaml:"taken" msgpack:"taken"`
	Entries []Entry   `json:"entries" yaml:"entries" msgpack:"entries"`
}

// Take exports every value of p in key order
func Take(p *prefs.Preferences) (*Snapshot, error) {
	keys, err := p.Keys()
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		Store:   p.Name(),
		Version: codec.FormatVersion,
		Taken:   time.Now().UTC(),
		Entries: make([]Entry, 0, len(keys)),
	}
	for _, key := range keys {
		blob, _, ok, err := p.GetRaw(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		e, err := NewEntry(key, blob)
		if err != nil {
			return nil, err
		}
		s.Entries = append(s.Entries, e)
	}
	return s, nil
}

// Restore writes every entry of s to p in one commit. With replace set,
// keys missing from s are removed.
func Restore(ctx context.Context, p *prefs.Preferences, s *Snapshot, replace bool) error {
	if s.Version > codec.FormatVersion {
		return fmt.Errorf("%w: snapshot version %d", codec.ErrUnsupportedVersion, s.Version)
	}
	editor := p.Edit()
	if replace {
		editor.Clear()
	}
	for _, e := range s.Entries {
		blob, err := e.Blob()
		if err != nil {
			return err
		}
		editor.PutRaw(e.Key, blob)
	}
	return editor.Commit(ctx)
}

// Encode writes s in format f
func Encode(s *Snapshot, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatYAML:
		return yaml.Marshal(s)
	case FormatMsgpack:
		return msgpack.Marshal(s)
	default:
		return nil, fmt.Errorf("snapshot: unknown format %q", f)
	}
}

// Decode reads a snapshot written in format f
func Decode(data []byte, f Format) (*Snapshot, error) {
	s := &Snapshot{}
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, s)
	case FormatYAML:
		err = yaml.Unmarshal(data, s)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, s)
	default:
		return nil, fmt.Errorf("snapshot: unknown format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", f, err)
	}
	return s, nil
}
