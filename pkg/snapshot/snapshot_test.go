package snapshot

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yandextaxitech/binaryprefs/pkg/codec"
	"github.com/yandextaxitech/binaryprefs/pkg/prefs"
)

type note struct {
	Text string
}

func (n *note) WriteExternal(out codec.ObjectOutput) { out.WriteString(n.Text) }

func (n *note) ReadExternal(in codec.ObjectInput) (err error) {
	n.Text, err = in.ReadString()
	return err
}

func openStore(t *testing.T) *prefs.Preferences {
	t.Helper()
	registry := codec.NewRegistry()
	registry.MustRegister("note", func() codec.Persistable { return &note{} })

	p, err := prefs.Open(t.TempDir(), "settings", prefs.WithRegistry(registry))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func fill(t *testing.T, p *prefs.Preferences) {
	t.Helper()
	err := p.Edit().
		PutBool("bool", true).
		PutInt8("int8", math.MinInt8).
		PutInt16("int16", -300).
		PutChar("char", 0xFFFF).
		PutInt32("int32", 53).
		PutInt64("int64", math.MaxInt64).
		PutFloat32("float32", 0.1).
		PutFloat64("float64", math.Inf(1)).
		PutString("string", "line\nbreak").
		PutBytes("bytes", []byte{0, 255}).
		PutStringSet("set", codec.NewStringSet("b", "a")).
		PutPersistable("note", &note{Text: "hi"}).
		Commit(context.Background())
	require.NoError(t, err)
}

func TestTake(t *testing.T) {
	p := openStore(t)
	fill(t, p)

	s, err := Take(p)
	require.NoError(t, err)
	assert.Equal(t, "settings", s.Store)
	assert.Equal(t, codec.FormatVersion, s.Version)
	require.Len(t, s.Entries, 12)

	byKey := make(map[string]Entry)
	for _, e := range s.Entries {
		byKey[e.Key] = e
	}
	assert.Equal(t, Entry{Key: "int32", Kind: "int", Value: "53"}, byKey["int32"])
	assert.Equal(t, Entry{Key: "char", Kind: "char", Value: "65535"}, byKey["char"])
	assert.Equal(t, Entry{Key: "float64", Kind: "double", Value: "+Inf"}, byKey["float64"])
	assert.Equal(t, Entry{Key: "bytes", Kind: "byte-array", Value: "AP8="}, byKey["bytes"])
	assert.Equal(t, Entry{Key: "set", Kind: "string-set", Values: []string{"a", "b"}}, byKey["set"])
	assert.Equal(t, "persistable", byKey["note"].Kind)
}

func TestEncodeDecodeRestore(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML, FormatMsgpack} {
		t.Run(string(f), func(t *testing.T) {
			source := openStore(t)
			fill(t, source)

			s, err := Take(source)
			require.NoError(t, err)
			data, err := Encode(s, f)
			require.NoError(t, err)

			decoded, err := Decode(data, f)
			require.NoError(t, err)
			assert.Equal(t, s.Entries, decoded.Entries)
			assert.True(t, s.Taken.Equal(decoded.Taken))

			target := openStore(t)
			require.NoError(t, Restore(context.Background(), target, decoded, false))

			for _, key := range []string{"bool", "int8", "int16", "char", "int32", "int64", "float32", "float64", "string", "bytes", "set"} {
				want, _, _ := source.Get(key)
				got, ok, err := target.Get(key)
				require.NoError(t, err)
				assert.True(t, ok, key)
				assert.Equal(t, want, got, key)
			}
			rec, err := target.GetPersistable("note", nil)
			require.NoError(t, err)
			assert.Equal(t, "hi", rec.(*note).Text)
		})
	}
}

func TestRestore_Replace(t *testing.T) {
	p := openStore(t)
	require.NoError(t, p.Edit().PutInt32("stale", 1).Commit(context.Background()))

	s := &Snapshot{Version: codec.FormatVersion, Entries: []Entry{{Key: "fresh", Kind: "string", Value: "v"}}}
	require.NoError(t, Restore(context.Background(), p, s, true))

	keys, err := p.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, keys)
}

func TestRestore_Errors(t *testing.T) {
	p := openStore(t)
	ctx := context.Background()

	newer := &Snapshot{Version: codec.FormatVersion + 1}
	assert.ErrorIs(t, Restore(ctx, p, newer, false), codec.ErrUnsupportedVersion)

	bad := []Entry{
		{Key: "k", Kind: "int", Value: "not a number"},
		{Key: "k", Kind: "byte", Value: "300"},
		{Key: "k", Kind: "decimal", Value: "1"},
		{Key: "k", Kind: "byte-array", Value: "%%%"},
		{Key: "k", Kind: "persistable", Value: "/QAAAAE="},
	}
	for _, e := range bad {
		s := &Snapshot{Version: codec.FormatVersion, Entries: []Entry{e}}
		assert.ErrorIs(t, Restore(ctx, p, s, false), ErrInvalidEntry, "%+v", e)
	}

	keys, err := p.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":        FormatJSON,
		"json":    FormatJSON,
		".yml":    FormatYAML,
		"YAML":    FormatYAML,
		"msgpack": FormatMsgpack,
		".mpk":    FormatMsgpack,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)

	f, err := FormatForPath("/tmp/out.yaml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
}

func TestEntry_NaNPayload(t *testing.T) {
	double := math.Float64frombits(0x7FF8000000000BAD)
	float := math.Float32frombits(0x7FC00BAD)

	tests := []struct {
		name  string
		value any
		text  string
	}{
		{"double", double, "NaN:0x7ff8000000000bad"},
		{"float", float, "NaN:0x7fc00bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := codec.EncodeValue(tt.value)
			require.NoError(t, err)

			e, err := NewEntry("nan", blob)
			require.NoError(t, err)
			assert.Equal(t, tt.text, e.Value)

			restored, err := e.Blob()
			require.NoError(t, err)
			assert.Equal(t, blob, restored, "NaN payload survives")
		})
	}

	e := Entry{Key: "plain", Kind: "double", Value: "NaN"}
	v, err := e.Decode()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v.(float64)))

	for _, text := range []string{"NaN:0x3ff0000000000000", "NaN:zz"} {
		_, err := Entry{Key: "bad", Kind: "double", Value: text}.Decode()
		assert.ErrorIs(t, err, ErrInvalidEntry, text)
	}
}
