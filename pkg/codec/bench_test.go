//go:build bench
// +build bench

package codec

import (
	"bytes"
	"strings"
	"testing"
)

func benchProfiles() []struct {
	name    string
	profile *profile
} {
	small := &profile{ID: 1, Name: "ada", Tags: NewStringSet("a")}
	medium := &profile{
		ID:     42,
		Name:   strings.Repeat("n", 100),
		Avatar: bytes.Repeat([]byte{0xAB}, 1000),
		Tags:   NewStringSet("alpha", "beta", "gamma", "delta"),
		Home:   &point{X: 1, Y: 2},
		Path:   make([]point, 16),
	}
	large := &profile{
		ID:     7,
		Name:   strings.Repeat("n", 1000),
		Avatar: bytes.Repeat([]byte{0xCD}, 10000),
		Home:   &point{X: 3, Y: 4},
		Path:   make([]point, 1000),
	}
	return []struct {
		name    string
		profile *profile
	}{
		{name: "small", profile: small},
		{name: "medium", profile: medium},
		{name: "large", profile: large},
	}
}

func BenchmarkObjectOutput_Serialize(b *testing.B) {
	for _, bm := range benchProfiles() {
		b.Run(bm.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				blob := NewObjectOutput().Serialize(bm.profile)
				if len(blob) == 0 {
					b.Fatal("empty blob")
				}
			}
		})
	}
}

func BenchmarkPersistableCodec_Deserialize(b *testing.B) {
	r := NewRegistry()
	r.MustRegister("profile", func() Persistable { return &profile{} })
	c := NewPersistableCodec(r)

	for _, bm := range benchProfiles() {
		b.Run(bm.name, func(b *testing.B) {
			blob, err := c.Serialize(bm.profile)
			if err != nil {
				b.Fatal(err)
			}
			b.SetBytes(int64(len(blob)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := c.Deserialize("profile", blob); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEncodeValue(b *testing.B) {
	values := []struct {
		name  string
		value any
	}{
		{name: "int", value: int32(42)},
		{name: "string", value: strings.Repeat("s", 256)},
		{name: "bytes", value: bytes.Repeat([]byte{1}, 4096)},
		{name: "set", value: NewStringSet("a", "b", "c", "d")},
	}
	for _, bm := range values {
		b.Run(bm.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := EncodeValue(bm.value); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
