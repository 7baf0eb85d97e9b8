package codec_test

import (
	"fmt"

	"github.com/yandextaxitech/binaryprefs/pkg/codec"
)

type user struct {
	Name  string
	Age   int32
	Roles codec.StringSet
}

func (u *user) WriteExternal(out codec.ObjectOutput) {
	out.WriteString(u.Name)
	out.WriteInt32(u.Age)
	out.WriteStringSet(u.Roles)
}

func (u *user) ReadExternal(in codec.ObjectInput) error {
	var err error
	if u.Name, err = in.ReadString(); err != nil {
		return err
	}
	if u.Age, err = in.ReadInt32(); err != nil {
		return err
	}
	u.Roles, err = in.ReadStringSet()
	return err
}

func ExampleIntCodec() {
	blob := codec.IntCodec{}.Serialize(53)
	fmt.Println(blob)

	v, err := codec.IntCodec{}.Decode(blob)
	fmt.Println(v, err)
	// Output:
	// [253 0 0 0 53]
	// 53 <nil>
}

func ExamplePersistableCodec() {
	registry := codec.NewRegistry()
	registry.MustRegister("user", func() codec.Persistable { return &user{} })
	c := codec.NewPersistableCodec(registry)

	blob, err := c.Serialize(&user{Name: "ada", Age: 36, Roles: codec.NewStringSet("admin", "dev")})
	if err != nil {
		fmt.Println(err)
		return
	}

	p, err := c.Deserialize("user", blob)
	if err != nil {
		fmt.Println(err)
		return
	}
	u := p.(*user)
	fmt.Println(u.Name, u.Age, u.Roles.Sorted())
	// Output: ada 36 [admin dev]
}

func ExampleDecodeValue() {
	blob, _ := codec.EncodeValue("hello")
	v, _ := codec.DecodeValue(blob)
	fmt.Printf("%q\n", v)
	// Output: "hello"
}
