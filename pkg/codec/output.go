package codec

// initialBufferSize is the starting capacity of a BinaryObjectOutput
const initialBufferSize = 128

// ObjectOutput receives the fields of a Persistable in write order
type ObjectOutput interface {
	WriteBool(v bool)
	WriteInt8(v int8)
	WriteInt16(v int16)
	WriteChar(v uint16)
	WriteInt32(v int32)
	WriteInt64(v int64)
	WriteFloat32(v float32)
	WriteFloat64(v float64)
	// WriteString writes an Int length then the tagged UTF-8 bytes
	WriteString(v string)
	// WriteStringPtr is WriteString with nil encoded as length -1
	WriteStringPtr(v *string)
	// WriteBytes writes an Int length then the tagged bytes, nil as length -1
	WriteBytes(v []byte)
	// WriteStringSet writes an Int length then the tagged set, nil as length -1
	WriteStringSet(v StringSet)
	// WritePersistable writes a nested record, nil or typed nil as a bare
	// Int -1
	WritePersistable(p Persistable)
}

var _ ObjectOutput = (*BinaryObjectOutput)(nil)

// BinaryObjectOutput accumulates tagged fields into one growable buffer.
// It is single use: create one per record.
type BinaryObjectOutput struct {
	buf    []byte
	offset int
}

// NewObjectOutput creates an empty output stream
func NewObjectOutput() *BinaryObjectOutput {
	return &BinaryObjectOutput{buf: make([]byte, initialBufferSize)}
}

// ensure makes room for n more bytes before anything is written
func (o *BinaryObjectOutput) ensure(n int) {
	if len(o.buf)-o.offset >= n {
		return
	}
	grown := make([]byte, len(o.buf)*2+n)
	copy(grown, o.buf[:o.offset])
	o.buf = grown
}

func (o *BinaryObjectOutput) write(p []byte) {
	o.ensure(len(p))
	o.offset += copy(o.buf[o.offset:], p)
}

// writeVariable writes the payload length (excluding the flag) followed by
// the tagged payload
func (o *BinaryObjectOutput) writeVariable(tagged []byte) {
	o.WriteInt32(int32(len(tagged) - 1))
	o.write(tagged)
}

func (o *BinaryObjectOutput) writeHeader() {
	o.write([]byte{FlagPersistable.Byte()})
	o.WriteInt32(FormatVersion)
}

func (o *BinaryObjectOutput) WriteBool(v bool) { o.write(BooleanCodec{}.Serialize(v)) }

func (o *BinaryObjectOutput) WriteInt8(v int8) { o.write(ByteCodec{}.Serialize(v)) }

func (o *BinaryObjectOutput) WriteInt16(v int16) { o.write(ShortCodec{}.Serialize(v)) }

func (o *BinaryObjectOutput) WriteChar(v uint16) { o.write(CharCodec{}.Serialize(v)) }

func (o *BinaryObjectOutput) WriteInt32(v int32) { o.write(IntCodec{}.Serialize(v)) }

func (o *BinaryObjectOutput) WriteInt64(v int64) { o.write(LongCodec{}.Serialize(v)) }

func (o *BinaryObjectOutput) WriteFloat32(v float32) { o.write(FloatCodec{}.Serialize(v)) }

func (o *BinaryObjectOutput) WriteFloat64(v float64) { o.write(DoubleCodec{}.Serialize(v)) }

func (o *BinaryObjectOutput) WriteString(v string) {
	o.writeVariable(StringCodec{}.Serialize(v))
}

func (o *BinaryObjectOutput) WriteStringPtr(v *string) {
	if v == nil {
		o.WriteInt32(nullLength)
		return
	}
	o.WriteString(*v)
}

func (o *BinaryObjectOutput) WriteBytes(v []byte) {
	if v == nil {
		o.WriteInt32(nullLength)
		return
	}
	o.writeVariable(ByteArrayCodec{}.Serialize(v))
}

func (o *BinaryObjectOutput) WriteStringSet(v StringSet) {
	if v == nil {
		o.WriteInt32(nullLength)
		return
	}
	o.writeVariable(StringSetCodec{}.Serialize(v))
}

func (o *BinaryObjectOutput) WritePersistable(p Persistable) {
	if isNilRecord(p) {
		o.WriteInt32(nullLength)
		return
	}
	o.writeHeader()
	p.WriteExternal(o)
}

// Serialize writes the record marker, the format version and the fields of
// p, and returns exactly the bytes written. p must not be nil or a typed
// nil; PersistableCodec.Serialize checks this.
func (o *BinaryObjectOutput) Serialize(p Persistable) []byte {
	o.writeHeader()
	p.WriteExternal(o)
	return o.Bytes()
}

// Bytes returns a trimmed copy of everything written so far
func (o *BinaryObjectOutput) Bytes() []byte {
	out := make([]byte, o.offset)
	copy(out, o.buf[:o.offset])
	return out
}

// Len returns the number of bytes written so far
func (o *BinaryObjectOutput) Len() int {
	return o.offset
}
