// Package codec implements the tagged binary value format used by binaryprefs.
//
// Every value stored by the preferences layer is a self-describing blob that
// starts with a one-byte type flag followed by the payload. The decoder always
// checks the flag before it trusts the payload layout, so a blob written for
// one type can never be silently read back as another.
//
// # Flags
//
// Flags are small negative bytes. They identify a kind, nothing more:
//
//	StringSet   -1   [len(4)][utf8] repeated until the end of the blob
//	String      -2   utf8 bytes, length carried by the caller
//	Int         -3   4 bytes
//	Long        -4   8 bytes
//	Double      -5   8 bytes
//	Float       -6   4 bytes
//	Boolean     -7   1 byte (0 or 1)
//	Byte        -8   1 byte
//	Short       -9   2 bytes
//	Char        -10  2 bytes (UTF-16 code unit)
//	Persistable -11  record header followed by fields
//	ByteArray   -12  raw bytes, length carried by the caller
//
// All multi-byte numbers are big-endian. Floats and doubles are stored as
// their IEEE-754 bit patterns, so NaN payloads survive a round trip.
//
// # Primitive codecs
//
// Each kind has a codec with the same shape:
//
//	blob := codec.IntCodec{}.Serialize(53) // [-3 0 0 0 53]
//	v, err := codec.IntCodec{}.Decode(blob)
//
// Decode infers the payload length from the blob length. Deserialize takes
// an explicit offset and payload length and is what the object streams use.
//
// # Records
//
// User types implement Persistable and write themselves field by field to an
// ObjectOutput, then read the same fields back in the same order from an
// ObjectInput:
//
//	func (u *User) WriteExternal(out codec.ObjectOutput) {
//	    out.WriteInt64(u.ID)
//	    out.WriteString(u.Name)
//	}
//
//	func (u *User) ReadExternal(in codec.ObjectInput) error {
//	    var err error
//	    if u.ID, err = in.ReadInt64(); err != nil {
//	        return err
//	    }
//	    u.Name, err = in.ReadString()
//	    return err
//	}
//
// A record blob is laid out as
//
//	[-11][version: Int][field 1]...[field N]
//
// where strings, byte arrays and string sets are preceded by an Int length
// field (-1 for nil). The blob does not say which Go type produced it; the
// caller resolves that through a Registry keyed by string.
//
// # Errors
//
// Decoding fails with a *MismatchError (errors.Is ErrTypeMismatch) when a
// flag is wrong and with a *BoundsError (errors.Is ErrOutOfBounds) when the
// blob is too short or, for records, when bytes are left unread. The field
// index and offset in these errors point at the first read that went wrong,
// which is usually where a record's ReadExternal stopped mirroring its
// WriteExternal.
//
// # Thread Safety
//
// Codecs are stateless. Object streams are created per call and must not be
// shared. Registry is safe for concurrent use.
package codec
