package cstruct

import (
	"bytes"
	"io"
)

// Type is the common interface implemented by every type descriptor:
// primitives, arrays, pointers, enums, flags, structures and unions.
// Each descriptor knows its own name, its byte size (when static) and
// alignment, and the Context it was resolved against.
type Type interface {
	Name() string
	// Size reports the static byte size of the type. ok is false for
	// types whose size depends on the data itself (null-terminated
	// arrays, expression-sized arrays, EOF-bounded arrays, and any
	// structure or union that embeds one of those dynamically).
	Size() (uint64, bool)
	Alignment() uint64
	Context() *Context

	read(r *reader, rc *readContext) (Value, error)
	write(w *writer, v Value) (uint64, error)
	zeroValue() Value
}

// arrayTyper describes a bulk decode/encode of a contiguous run of
// elements. No type in this package implements it and ArrayType does not
// consult it: arrays are read and written one element at a time.
type arrayTyper interface {
	readArray(r *reader, count int64, rc *readContext) ([]Value, error)
	writeArray(w *writer, vs []Value) (uint64, error)
}

// nullTerminatedTyper is implemented by the types that have a concrete
// notion of "zero element" that terminates a null-terminated array:
// packed numbers, bytes-ints, enums and flags. Char and wchar arrays
// handle their terminator in ArrayType itself.
type nullTerminatedTyper interface {
	readNullTerminated(r *reader, rc *readContext) ([]Value, error)
	writeNullTerminated(w *writer, vs []Value) (uint64, error)
}

// Value is a parsed instance of a Type. Concrete implementations are
// *IntValue, *FloatValue, *BytesValue, *StringValue, *ArrayValue,
// *StructValue, *PointerValue, *EnumValue, *FlagValue, *CustomValue and
// *VoidValue. Values carry a
// handle to the Type that produced them rather than inheriting from it.
type Value interface {
	Type() Type
}

// ReadType decodes one value of t from stream, which must support Seek
// so that explicit field offsets, EOF-bounded arrays and pointer
// dereferences can work.
func ReadType(t Type, stream io.ReadSeeker) (Value, error) {
	r := newReader(stream)
	rc := newReadContext(t.Context())
	return t.read(r, rc)
}

// WriteType encodes v, which must have been produced by t (or by an
// identical type), to stream and returns the number of bytes written.
func WriteType(t Type, stream io.Writer, v Value) (uint64, error) {
	w := newWriter(stream)
	return t.write(w, v)
}

// Dumps serializes v to a freshly allocated byte slice.
func Dumps(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := WriteType(v.Type(), &buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// reader wraps an io.ReadSeeker with the small set of operations the
// codec engine needs: byte-oriented reads, tell/seek for explicit offsets
// and EOF-bounded arrays, and a one-byte peek for EOF detection.
type reader struct {
	rs io.ReadSeeker
}

func newReader(rs io.ReadSeeker) *reader {
	return &reader{rs: rs}
}

func (r *reader) Read(p []byte) (int, error) { return r.rs.Read(p) }

func (r *reader) ReadByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(r.rs, b[:])
	return b[0], err
}

func (r *reader) readFull(n uint64) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.rs, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *reader) tell() (int64, error) {
	return r.rs.Seek(0, io.SeekCurrent)
}

func (r *reader) seek(pos int64) error {
	_, err := r.rs.Seek(pos, io.SeekStart)
	return err
}

// atEOF reports whether the next read would return io.EOF, restoring the
// stream position afterwards. Used by Array's EOF-bounded count variant.
func (r *reader) atEOF() (bool, error) {
	pos, err := r.tell()
	if err != nil {
		return false, err
	}
	var b [1]byte
	_, err = r.rs.Read(b[:])
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if serr := r.seek(pos); serr != nil {
		return false, serr
	}
	return false, nil
}

// writer wraps an io.Writer with a running byte count, standing in for
// the stream.tell() python performs against a real file/BytesIO object
// while writing.
type writer struct {
	w io.Writer
	n uint64
}

func newWriter(w io.Writer) *writer {
	return &writer{w: w}
}

func (w *writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += uint64(n)
	return n, err
}

func (w *writer) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func (w *writer) offset() uint64 { return w.n }

// readContext is a read-only view of the registry constants plus the
// sibling field values decoded so far in the enclosing structure, used
// to evaluate dynamic array-count expressions (see expression.go). Each
// nested read gets its own copy so that a nested structure's own field
// names shadow the outer scope without mutating it.
type readContext struct {
	ctx    *Context
	fields map[string]int64
}

func newReadContext(ctx *Context) *readContext {
	return &readContext{ctx: ctx, fields: map[string]int64{}}
}

func (c *readContext) lookup(name string) (int64, bool) {
	if v, ok := c.fields[name]; ok {
		return v, true
	}
	if v, ok := c.ctx.constants[name]; ok {
		return v, true
	}
	return 0, false
}

func (c *readContext) withField(name string, value int64) *readContext {
	fields := make(map[string]int64, len(c.fields)+1)
	for k, v := range c.fields {
		fields[k] = v
	}
	fields[name] = value
	return &readContext{ctx: c.ctx, fields: fields}
}
