package cstruct

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// Field is one member of a Structure or Union: a name, a type, and
// either a bit width (for a bitfield) or an explicit byte offset
// override. Offset and bitsStorage are filled in by finalize.
type Field struct {
	Name   string
	Type   Type
	Bits   uint64
	Offset *int64

	computedOffset *int64
	bitsStorage    Type
}

// ComputedOffset returns the field's byte offset within its owning
// structure or union, as computed at finalization time. ok is false if
// the offset could not be determined statically (it follows a
// dynamically-sized field).
func (f *Field) ComputedOffset() (int64, bool) {
	if f.computedOffset == nil {
		return 0, false
	}
	return *f.computedOffset, true
}

func alignUp(offset, align uint64) uint64 {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}

// finalizeStructFields computes each field's byte offset, coalescing
// consecutive bitfields that share a storage type into runs the way a C
// compiler would: a run continues to share one storage unit until it is
// given a differently-typed bitfield or the unit is full, at which point
// a fresh unit starts at the next aligned offset. A bitfield that needs
// more bits than remain in a partly filled unit of its own type, or that
// is wider than its storage type's full width, is rejected as an
// unsupported straddle. packed disables all
// alignment padding (every field and the overall size are tightly
// packed).
func finalizeStructFields(fields []*Field, packed bool) (*uint64, uint64, error) {
	var offset uint64
	var alignment uint64 = 1
	dynamic := false

	var runType Type
	var runRemaining uint64
	var runOffset uint64

	align := func(a uint64) uint64 {
		if packed {
			return 1
		}
		return a
	}

	closeRun := func() {
		if runType != nil {
			sz, _ := runType.Size()
			offset += sz
			runType = nil
			runRemaining = 0
		}
	}

	for _, f := range fields {
		if f.Bits > 0 {
			if _, ok := f.Type.(integerStorage); !ok {
				return nil, 0, fmt.Errorf("cstruct: bitfield %q must have an integer-like storage type", f.Name)
			}
			storageSize, ok := f.Type.Size()
			if !ok {
				return nil, 0, fmt.Errorf("cstruct: bitfield %q storage type has no fixed size", f.Name)
			}
			storageBits := storageSize * 8
			if f.Bits > storageBits {
				return nil, 0, fmt.Errorf(
					"cstruct: straddled bit fields are unsupported (field %q is %d bits, storage unit is %d bits)",
					f.Name, f.Bits, storageBits)
			}

			if runType == f.Type && runRemaining > 0 && f.Bits > runRemaining {
				return nil, 0, fmt.Errorf(
					"cstruct: straddled bit fields are unsupported (field %q is %d bits, %d bits remain in its storage unit)",
					f.Name, f.Bits, runRemaining)
			}
			if runType == nil || runType != f.Type || f.Bits > runRemaining {
				closeRun()
				if !dynamic {
					a := align(f.Type.Alignment())
					offset = alignUp(offset, a)
					if a > alignment {
						alignment = a
					}
				}
				runType = f.Type
				runRemaining = storageBits
				runOffset = offset
			}

			if !dynamic {
				o := int64(runOffset)
				f.computedOffset = &o
			}
			f.bitsStorage = runType
			runRemaining -= f.Bits
			continue
		}

		closeRun()

		if f.Offset != nil {
			offset = uint64(*f.Offset)
			dynamic = false
		}

		if !dynamic {
			a := align(f.Type.Alignment())
			offset = alignUp(offset, a)
			if a > alignment {
				alignment = a
			}
			o := int64(offset)
			f.computedOffset = &o
		}

		fsize, ok := f.Type.Size()
		if !ok {
			dynamic = true
			continue
		}
		offset += fsize
	}
	closeRun()

	if dynamic {
		return nil, alignment, nil
	}
	sz := alignUp(offset, align(alignment))
	return &sz, alignment, nil
}

// finalizeUnionFields computes a union's size (the largest member,
// aligned up) and alignment (the largest member alignment). Every
// member sits at offset 0.
func finalizeUnionFields(fields []*Field) (*uint64, uint64, error) {
	var size uint64
	var alignment uint64 = 1
	dynamic := false

	for _, f := range fields {
		o := int64(0)
		f.computedOffset = &o

		if a := f.Type.Alignment(); a > alignment {
			alignment = a
		}
		fsize, ok := f.Type.Size()
		if !ok {
			dynamic = true
			continue
		}
		if fsize > size {
			size = fsize
		}
	}

	if dynamic {
		return nil, alignment, nil
	}
	sz := alignUp(size, alignment)
	return &sz, alignment, nil
}

// aggregateType holds the state shared by StructureType and UnionType:
// name, fields, declared directives and the computed size/alignment.
type aggregateType struct {
	ctx        *Context
	name       string
	fields     []*Field
	lookup     map[string]*Field
	anonymous  bool
	directives []string
	size       *uint64
	alignment  uint64
}

func (a *aggregateType) Name() string      { return a.name }
func (a *aggregateType) Alignment() uint64 { return a.alignment }
func (a *aggregateType) Context() *Context { return a.ctx }

func (a *aggregateType) Size() (uint64, bool) {
	if a.size == nil {
		return 0, false
	}
	return *a.size, true
}

// Directives returns the `#[...]` directive tokens attached to this
// struct/union definition (e.g. "nocompile"); this module stores them
// for callers to inspect but attaches no compiled-fast-path behavior.
func (a *aggregateType) Directives() []string {
	return append([]string(nil), a.directives...)
}

// Fields returns the declared fields in order.
func (a *aggregateType) Fields() []*Field {
	return append([]*Field(nil), a.fields...)
}

// FieldByName looks up a field declared directly on this struct/union.
// The fields of a nested anonymous struct/union member are not merged
// into the parent; they are found only through the member's own type.
func (a *aggregateType) FieldByName(name string) (*Field, bool) {
	f, ok := a.lookup[name]
	return f, ok
}

// StructureType is a sequence of fields read and written in declaration
// order; consecutive bitfields sharing a storage type are coalesced into
// one storage unit by finalizeStructFields.
type StructureType struct {
	aggregateType
}

// NewStructure builds and finalizes a StructureType. packed disables
// alignment padding between fields and at the end of the structure.
func NewStructure(ctx *Context, name string, fields []*Field, packed bool, directives []string) (*StructureType, error) {
	size, alignment, err := finalizeStructFields(fields, packed)
	if err != nil {
		return nil, err
	}
	lookup := map[string]*Field{}
	for _, f := range fields {
		lookup[f.Name] = f
	}
	return &StructureType{aggregateType{
		ctx: ctx, name: name, fields: fields, lookup: lookup,
		directives: directives, size: size, alignment: alignment,
	}}, nil
}

func (t *StructureType) zeroValue() Value {
	sv := &StructValue{typ: t, fields: map[string]Value{}, sizes: map[string]uint64{}}
	for _, f := range t.fields {
		sv.fields[f.Name] = f.Type.zeroValue()
		sv.order = append(sv.order, f.Name)
	}
	return sv
}

func (t *StructureType) read(r *reader, rc *readContext) (Value, error) {
	sv := &StructValue{typ: t, fields: map[string]Value{}, sizes: map[string]uint64{}}
	bb := newBitBuffer(t.ctx.endian)
	structStart, err := r.tell()
	if err != nil {
		return nil, err
	}

	for _, f := range t.fields {
		var v Value
		var err error

		if f.computedOffset != nil && (f.Bits == 0 || bb.typ != f.Type || bb.remaining == 0) {
			if err := r.seek(structStart + *f.computedOffset); err != nil {
				return nil, err
			}
		}

		if f.Bits > 0 {
			raw, berr := bb.read(r, f.Type, f.Bits)
			if berr != nil {
				return nil, errors.Wrapf(berr, "cstruct: reading bitfield %q of %s", f.Name, t.name)
			}
			v = newIntValue(f.Type, int64(raw))
			sv.sizes[f.Name] = 0
		} else {
			bb.reset()
			start, _ := r.tell()
			v, err = f.Type.read(r, rc)
			if err != nil {
				return nil, errors.Wrapf(err, "cstruct: reading field %q of %s", f.Name, t.name)
			}
			end, _ := r.tell()
			sv.sizes[f.Name] = uint64(end - start)
		}

		sv.fields[f.Name] = v
		sv.order = append(sv.order, f.Name)

		if iv, ok := valueAsInt64(v); ok {
			rc = rc.withField(f.Name, iv)
		}
		if nested, ok := v.(*StructValue); ok {
			nested.owner = sv
			nested.ownerField = f.Name
		}
	}

	if sz, ok := t.Size(); ok {
		if err := r.seek(structStart + int64(sz)); err != nil {
			return nil, err
		}
	}

	return sv, nil
}

func (t *StructureType) write(w *writer, v Value) (uint64, error) {
	sv, ok := v.(*StructValue)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s expects a struct value", t.name)
	}

	start := w.offset()
	bb := newBitBuffer(t.ctx.endian)

	for _, f := range t.fields {
		val, ok := sv.fields[f.Name]
		if !ok {
			return w.offset() - start, fmt.Errorf("cstruct: %s is missing field %q", t.name, f.Name)
		}

		if f.computedOffset != nil && (f.Bits == 0 || bb.typ != f.Type || bb.remaining == 0) {
			if err := bb.flush(w); err != nil {
				return w.offset() - start, err
			}
			if pos := w.offset() - start; uint64(*f.computedOffset) > pos {
				if _, err := w.Write(make([]byte, uint64(*f.computedOffset)-pos)); err != nil {
					return w.offset() - start, err
				}
			}
		}

		if f.Bits > 0 {
			iv, ok := val.(*IntValue)
			if !ok {
				return w.offset() - start, fmt.Errorf("cstruct: bitfield %q of %s expects an integer value", f.Name, t.name)
			}
			if err := bb.write(w, f.Type, f.Bits, uint64(iv.v)); err != nil {
				return w.offset() - start, err
			}
			continue
		}

		if err := bb.flush(w); err != nil {
			return w.offset() - start, err
		}
		if _, err := f.Type.write(w, val); err != nil {
			return w.offset() - start, errors.Wrapf(err, "cstruct: writing field %q of %s", f.Name, t.name)
		}
	}
	if err := bb.flush(w); err != nil {
		return w.offset() - start, err
	}
	if sz, ok := t.Size(); ok && sz > w.offset()-start {
		if _, err := w.Write(make([]byte, sz-(w.offset()-start))); err != nil {
			return w.offset() - start, err
		}
	}

	return w.offset() - start, nil
}

// valueAsInt64 extracts a plain integer projection from v, when it has
// one, for use as a sibling field in expression evaluation.
func valueAsInt64(v Value) (int64, bool) {
	switch val := v.(type) {
	case *IntValue:
		return val.v, true
	case *EnumValue:
		return val.value, true
	case *FlagValue:
		return val.value, true
	}
	return 0, false
}

// StructValue is a decoded Structure or Union instance: an ordered set
// of named field values, plus, per field, how many bytes its decode
// consumed. Union instances additionally resync their sibling fields on
// mutation (see Set).
type StructValue struct {
	typ    Type
	order  []string
	fields map[string]Value
	sizes  map[string]uint64

	owner      *StructValue
	ownerField string
}

func (v *StructValue) Type() Type { return v.typ }

// Field returns a named field's current value.
func (v *StructValue) Field(name string) (Value, bool) {
	val, ok := v.fields[name]
	return val, ok
}

// FieldSize reports how many bytes decoding a field consumed (0 for
// bitfields, whose consumption is sub-byte and shared with their run).
func (v *StructValue) FieldSize(name string) (uint64, bool) {
	sz, ok := v.sizes[name]
	return sz, ok
}

// FieldNames returns the struct/union's field names in declaration order.
func (v *StructValue) FieldNames() []string {
	return append([]string(nil), v.order...)
}

// Set assigns a new value to a field. For a union, this re-serializes
// the whole union through its write contract and re-decodes it so every
// aliased field observes the change, then propagates the same resync up
// through any owning parent union; for a plain structure this is a
// direct assignment, matching the original's change-notification model
// (see DESIGN.md).
func (v *StructValue) Set(name string, value Value) error {
	if _, ok := v.fields[name]; !ok {
		return fmt.Errorf("cstruct: no such field %q", name)
	}
	v.fields[name] = value
	return v.propagate()
}

func (v *StructValue) propagate() error {
	if ut, ok := v.typ.(*UnionType); ok {
		if err := v.resync(ut); err != nil {
			return err
		}
	}
	if v.owner != nil {
		return v.owner.propagate()
	}
	return nil
}

func (v *StructValue) resync(ut *UnionType) error {
	data, err := Dumps(v)
	if err != nil {
		return err
	}
	decoded, err := ReadType(ut, bytes.NewReader(data))
	if err != nil {
		return err
	}
	dv := decoded.(*StructValue)
	v.fields = dv.fields
	v.sizes = dv.sizes
	v.order = dv.order
	return nil
}
