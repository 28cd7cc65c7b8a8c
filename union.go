package cstruct

import "fmt"

// UnionType decodes every member independently, all starting at the same
// stream offset, and writes back whichever member carries the most bytes
// of content, zero-padded to the union's overall size. Mutating one
// field through StructValue.Set re-serializes and re-decodes the whole
// union so every aliased field stays consistent (see structure.go).
type UnionType struct {
	aggregateType
}

// NewUnion builds and finalizes a UnionType: every field sits at offset
// 0 and the union's size is the largest member's size.
func NewUnion(ctx *Context, name string, fields []*Field, directives []string) (*UnionType, error) {
	size, alignment, err := finalizeUnionFields(fields)
	if err != nil {
		return nil, err
	}
	lookup := map[string]*Field{}
	for _, f := range fields {
		lookup[f.Name] = f
	}
	return &UnionType{aggregateType{
		ctx: ctx, name: name, fields: fields, lookup: lookup,
		directives: directives, size: size, alignment: alignment,
	}}, nil
}

func (t *UnionType) zeroValue() Value {
	sv := &StructValue{typ: t, fields: map[string]Value{}, sizes: map[string]uint64{}}
	for _, f := range t.fields {
		sv.fields[f.Name] = f.Type.zeroValue()
		sv.order = append(sv.order, f.Name)
	}
	return sv
}

func (t *UnionType) read(r *reader, rc *readContext) (Value, error) {
	start, err := r.tell()
	if err != nil {
		return nil, err
	}

	sv := &StructValue{typ: t, fields: map[string]Value{}, sizes: map[string]uint64{}}
	var maxConsumed uint64

	for _, f := range t.fields {
		if err := r.seek(start); err != nil {
			return nil, err
		}
		v, err := f.Type.read(r, rc)
		if err != nil {
			return nil, fmt.Errorf("cstruct: reading field %q of %s: %w", f.Name, t.name, err)
		}
		end, err := r.tell()
		if err != nil {
			return nil, err
		}
		consumed := uint64(end - start)
		if consumed > maxConsumed {
			maxConsumed = consumed
		}

		sv.fields[f.Name] = v
		sv.order = append(sv.order, f.Name)
		sv.sizes[f.Name] = consumed

		if nested, ok := v.(*StructValue); ok {
			nested.owner = sv
			nested.ownerField = f.Name
		}
	}

	end := start + int64(maxConsumed)
	if sz, ok := t.Size(); ok {
		end = start + int64(sz)
	}
	if err := r.seek(end); err != nil {
		return nil, err
	}

	return sv, nil
}

func (t *UnionType) write(w *writer, v Value) (uint64, error) {
	sv, ok := v.(*StructValue)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s expects a struct value", t.name)
	}

	best := t.pickWriteField()
	if best == nil {
		return 0, nil
	}
	val, ok := sv.fields[best.Name]
	if !ok {
		return 0, fmt.Errorf("cstruct: %s is missing field %q", t.name, best.Name)
	}

	start := w.offset()
	if _, err := best.Type.write(w, val); err != nil {
		return w.offset() - start, fmt.Errorf("cstruct: writing field %q of %s: %w", best.Name, t.name, err)
	}

	written := w.offset() - start
	if sz, ok := t.Size(); ok && written < sz {
		pad := make([]byte, sz-written)
		if _, err := w.Write(pad); err != nil {
			return w.offset() - start, err
		}
	}

	return w.offset() - start, nil
}

// pickWriteField selects the member whose bytes are written back for the
// union as a whole: the member with the largest static size, since every
// field is kept byte-consistent by StructValue.Set's resync. Falls back
// to the first field when every member is dynamically sized.
func (t *UnionType) pickWriteField() *Field {
	var best *Field
	var bestSize uint64
	haveStatic := false

	for _, f := range t.fields {
		if sz, ok := f.Type.Size(); ok {
			if !haveStatic || sz > bestSize {
				best = f
				bestSize = sz
				haveStatic = true
			}
		}
	}
	if best == nil && len(t.fields) > 0 {
		best = t.fields[0]
	}
	return best
}
