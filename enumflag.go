package cstruct

import (
	"fmt"
	"io"
	"sort"

	"golang.org/x/exp/slices"
)

// EnumMember is one `NAME = value` entry of an enum or flag definition.
// Duplicate values are permitted: each occurrence is kept as a distinct
// member, so two names can alias the same underlying value.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumType is a named set of integer constants backed by an integer-like
// base type. Decoding an unknown (not listed) value is not an error: it
// produces a synthetic member whose Name is empty, matching the
// original's `_missing_` handling.
type EnumType struct {
	ctx     *Context
	name    string
	base    Type
	members []EnumMember
	byValue map[int64]string
	byName  map[string]int64
}

func newEnumType(ctx *Context, name string, base Type, members []EnumMember) *EnumType {
	t := &EnumType{
		ctx:     ctx,
		name:    name,
		base:    base,
		members: members,
		byValue: map[int64]string{},
		byName:  map[string]int64{},
	}
	for _, m := range members {
		if _, exists := t.byValue[m.Value]; !exists {
			t.byValue[m.Value] = m.Name
		}
		t.byName[m.Name] = m.Value
	}
	return t
}

func (t *EnumType) Name() string        { return t.name }
func (t *EnumType) Size() (uint64, bool) { return t.base.Size() }
func (t *EnumType) Alignment() uint64   { return t.base.Alignment() }
func (t *EnumType) Context() *Context   { return t.ctx }

// Members returns the enum's declared name/value pairs in declaration
// order.
func (t *EnumType) Members() []EnumMember { return slices.Clone(t.members) }

// ByName looks up a declared member's value.
func (t *EnumType) ByName(name string) (int64, bool) {
	v, ok := t.byName[name]
	return v, ok
}

func (t *EnumType) nameFor(value int64) string {
	return t.byValue[value]
}

func (t *EnumType) zeroValue() Value {
	return &EnumValue{typ: t, value: 0, name: t.nameFor(0)}
}

// New builds an EnumValue for value, whether or not it matches a
// declared member.
func (t *EnumType) New(value int64) *EnumValue {
	return &EnumValue{typ: t, value: value, name: t.nameFor(value)}
}

func (t *EnumType) read(r *reader, rc *readContext) (Value, error) {
	v, err := t.base.read(r, rc)
	if err != nil {
		return nil, err
	}
	return t.New(v.(*IntValue).Int()), nil
}

func (t *EnumType) write(w *writer, v Value) (uint64, error) {
	ev, ok := v.(*EnumValue)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s expects an enum value", t.name)
	}
	return t.base.write(w, newIntValue(t.base, ev.value))
}

func (t *EnumType) readRawUint(r io.Reader, endian Endian) (uint64, error) {
	is, ok := t.base.(integerStorage)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s's base type cannot back a bitfield", t.name)
	}
	return is.readRawUint(r, endian)
}

func (t *EnumType) writeRawUint(w io.Writer, endian Endian, v uint64) error {
	is, ok := t.base.(integerStorage)
	if !ok {
		return fmt.Errorf("cstruct: %s's base type cannot back a bitfield", t.name)
	}
	return is.writeRawUint(w, endian, v)
}

func (t *EnumType) readNullTerminated(r *reader, rc *readContext) ([]Value, error) {
	nt, ok := t.base.(nullTerminatedTyper)
	if !ok {
		return nil, fmt.Errorf("cstruct: %s does not support null-terminated arrays", t.name)
	}
	baseVals, err := nt.readNullTerminated(r, rc)
	if err != nil {
		return nil, err
	}
	result := make([]Value, len(baseVals))
	for i, bv := range baseVals {
		result[i] = t.New(bv.(*IntValue).Int())
	}
	return result, nil
}

func (t *EnumType) writeNullTerminated(w *writer, vs []Value) (uint64, error) {
	nt, ok := t.base.(nullTerminatedTyper)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s does not support null-terminated arrays", t.name)
	}
	baseVals := make([]Value, len(vs))
	for i, v := range vs {
		baseVals[i] = newIntValue(t.base, v.(*EnumValue).value)
	}
	return nt.writeNullTerminated(w, baseVals)
}

// EnumValue is a decoded enum instance: a concrete integer value plus,
// when it matches a declared member, that member's name. Equality
// between two enum values requires both the same underlying EnumType and
// the same integer value — use Equal, since Go's == on the Value
// interface would only ever compare pointers.
type EnumValue struct {
	typ   *EnumType
	value int64
	name  string
}

func (v *EnumValue) Type() Type   { return v.typ }
func (v *EnumValue) Int() int64   { return v.value }
func (v *EnumValue) Name() string { return v.name }

// Known reports whether the value matches a declared member.
func (v *EnumValue) Known() bool { return v.name != "" }

func (v *EnumValue) Equal(other *EnumValue) bool {
	return other != nil && v.typ == other.typ && v.value == other.value
}

// FlagType is an EnumType whose members are meant to be combined with
// bitwise operators; FlagValue adds Or/And/Xor/Not and Decompose.
type FlagType struct {
	EnumType
}

func newFlagType(ctx *Context, name string, base Type, members []EnumMember) *FlagType {
	return &FlagType{EnumType: *newEnumType(ctx, name, base, members)}
}

func (t *FlagType) zeroValue() Value {
	return &FlagValue{typ: t, value: 0}
}

func (t *FlagType) New(value int64) *FlagValue {
	return &FlagValue{typ: t, value: value}
}

func (t *FlagType) read(r *reader, rc *readContext) (Value, error) {
	v, err := t.base.read(r, rc)
	if err != nil {
		return nil, err
	}
	return t.New(v.(*IntValue).Int()), nil
}

// readNullTerminated/writeNullTerminated are overridden (rather than
// inherited from EnumType) because Go's embedding has no virtual
// dispatch: EnumType.readNullTerminated would otherwise build *EnumValue
// elements instead of *FlagValue ones.
func (t *FlagType) readNullTerminated(r *reader, rc *readContext) ([]Value, error) {
	nt, ok := t.base.(nullTerminatedTyper)
	if !ok {
		return nil, fmt.Errorf("cstruct: %s does not support null-terminated arrays", t.name)
	}
	baseVals, err := nt.readNullTerminated(r, rc)
	if err != nil {
		return nil, err
	}
	result := make([]Value, len(baseVals))
	for i, bv := range baseVals {
		result[i] = t.New(bv.(*IntValue).Int())
	}
	return result, nil
}

func (t *FlagType) writeNullTerminated(w *writer, vs []Value) (uint64, error) {
	nt, ok := t.base.(nullTerminatedTyper)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s does not support null-terminated arrays", t.name)
	}
	baseVals := make([]Value, len(vs))
	for i, v := range vs {
		baseVals[i] = newIntValue(t.base, v.(*FlagValue).value)
	}
	return nt.writeNullTerminated(w, baseVals)
}

func (t *FlagType) write(w *writer, v Value) (uint64, error) {
	fv, ok := v.(*FlagValue)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s expects a flag value", t.name)
	}
	return t.base.write(w, newIntValue(t.base, fv.value))
}

// FlagValue is a decoded flag instance: an integer value combined from
// zero or more of the type's declared bit members.
type FlagValue struct {
	typ   *FlagType
	value int64
}

func (v *FlagValue) Type() Type { return v.typ }
func (v *FlagValue) Int() int64 { return v.value }

func (v *FlagValue) Or(other int64) *FlagValue  { return v.typ.New(v.value | other) }
func (v *FlagValue) And(other int64) *FlagValue { return v.typ.New(v.value & other) }
func (v *FlagValue) Xor(other int64) *FlagValue { return v.typ.New(v.value ^ other) }
func (v *FlagValue) Not() *FlagValue            { return v.typ.New(^v.value) }

// Decompose splits the flag's value into the declared members it covers
// plus any remaining, unnamed bits. When more than one member matches
// and one of them exactly equals the whole value (an alias covering
// everything), that alias is dropped in favor of its components,
// matching the original's decompose() preference for the more specific
// breakdown; members are then ordered by name, descending, same as the
// original.
func (v *FlagValue) Decompose() ([]EnumMember, int64) {
	var members []EnumMember
	notCovered := v.value

	for _, m := range v.typ.members {
		if m.Value != 0 && (m.Value&v.value) == m.Value {
			members = append(members, m)
			notCovered &^= m.Value
		}
	}
	if len(members) == 0 {
		members = append(members, EnumMember{Name: "", Value: v.value})
	}

	if len(members) > 1 {
		for i, m := range members {
			if m.Value == v.value {
				members = append(members[:i], members[i+1:]...)
				break
			}
		}
	}

	sort.Slice(members, func(i, j int) bool { return members[i].Name > members[j].Name })

	return members, notCovered
}
