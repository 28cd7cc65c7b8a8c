package cstruct

// IntValue is the decoded value of any integer-like primitive: Int,
// Packed (integer kinds), BytesInt and LEB128 all produce one. Signed
// kinds are sign-extended into v. Writing does not mask v: it is
// range-checked against the type's width and signedness, and a value
// that does not fit is rejected with an OverflowError.
type IntValue struct {
	typ Type
	v   int64
}

func newIntValue(t Type, v int64) *IntValue { return &IntValue{typ: t, v: v} }

func (v *IntValue) Type() Type  { return v.typ }
func (v *IntValue) Int() int64  { return v.v }
func (v *IntValue) Uint() uint64 { return uint64(v.v) }

// FloatValue is the decoded value of a Packed float16/float32/float64.
type FloatValue struct {
	typ Type
	v   float64
}

func newFloatValue(t Type, v float64) *FloatValue { return &FloatValue{typ: t, v: v} }

func (v *FloatValue) Type() Type    { return v.typ }
func (v *FloatValue) Float() float64 { return v.v }

// BytesValue is the decoded value of a Char or a raw byte blob: a
// sequence of bytes with no further structure.
type BytesValue struct {
	typ Type
	b   []byte
}

func newBytesValue(t Type, b []byte) *BytesValue { return &BytesValue{typ: t, b: b} }

func (v *BytesValue) Type() Type   { return v.typ }
func (v *BytesValue) Bytes() []byte { return v.b }

// StringValue is the decoded value of a WChar array: a UTF-16 string
// decoded to native Go UTF-8.
type StringValue struct {
	typ Type
	s   string
}

func newStringValue(t Type, s string) *StringValue { return &StringValue{typ: t, s: s} }

func (v *StringValue) Type() Type    { return v.typ }
func (v *StringValue) String() string { return v.s }

// VoidValue is the single, sizeless value a Void type ever produces.
type VoidValue struct {
	typ Type
}

func (v *VoidValue) Type() Type { return v.typ }

// ArrayValue is the decoded value of an Array: an ordered sequence of
// element values, which may themselves be structures, pointers, enums or
// further arrays.
type ArrayValue struct {
	typ   Type
	elems []Value
}

func newArrayValue(t Type, elems []Value) *ArrayValue { return &ArrayValue{typ: t, elems: elems} }

func (v *ArrayValue) Type() Type     { return v.typ }
func (v *ArrayValue) Elements() []Value { return v.elems }
func (v *ArrayValue) Len() int      { return len(v.elems) }
