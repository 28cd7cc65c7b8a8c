package cstruct

import (
	"fmt"
	"reflect"
)

// customType adapts a plain Go struct, annotated with `cstruct:"..."`
// field tags (tags.go), into a Type: AddCustomType lets a caller drop a
// hand-written Go struct into a DSL-defined structure or union wherever
// a Type is expected, decoding and encoding it through the same
// reflection-based transcoder (decoder.go/encoder.go/size.go) the
// original used for its tagged-buffer API.
type customType struct {
	ctx    *Context
	name   string
	goType reflect.Type
}

// AddCustomType registers goStruct's type (a struct, or pointer to one)
// under name, backed by its `cstruct` struct tags rather than a DSL
// definition.
func (c *Context) AddCustomType(name string, goStruct interface{}) (Type, error) {
	t := reflect.TypeOf(goStruct)
	if t == nil {
		return nil, fmt.Errorf("cstruct: AddCustomType requires a non-nil struct value")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cstruct: AddCustomType requires a struct or pointer-to-struct, got %s", t.Kind())
	}

	ct := &customType{ctx: c, name: name, goType: t}
	if err := c.AddType(name, ct, true); err != nil {
		return nil, err
	}
	return ct, nil
}

func (t *customType) Name() string      { return t.name }
func (t *customType) Alignment() uint64 { return 1 }
func (t *customType) Context() *Context { return t.ctx }

func (t *customType) Size() (uint64, bool) {
	sz, err := typeSize(t.goType)
	if err != nil {
		return 0, false
	}
	return sz, true
}

func (t *customType) zeroValue() Value {
	return &CustomValue{typ: t, v: reflect.New(t.goType).Elem().Interface()}
}

func (t *customType) read(r *reader, rc *readContext) (Value, error) {
	v := reflect.New(t.goType)
	if err := DecodeTaggedEndian(r, v.Interface(), t.ctx.Endian()); err != nil {
		return nil, fmt.Errorf("cstruct: decoding custom type %s: %w", t.name, err)
	}
	return &CustomValue{typ: t, v: v.Elem().Interface()}, nil
}

func (t *customType) write(w *writer, v Value) (uint64, error) {
	cv, ok := v.(*CustomValue)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s expects a custom struct value", t.name)
	}
	before := w.offset()
	if err := EncodeTaggedEndian(w, cv.v, t.ctx.Endian()); err != nil {
		return w.offset() - before, fmt.Errorf("cstruct: encoding custom type %s: %w", t.name, err)
	}
	return w.offset() - before, nil
}

// CustomValue wraps a decoded instance of a Go struct registered via
// Context.AddCustomType. Struct returns the plain Go value so callers
// can type-assert it back to their own concrete type.
type CustomValue struct {
	typ *customType
	v   interface{}
}

func (v *CustomValue) Type() Type         { return v.typ }
func (v *CustomValue) Struct() interface{} { return v.v }
