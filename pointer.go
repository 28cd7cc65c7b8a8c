package cstruct

import (
	"fmt"
	"io"
)

// PointerType is `element *`: an address-sized integer that, when
// dereferenced, seeks to that address in the originating stream and
// decodes one value of element. A pointer to Char dereferences as a
// null-terminated string rather than a single byte, matching the
// original's special-casing of char targets.
type PointerType struct {
	ctx  *Context
	elem Type
}

func newPointerType(ctx *Context, elem Type) *PointerType {
	return &PointerType{ctx: ctx, elem: elem}
}

func (t *PointerType) Name() string { return t.elem.Name() + "*" }

func (t *PointerType) Size() (uint64, bool) { return t.ctx.PointerType().Size() }

func (t *PointerType) Alignment() uint64 { return t.ctx.PointerType().Alignment() }

func (t *PointerType) Context() *Context { return t.ctx }

func (t *PointerType) zeroValue() Value {
	return &PointerValue{typ: t, addr: 0}
}

func (t *PointerType) read(r *reader, rc *readContext) (Value, error) {
	v, err := t.ctx.PointerType().read(r, rc)
	if err != nil {
		return nil, err
	}
	addr := v.(*IntValue).Uint()
	return &PointerValue{typ: t, addr: addr, rs: r.rs}, nil
}

func (t *PointerType) write(w *writer, v Value) (uint64, error) {
	pv, ok := v.(*PointerValue)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s expects a pointer value", t.Name())
	}
	return t.ctx.PointerType().write(w, newIntValue(t.ctx.PointerType(), int64(pv.addr)))
}

// PointerValue is a decoded pointer: an address, plus enough context to
// lazily dereference it against the stream it was read from. The
// dereferenced value is cached after the first call.
type PointerValue struct {
	typ    *PointerType
	addr   uint64
	rs     io.ReadSeeker
	cached bool
	value  Value
}

func (v *PointerValue) Type() Type { return v.typ }

// Address returns the raw pointer value.
func (v *PointerValue) Address() uint64 { return v.addr }

// IsNull reports whether the pointer's address is zero.
func (v *PointerValue) IsNull() bool { return v.addr == 0 }

// Dereference decodes and returns the value at Address(), caching the
// result for subsequent calls. Dereferencing a null pointer is an error.
func (v *PointerValue) Dereference() (Value, error) {
	if v.cached {
		return v.value, nil
	}
	if v.addr == 0 {
		return nil, &NullPointerDereferenceError{}
	}
	if v.rs == nil {
		return nil, fmt.Errorf("cstruct: pointer has no backing stream to dereference against")
	}

	pos, err := v.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	if _, err := v.rs.Seek(int64(v.addr), io.SeekStart); err != nil {
		return nil, err
	}

	r := newReader(v.rs)
	rc := newReadContext(v.typ.ctx)

	var value Value
	if ct, ok := v.typ.elem.(*CharType); ok {
		arr := newNullTerminatedArrayType(v.typ.ctx, ct)
		value, err = arr.read(r, rc)
	} else {
		value, err = v.typ.elem.read(r, rc)
	}
	if err != nil {
		return nil, err
	}

	if _, serr := v.rs.Seek(pos, io.SeekStart); serr != nil {
		return nil, serr
	}

	v.cached = true
	v.value = value
	return value, nil
}

// addrMath applies op directly to the pointer's raw address, with no
// scaling by the target type's element size: spec.md §4.7 and the
// original's __addr_math both operate on the bare address, not an
// element count, matching normal Go pointer-to-byte-offset semantics
// rather than C's array-indexing pointer arithmetic.
func (v *PointerValue) addrMath(other int64, op func(a, b int64) int64) *PointerValue {
	return &PointerValue{
		typ:  v.typ,
		addr: uint64(op(int64(v.addr), other)),
		rs:   v.rs,
	}
}

// Add returns a new PointerValue whose address is offset by n.
func (v *PointerValue) Add(n int64) *PointerValue {
	return v.addrMath(n, func(a, b int64) int64 { return a + b })
}

// Sub returns a new PointerValue whose address is reduced by n.
func (v *PointerValue) Sub(n int64) *PointerValue {
	return v.addrMath(n, func(a, b int64) int64 { return a - b })
}

// Mul returns a new PointerValue whose address is multiplied by n.
func (v *PointerValue) Mul(n int64) *PointerValue {
	return v.addrMath(n, func(a, b int64) int64 { return a * b })
}

// FloorDiv returns a new PointerValue whose address is floor-divided by n,
// matching Python's // operator used by the original's __floordiv__.
func (v *PointerValue) FloorDiv(n int64) *PointerValue {
	return v.addrMath(n, divFloor)
}

// Mod returns a new PointerValue whose address is reduced modulo n,
// matching Python's % operator used by the original's __mod__.
func (v *PointerValue) Mod(n int64) *PointerValue {
	return v.addrMath(n, modFloor)
}

// Pow returns a new PointerValue whose address is raised to n.
func (v *PointerValue) Pow(n int64) *PointerValue {
	return v.addrMath(n, func(a, b int64) int64 {
		result := int64(1)
		for i := int64(0); i < b; i++ {
			result *= a
		}
		return result
	})
}

// Shl returns a new PointerValue whose address is left-shifted by n bits.
func (v *PointerValue) Shl(n int64) *PointerValue {
	return v.addrMath(n, func(a, b int64) int64 { return a << uint(b) })
}

// Shr returns a new PointerValue whose address is right-shifted by n bits.
func (v *PointerValue) Shr(n int64) *PointerValue {
	return v.addrMath(n, func(a, b int64) int64 { return a >> uint(b) })
}

// And returns a new PointerValue whose address is bitwise-ANDed with n.
func (v *PointerValue) And(n int64) *PointerValue {
	return v.addrMath(n, func(a, b int64) int64 { return a & b })
}

// Xor returns a new PointerValue whose address is bitwise-XORed with n.
func (v *PointerValue) Xor(n int64) *PointerValue {
	return v.addrMath(n, func(a, b int64) int64 { return a ^ b })
}

// Or returns a new PointerValue whose address is bitwise-ORed with n.
func (v *PointerValue) Or(n int64) *PointerValue {
	return v.addrMath(n, func(a, b int64) int64 { return a | b })
}

// Equal reports whether two pointers hold the same address, matching the
// original's __eq__ (address identity, not target-value equality).
func (v *PointerValue) Equal(other *PointerValue) bool {
	return other != nil && v.addr == other.addr
}
