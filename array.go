package cstruct

import "fmt"

// CountKind selects how many elements an Array reads, per spec.md §4.6.
type CountKind int

const (
	// CountFixed reads exactly N elements, N given at definition time.
	CountFixed CountKind = iota
	// CountNullTerminated reads elements until one equals the element
	// type's zero value (0 for ints, a NUL byte for char, a NUL code
	// unit for wchar); the terminator is consumed but not included in
	// the result.
	CountNullTerminated
	// CountExpr evaluates an expression (which may reference earlier
	// sibling fields) each time the array is read, to get the count.
	CountExpr
	// CountEOF reads until the stream reports end-of-file.
	CountEOF
)

// ArrayType is `element[count]`, `element[]` (null-terminated),
// `element[expr]` or `element[eof]`.
type ArrayType struct {
	ctx       *Context
	elem      Type
	countKind CountKind
	fixedN    int64
	expr      *Expression
}

func newFixedArrayType(ctx *Context, elem Type, n int64) *ArrayType {
	return &ArrayType{ctx: ctx, elem: elem, countKind: CountFixed, fixedN: n}
}

func newNullTerminatedArrayType(ctx *Context, elem Type) *ArrayType {
	return &ArrayType{ctx: ctx, elem: elem, countKind: CountNullTerminated}
}

func newExprArrayType(ctx *Context, elem Type, expr *Expression) *ArrayType {
	return &ArrayType{ctx: ctx, elem: elem, countKind: CountExpr, expr: expr}
}

func newEOFArrayType(ctx *Context, elem Type) *ArrayType {
	return &ArrayType{ctx: ctx, elem: elem, countKind: CountEOF}
}

func (t *ArrayType) Name() string {
	switch t.countKind {
	case CountFixed:
		return fmt.Sprintf("%s[%d]", t.elem.Name(), t.fixedN)
	case CountNullTerminated:
		return fmt.Sprintf("%s[]", t.elem.Name())
	case CountExpr:
		return fmt.Sprintf("%s[%s]", t.elem.Name(), t.expr.String())
	default:
		return fmt.Sprintf("%s[eof]", t.elem.Name())
	}
}

func (t *ArrayType) Alignment() uint64 { return t.elem.Alignment() }
func (t *ArrayType) Context() *Context { return t.ctx }

func (t *ArrayType) Size() (uint64, bool) {
	if t.countKind != CountFixed {
		return 0, false
	}
	elemSize, ok := t.elem.Size()
	if !ok {
		return 0, false
	}
	return elemSize * uint64(t.fixedN), true
}

func (t *ArrayType) zeroValue() Value {
	switch t.elem.(type) {
	case *CharType:
		return newBytesValue(t, nil)
	case *WCharType:
		return newStringValue(t, "")
	default:
		return newArrayValue(t, nil)
	}
}

// resolveCount evaluates the number of elements to read for CountExpr,
// using rc's sibling field values and the context's #define constants.
// A negative result is clamped to zero.
func (t *ArrayType) resolveCount(rc *readContext) (int64, error) {
	n, err := t.expr.Evaluate(rc.fields)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

func (t *ArrayType) read(r *reader, rc *readContext) (Value, error) {
	switch t.elem.(type) {
	case *CharType:
		return t.readCharArray(r, rc)
	case *WCharType:
		return t.readWCharArray(r, rc)
	default:
		return t.readGeneric(r, rc)
	}
}

func (t *ArrayType) write(w *writer, v Value) (uint64, error) {
	switch t.elem.(type) {
	case *CharType:
		return t.writeCharArray(w, v)
	case *WCharType:
		return t.writeWCharArray(w, v)
	default:
		return t.writeGeneric(w, v)
	}
}

func (t *ArrayType) readCharArray(r *reader, rc *readContext) (Value, error) {
	switch t.countKind {
	case CountFixed:
		buf, err := r.readFull(uint64(t.fixedN))
		if err != nil {
			return nil, err
		}
		return newBytesValue(t, buf), nil
	case CountExpr:
		n, err := t.resolveCount(rc)
		if err != nil {
			return nil, err
		}
		buf, err := r.readFull(uint64(n))
		if err != nil {
			return nil, err
		}
		return newBytesValue(t, buf), nil
	case CountNullTerminated:
		var buf []byte
		for {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			if b == 0 {
				return newBytesValue(t, buf), nil
			}
			buf = append(buf, b)
		}
	case CountEOF:
		var buf []byte
		for {
			eof, err := r.atEOF()
			if err != nil {
				return nil, err
			}
			if eof {
				return newBytesValue(t, buf), nil
			}
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			buf = append(buf, b)
		}
	}
	return nil, fmt.Errorf("cstruct: unhandled array count kind")
}

func (t *ArrayType) writeCharArray(w *writer, v Value) (uint64, error) {
	bv, ok := v.(*BytesValue)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s expects a byte-slice value", t.Name())
	}
	data := bv.b

	switch t.countKind {
	case CountFixed:
		if int64(len(data)) > t.fixedN {
			return 0, &ArraySizeError{Expected: int(t.fixedN), Actual: len(data)}
		}
		padded := make([]byte, t.fixedN)
		copy(padded, data)
		n, err := w.Write(padded)
		return uint64(n), err
	case CountNullTerminated:
		n, err := w.Write(data)
		total := uint64(n)
		if err != nil {
			return total, err
		}
		if err := w.WriteByte(0); err != nil {
			return total, err
		}
		return total + 1, nil
	default:
		n, err := w.Write(data)
		return uint64(n), err
	}
}

func (t *ArrayType) readWCharArray(r *reader, rc *readContext) (Value, error) {
	readUnit := func() (uint16, bool, error) {
		buf, err := r.readFull(2)
		if err != nil {
			return 0, false, err
		}
		return t.ctx.endian.byteOrder().Uint16(buf), true, nil
	}

	switch t.countKind {
	case CountFixed, CountExpr:
		n := t.fixedN
		if t.countKind == CountExpr {
			var err error
			n, err = t.resolveCount(rc)
			if err != nil {
				return nil, err
			}
		}
		var runes []rune
		for i := int64(0); i < n; i++ {
			u, _, err := readUnit()
			if err != nil {
				return nil, err
			}
			runes = append(runes, rune(u))
		}
		return newStringValue(t, string(runes)), nil
	case CountNullTerminated:
		var runes []rune
		for {
			u, _, err := readUnit()
			if err != nil {
				return nil, err
			}
			if u == 0 {
				return newStringValue(t, string(runes)), nil
			}
			runes = append(runes, rune(u))
		}
	case CountEOF:
		var runes []rune
		for {
			eof, err := r.atEOF()
			if err != nil {
				return nil, err
			}
			if eof {
				return newStringValue(t, string(runes)), nil
			}
			u, _, err := readUnit()
			if err != nil {
				return nil, err
			}
			runes = append(runes, rune(u))
		}
	}
	return nil, fmt.Errorf("cstruct: unhandled array count kind")
}

func (t *ArrayType) writeWCharArray(w *writer, v Value) (uint64, error) {
	sv, ok := v.(*StringValue)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s expects a string value", t.Name())
	}
	runes := []rune(sv.s)
	order := t.ctx.endian.byteOrder()
	writeUnit := func(r rune) (uint64, error) {
		buf := make([]byte, 2)
		order.PutUint16(buf, uint16(r))
		n, err := w.Write(buf)
		return uint64(n), err
	}

	var total uint64
	switch t.countKind {
	case CountFixed:
		if int64(len(runes)) > t.fixedN {
			return 0, &ArraySizeError{Expected: int(t.fixedN), Actual: len(runes)}
		}
		for _, r := range runes {
			n, err := writeUnit(r)
			total += n
			if err != nil {
				return total, err
			}
		}
		for i := int64(len(runes)); i < t.fixedN; i++ {
			n, err := writeUnit(0)
			total += n
			if err != nil {
				return total, err
			}
		}
		return total, nil
	case CountNullTerminated:
		for _, r := range runes {
			n, err := writeUnit(r)
			total += n
			if err != nil {
				return total, err
			}
		}
		n, err := writeUnit(0)
		total += n
		return total, err
	default:
		for _, r := range runes {
			n, err := writeUnit(r)
			total += n
			if err != nil {
				return total, err
			}
		}
		return total, nil
	}
}

func (t *ArrayType) readGeneric(r *reader, rc *readContext) (Value, error) {
	switch t.countKind {
	case CountFixed:
		elems := make([]Value, 0, t.fixedN)
		for i := int64(0); i < t.fixedN; i++ {
			v, err := t.elem.read(r, rc)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return newArrayValue(t, elems), nil

	case CountExpr:
		n, err := t.resolveCount(rc)
		if err != nil {
			return nil, err
		}
		elems := make([]Value, 0, n)
		for i := int64(0); i < n; i++ {
			v, err := t.elem.read(r, rc)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return newArrayValue(t, elems), nil

	case CountNullTerminated:
		nt, ok := t.elem.(nullTerminatedTyper)
		if !ok {
			return nil, fmt.Errorf("cstruct: %s does not support null-terminated arrays", t.elem.Name())
		}
		elems, err := nt.readNullTerminated(r, rc)
		if err != nil {
			return nil, err
		}
		return newArrayValue(t, elems), nil

	case CountEOF:
		var elems []Value
		for {
			eof, err := r.atEOF()
			if err != nil {
				return nil, err
			}
			if eof {
				return newArrayValue(t, elems), nil
			}
			v, err := t.elem.read(r, rc)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
	}
	return nil, fmt.Errorf("cstruct: unhandled array count kind")
}

func (t *ArrayType) writeGeneric(w *writer, v Value) (uint64, error) {
	av, ok := v.(*ArrayValue)
	if !ok {
		return 0, fmt.Errorf("cstruct: %s expects an array value", t.Name())
	}

	if t.countKind == CountFixed && int64(len(av.elems)) != t.fixedN {
		return 0, &ArraySizeError{Expected: int(t.fixedN), Actual: len(av.elems)}
	}

	if t.countKind == CountNullTerminated {
		nt, ok := t.elem.(nullTerminatedTyper)
		if !ok {
			return 0, fmt.Errorf("cstruct: %s does not support null-terminated arrays", t.elem.Name())
		}
		return nt.writeNullTerminated(w, av.elems)
	}

	var total uint64
	for _, elem := range av.elems {
		n, err := t.elem.write(w, elem)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
