package cstruct

import (
	"bytes"
	"testing"
)

func TestPointerDereference(t *testing.T) {
	ctx := NewContext(WithPointerWidth(32))
	u32, _ := ctx.Resolve("uint32")
	ptrType := newPointerType(ctx, u32)

	// address 8, pointer itself occupies [0,4), target uint32(0x2a) at [8,12)
	data := []byte{8, 0, 0, 0, 0, 0, 0, 0, 0x2a, 0, 0, 0}

	v, err := ReadType(ptrType, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadType: %v", err)
	}
	pv := v.(*PointerValue)
	if pv.Address() != 8 {
		t.Fatalf("Address() = %d, want 8", pv.Address())
	}

	deref, err := pv.Dereference()
	if err != nil {
		t.Fatalf("Dereference: %v", err)
	}
	if deref.(*IntValue).Int() != 0x2a {
		t.Fatalf("got %d", deref.(*IntValue).Int())
	}

	// cached: second call must return the same value without re-reading.
	deref2, err := pv.Dereference()
	if err != nil {
		t.Fatalf("Dereference (cached): %v", err)
	}
	if deref2.(*IntValue).Int() != 0x2a {
		t.Fatalf("cached got %d", deref2.(*IntValue).Int())
	}
}

func TestNullPointerDereferenceError(t *testing.T) {
	ctx := NewContext()
	u32, _ := ctx.Resolve("uint32")
	ptrType := newPointerType(ctx, u32)

	pv := &PointerValue{typ: ptrType, addr: 0}
	if _, err := pv.Dereference(); err == nil {
		t.Fatal("expected NullPointerDereferenceError")
	} else if _, ok := err.(*NullPointerDereferenceError); !ok {
		t.Fatalf("got %T, want *NullPointerDereferenceError", err)
	}
}

// TestPointerArithmeticIsUnscaled confirms pointer arithmetic applies the
// operator directly to the raw address with no scaling by the target
// type's element size, matching spec.md §4.7 and the original's
// __addr_math (a uint32 target and n=3 yields addr+3, not addr+12).
func TestPointerArithmeticIsUnscaled(t *testing.T) {
	ctx := NewContext()
	u32, _ := ctx.Resolve("uint32")
	ptrType := newPointerType(ctx, u32)

	pv := &PointerValue{typ: ptrType, addr: 100}
	if got := pv.Add(3).Address(); got != 103 {
		t.Fatalf("Add(3).Address() = %d, want 103", got)
	}
	if got := pv.Sub(3).Address(); got != 97 {
		t.Fatalf("Sub(3).Address() = %d, want 97", got)
	}
}

func TestPointerArithmeticOperatorSet(t *testing.T) {
	ctx := NewContext()
	u32, _ := ctx.Resolve("uint32")
	ptrType := newPointerType(ctx, u32)
	pv := &PointerValue{typ: ptrType, addr: 20}

	cases := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"Mul", pv.Mul(3).Address(), 60},
		{"FloorDiv", pv.FloorDiv(3).Address(), 6},
		{"Mod", pv.Mod(7).Address(), 6},
		{"Pow", pv.Pow(2).Address(), 400},
		{"Shl", pv.Shl(2).Address(), 80},
		{"Shr", pv.Shr(2).Address(), 5},
		{"And", pv.And(0x3).Address(), 0x0},
		{"Xor", pv.Xor(0x3).Address(), 0x17},
		{"Or", pv.Or(0x3).Address(), 0x17},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s: got %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestPointerEqual(t *testing.T) {
	ctx := NewContext()
	u32, _ := ctx.Resolve("uint32")
	ptrType := newPointerType(ctx, u32)

	a := &PointerValue{typ: ptrType, addr: 42}
	b := &PointerValue{typ: ptrType, addr: 42}
	c := &PointerValue{typ: ptrType, addr: 43}

	if !a.Equal(b) {
		t.Fatal("expected equal pointers with the same address to be Equal")
	}
	if a.Equal(c) {
		t.Fatal("expected pointers with different addresses to not be Equal")
	}
	if a.Equal(nil) {
		t.Fatal("expected Equal(nil) to be false")
	}
}

func TestPointerToCharDereferencesAsString(t *testing.T) {
	ctx := NewContext(WithPointerWidth(32))
	char, _ := ctx.Resolve("char")
	ptrType := newPointerType(ctx, char)

	data := []byte{4, 0, 0, 0, 'h', 'i', 0}
	v, err := ReadType(ptrType, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadType: %v", err)
	}
	deref, err := v.(*PointerValue).Dereference()
	if err != nil {
		t.Fatalf("Dereference: %v", err)
	}
	if string(deref.(*BytesValue).Bytes()) != "hi" {
		t.Fatalf("got %q", deref.(*BytesValue).Bytes())
	}
}
