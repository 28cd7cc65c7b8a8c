package cstruct

import (
	"bytes"
	"testing"
)

func TestEnumKnownAndUnknownValues(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")
	et := newEnumType(ctx, "Color", u8, []EnumMember{
		{Name: "Red", Value: 0},
		{Name: "Green", Value: 1},
		{Name: "Blue", Value: 2},
	})

	v, err := ReadType(et, bytes.NewReader([]byte{1}))
	if err != nil {
		t.Fatalf("ReadType: %v", err)
	}
	ev := v.(*EnumValue)
	if !ev.Known() || ev.Name() != "Green" {
		t.Fatalf("got name %q known %v", ev.Name(), ev.Known())
	}

	v2, err := ReadType(et, bytes.NewReader([]byte{99}))
	if err != nil {
		t.Fatalf("ReadType: %v", err)
	}
	ev2 := v2.(*EnumValue)
	if ev2.Known() || ev2.Int() != 99 {
		t.Fatalf("got name %q known %v int %d", ev2.Name(), ev2.Known(), ev2.Int())
	}
}

func TestEnumDuplicateValuesAreDistinctAliases(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")
	et := newEnumType(ctx, "Dup", u8, []EnumMember{
		{Name: "First", Value: 1},
		{Name: "Also", Value: 1},
	})

	if n, ok := et.ByName("Also"); !ok || n != 1 {
		t.Fatalf("ByName(Also) = %d, %v", n, ok)
	}
	// First-declared name wins for display.
	if got := et.nameFor(1); got != "First" {
		t.Fatalf("nameFor(1) = %q, want %q", got, "First")
	}
}

func TestFlagOrAndXor(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")
	ft := newFlagType(ctx, "Perm", u8, []EnumMember{
		{Name: "Read", Value: 1},
		{Name: "Write", Value: 2},
		{Name: "Exec", Value: 4},
	})

	fv := ft.New(1)
	if fv.Or(2).Int() != 3 {
		t.Fatalf("Or: got %d", fv.Or(2).Int())
	}
	if fv.Or(2).And(2).Int() != 2 {
		t.Fatalf("And: got %d", fv.Or(2).And(2).Int())
	}
	if fv.Xor(1).Int() != 0 {
		t.Fatalf("Xor: got %d", fv.Xor(1).Int())
	}
}

func TestFlagDecompose(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")
	ft := newFlagType(ctx, "Perm", u8, []EnumMember{
		{Name: "Read", Value: 1},
		{Name: "Write", Value: 2},
		{Name: "Exec", Value: 4},
		{Name: "ReadWrite", Value: 3},
	})

	fv := ft.New(3)
	members, remaining := fv.Decompose()
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	// ReadWrite exactly covers the value but is dropped in favor of its
	// components when more than one member matches.
	names := map[string]bool{}
	for _, m := range members {
		names[m.Name] = true
	}
	if names["ReadWrite"] {
		t.Fatal("expected the alias to be dropped in favor of its components")
	}
	if !names["Read"] || !names["Write"] {
		t.Fatalf("expected Read and Write, got %v", members)
	}
}

func TestFlagDecomposeWithUncoveredBits(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")
	ft := newFlagType(ctx, "Perm", u8, []EnumMember{
		{Name: "Read", Value: 1},
	})

	fv := ft.New(1 | 0x40)
	members, remaining := fv.Decompose()
	if remaining != 0x40 {
		t.Fatalf("remaining = %#x, want 0x40", remaining)
	}
	if len(members) != 1 || members[0].Name != "Read" {
		t.Fatalf("got %v", members)
	}
}

func TestFlagNullTerminatedArrayProducesFlagValues(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")
	ft := newFlagType(ctx, "Perm", u8, []EnumMember{{Name: "Read", Value: 1}})
	arr := newNullTerminatedArrayType(ctx, ft)

	got, err := ReadType(arr, bytes.NewReader([]byte{1, 2, 0}))
	if err != nil {
		t.Fatalf("ReadType: %v", err)
	}
	av := got.(*ArrayValue)
	if av.Len() != 2 {
		t.Fatalf("Len() = %d", av.Len())
	}
	if _, ok := av.Elements()[0].(*FlagValue); !ok {
		t.Fatalf("element 0 is %T, want *FlagValue", av.Elements()[0])
	}
}
