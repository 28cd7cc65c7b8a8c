package cstruct

import (
	"bytes"
	"testing"
)

func TestUnionSizeIsLargestMember(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")
	u32, _ := ctx.Resolve("uint32")

	ut, err := NewUnion(ctx, "Variant", []*Field{
		{Name: "Small", Type: u8},
		{Name: "Big", Type: u32},
	}, nil)
	if err != nil {
		t.Fatalf("NewUnion: %v", err)
	}
	sz, ok := ut.Size()
	if !ok || sz != 4 {
		t.Fatalf("Size() = %d, %v, want 4", sz, ok)
	}
	if ut.Alignment() != 4 {
		t.Fatalf("Alignment() = %d, want 4", ut.Alignment())
	}
}

func TestUnionReadDecodesAllMembersFromSameOffset(t *testing.T) {
	ctx := NewContext(WithEndian(LittleEndian))
	u8, _ := ctx.Resolve("uint8")
	u32, _ := ctx.Resolve("uint32")

	ut, err := NewUnion(ctx, "Variant", []*Field{
		{Name: "Small", Type: u8},
		{Name: "Big", Type: u32},
	}, nil)
	if err != nil {
		t.Fatalf("NewUnion: %v", err)
	}

	data := []byte{0x01, 0x00, 0x00, 0x00}
	got, err := ReadType(ut, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadType: %v", err)
	}
	sv := got.(*StructValue)
	if sv.fields["Small"].(*IntValue).Int() != 1 {
		t.Fatalf("Small = %v", sv.fields["Small"])
	}
	if sv.fields["Big"].(*IntValue).Int() != 1 {
		t.Fatalf("Big = %v", sv.fields["Big"])
	}
}

func TestUnionWritePicksLargestStaticField(t *testing.T) {
	ctx := NewContext(WithEndian(LittleEndian))
	u8, _ := ctx.Resolve("uint8")
	u32, _ := ctx.Resolve("uint32")

	ut, err := NewUnion(ctx, "Variant", []*Field{
		{Name: "Small", Type: u8},
		{Name: "Big", Type: u32},
	}, nil)
	if err != nil {
		t.Fatalf("NewUnion: %v", err)
	}
	if got := ut.pickWriteField(); got == nil || got.Name != "Big" {
		t.Fatalf("pickWriteField() = %v, want Big", got)
	}

	sv := ut.zeroValue().(*StructValue)
	sv.fields["Big"] = newIntValue(u32, 0x11223344)

	data, err := Dumps(sv)
	if err != nil {
		t.Fatalf("Dumps: %v", err)
	}
	if !bytes.Equal(data, []byte{0x44, 0x33, 0x22, 0x11}) {
		t.Fatalf("got % x", data)
	}
}

func TestUnionMutationResyncsSiblingFields(t *testing.T) {
	ctx := NewContext(WithEndian(LittleEndian))
	u8, _ := ctx.Resolve("uint8")
	u32, _ := ctx.Resolve("uint32")

	ut, err := NewUnion(ctx, "Variant", []*Field{
		{Name: "Small", Type: u8},
		{Name: "Big", Type: u32},
	}, nil)
	if err != nil {
		t.Fatalf("NewUnion: %v", err)
	}

	sv := ut.zeroValue().(*StructValue)
	if err := sv.Set("Big", newIntValue(u32, 0x000000FF)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	small, ok := sv.Field("Small")
	if !ok {
		t.Fatal("Small field missing")
	}
	if small.(*IntValue).Int() != 0xFF {
		t.Fatalf("Small after resync = %v, want 0xFF (low byte of Big)", small)
	}
}

func TestUnionMutationPropagatesToOwningParent(t *testing.T) {
	ctx := NewContext(WithEndian(LittleEndian))
	u8, _ := ctx.Resolve("uint8")
	u32, _ := ctx.Resolve("uint32")

	inner, err := NewUnion(ctx, "Inner", []*Field{
		{Name: "Small", Type: u8},
		{Name: "Big", Type: u32},
	}, nil)
	if err != nil {
		t.Fatalf("NewUnion(inner): %v", err)
	}
	outer, err := NewUnion(ctx, "Outer", []*Field{
		{Name: "In", Type: inner},
		{Name: "Raw", Type: u32},
	}, nil)
	if err != nil {
		t.Fatalf("NewUnion(outer): %v", err)
	}

	got, err := ReadType(outer, bytes.NewReader([]byte{0, 0, 0, 0}))
	if err != nil {
		t.Fatalf("ReadType: %v", err)
	}
	outerSV := got.(*StructValue)
	innerSV := outerSV.fields["In"].(*StructValue)

	if err := innerSV.Set("Big", newIntValue(u32, 0x01020304)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	raw, ok := outerSV.Field("Raw")
	if !ok {
		t.Fatal("Raw field missing")
	}
	if raw.(*IntValue).Int() != 0x01020304 {
		t.Fatalf("Raw after propagation = %v, want 0x01020304", raw)
	}
}

func TestUnionAllDynamicFieldsFallsBackToFirst(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")
	arr1 := newNullTerminatedArrayType(ctx, u8)
	arr2 := newEOFArrayType(ctx, u8)

	ut, err := NewUnion(ctx, "Dyn", []*Field{
		{Name: "A", Type: arr1},
		{Name: "B", Type: arr2},
	}, nil)
	if err != nil {
		t.Fatalf("NewUnion: %v", err)
	}
	if _, ok := ut.Size(); ok {
		t.Fatal("expected a dynamically-sized union")
	}
	if got := ut.pickWriteField(); got == nil || got.Name != "A" {
		t.Fatalf("pickWriteField() = %v, want A (first field fallback)", got)
	}
}
