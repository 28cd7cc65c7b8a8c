package cstruct

import (
	"bytes"
	"testing"
)

func TestLoadDefine(t *testing.T) {
	ctx := NewContext()
	if err := ctx.Load(`#define MAX_LEN 4 * 2;`); err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, ok := ctx.Constant("MAX_LEN")
	if !ok || v != 8 {
		t.Fatalf("MAX_LEN = %d, %v, want 8", v, ok)
	}
}

func TestLoadTypedef(t *testing.T) {
	ctx := NewContext()
	if err := ctx.Load(`typedef uint32 FourCC;`); err != nil {
		t.Fatalf("Load: %v", err)
	}
	typ, err := ctx.Resolve("FourCC")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if typ.Name() != "uint32" {
		t.Fatalf("FourCC resolves to %q, want uint32", typ.Name())
	}
}

func TestLoadTypedefOfUnknownTypeFails(t *testing.T) {
	ctx := NewContext()
	if err := ctx.Load(`typedef nosuch Foo;`); err == nil {
		t.Fatal("expected an error for a typedef of an unknown base type")
	}
}

func TestLoadStructRoundTrip(t *testing.T) {
	ctx := NewContext(WithEndian(LittleEndian))
	src := `
		struct Header {
			uint8 version;
			uint32 length;
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := ctx.Resolve("Header")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sz, ok := st.Size()
	if !ok || sz != 8 {
		t.Fatalf("Size() = %d, %v, want 8", sz, ok)
	}

	data := []byte{1, 0, 0, 0, 0x44, 0x33, 0x22, 0x11}
	got, err := ReadType(st, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadType: %v", err)
	}
	sv := got.(*StructValue)
	if sv.fields["version"].(*IntValue).Int() != 1 {
		t.Fatalf("version = %v", sv.fields["version"])
	}
	if sv.fields["length"].(*IntValue).Int() != 0x11223344 {
		t.Fatalf("length = %v", sv.fields["length"])
	}
}

func TestLoadPackedStructHasNoPadding(t *testing.T) {
	ctx := NewContext()
	src := `
		packed struct Tight {
			uint8 a;
			uint32 b;
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := ctx.Resolve("Tight")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sz, ok := st.Size()
	if !ok || sz != 5 {
		t.Fatalf("Size() = %d, %v, want 5", sz, ok)
	}
}

func TestLoadUnion(t *testing.T) {
	ctx := NewContext(WithEndian(LittleEndian))
	src := `
		union Variant {
			uint8 small;
			uint32 big;
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ut, err := ctx.Resolve("Variant")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sz, ok := ut.Size()
	if !ok || sz != 4 {
		t.Fatalf("Size() = %d, %v, want 4", sz, ok)
	}
}

func TestLoadEnumWithImplicitAndExplicitValues(t *testing.T) {
	ctx := NewContext()
	src := `
		enum Color : uint8 {
			Red,
			Green,
			Blue = 10,
			Indigo,
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	et, err := ctx.Resolve("Color")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	enumType := et.(*EnumType)
	if n, ok := enumType.ByName("Green"); !ok || n != 1 {
		t.Fatalf("Green = %d, %v, want 1", n, ok)
	}
	if n, ok := enumType.ByName("Indigo"); !ok || n != 11 {
		t.Fatalf("Indigo = %d, %v, want 11", n, ok)
	}
}

func TestLoadFlagDefaultBase(t *testing.T) {
	ctx := NewContext()
	src := `
		flag Perm {
			Read = 1,
			Write = 2,
			Exec = 4,
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ft, err := ctx.Resolve("Perm")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := ft.(*FlagType); !ok {
		t.Fatalf("got %T, want *FlagType", ft)
	}
	if sz, _ := ft.Size(); sz != 4 {
		t.Fatalf("default flag base size = %d, want 4 (int32)", sz)
	}
}

func TestLoadLookupTable(t *testing.T) {
	ctx := NewContext()
	src := `$Switch = { 0: "Off", 1: "On" };`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	table, ok := ctx.LookupTable("Switch")
	if !ok || table[1] != "On" {
		t.Fatalf("LookupTable(Switch) = %v, %v", table, ok)
	}
}

func TestLoadDirectivePrefix(t *testing.T) {
	ctx := NewContext()
	src := `
		#[nocompile]
		struct Weird {
			uint8 a;
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := ctx.Resolve("Weird")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	aggregate := st.(*StructureType)
	dirs := aggregate.Directives()
	if len(dirs) != 1 || dirs[0] != "nocompile" {
		t.Fatalf("Directives() = %v, want [nocompile]", dirs)
	}
}

func TestLoadPointerField(t *testing.T) {
	ctx := NewContext(WithPointerWidth(32))
	src := `
		struct Node {
			uint32 *next;
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := ctx.Resolve("Node")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	f, ok := st.(*StructureType).FieldByName("next")
	if !ok {
		t.Fatal("expected field 'next'")
	}
	if _, ok := f.Type.(*PointerType); !ok {
		t.Fatalf("got %T, want *PointerType", f.Type)
	}
}

func TestLoadArrayCountKinds(t *testing.T) {
	ctx := NewContext()
	src := `
		struct Arrays {
			uint8 fixed[4];
			char name[];
			uint8 tail[eof];
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := ctx.Resolve("Arrays")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	agg := st.(*StructureType)

	fixed, _ := agg.FieldByName("fixed")
	if fixed.Type.(*ArrayType).countKind != CountFixed {
		t.Fatalf("fixed array kind = %v, want CountFixed", fixed.Type.(*ArrayType).countKind)
	}
	name, _ := agg.FieldByName("name")
	if name.Type.(*ArrayType).countKind != CountNullTerminated {
		t.Fatalf("name array kind = %v, want CountNullTerminated", name.Type.(*ArrayType).countKind)
	}
	tail, _ := agg.FieldByName("tail")
	if tail.Type.(*ArrayType).countKind != CountEOF {
		t.Fatalf("tail array kind = %v, want CountEOF", tail.Type.(*ArrayType).countKind)
	}
}

func TestLoadExprSizedArray(t *testing.T) {
	ctx := NewContext()
	src := `
		struct Counted {
			uint8 n;
			uint8 items[n * 2];
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := ctx.Resolve("Counted")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	data := []byte{2, 9, 9, 9, 9, 0xFF}
	got, err := ReadType(st, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadType: %v", err)
	}
	sv := got.(*StructValue)
	items := sv.fields["items"].(*ArrayValue)
	if items.Len() != 4 {
		t.Fatalf("items.Len() = %d, want 4", items.Len())
	}
}

func TestLoadBitfields(t *testing.T) {
	ctx := NewContext(WithEndian(LittleEndian))
	src := `
		struct Flags {
			uint8 a : 3;
			uint8 b : 5;
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := ctx.Resolve("Flags")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	sz, ok := st.Size()
	if !ok || sz != 1 {
		t.Fatalf("Size() = %d, %v, want 1", sz, ok)
	}
}

func TestLoadStraddledBitfieldRejected(t *testing.T) {
	ctx := NewContext()
	src := `
		struct Bad {
			uint8 a : 9;
		};
	`
	if err := ctx.Load(src); err == nil {
		t.Fatal("expected an error for a bitfield wider than its storage type")
	}
}

func TestLoadAnonymousNestedStruct(t *testing.T) {
	ctx := NewContext()
	src := `
		struct Outer {
			struct {
				uint8 x;
			} inner;
		};
	`
	if err := ctx.Load(src); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, err := ctx.Resolve("Outer")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	f, ok := st.(*StructureType).FieldByName("inner")
	if !ok {
		t.Fatal("expected field 'inner'")
	}
	if _, ok := f.Type.(*StructureType); !ok {
		t.Fatalf("got %T, want *StructureType", f.Type)
	}
}

func TestLoadUnknownMemberTypeFails(t *testing.T) {
	ctx := NewContext()
	src := `
		struct Bad {
			nosuchtype a;
		};
	`
	if err := ctx.Load(src); err == nil {
		t.Fatal("expected an error for an unknown member type")
	}
}

func TestLoadUnterminatedStringFails(t *testing.T) {
	ctx := NewContext()
	src := `$T = { 0: "unterminated };`
	if err := ctx.Load(src); err == nil {
		t.Fatal("expected a lexer error for an unterminated string literal")
	}
}
