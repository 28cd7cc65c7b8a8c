package cstruct

import "testing"

func TestPrimitiveSizesAndAlignments(t *testing.T) {
	ctx := NewContext()
	cases := []struct {
		name      string
		wantSize  uint64
		wantAlign uint64
	}{
		{"uint8", 1, 1},
		{"int16", 2, 2},
		{"uint32", 4, 4},
		{"int64", 8, 8},
		{"float16", 2, 2},
		{"float32", 4, 4},
		{"float64", 8, 8},
		{"int24", 3, 1},
		{"uint56", 7, 1},
		{"void", 0, 1},
	}
	for _, tc := range cases {
		typ, err := ctx.Resolve(tc.name)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", tc.name, err)
		}
		sz, ok := typ.Size()
		if !ok || sz != tc.wantSize {
			t.Fatalf("%s.Size() = %d, %v, want %d", tc.name, sz, ok, tc.wantSize)
		}
		if typ.Alignment() != tc.wantAlign {
			t.Fatalf("%s.Alignment() = %d, want %d", tc.name, typ.Alignment(), tc.wantAlign)
		}
	}
}

func TestAliasTableResolvesToExpectedPrimitives(t *testing.T) {
	ctx := NewContext()
	cases := map[string]string{
		"BYTE":                   "uint8",
		"WORD":                   "uint16",
		"DWORD":                  "uint32",
		"QWORD":                  "uint64",
		"HANDLE":                 "uint64",
		"size_t":                 "uint64",
		"ssize_t":                "int64",
		"bool":                   "uint8",
		"wchar_t":                "wchar",
		"int8_t":                 "int8",
		"uint64_t":               "uint64",
		"unsigned long long":     "uint64",
		"unsigned long long int": "uint64",
		"float":                  "float32",
		"double":                 "float64",
		"HRESULT":                "int32",
		"LPVOID":                 "uint64",
	}
	for alias, want := range cases {
		typ, err := ctx.Resolve(alias)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", alias, err)
		}
		if typ.Name() != want {
			t.Fatalf("Resolve(%s).Name() = %q, want %q", alias, typ.Name(), want)
		}
	}
}

func TestLEB128AndCharRegistered(t *testing.T) {
	ctx := NewContext()
	for _, name := range []string{"leb128", "uleb128", "char", "wchar"} {
		if _, err := ctx.Resolve(name); err != nil {
			t.Fatalf("Resolve(%s): %v", name, err)
		}
	}
}
