package cstruct

// registerDefaults populates a fresh Context with the primitive types
// (the actual Type implementations) plus the full C/Windows alias table,
// mirroring the original cstruct.py module-level registration. Aliases
// are stored as indirection (AddAlias) rather than duplicate Type
// values, so renaming the target later (AddType with replace=true)
// automatically updates every alias that points at it.
func registerDefaults(c *Context) {
	prim := func(name string, kind packedKind) {
		c.typedefs[name] = newPackedType(c, name, kind)
	}

	prim("int8", kindInt8)
	prim("uint8", kindUint8)
	prim("int16", kindInt16)
	prim("uint16", kindUint16)
	prim("int32", kindInt32)
	prim("uint32", kindUint32)
	prim("int64", kindInt64)
	prim("uint64", kindUint64)
	prim("float16", kindFloat16)
	prim("float32", kindFloat32)
	prim("float64", kindFloat64)

	c.typedefs["int24"] = newBytesIntType(c, "int24", 3, true)
	c.typedefs["uint24"] = newBytesIntType(c, "uint24", 3, false)
	c.typedefs["int40"] = newBytesIntType(c, "int40", 5, true)
	c.typedefs["uint40"] = newBytesIntType(c, "uint40", 5, false)
	c.typedefs["int48"] = newBytesIntType(c, "int48", 6, true)
	c.typedefs["uint48"] = newBytesIntType(c, "uint48", 6, false)
	c.typedefs["int56"] = newBytesIntType(c, "int56", 7, true)
	c.typedefs["uint56"] = newBytesIntType(c, "uint56", 7, false)

	c.typedefs["leb128"] = newLEB128Type(c, "leb128", true)
	c.typedefs["uleb128"] = newLEB128Type(c, "uleb128", false)

	c.typedefs["char"] = newCharType(c, "char")
	c.typedefs["wchar"] = newWCharType(c, "wchar")
	c.typedefs["void"] = newVoidType(c, "void")

	alias := c.AddAlias

	// Fixed-width stdint-style names.
	alias("int8_t", "int8")
	alias("uint8_t", "uint8")
	alias("int16_t", "int16")
	alias("uint16_t", "uint16")
	alias("int32_t", "int32")
	alias("uint32_t", "uint32")
	alias("int64_t", "int64")
	alias("uint64_t", "uint64")

	// C type names.
	alias("signed char", "int8")
	alias("unsigned char", "uint8")
	alias("short", "int16")
	alias("short int", "int16")
	alias("unsigned short", "uint16")
	alias("unsigned short int", "uint16")
	alias("int", "int32")
	alias("signed int", "int32")
	alias("unsigned int", "uint32")
	alias("unsigned", "uint32")
	alias("long", "int64")
	alias("long int", "int64")
	alias("unsigned long", "uint64")
	alias("unsigned long int", "uint64")
	alias("long long", "int64")
	alias("long long int", "int64")
	alias("unsigned long long", "uint64")
	alias("unsigned long long int", "uint64")
	alias("float", "float32")
	alias("double", "float64")
	alias("bool", "uint8")
	alias("_Bool", "uint8")
	alias("wchar_t", "wchar")

	// POSIX/size names.
	alias("size_t", "uint64")
	alias("ssize_t", "int64")
	alias("ptrdiff_t", "int64")
	alias("intptr_t", "int64")
	alias("uintptr_t", "uint64")

	// Windows type names.
	alias("BYTE", "uint8")
	alias("UCHAR", "uint8")
	alias("CHAR", "char")
	alias("WCHAR", "wchar")
	alias("BOOL", "uint32")
	alias("BOOLEAN", "uint8")
	alias("WORD", "uint16")
	alias("DWORD", "uint32")
	alias("DWORD32", "uint32")
	alias("DWORD64", "uint64")
	alias("QWORD", "uint64")
	alias("SHORT", "int16")
	alias("USHORT", "uint16")
	alias("INT", "int32")
	alias("UINT", "uint32")
	alias("LONG", "int32")
	alias("ULONG", "uint32")
	alias("LONGLONG", "int64")
	alias("ULONGLONG", "uint64")
	alias("INT8", "int8")
	alias("UINT8", "uint8")
	alias("INT16", "int16")
	alias("UINT16", "uint16")
	alias("INT32", "int32")
	alias("UINT32", "uint32")
	alias("INT64", "int64")
	alias("UINT64", "uint64")
	alias("HRESULT", "int32")
	alias("LPVOID", "uint64")
	alias("LPCSTR", "uint64")
	alias("LPSTR", "uint64")
	alias("HANDLE", "uint64")
}
