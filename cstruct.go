// Package cstruct implements a C-like binary type-definition language: a
// small textual DSL describing structs, unions, enums, flags, typedefs,
// pointers and bitfields, plus the registry and read/write engine needed
// to decode and encode values of those types against a byte stream.
package cstruct

import (
	"fmt"

	"github.com/kortschak/utter"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const maxTypedefHops = 10

// Context is the registry a definition is loaded into and read against:
// it owns the endianness and pointer width new types inherit, the
// typedef table, `#define` constants, named lookup tables, and the
// anonymous-type naming counter.
type Context struct {
	endian      Endian
	pointerBits int

	typedefs  map[string]Type
	aliases   map[string]string
	constants map[string]int64
	lookups   map[string]map[uint64]string

	anonCount int
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithEndian sets the byte order new types are read/written in. The
// default is LittleEndian.
func WithEndian(e Endian) Option {
	return func(c *Context) { c.endian = e }
}

// WithPointerWidth sets the bit width (32 or 64) of the Pointer type's
// address field. The default is 64.
func WithPointerWidth(bits int) Option {
	return func(c *Context) { c.pointerBits = bits }
}

// NewContext builds a Context pre-populated with the primitive types and
// the C/Windows alias table (registry_defaults.go), ready to Load
// definitions into.
func NewContext(opts ...Option) *Context {
	c := &Context{
		endian:      LittleEndian,
		pointerBits: 64,
		typedefs:    map[string]Type{},
		aliases:     map[string]string{},
		constants:   map[string]int64{},
		lookups:     map[string]map[uint64]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	registerDefaults(c)
	return c
}

// Endian reports the Context's configured byte order.
func (c *Context) Endian() Endian { return c.endian }

// PointerType returns the integer type backing Pointer addresses (uint32
// or uint64, per WithPointerWidth).
func (c *Context) PointerType() Type {
	if c.pointerBits == 32 {
		t, _ := c.typedefs["uint32"]
		return t
	}
	t, _ := c.typedefs["uint64"]
	return t
}

// Resolve looks up name, chasing alias indirection (the builtin
// C/Windows name table, and any typedef registered as an alias of
// another typedef) up to 10 hops before giving up with a ResolveError.
func (c *Context) Resolve(name string) (Type, error) {
	cur := name
	for hop := 0; hop <= maxTypedefHops; hop++ {
		if t, ok := c.typedefs[cur]; ok {
			return t, nil
		}
		next, ok := c.aliases[cur]
		if !ok {
			return nil, newResolveError(name, fmt.Errorf("unknown type"))
		}
		cur = next
	}
	return nil, newResolveError(name, fmt.Errorf("exceeded maximum typedef indirection (%d)", maxTypedefHops))
}

// AddType registers t under name. If name is already registered and
// replace is false, AddType is a no-op when the existing registration is
// structurally identical to t, and an error otherwise; replace=true
// always overwrites.
func (c *Context) AddType(name string, t Type, replace bool) error {
	if existing, ok := c.typedefs[name]; ok && !replace {
		if typesEqual(existing, t) {
			return nil
		}
		return errors.Errorf("cstruct: type %q is already registered with a different definition", name)
	}
	c.typedefs[name] = t
	return nil
}

// AddAlias registers name as an indirect reference to target, resolved
// through Resolve's hop-chasing rather than stored as a direct Type.
// Used for the builtin C/Windows alias table and for DSL typedefs that
// simply rename another typedef.
func (c *Context) AddAlias(name, target string) {
	c.aliases[name] = target
}

// AddConstant registers a `#define NAME value` constant.
func (c *Context) AddConstant(name string, value int64) {
	c.constants[name] = value
}

// Constant returns a previously-defined `#define` constant.
func (c *Context) Constant(name string) (int64, bool) {
	v, ok := c.constants[name]
	return v, ok
}

// AddLookupTable registers a `$name = {...}` table.
func (c *Context) AddLookupTable(name string, table map[uint64]string) {
	c.lookups[name] = table
}

// LookupTable retrieves a previously-defined `$name = {...}` table.
func (c *Context) LookupTable(name string) (map[uint64]string, bool) {
	t, ok := c.lookups[name]
	return t, ok
}

// nextAnonymousName returns the next auto-generated name for an
// anonymous struct/union member, e.g. "anonymous_0", "anonymous_1", ...
func (c *Context) nextAnonymousName() string {
	n := fmt.Sprintf("anonymous_%d", c.anonCount)
	c.anonCount++
	return n
}

// AnonymousCount reports how many anonymous struct/union members have
// been named so far, mirroring the original implementation's internal
// counter (exposed here for test introspection, in the teacher's style
// of surfacing small internal counters where useful).
func (c *Context) AnonymousCount() int { return c.anonCount }

// TypeNames returns the names of every directly registered (non-alias)
// type, in a stable, sorted order.
func (c *Context) TypeNames() []string {
	names := maps.Keys(c.typedefs)
	slices.Sort(names)
	return names
}

// Load parses source as a sequence of type definitions and registers the
// resulting typedefs, structures, unions, enums, flags and lookup tables
// into c. See parser.go for the grammar.
func (c *Context) Load(source string) error {
	p := newParser(c, source)
	return p.parse()
}

// Dump renders c's registered types as a human-readable tree, using
// github.com/kortschak/utter the way kortschak/kprobe dumps decoded
// packet structures.
func (c *Context) Dump() string {
	return utter.Sdump(c.typedefs)
}

// typesEqual is a structural (not pointer) equality check used by
// AddType's replace=false no-op path: two types are considered identical
// if they report the same name, size and alignment. This is a
// deliberate approximation of the original's deep structural comparison
// (see DESIGN.md).
func typesEqual(a, b Type) bool {
	if a == b {
		return true
	}
	if a.Name() != b.Name() || a.Alignment() != b.Alignment() {
		return false
	}
	as, aok := a.Size()
	bs, bok := b.Size()
	return aok == bok && as == bs
}
