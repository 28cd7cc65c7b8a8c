package cstruct

import (
	"fmt"
	"strings"
)

// parser turns DSL source into registered Context types. It is a small
// recursive-descent parser over the flat token stream produced by
// lexer.go; array-count and #define/enum-value expressions are captured
// as raw source substrings and handed to expression.go's own tokenizer,
// rather than re-assembled from already-split tokens.
type parser struct {
	ctx  *Context
	toks []token
	pos  int
	src  []rune
}

func newParser(ctx *Context, source string) *parser {
	return &parser{ctx: ctx, src: []rune(source)}
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) atPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) atIdent(s string) bool {
	t := p.cur()
	return t.kind == tokIdent && t.text == s
}

func (p *parser) expectPunct(s string) (token, error) {
	if !p.atPunct(s) {
		return token{}, p.errf("expected %q, got %q", s, p.cur().text)
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (token, error) {
	if p.cur().kind != tokIdent {
		return token{}, p.errf("expected an identifier, got %q", p.cur().text)
	}
	return p.advance(), nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	return newParserError(p.cur().line, "%s", fmt.Sprintf(format, args...))
}

// rawUntil captures the raw source text from the current token up to
// (not including) the next token for which stop returns true, without
// consuming the stop token.
func (p *parser) rawUntil(stop func(token) bool) string {
	startTok := p.cur()
	start := startTok.start
	end := start
	for !stop(p.cur()) && p.cur().kind != tokEOF {
		end = p.cur().end
		p.advance()
	}
	return strings.TrimSpace(string(p.src[start:end]))
}

func (p *parser) parse() error {
	toks, err := tokenize(string(p.src))
	if err != nil {
		return err
	}
	p.toks = toks
	p.pos = 0

	for p.cur().kind != tokEOF {
		var directives []string
		if p.atPunct("#") && p.peekAheadIsBracket() {
			directives, err = p.parseDirectives()
			if err != nil {
				return err
			}
		}
		if err := p.parseTopLevel(directives); err != nil {
			return err
		}
	}
	return nil
}

// peekAheadIsBracket distinguishes `#[...]` directive lists from
// `#define`: both start with '#', so we look at the token right after it.
func (p *parser) peekAheadIsBracket() bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	n := p.toks[p.pos+1]
	return n.kind == tokPunct && n.text == "["
}

func (p *parser) parseDirectives() ([]string, error) {
	if _, err := p.expectPunct("#"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("["); err != nil {
		return nil, err
	}
	var names []string
	for !p.atPunct("]") {
		tok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, tok.text)
		if p.atPunct(",") {
			p.advance()
		}
	}
	if _, err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return names, nil
}

func (p *parser) parseTopLevel(directives []string) error {
	switch {
	case p.atPunct("#"):
		return p.parseDefine()
	case p.atPunct("$"):
		return p.parseLookupTable()
	case p.atIdent("typedef"):
		return p.parseTypedef()
	case p.atIdent("packed"):
		p.advance()
		return p.parseAggregate(directives, true)
	case p.atIdent("struct"), p.atIdent("union"):
		return p.parseAggregate(directives, false)
	case p.atIdent("enum"), p.atIdent("flag"):
		return p.parseEnumOrFlag(directives)
	default:
		return p.errf("expected a top-level declaration, got %q", p.cur().text)
	}
}

// parseDefine handles `#define NAME <expr> ;`.
func (p *parser) parseDefine() error {
	if _, err := p.expectPunct("#"); err != nil {
		return err
	}
	if !p.atIdent("define") {
		return p.errf("expected 'define' after '#'")
	}
	p.advance()
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	exprSrc := p.rawUntil(func(t token) bool { return t.kind == tokPunct && t.text == ";" })
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}
	expr, err := NewExpression(p.ctx, exprSrc)
	if err != nil {
		return wrapParserError(nameTok.line, err, "%s", "invalid #define expression")
	}
	v, err := expr.Evaluate(nil)
	if err != nil {
		return wrapParserError(nameTok.line, err, "%s", "evaluating #define "+nameTok.text)
	}
	p.ctx.AddConstant(nameTok.text, v)
	return nil
}

// parseLookupTable handles `$NAME = { KEY : "string", ... } ;`, where KEY
// is a number or the name (bare or quoted) of a #define constant.
func (p *parser) parseLookupTable() error {
	if _, err := p.expectPunct("$"); err != nil {
		return err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectPunct("="); err != nil {
		return err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return err
	}
	table := map[uint64]string{}
	for !p.atPunct("}") {
		keyTok := p.cur()
		if keyTok.kind != tokNumber && keyTok.kind != tokIdent && keyTok.kind != tokString {
			return p.errf("expected a numeric or constant-name lookup-table key, got %q", keyTok.text)
		}
		p.advance()
		var key int64
		if keyTok.kind == tokNumber {
			if key, err = parseNumberToken(keyTok.text); err != nil {
				return wrapParserError(keyTok.line, err, "%s", "invalid lookup-table key")
			}
		} else if v, ok := p.ctx.Constant(keyTok.text); ok {
			key = v
		} else {
			return newParserError(keyTok.line, "unknown constant %q used as a lookup-table key", keyTok.text)
		}
		if _, err := p.expectPunct(":"); err != nil {
			return err
		}
		valTok := p.cur()
		if valTok.kind != tokString {
			return p.errf("expected a string lookup-table value, got %q", valTok.text)
		}
		p.advance()
		table[uint64(key)] = valTok.text
		if p.atPunct(",") {
			p.advance()
		}
	}
	if _, err := p.expectPunct("}"); err != nil {
		return err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}
	p.ctx.AddLookupTable(nameTok.text, table)
	return nil
}

// parseTypedef handles `typedef TYPE NAME ;`, registering NAME as an
// alias of TYPE.
func (p *parser) parseTypedef() error {
	p.advance()
	baseTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.ctx.Resolve(baseTok.text); err != nil {
		return wrapParserError(baseTok.line, err, "%s", "typedef of unknown type "+baseTok.text)
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}
	p.ctx.AddAlias(nameTok.text, baseTok.text)
	return nil
}

// parseAggregate handles `(struct|union) NAME { members... } ;`.
func (p *parser) parseAggregate(directives []string, packed bool) error {
	kindTok := p.advance() // 'struct' or 'union'
	isStruct := kindTok.text == "struct"

	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	fields, err := p.parseMemberList()
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}

	if isStruct {
		t, err := NewStructure(p.ctx, nameTok.text, fields, packed, directives)
		if err != nil {
			return wrapParserError(nameTok.line, err, "%s", "defining struct "+nameTok.text)
		}
		return p.ctx.AddType(nameTok.text, t, true)
	}
	t, err := NewUnion(p.ctx, nameTok.text, fields, directives)
	if err != nil {
		return wrapParserError(nameTok.line, err, "%s", "defining union "+nameTok.text)
	}
	return p.ctx.AddType(nameTok.text, t, true)
}

func (p *parser) parseMemberList() ([]*Field, error) {
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var fields []*Field
	for !p.atPunct("}") {
		f, err := p.parseMember()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseMember handles one struct/union member: a plain field, a
// pointer field, an array field, a bitfield, or an anonymously-typed
// nested struct/union member.
func (p *parser) parseMember() (*Field, error) {
	if p.atIdent("struct") || p.atIdent("union") {
		isStruct := p.atIdent("struct")
		p.advance()
		fields, err := p.parseMemberList()
		if err != nil {
			return nil, err
		}
		name := p.ctx.nextAnonymousName()
		if p.cur().kind == tokIdent {
			name = p.advance().text
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}

		var nested Type
		if isStruct {
			nested, err = NewStructure(p.ctx, p.ctx.nextAnonymousName(), fields, false, nil)
		} else {
			nested, err = NewUnion(p.ctx, p.ctx.nextAnonymousName(), fields, nil)
		}
		if err != nil {
			return nil, err
		}
		return &Field{Name: name, Type: nested}, nil
	}

	typeTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	base, err := p.ctx.Resolve(typeTok.text)
	if err != nil {
		return nil, wrapParserError(typeTok.line, err, "%s", "unknown member type "+typeTok.text)
	}

	isPointer := false
	if p.atPunct("*") {
		p.advance()
		isPointer = true
	}

	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	fieldType := base
	if isPointer {
		fieldType = newPointerType(p.ctx, base)
	}

	if p.atPunct("[") {
		fieldType, err = p.parseArraySuffix(fieldType)
		if err != nil {
			return nil, err
		}
	}

	var bits uint64
	if p.atPunct(":") {
		p.advance()
		bitsTok := p.cur()
		if bitsTok.kind != tokNumber {
			return nil, p.errf("expected a bit width, got %q", bitsTok.text)
		}
		p.advance()
		n, err := parseNumberToken(bitsTok.text)
		if err != nil {
			return nil, wrapParserError(bitsTok.line, err, "%s", "invalid bit width")
		}
		bits = uint64(n)
	}

	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}

	return &Field{Name: nameTok.text, Type: fieldType, Bits: bits}, nil
}

// parseArraySuffix handles `[]`, `[eof]`, `[NUMBER]` and `[expr]`.
func (p *parser) parseArraySuffix(elem Type) (Type, error) {
	if _, err := p.expectPunct("["); err != nil {
		return nil, err
	}
	if p.atPunct("]") {
		p.advance()
		return newNullTerminatedArrayType(p.ctx, elem), nil
	}
	if p.atIdent("eof") {
		p.advance()
		if _, err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return newEOFArrayType(p.ctx, elem), nil
	}

	if p.cur().kind == tokNumber {
		numTok := p.cur()
		save := p.pos
		p.advance()
		if p.atPunct("]") {
			p.advance()
			n, err := parseNumberToken(numTok.text)
			if err != nil {
				return nil, wrapParserError(numTok.line, err, "%s", "invalid array size")
			}
			return newFixedArrayType(p.ctx, elem, n), nil
		}
		p.pos = save
	}

	exprSrc := p.rawUntil(func(t token) bool { return t.kind == tokPunct && t.text == "]" })
	if _, err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	expr, err := NewExpression(p.ctx, exprSrc)
	if err != nil {
		return nil, err
	}
	return newExprArrayType(p.ctx, elem, expr), nil
}

// parseEnumOrFlag handles `(enum|flag) NAME [: BASE] { NAME [= expr] , ... } ;`.
func (p *parser) parseEnumOrFlag(directives []string) error {
	kindTok := p.advance()
	isEnum := kindTok.text == "enum"

	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}

	baseName := "int32"
	if p.atPunct(":") {
		p.advance()
		baseTok, err := p.expectIdent()
		if err != nil {
			return err
		}
		baseName = baseTok.text
	}
	base, err := p.ctx.Resolve(baseName)
	if err != nil {
		return wrapParserError(nameTok.line, err, "%s", "unknown base type "+baseName)
	}

	if _, err := p.expectPunct("{"); err != nil {
		return err
	}
	var members []EnumMember
	next := int64(0)
	for !p.atPunct("}") {
		memberTok, err := p.expectIdent()
		if err != nil {
			return err
		}
		value := next
		if p.atPunct("=") {
			p.advance()
			exprSrc := p.rawUntil(func(t token) bool {
				return t.kind == tokPunct && (t.text == "," || t.text == "}")
			})
			expr, err := NewExpression(p.ctx, exprSrc)
			if err != nil {
				return wrapParserError(memberTok.line, err, "%s", "invalid enum value")
			}
			value, err = expr.Evaluate(nil)
			if err != nil {
				return wrapParserError(memberTok.line, err, "%s", "evaluating enum value for "+memberTok.text)
			}
		}
		members = append(members, EnumMember{Name: memberTok.text, Value: value})
		next = value + 1
		if p.atPunct(",") {
			p.advance()
		}
	}
	if _, err := p.expectPunct("}"); err != nil {
		return err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}

	_ = directives
	if isEnum {
		return p.ctx.AddType(nameTok.text, newEnumType(p.ctx, nameTok.text, base, members), true)
	}
	return p.ctx.AddType(nameTok.text, newFlagType(p.ctx, nameTok.text, base, members), true)
}
