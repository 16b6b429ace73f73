// Package parse implements the SHDL recursive-descent parser: token
// stream (via Scan) to Expanded-SHDL module AST (internal/ast). Errors
// recover to the next statement or block boundary so one invocation
// can report many problems instead of stopping at the first.
package parse

import (
	"path/filepath"
	"strings"

	"github.com/shdl-lang/shdlc/internal/ast"
	"github.com/shdl-lang/shdlc/internal/diag"
	"github.com/shdl-lang/shdlc/internal/token"
)

// File parses the contents of an SHDL source file into a Module. The
// module name is derived from the file's base name.
func File(path string, src string, diags *diag.Bag) *ast.Module {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	toks := Scan(path, src, diags)
	p := &parser{toks: toks, diags: diags, file: path}
	return p.parseModule(name)
}

type parser struct {
	toks  []token.Token
	pos   int
	diags *diag.Bag
	file  string
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(code diag.Code, format string, args ...interface{}) {
	p.diags.Add(diag.New(code, p.cur().Span(), format, args...))
}

// expect consumes the current token if it matches tt, else records a
// parse error and returns the zero Token with ok=false.
func (p *parser) expect(tt token.Type) (token.Token, bool) {
	if p.cur().Type == tt {
		return p.advance(), true
	}
	p.errorf(diag.EParseExpectedToken, "expected %s, found %s", tt, p.cur())
	return token.Token{}, false
}

// syncTo advances past tokens until one in set is current (or EOF),
// recovering to the next statement boundary after a parse error.
func (p *parser) syncTo(set ...token.Type) {
	for {
		c := p.cur().Type
		if c == token.EOF {
			return
		}
		for _, s := range set {
			if c == s {
				return
			}
		}
		p.advance()
	}
}

func (p *parser) parseModule(name string) *ast.Module {
	m := &ast.Module{Name: name, File: p.file}
	for p.cur().Type == token.KwUse {
		if imp := p.parseImport(); imp != nil {
			m.Imports = append(m.Imports, imp)
		}
	}
	for p.cur().Type == token.KwComponent {
		if c := p.parseComponent(); c != nil {
			m.Components = append(m.Components, c)
		}
	}
	if p.cur().Type != token.EOF {
		p.errorf(diag.EParseExpectedToken, "expected 'component' or end of input, found %s", p.cur())
	}
	return m
}

func (p *parser) parseImport() *ast.Import {
	start := p.cur().Pos
	p.advance() // 'use'
	modTok, ok := p.expect(token.Ident)
	if !ok {
		p.syncTo(token.Semi, token.KwComponent, token.KwUse)
		p.advance()
		return nil
	}
	if _, ok := p.expect(token.DColon); !ok {
		p.syncTo(token.Semi, token.KwComponent, token.KwUse)
		p.advance()
		return nil
	}
	if _, ok := p.expect(token.LBrace); !ok {
		p.syncTo(token.Semi, token.KwComponent, token.KwUse)
		p.advance()
		return nil
	}
	var names []string
	for {
		id, ok := p.expect(token.Ident)
		if !ok {
			break
		}
		names = append(names, id.Lit)
		if p.cur().Type == token.Comma {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBrace)
	end := p.cur().Pos
	p.expect(token.Semi)
	return &ast.Import{Module: modTok.Lit, Names: names, Span: token.Span{Start: start, End: end}}
}

func (p *parser) parseComponent() *ast.ComponentDef {
	start := p.cur().Pos
	p.advance() // 'component'
	nameTok, ok := p.expect(token.Ident)
	if !ok {
		p.syncTo(token.KwComponent)
		return nil
	}
	c := &ast.ComponentDef{Name: nameTok.Lit}

	if _, ok := p.expect(token.LParen); ok {
		c.Inputs = p.parsePortList()
		p.expect(token.RParen)
	}
	p.expect(token.Arrow)
	if _, ok := p.expect(token.LParen); ok {
		c.Outputs = p.parsePortList()
		p.expect(token.RParen)
	}
	if _, ok := p.expect(token.LBrace); !ok {
		p.syncTo(token.KwComponent)
		return c
	}

	sawConnect := false
	for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		switch p.cur().Type {
		case token.Gt:
			c.Generators = append(c.Generators, p.parseGenerator())
		case token.KwConnect:
			if sawConnect {
				p.errorf(diag.EParseExpectedToken, "component may have only one connect block")
			}
			sawConnect = true
			c.ConnectBody = p.parseConnectBlock()
		case token.Ident:
			if p.isConstantAhead() {
				c.Constants = append(c.Constants, p.parseConstant())
			} else {
				c.Decls = append(c.Decls, p.parseDecl())
			}
		default:
			p.errorf(diag.EParseExpectedToken, "expected declaration, constant, generator or connect block, found %s", p.cur())
			p.syncTo(token.Semi, token.RBrace)
			if p.cur().Type == token.Semi {
				p.advance()
			}
		}
	}
	end := p.cur().Pos
	p.expect(token.RBrace)
	c.Span = token.Span{Start: start, End: end}
	return c
}

// isConstantAhead disambiguates `name: Type;` (decl) from
// `name[width]=value;` / `name=value;` (constant) by lookahead.
func (p *parser) isConstantAhead() bool {
	i := 1
	if p.peekAt(i).Type == token.LBracket {
		// skip to matching ']'
		i++
		for p.peekAt(i).Type != token.RBracket && p.peekAt(i).Type != token.EOF {
			i++
		}
		i++ // past ']'
	}
	return p.peekAt(i).Type == token.Eq
}

func (p *parser) parsePortList() []*ast.Port {
	var ports []*ast.Port
	if p.cur().Type == token.RParen {
		return ports
	}
	for {
		ports = append(ports, p.parsePort())
		if p.cur().Type == token.Comma {
			p.advance()
			continue
		}
		break
	}
	return ports
}

func (p *parser) parsePort() *ast.Port {
	start := p.cur().Pos
	nameTok, _ := p.expect(token.Ident)
	port := &ast.Port{Name: nameTok.Lit, Width: 1}
	if p.cur().Type == token.LBracket {
		p.advance()
		wTok, ok := p.expect(token.Int)
		if ok {
			if wTok.IntVal <= 0 {
				p.errorf(diag.EBadWidth, "port width must be positive, got %d", wTok.IntVal)
			} else {
				port.Width = int(wTok.IntVal)
			}
		}
		p.expect(token.RBracket)
	}
	port.Span = token.Span{Start: start, End: p.cur().Pos}
	return port
}

func (p *parser) parseDecl() *ast.InstanceDecl {
	start := p.cur().Pos
	name := p.parseInterpName()
	p.expect(token.Colon)
	typTok, _ := p.expect(token.Ident)
	end := p.cur().Pos
	p.expect(token.Semi)
	return &ast.InstanceDecl{Name: name, Type: typTok.Lit, Span: token.Span{Start: start, End: end}}
}

func (p *parser) parseConstant() *ast.Constant {
	start := p.cur().Pos
	nameTok, _ := p.expect(token.Ident)
	c := &ast.Constant{Name: nameTok.Lit}
	if p.cur().Type == token.LBracket {
		p.advance()
		c.Width = p.parseExpr()
		p.expect(token.RBracket)
	}
	p.expect(token.Eq)
	c.Value = p.parseExpr()
	end := p.cur().Pos
	p.expect(token.Semi)
	c.Span = token.Span{Start: start, End: end}
	return c
}

func (p *parser) parseGenerator() *ast.Generator {
	start := p.cur().Pos
	p.advance() // '>'
	varTok, _ := p.expect(token.Ident)
	g := &ast.Generator{Var: varTok.Lit}
	p.expect(token.LBracket)
	for {
		g.Ranges = append(g.Ranges, p.parseRange())
		if p.cur().Type == token.Comma {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBracket)
	p.expect(token.LBrace)
	g.Body = p.parseGenBody()
	end := p.cur().Pos
	p.expect(token.RBrace)
	g.Span = token.Span{Start: start, End: end}
	return g
}

func (p *parser) parseRange() ast.Range {
	start := p.cur().Pos
	r := ast.Range{Span: token.Span{Start: start}}
	if p.cur().Type == token.Colon {
		p.advance()
		r.Hi = p.parseExpr()
		r.HasHi = true
		r.HasLo = false
		return r
	}
	lo := p.parseExpr()
	if p.cur().Type == token.Colon {
		p.advance()
		r.Lo = lo
		r.HasLo = true
		if p.cur().Type == token.Comma || p.cur().Type == token.RBracket {
			r.HasHi = false
			return r
		}
		r.Hi = p.parseExpr()
		r.HasHi = true
		return r
	}
	r.Bare = true
	r.Lo, r.Hi = lo, lo
	r.HasLo, r.HasHi = true, true
	return r
}

// parseGenBody parses the statement list inside a generator's braces:
// instance declarations, connection statements, and nested generators,
// disambiguated the same way as the component body.
func (p *parser) parseGenBody() *ast.GenBody {
	b := &ast.GenBody{}
	for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		switch p.cur().Type {
		case token.Gt:
			b.Generators = append(b.Generators, p.parseGenerator())
		case token.Ident:
			if p.lookaheadIsConnection() {
				b.Connections = append(b.Connections, p.parseConnection())
			} else {
				b.Decls = append(b.Decls, p.parseDecl())
			}
		default:
			p.errorf(diag.EParseExpectedToken, "expected declaration, connection or generator, found %s", p.cur())
			p.syncTo(token.Semi, token.RBrace)
			if p.cur().Type == token.Semi {
				p.advance()
			}
		}
	}
	return b
}

// lookaheadIsConnection scans forward (without consuming) far enough
// to see whether this statement is `signal -> signal;` (a connection)
// as opposed to `name: Type;` (a declaration). Both begin with an
// interpolated name, so we look for an Arrow before a Colon or Semi.
//
// A name's own `{expr}` interpolation (e.g. `fa{i-1}.Cout`) nests just
// like a `[...]` index, so LBrace/RBrace are tracked as depth too: only
// an RBrace seen at depth 0 — one with no matching open brace in this
// lookahead — means we have run off the end of the statement list.
func (p *parser) lookaheadIsConnection() bool {
	i := 0
	depth := 0
	for {
		t := p.peekAt(i)
		switch t.Type {
		case token.EOF:
			return false
		case token.LBracket, token.LBrace:
			depth++
		case token.RBracket:
			depth--
		case token.RBrace:
			if depth <= 0 {
				return false
			}
			depth--
		case token.Semi:
			if depth <= 0 {
				return false
			}
		case token.Arrow:
			if depth <= 0 {
				return true
			}
		case token.Colon:
			if depth <= 0 {
				return false
			}
		}
		i++
		if i > 64 {
			return false
		}
	}
}

func (p *parser) parseConnectBlock() *ast.ConnectBlock {
	start := p.cur().Pos
	p.advance() // 'connect'
	p.expect(token.LBrace)
	cb := &ast.ConnectBlock{}
	for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		if p.cur().Type == token.Gt {
			cb.Generators = append(cb.Generators, p.parseGenerator())
			continue
		}
		cb.Connections = append(cb.Connections, p.parseConnection())
	}
	end := p.cur().Pos
	p.expect(token.RBrace)
	cb.Span = token.Span{Start: start, End: end}
	return cb
}

func (p *parser) parseConnection() *ast.Connection {
	start := p.cur().Pos
	src := p.parseSignalRef()
	if _, ok := p.expect(token.Arrow); !ok {
		p.syncTo(token.Semi, token.RBrace)
		if p.cur().Type == token.Semi {
			p.advance()
		}
		return &ast.Connection{Src: src, Dst: src, Span: token.Span{Start: start, End: p.cur().Pos}}
	}
	dst := p.parseSignalRef()
	end := p.cur().Pos
	p.expect(token.Semi)
	return &ast.Connection{Src: src, Dst: dst, Span: token.Span{Start: start, End: end}}
}

func (p *parser) parseSignalRef() *ast.SignalRef {
	start := p.cur().Pos
	name := p.parseInterpName()
	ref := &ast.SignalRef{Kind: ast.RefPort, Name: name}
	if p.cur().Type == token.Dot {
		p.advance()
		subTok, _ := p.expect(token.Ident)
		ref.Kind = ast.RefInstance
		ref.Sub = subTok.Lit
	}
	if p.cur().Type == token.LBracket {
		p.advance()
		p.parseIdxOrRange(ref)
		p.expect(token.RBracket)
	}
	ref.Span = token.Span{Start: start, End: p.cur().Pos}
	return ref
}

// parseIdxOrRange parses `idx_or_range = expr | expr ":" expr | ":" expr | expr ":"`.
func (p *parser) parseIdxOrRange(ref *ast.SignalRef) {
	if p.cur().Type == token.Colon {
		p.advance()
		ref.IsSlice = true
		ref.SliceHi = p.parseExpr()
		ref.HasSliceHi = true
		return
	}
	first := p.parseExpr()
	if p.cur().Type == token.Colon {
		p.advance()
		ref.IsSlice = true
		ref.SliceLo = first
		ref.HasSliceLo = true
		if p.cur().Type == token.RBracket {
			return
		}
		ref.SliceHi = p.parseExpr()
		ref.HasSliceHi = true
		return
	}
	ref.Index = first
}

// parseInterpName parses an identifier possibly interleaved with
// `{expr}` generator-variable substitutions, e.g. `g{i}`, `{i}tail`,
// or a plain identifier with no substitution at all.
func (p *parser) parseInterpName() ast.InterpName {
	var segs []ast.NameSegment
	for {
		switch p.cur().Type {
		case token.Ident:
			segs = append(segs, ast.NameSegment{Text: p.advance().Lit})
			continue
		case token.LBrace:
			p.advance()
			e := p.parseExpr()
			p.expect(token.RBrace)
			segs = append(segs, ast.NameSegment{Expr: e})
			continue
		}
		break
	}
	if len(segs) == 0 {
		p.errorf(diag.EParseExpectedToken, "expected identifier, found %s", p.cur())
		return ast.InterpName{Literal: ""}
	}
	if len(segs) == 1 && segs[0].Expr == nil {
		return ast.InterpName{Literal: segs[0].Text}
	}
	return ast.InterpName{Segments: segs}
}

// parseExpr parses integer arithmetic over INT literals, generator
// variables, "+" "-" "*", and "{...}" grouping.
//
//	expr   = term { ("+" | "-") term } ;
//	term   = factor { "*" factor } ;
//	factor = INT | IDENT | "{" expr "}" ;
func (p *parser) parseExpr() *ast.Expr {
	left := p.parseTerm()
	for p.cur().Type == token.Plus || p.cur().Type == token.Minus {
		op := byte('+')
		if p.cur().Type == token.Minus {
			op = '-'
		}
		opPos := p.cur().Pos
		p.advance()
		right := p.parseTerm()
		left = ast.Bin(op, left, right, token.Span{Start: left.Span.Start, End: token.Pos{File: opPos.File, Line: opPos.Line, Col: opPos.Col}})
	}
	return left
}

func (p *parser) parseTerm() *ast.Expr {
	left := p.parseFactor()
	for p.cur().Type == token.Star {
		p.advance()
		right := p.parseFactor()
		left = ast.Bin('*', left, right, token.Span{Start: left.Span.Start, End: right.Span.End})
	}
	return left
}

func (p *parser) parseFactor() *ast.Expr {
	start := p.cur().Pos
	switch p.cur().Type {
	case token.Int:
		t := p.advance()
		return ast.Lit(t.IntVal, token.Span{Start: start, End: p.cur().Pos})
	case token.Ident:
		t := p.advance()
		return ast.Var(t.Lit, token.Span{Start: start, End: p.cur().Pos})
	case token.LBrace:
		p.advance()
		e := p.parseExpr()
		p.expect(token.RBrace)
		return e
	default:
		p.errorf(diag.EParseExpectedToken, "expected integer, identifier or '{', found %s", p.cur())
		return ast.Lit(0, token.Span{Start: start, End: start})
	}
}
