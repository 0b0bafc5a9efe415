// Package parser provides OpenCL C parsing into an AST.
//
// The parser is a single-pass recursive descent over the token stream
// produced by the lexer. It follows the C99 grammar closely enough that
// declarators come out as the nested TypeDecl/PtrDecl/ArrayDecl/FuncDecl
// chain the checker walks.
//
// C cannot be parsed without knowing which identifiers name types
// ("T * x;" is a declaration or a multiplication depending on T), so the
// parser keeps a stack of typedef scopes mirroring the block structure.
//
// Parsing stops at the first syntax error.
package parser

import (
	"fmt"
	"strings"

	"github.com/HugoDaniel/oclcheck/internal/ast"
	"github.com/HugoDaniel/oclcheck/internal/diagnostic"
	"github.com/HugoDaniel/oclcheck/internal/lexer"
)

// Parser parses OpenCL C source into an AST.
type Parser struct {
	source    string
	tokens    []lexer.Token
	pos       int
	lineIndex *diagnostic.LineIndex // For converting byte offsets to line/column

	// typedefs holds one map per open block. A name maps to true when it
	// names a type and to false when an ordinary declaration shadows it.
	typedefs []map[string]bool
}

// ParseError represents a parsing error.
type ParseError struct {
	Message string
	Pos     int
	Line    int
	Column  int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// bailout unwinds the parser to Parse on the first error.
type bailout struct {
	err ParseError
}

// New creates a new parser for the given source.
func New(source string) *Parser {
	lex := lexer.New(source)
	tokens := lex.Tokenize()

	return &Parser{
		source:    source,
		tokens:    tokens,
		lineIndex: diagnostic.NewLineIndex(source),
		typedefs:  []map[string]bool{{}},
	}
}

// Parse parses source in one call.
func Parse(source string) (*ast.FileAST, error) {
	return New(source).Parse()
}

// Parse parses the whole translation unit.
func (p *Parser) Parse() (file *ast.FileAST, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			file, err = nil, b.err
		}
	}()

	file = &ast.FileAST{Source: p.source}
	p.parseTranslationUnit(file)
	return file, nil
}

// ----------------------------------------------------------------------------
// Token Helpers
// ----------------------------------------------------------------------------

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.TokEOF, Start: len(p.source), End: len(p.source)}
	}
	tok := p.tokens[p.pos]
	if tok.Kind == lexer.TokError {
		p.failAt(tok.Start, tok.Value)
	}
	return tok
}

func (p *Parser) peek(offset int) lexer.Token {
	pos := p.pos + offset
	if pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.TokEOF}
	}
	return p.tokens[pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(kind lexer.TokenKind) lexer.Token {
	tok := p.current()
	if tok.Kind != kind {
		p.fail(fmt.Sprintf("expected %s, got %s", kind, describeToken(tok)))
	}
	p.advance()
	return tok
}

func (p *Parser) match(kind lexer.TokenKind) bool {
	if p.current().Kind == kind {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) loc() ast.Loc {
	if p.pos >= len(p.tokens) {
		return ast.Loc{Start: int32(len(p.source))}
	}
	return ast.Loc{Start: int32(p.tokens[p.pos].Start)}
}

func (p *Parser) fail(msg string) {
	p.failAt(int(p.loc().Start), msg)
}

func (p *Parser) failAt(offset int, msg string) {
	pos := p.lineIndex.Position(offset)
	panic(bailout{ParseError{
		Message: msg,
		Pos:     offset,
		Line:    pos.Line,
		Column:  pos.Column,
	}})
}

func describeToken(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.TokIdent, lexer.TokTypeSpec, lexer.TokQualifier, lexer.TokStorage, lexer.TokFuncSpec:
		return fmt.Sprintf("%q", tok.Value)
	case lexer.TokIntLiteral, lexer.TokFloatLiteral, lexer.TokCharLiteral, lexer.TokStringLiteral:
		return tok.Value
	}
	return tok.Kind.String()
}

// ----------------------------------------------------------------------------
// Typedef Scopes
// ----------------------------------------------------------------------------

func (p *Parser) pushScope() {
	p.typedefs = append(p.typedefs, map[string]bool{})
}

func (p *Parser) popScope() {
	p.typedefs = p.typedefs[:len(p.typedefs)-1]
}

func (p *Parser) declareName(name string, isType bool) {
	if name == "" {
		return
	}
	p.typedefs[len(p.typedefs)-1][name] = isType
}

func (p *Parser) isTypedefName(name string) bool {
	for i := len(p.typedefs) - 1; i >= 0; i-- {
		if isType, ok := p.typedefs[i][name]; ok {
			return isType
		}
	}
	return false
}

// isTypeStart reports whether tok can begin a type name.
func (p *Parser) isTypeStart(tok lexer.Token) bool {
	switch tok.Kind {
	case lexer.TokTypeSpec, lexer.TokQualifier, lexer.TokStruct, lexer.TokUnion, lexer.TokEnum:
		return true
	case lexer.TokIdent:
		return p.isTypedefName(tok.Value)
	}
	return false
}

// startsDeclaration reports whether the current token begins a declaration.
func (p *Parser) startsDeclaration() bool {
	tok := p.current()
	switch tok.Kind {
	case lexer.TokStorage, lexer.TokFuncSpec, lexer.TokAttribute:
		return true
	case lexer.TokIdent:
		// "T:" is a label even when T names a type
		return p.isTypedefName(tok.Value) && p.peek(1).Kind != lexer.TokColon
	}
	return p.isTypeStart(tok)
}

// ----------------------------------------------------------------------------
// Translation Unit
// ----------------------------------------------------------------------------

func (p *Parser) parseTranslationUnit(file *ast.FileAST) {
	for p.current().Kind != lexer.TokEOF {
		switch p.current().Kind {
		case lexer.TokPPLine:
			file.Ext = append(file.Ext, p.parsePreprocessorLine())
		case lexer.TokSemicolon:
			p.advance()
		default:
			file.Ext = append(file.Ext, p.parseExternalDeclaration()...)
		}
	}
}

func (p *Parser) parsePreprocessorLine() *ast.PreprocessorLine {
	loc := p.loc()
	tok := p.expect(lexer.TokPPLine)
	return &ast.PreprocessorLine{Loc: loc, Contents: tok.Value}
}

// parseExternalDeclaration parses a file-level declaration or function
// definition.
func (p *Parser) parseExternalDeclaration() []ast.Node {
	specs := p.parseDeclSpecs()
	if p.match(lexer.TokSemicolon) {
		return []ast.Node{specs.tagDecl()}
	}

	d := p.parseDeclarator(declaratorNamed)
	if len(d.mods) > 0 && d.mods[0].kind == modFunc &&
		p.current().Kind == lexer.TokLBrace && !specs.isTypedef() {
		return []ast.Node{p.parseFuncDef(specs, d)}
	}
	return p.finishDeclaration(specs, d)
}

func (p *Parser) parseFuncDef(specs declSpecs, d declarator) *ast.FuncDef {
	p.declareName(d.name, false)
	decl := &ast.Decl{
		Loc:      d.loc,
		Name:     d.name,
		Quals:    specs.quals,
		Storage:  specs.storage,
		FuncSpec: specs.funcspec,
		Type:     p.buildType(d, specs),
	}

	// Parameters share the body's block.
	p.pushScope()
	if params := d.mods[0].params; params != nil {
		for _, param := range params.Params {
			if pd, ok := param.(*ast.Decl); ok {
				p.declareName(pd.Name, false)
			}
		}
	}
	body := p.parseCompound()
	p.popScope()

	return &ast.FuncDef{Loc: specs.loc, Decl: decl, Body: body}
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

// declSpecs collects the declaration specifiers in front of a declarator.
type declSpecs struct {
	loc      ast.Loc
	quals    []string
	storage  []string
	funcspec []string
	typ      ast.Node // IdentifierType, Struct, Union or Enum
}

func (s declSpecs) isTypedef() bool {
	for _, st := range s.storage {
		if st == "typedef" {
			return true
		}
	}
	return false
}

// tagDecl is the declaration of "struct S { ... };" which names no object.
func (s declSpecs) tagDecl() *ast.Decl {
	return &ast.Decl{
		Loc:      s.loc,
		Quals:    s.quals,
		Storage:  s.storage,
		FuncSpec: s.funcspec,
		Type:     s.typ,
	}
}

func (p *Parser) parseDeclSpecs() declSpecs {
	specs := declSpecs{loc: p.loc()}
	var names []string

loop:
	for {
		tok := p.current()
		switch tok.Kind {
		case lexer.TokTypeSpec:
			names = append(names, tok.Value)
		case lexer.TokQualifier:
			specs.quals = append(specs.quals, tok.Value)
		case lexer.TokStorage:
			specs.storage = append(specs.storage, tok.Value)
		case lexer.TokFuncSpec:
			specs.funcspec = append(specs.funcspec, tok.Value)
		case lexer.TokAttribute:
			p.skipAttribute()
			continue
		case lexer.TokStruct, lexer.TokUnion:
			if specs.typ != nil || len(names) > 0 {
				p.fail("two or more data types in declaration specifiers")
			}
			specs.typ = p.parseStructOrUnion()
			continue
		case lexer.TokEnum:
			if specs.typ != nil || len(names) > 0 {
				p.fail("two or more data types in declaration specifiers")
			}
			specs.typ = p.parseEnum()
			continue
		case lexer.TokIdent:
			if len(names) > 0 || specs.typ != nil || !p.isTypedefName(tok.Value) {
				break loop
			}
			names = append(names, tok.Value)
		default:
			break loop
		}
		p.advance()
	}

	if len(names) > 0 {
		if specs.typ != nil {
			p.fail("two or more data types in declaration specifiers")
		}
		specs.typ = &ast.IdentifierType{Loc: specs.loc, Names: names}
	}
	if specs.typ == nil {
		p.fail(fmt.Sprintf("expected type specifier, got %s", describeToken(p.current())))
	}
	return specs
}

// skipAttribute consumes __attribute__((...)).
func (p *Parser) skipAttribute() {
	p.expect(lexer.TokAttribute)
	p.expect(lexer.TokLParen)
	depth := 1
	for depth > 0 {
		switch p.advance().Kind {
		case lexer.TokLParen:
			depth++
		case lexer.TokRParen:
			depth--
		case lexer.TokEOF:
			p.fail("unterminated __attribute__")
		}
	}
}

func (p *Parser) skipAttributes() {
	for p.current().Kind == lexer.TokAttribute {
		p.skipAttribute()
	}
}

// parseDeclaration parses a block-level declaration, including its ';'.
func (p *Parser) parseDeclaration() []ast.Node {
	specs := p.parseDeclSpecs()
	if p.match(lexer.TokSemicolon) {
		return []ast.Node{specs.tagDecl()}
	}
	return p.finishDeclaration(specs, p.parseDeclarator(declaratorNamed))
}

// finishDeclaration turns the init-declarator list that starts with first
// into Decl and Typedef nodes, consuming the closing ';'.
func (p *Parser) finishDeclaration(specs declSpecs, first declarator) []ast.Node {
	var nodes []ast.Node
	d := first
	for {
		nodes = append(nodes, p.declNode(specs, d))
		if !p.match(lexer.TokComma) {
			break
		}
		d = p.parseDeclarator(declaratorNamed)
	}
	p.expect(lexer.TokSemicolon)
	return nodes
}

func (p *Parser) declNode(specs declSpecs, d declarator) ast.Node {
	typ := p.buildType(d, specs)
	if specs.isTypedef() {
		p.declareName(d.name, true)
		return &ast.Typedef{
			Loc:     d.loc,
			Name:    d.name,
			Quals:   specs.quals,
			Storage: specs.storage,
			Type:    typ,
		}
	}

	p.declareName(d.name, false)
	decl := &ast.Decl{
		Loc:      d.loc,
		Name:     d.name,
		Quals:    specs.quals,
		Storage:  specs.storage,
		FuncSpec: specs.funcspec,
		Type:     typ,
	}
	if p.match(lexer.TokEq) {
		decl.Init = p.parseInitializer()
	}
	return decl
}

func (p *Parser) parseInitializer() ast.Node {
	if p.current().Kind != lexer.TokLBrace {
		return p.parseAssignExpr()
	}
	return p.parseInitList()
}

func (p *Parser) parseInitList() *ast.InitList {
	list := &ast.InitList{Loc: p.loc()}
	p.expect(lexer.TokLBrace)
	for p.current().Kind != lexer.TokRBrace {
		list.Exprs = append(list.Exprs, p.parseInitializer())
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRBrace)
	return list
}

// ----------------------------------------------------------------------------
// Declarators
// ----------------------------------------------------------------------------

type declaratorMode uint8

const (
	declaratorNamed    declaratorMode = iota // a name is required
	declaratorAbstract                       // no name allowed (casts, sizeof)
	declaratorEither                         // parameters
)

type modKind uint8

const (
	modPtr modKind = iota
	modArray
	modFunc
)

type modifier struct {
	kind     modKind
	loc      ast.Loc
	quals    []string       // modPtr
	dim      ast.Node       // modArray
	dimQuals []string       // modArray
	params   *ast.ParamList // modFunc
}

// declarator is a parsed declarator before it is attached to its base
// type. mods are ordered from the identifier outward, so mods[0] is the
// outermost node of the finished type chain.
type declarator struct {
	name string
	loc  ast.Loc
	mods []modifier
}

func (p *Parser) parseDeclarator(mode declaratorMode) declarator {
	var ptrs []modifier
	for p.current().Kind == lexer.TokStar {
		m := modifier{kind: modPtr, loc: p.loc()}
		p.advance()
		for {
			if p.current().Kind == lexer.TokQualifier {
				m.quals = append(m.quals, p.advance().Value)
			} else if p.current().Kind == lexer.TokAttribute {
				p.skipAttribute()
			} else {
				break
			}
		}
		ptrs = append(ptrs, m)
	}

	d := declarator{loc: p.loc()}
	var inner []modifier
	tok := p.current()
	switch {
	case tok.Kind == lexer.TokIdent && mode != declaratorAbstract:
		d.name = tok.Value
		p.advance()
	case tok.Kind == lexer.TokLParen && p.isNestedDeclarator(mode):
		p.advance()
		nested := p.parseDeclarator(mode)
		p.expect(lexer.TokRParen)
		d.name, d.loc, inner = nested.name, nested.loc, nested.mods
	case mode == declaratorNamed:
		p.fail(fmt.Sprintf("expected identifier, got %s", describeToken(tok)))
	}

	var suffixes []modifier
	for {
		switch p.current().Kind {
		case lexer.TokLBracket:
			suffixes = append(suffixes, p.parseArraySuffix())
			continue
		case lexer.TokLParen:
			m := modifier{kind: modFunc, loc: p.loc()}
			m.params = p.parseParamList()
			suffixes = append(suffixes, m)
			continue
		}
		break
	}
	p.skipAttributes()

	d.mods = append(d.mods, inner...)
	d.mods = append(d.mods, suffixes...)
	for i := len(ptrs) - 1; i >= 0; i-- {
		d.mods = append(d.mods, ptrs[i])
	}
	return d
}

// isNestedDeclarator decides whether the '(' at the cursor opens a nested
// declarator such as "(*fp)" rather than a parameter list.
func (p *Parser) isNestedDeclarator(mode declaratorMode) bool {
	next := p.peek(1)
	switch next.Kind {
	case lexer.TokStar, lexer.TokLBracket:
		return true
	case lexer.TokIdent:
		return mode != declaratorAbstract && !p.isTypedefName(next.Value)
	}
	return false
}

func (p *Parser) parseArraySuffix() modifier {
	m := modifier{kind: modArray, loc: p.loc()}
	p.expect(lexer.TokLBracket)
	for {
		tok := p.current()
		if tok.Kind == lexer.TokQualifier || (tok.Kind == lexer.TokStorage && tok.Value == "static") {
			m.dimQuals = append(m.dimQuals, tok.Value)
			p.advance()
			continue
		}
		break
	}
	if p.current().Kind != lexer.TokRBracket {
		m.dim = p.parseAssignExpr()
	}
	p.expect(lexer.TokRBracket)
	return m
}

// parseParamList parses "( ... )". It returns nil for "()".
func (p *Parser) parseParamList() *ast.ParamList {
	loc := p.loc()
	p.expect(lexer.TokLParen)
	if p.match(lexer.TokRParen) {
		return nil
	}

	list := &ast.ParamList{Loc: loc}
	for {
		if p.current().Kind == lexer.TokEllipsis {
			list.Params = append(list.Params, &ast.EllipsisParam{Loc: p.loc()})
			p.advance()
			break
		}
		list.Params = append(list.Params, p.parseParam())
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRParen)
	return list
}

func (p *Parser) parseParam() ast.Node {
	specs := p.parseDeclSpecs()
	d := p.parseDeclarator(declaratorEither)
	typ := p.buildType(d, specs)
	if d.name == "" {
		return &ast.Typename{Loc: specs.loc, Quals: specs.quals, Type: typ}
	}
	return &ast.Decl{
		Loc:      d.loc,
		Name:     d.name,
		Quals:    specs.quals,
		Storage:  specs.storage,
		FuncSpec: specs.funcspec,
		Type:     typ,
	}
}

// parseTypeName parses the abstract type of a cast or sizeof.
func (p *Parser) parseTypeName() *ast.Typename {
	specs := p.parseDeclSpecs()
	if len(specs.storage) > 0 || len(specs.funcspec) > 0 {
		p.failAt(int(specs.loc.Start), "storage class in type name")
	}
	d := p.parseDeclarator(declaratorAbstract)
	return &ast.Typename{Loc: specs.loc, Quals: specs.quals, Type: p.buildType(d, specs)}
}

// buildType wraps the base type of specs in the declarator's modifiers.
func (p *Parser) buildType(d declarator, specs declSpecs) ast.Node {
	var typ ast.Node = &ast.TypeDecl{
		Loc:      d.loc,
		DeclName: d.name,
		Quals:    specs.quals,
		Type:     specs.typ,
	}
	for i := len(d.mods) - 1; i >= 0; i-- {
		m := d.mods[i]
		switch m.kind {
		case modPtr:
			typ = &ast.PtrDecl{Loc: m.loc, Quals: m.quals, Type: typ}
		case modArray:
			typ = &ast.ArrayDecl{Loc: m.loc, Type: typ, Dim: m.dim, DimQuals: m.dimQuals}
		case modFunc:
			typ = &ast.FuncDecl{Loc: m.loc, Args: m.params, Type: typ}
		}
	}
	return typ
}

// ----------------------------------------------------------------------------
// Struct, Union, Enum
// ----------------------------------------------------------------------------

func (p *Parser) parseStructOrUnion() ast.Node {
	loc := p.loc()
	isUnion := p.advance().Kind == lexer.TokUnion
	p.skipAttributes()

	var name string
	if p.current().Kind == lexer.TokIdent {
		name = p.advance().Value
	}

	var decls []*ast.Decl
	if p.current().Kind == lexer.TokLBrace {
		decls = p.parseStructBody()
	} else if name == "" {
		p.fail(fmt.Sprintf("expected { or tag name, got %s", describeToken(p.current())))
	}
	p.skipAttributes()

	if isUnion {
		return &ast.Union{Loc: loc, Name: name, Decls: decls}
	}
	return &ast.Struct{Loc: loc, Name: name, Decls: decls}
}

func (p *Parser) parseStructBody() []*ast.Decl {
	p.expect(lexer.TokLBrace)
	decls := []*ast.Decl{}
	for p.current().Kind != lexer.TokRBrace {
		specs := p.parseDeclSpecs()
		if p.match(lexer.TokSemicolon) {
			decls = append(decls, specs.tagDecl())
			continue
		}
		for {
			d := declarator{loc: p.loc()}
			if p.current().Kind != lexer.TokColon {
				d = p.parseDeclarator(declaratorNamed)
			}
			decl := &ast.Decl{
				Loc:   d.loc,
				Name:  d.name,
				Quals: specs.quals,
				Type:  p.buildType(d, specs),
			}
			if p.match(lexer.TokColon) {
				decl.Bitsize = p.parseConditionalExpr()
			}
			decls = append(decls, decl)
			if !p.match(lexer.TokComma) {
				break
			}
		}
		p.expect(lexer.TokSemicolon)
	}
	p.expect(lexer.TokRBrace)
	return decls
}

func (p *Parser) parseEnum() *ast.Enum {
	enum := &ast.Enum{Loc: p.loc()}
	p.expect(lexer.TokEnum)
	p.skipAttributes()
	if p.current().Kind == lexer.TokIdent {
		enum.Name = p.advance().Value
	}
	if p.current().Kind != lexer.TokLBrace {
		if enum.Name == "" {
			p.fail(fmt.Sprintf("expected { or tag name, got %s", describeToken(p.current())))
		}
		return enum
	}

	enum.Values = &ast.EnumeratorList{Loc: p.loc()}
	p.advance()
	for p.current().Kind != lexer.TokRBrace {
		e := &ast.Enumerator{Loc: p.loc()}
		e.Name = p.expect(lexer.TokIdent).Value
		if p.match(lexer.TokEq) {
			e.Value = p.parseConditionalExpr()
		}
		p.declareName(e.Name, false)
		enum.Values.Enumerators = append(enum.Values.Enumerators, e)
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRBrace)
	return enum
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (p *Parser) parseCompound() *ast.Compound {
	block := &ast.Compound{Loc: p.loc()}
	p.expect(lexer.TokLBrace)
	p.pushScope()
	for p.current().Kind != lexer.TokRBrace {
		if p.current().Kind == lexer.TokEOF {
			p.fail("expected }, got EOF")
		}
		block.BlockItems = append(block.BlockItems, p.parseBlockItem()...)
	}
	p.popScope()
	p.expect(lexer.TokRBrace)
	return block
}

func (p *Parser) parseBlockItem() []ast.Node {
	if p.current().Kind == lexer.TokPPLine {
		return []ast.Node{p.parsePreprocessorLine()}
	}
	if p.startsDeclaration() {
		return p.parseDeclaration()
	}
	return []ast.Node{p.parseStatement()}
}

func (p *Parser) parseStatement() ast.Node {
	loc := p.loc()
	switch p.current().Kind {
	case lexer.TokLBrace:
		return p.parseCompound()

	case lexer.TokSemicolon:
		p.advance()
		return &ast.EmptyStatement{Loc: loc}

	case lexer.TokIf:
		p.advance()
		stmt := &ast.If{Loc: loc}
		stmt.Cond = p.parseParenExpr()
		stmt.IfTrue = p.parseStatement()
		if p.match(lexer.TokElse) {
			stmt.IfFalse = p.parseStatement()
		}
		return stmt

	case lexer.TokWhile:
		p.advance()
		stmt := &ast.While{Loc: loc}
		stmt.Cond = p.parseParenExpr()
		stmt.Stmt = p.parseStatement()
		return stmt

	case lexer.TokDo:
		p.advance()
		stmt := &ast.DoWhile{Loc: loc}
		stmt.Stmt = p.parseStatement()
		p.expect(lexer.TokWhile)
		stmt.Cond = p.parseParenExpr()
		p.expect(lexer.TokSemicolon)
		return stmt

	case lexer.TokFor:
		return p.parseFor()

	case lexer.TokSwitch:
		p.advance()
		stmt := &ast.Switch{Loc: loc}
		stmt.Cond = p.parseParenExpr()
		stmt.Stmt = p.parseStatement()
		return stmt

	case lexer.TokCase:
		p.advance()
		stmt := &ast.Case{Loc: loc}
		stmt.Expr = p.parseConditionalExpr()
		p.expect(lexer.TokColon)
		stmt.Stmts = p.parseLabelBody()
		return stmt

	case lexer.TokDefault:
		p.advance()
		p.expect(lexer.TokColon)
		return &ast.Default{Loc: loc, Stmts: p.parseLabelBody()}

	case lexer.TokBreak:
		p.advance()
		p.expect(lexer.TokSemicolon)
		return &ast.Break{Loc: loc}

	case lexer.TokContinue:
		p.advance()
		p.expect(lexer.TokSemicolon)
		return &ast.Continue{Loc: loc}

	case lexer.TokGoto:
		p.advance()
		name := p.expect(lexer.TokIdent).Value
		p.expect(lexer.TokSemicolon)
		return &ast.Goto{Loc: loc, Name: name}

	case lexer.TokReturn:
		p.advance()
		stmt := &ast.Return{Loc: loc}
		if p.current().Kind != lexer.TokSemicolon {
			stmt.Expr = p.parseExpression()
		}
		p.expect(lexer.TokSemicolon)
		return stmt

	case lexer.TokIdent:
		if p.peek(1).Kind == lexer.TokColon {
			name := p.advance().Value
			p.advance()
			return &ast.Label{Loc: loc, Name: name, Stmt: p.parseStatement()}
		}
	}

	expr := p.parseExpression()
	p.expect(lexer.TokSemicolon)
	return expr
}

// parseLabelBody collects the items after a case or default label up to
// the next label or the end of the switch block.
func (p *Parser) parseLabelBody() []ast.Node {
	var items []ast.Node
	for {
		switch p.current().Kind {
		case lexer.TokCase, lexer.TokDefault, lexer.TokRBrace, lexer.TokEOF:
			return items
		}
		items = append(items, p.parseBlockItem()...)
	}
}

func (p *Parser) parseFor() *ast.For {
	stmt := &ast.For{Loc: p.loc()}
	p.expect(lexer.TokFor)
	p.expect(lexer.TokLParen)
	p.pushScope()
	defer p.popScope()

	switch {
	case p.match(lexer.TokSemicolon):
	case p.startsDeclaration():
		list := &ast.DeclList{Loc: p.loc()}
		for _, n := range p.parseDeclaration() {
			decl, ok := n.(*ast.Decl)
			if !ok {
				p.failAt(int(n.Pos().Start), "typedef in for loop initializer")
			}
			list.Decls = append(list.Decls, decl)
		}
		stmt.Init = list
	default:
		stmt.Init = p.parseExpression()
		p.expect(lexer.TokSemicolon)
	}

	if p.current().Kind != lexer.TokSemicolon {
		stmt.Cond = p.parseExpression()
	}
	p.expect(lexer.TokSemicolon)
	if p.current().Kind != lexer.TokRParen {
		stmt.Next = p.parseExpression()
	}
	p.expect(lexer.TokRParen)

	stmt.Stmt = p.parseStatement()
	return stmt
}

func (p *Parser) parseParenExpr() ast.Node {
	p.expect(lexer.TokLParen)
	expr := p.parseExpression()
	p.expect(lexer.TokRParen)
	return expr
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// parseExpression parses a comma expression. A single operand is returned
// as is; two or more become an ExprList.
func (p *Parser) parseExpression() ast.Node {
	loc := p.loc()
	first := p.parseAssignExpr()
	if p.current().Kind != lexer.TokComma {
		return first
	}
	list := &ast.ExprList{Loc: loc, Exprs: []ast.Node{first}}
	for p.match(lexer.TokComma) {
		list.Exprs = append(list.Exprs, p.parseAssignExpr())
	}
	return list
}

func (p *Parser) parseAssignExpr() ast.Node {
	loc := p.loc()
	left := p.parseConditionalExpr()

	if kind := p.current().Kind; kind.IsAssignOp() {
		p.advance()
		right := p.parseAssignExpr()
		return &ast.Assignment{Loc: loc, Op: kind.String(), LValue: left, RValue: right}
	}
	return left
}

func (p *Parser) parseConditionalExpr() ast.Node {
	loc := p.loc()
	cond := p.parseLogicalOrExpr()
	if !p.match(lexer.TokQuestion) {
		return cond
	}
	ifTrue := p.parseExpression()
	p.expect(lexer.TokColon)
	ifFalse := p.parseConditionalExpr()
	return &ast.TernaryOp{Loc: loc, Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}
}

// parseBinary parses one left-associative precedence level.
func (p *Parser) parseBinary(operand func() ast.Node, ops ...lexer.TokenKind) ast.Node {
	loc := p.loc()
	left := operand()
	for {
		kind := p.current().Kind
		found := false
		for _, op := range ops {
			if kind == op {
				found = true
				break
			}
		}
		if !found {
			return left
		}
		p.advance()
		right := operand()
		left = &ast.BinaryOp{Loc: loc, Op: kind.String(), Left: left, Right: right}
	}
}

func (p *Parser) parseLogicalOrExpr() ast.Node {
	return p.parseBinary(p.parseLogicalAndExpr, lexer.TokPipePipe)
}

func (p *Parser) parseLogicalAndExpr() ast.Node {
	return p.parseBinary(p.parseBitwiseOrExpr, lexer.TokAmpAmp)
}

func (p *Parser) parseBitwiseOrExpr() ast.Node {
	return p.parseBinary(p.parseBitwiseXorExpr, lexer.TokPipe)
}

func (p *Parser) parseBitwiseXorExpr() ast.Node {
	return p.parseBinary(p.parseBitwiseAndExpr, lexer.TokCaret)
}

func (p *Parser) parseBitwiseAndExpr() ast.Node {
	return p.parseBinary(p.parseEqualityExpr, lexer.TokAmp)
}

func (p *Parser) parseEqualityExpr() ast.Node {
	return p.parseBinary(p.parseRelationalExpr, lexer.TokEqEq, lexer.TokBangEq)
}

func (p *Parser) parseRelationalExpr() ast.Node {
	return p.parseBinary(p.parseShiftExpr, lexer.TokLt, lexer.TokGt, lexer.TokLtEq, lexer.TokGtEq)
}

func (p *Parser) parseShiftExpr() ast.Node {
	return p.parseBinary(p.parseAdditiveExpr, lexer.TokLtLt, lexer.TokGtGt)
}

func (p *Parser) parseAdditiveExpr() ast.Node {
	return p.parseBinary(p.parseMultiplicativeExpr, lexer.TokPlus, lexer.TokMinus)
}

func (p *Parser) parseMultiplicativeExpr() ast.Node {
	return p.parseBinary(p.parseCastExpr, lexer.TokStar, lexer.TokSlash, lexer.TokPercent)
}

func (p *Parser) parseCastExpr() ast.Node {
	if p.current().Kind != lexer.TokLParen || !p.isTypeStart(p.peek(1)) {
		return p.parseUnaryExpr()
	}

	loc := p.loc()
	p.advance()
	toType := p.parseTypeName()
	p.expect(lexer.TokRParen)

	// (float4){...} and (float4)(a, b, c, d) are vector literals; the
	// latter needs no special case since the parenthesized operand parses
	// to an ExprList.
	if p.current().Kind == lexer.TokLBrace {
		return &ast.Cast{Loc: loc, ToType: toType, Expr: p.parseInitList()}
	}
	return &ast.Cast{Loc: loc, ToType: toType, Expr: p.parseCastExpr()}
}

func (p *Parser) parseUnaryExpr() ast.Node {
	loc := p.loc()
	tok := p.current()

	switch tok.Kind {
	case lexer.TokPlusPlus, lexer.TokMinusMinus:
		p.advance()
		return &ast.UnaryOp{Loc: loc, Op: tok.Kind.String(), Expr: p.parseUnaryExpr()}

	case lexer.TokAmp, lexer.TokStar, lexer.TokPlus, lexer.TokMinus, lexer.TokTilde, lexer.TokBang:
		p.advance()
		return &ast.UnaryOp{Loc: loc, Op: tok.Kind.String(), Expr: p.parseCastExpr()}

	case lexer.TokSizeof:
		p.advance()
		if p.current().Kind == lexer.TokLParen && p.isTypeStart(p.peek(1)) {
			p.advance()
			tn := p.parseTypeName()
			p.expect(lexer.TokRParen)
			return &ast.UnaryOp{Loc: loc, Op: "sizeof", Expr: tn}
		}
		return &ast.UnaryOp{Loc: loc, Op: "sizeof", Expr: p.parseUnaryExpr()}
	}

	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() ast.Node {
	loc := p.loc()
	expr := p.parsePrimaryExpr()

	for {
		switch p.current().Kind {
		case lexer.TokLBracket:
			p.advance()
			sub := p.parseExpression()
			p.expect(lexer.TokRBracket)
			expr = &ast.ArrayRef{Loc: loc, Name: expr, Subscript: sub}

		case lexer.TokLParen:
			p.advance()
			call := &ast.FuncCall{Loc: loc, Name: expr}
			if p.current().Kind != lexer.TokRParen {
				call.Args = &ast.ExprList{Loc: p.loc()}
				for {
					call.Args.Exprs = append(call.Args.Exprs, p.parseAssignExpr())
					if !p.match(lexer.TokComma) {
						break
					}
				}
			}
			p.expect(lexer.TokRParen)
			expr = call

		case lexer.TokDot, lexer.TokArrow:
			op := p.advance().Kind.String()
			fieldLoc := p.loc()
			field := p.expect(lexer.TokIdent)
			expr = &ast.StructRef{
				Loc:   loc,
				Name:  expr,
				Type:  op,
				Field: &ast.ID{Loc: fieldLoc, Name: field.Value},
			}

		case lexer.TokPlusPlus, lexer.TokMinusMinus:
			op := "p" + p.advance().Kind.String()
			expr = &ast.UnaryOp{Loc: loc, Op: op, Expr: expr}

		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimaryExpr() ast.Node {
	loc := p.loc()
	tok := p.current()

	switch tok.Kind {
	case lexer.TokIdent:
		p.advance()
		return &ast.ID{Loc: loc, Name: tok.Value}

	case lexer.TokIntLiteral:
		p.advance()
		return &ast.Constant{Loc: loc, Type: intLiteralType(tok.Value), Value: tok.Value}

	case lexer.TokFloatLiteral:
		p.advance()
		return &ast.Constant{Loc: loc, Type: floatLiteralType(tok.Value), Value: tok.Value}

	case lexer.TokCharLiteral:
		p.advance()
		return &ast.Constant{Loc: loc, Type: "char", Value: tok.Value}

	case lexer.TokStringLiteral:
		// Adjacent literals concatenate: "ab" "cd" is "abcd".
		value := tok.Value
		p.advance()
		for p.current().Kind == lexer.TokStringLiteral {
			next := p.advance().Value
			value = value[:len(value)-1] + next[1:]
		}
		return &ast.Constant{Loc: loc, Type: "string", Value: value}

	case lexer.TokTrue, lexer.TokFalse:
		p.advance()
		return &ast.Constant{Loc: loc, Type: "bool", Value: tok.Value}

	case lexer.TokLParen:
		return p.parseParenExpr()
	}

	p.fail(fmt.Sprintf("expected expression, got %s", describeToken(tok)))
	return nil
}

// intLiteralType maps integer suffixes to the literal's type.
func intLiteralType(text string) string {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		text = text[2:]
		text = strings.TrimLeft(text, "0123456789abcdefABCDEF")
	}
	suffix := strings.ToLower(strings.TrimLeft(text, "0123456789"))
	unsigned := strings.Contains(suffix, "u")
	long := strings.Contains(suffix, "l")
	switch {
	case unsigned && long:
		return "ulong"
	case unsigned:
		return "uint"
	case long:
		return "long"
	}
	return "int"
}

func floatLiteralType(text string) string {
	switch text[len(text)-1] | 0x20 {
	case 'h':
		return "half"
	}
	return "float"
}
