// Package lexer provides tokenization for OpenCL C source code.
//
// The lexer converts an OpenCL C source string into a sequence of tokens,
// handling:
// - C99 keywords plus the OpenCL qualifiers and function specifiers
// - Built-in scalar and vector type names (uint4, size_t, half, ...)
// - Numeric, character and string literals
// - Operators and punctuation
// - Line and block comments
// - Preprocessor lines, kept whole as a single token
package lexer

// ----------------------------------------------------------------------------
// Token Types
// ----------------------------------------------------------------------------

// TokenKind represents the type of a token.
type TokenKind uint8

const (
	TokError TokenKind = iota
	TokEOF

	// Literals
	TokIntLiteral
	TokFloatLiteral
	TokCharLiteral
	TokStringLiteral
	TokTrue
	TokFalse

	// Identifiers
	TokIdent

	// Preprocessor directive, Value holds the whole line
	TokPPLine

	// Declaration specifiers. Value holds the canonical spelling.
	TokTypeSpec  // int, uint4, size_t, unsigned, ...
	TokQualifier // const, volatile, restrict, global, read_only, ...
	TokStorage   // typedef, extern, static, auto, register
	TokFuncSpec  // inline, kernel

	// Keywords
	TokAttribute
	TokBreak
	TokCase
	TokContinue
	TokDefault
	TokDo
	TokElse
	TokEnum
	TokFor
	TokGoto
	TokIf
	TokReturn
	TokSizeof
	TokStruct
	TokSwitch
	TokUnion
	TokWhile

	// Operators
	TokPlus     // +
	TokMinus    // -
	TokStar     // *
	TokSlash    // /
	TokPercent  // %
	TokAmp      // &
	TokPipe     // |
	TokCaret    // ^
	TokTilde    // ~
	TokBang     // !
	TokLt       // <
	TokGt       // >
	TokEq       // =
	TokDot      // .
	TokQuestion // ?

	// Multi-char operators
	TokPlusPlus   // ++
	TokMinusMinus // --
	TokAmpAmp     // &&
	TokPipePipe   // ||
	TokLtLt       // <<
	TokGtGt       // >>
	TokLtEq       // <=
	TokGtEq       // >=
	TokEqEq       // ==
	TokBangEq     // !=
	TokArrow      // ->
	TokPlusEq     // +=
	TokMinusEq    // -=
	TokStarEq     // *=
	TokSlashEq    // /=
	TokPercentEq  // %=
	TokAmpEq      // &=
	TokPipeEq     // |=
	TokCaretEq    // ^=
	TokLtLtEq     // <<=
	TokGtGtEq     // >>=
	TokEllipsis   // ...

	// Delimiters
	TokLParen    // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokSemicolon // ;
	TokColon     // :
	TokComma     // ,
)

// String returns the string representation of a token kind.
func (k TokenKind) String() string {
	if int(k) < len(tokenNames) && tokenNames[k] != "" {
		return tokenNames[k]
	}
	return "unknown"
}

var tokenNames = [...]string{
	TokError:         "error",
	TokEOF:           "EOF",
	TokIntLiteral:    "int",
	TokFloatLiteral:  "float",
	TokCharLiteral:   "char",
	TokStringLiteral: "string",
	TokTrue:          "true",
	TokFalse:         "false",
	TokIdent:         "identifier",
	TokPPLine:        "preprocessor line",
	TokTypeSpec:      "type specifier",
	TokQualifier:     "type qualifier",
	TokStorage:       "storage specifier",
	TokFuncSpec:      "function specifier",
	// Keywords
	TokAttribute: "__attribute__",
	TokBreak:     "break",
	TokCase:      "case",
	TokContinue:  "continue",
	TokDefault:   "default",
	TokDo:        "do",
	TokElse:      "else",
	TokEnum:      "enum",
	TokFor:       "for",
	TokGoto:      "goto",
	TokIf:        "if",
	TokReturn:    "return",
	TokSizeof:    "sizeof",
	TokStruct:    "struct",
	TokSwitch:    "switch",
	TokUnion:     "union",
	TokWhile:     "while",
	// Operators
	TokPlus:       "+",
	TokMinus:      "-",
	TokStar:       "*",
	TokSlash:      "/",
	TokPercent:    "%",
	TokAmp:        "&",
	TokPipe:       "|",
	TokCaret:      "^",
	TokTilde:      "~",
	TokBang:       "!",
	TokLt:         "<",
	TokGt:         ">",
	TokEq:         "=",
	TokDot:        ".",
	TokQuestion:   "?",
	TokPlusPlus:   "++",
	TokMinusMinus: "--",
	TokAmpAmp:     "&&",
	TokPipePipe:   "||",
	TokLtLt:       "<<",
	TokGtGt:       ">>",
	TokLtEq:       "<=",
	TokGtEq:       ">=",
	TokEqEq:       "==",
	TokBangEq:     "!=",
	TokArrow:      "->",
	TokPlusEq:     "+=",
	TokMinusEq:    "-=",
	TokStarEq:     "*=",
	TokSlashEq:    "/=",
	TokPercentEq:  "%=",
	TokAmpEq:      "&=",
	TokPipeEq:     "|=",
	TokCaretEq:    "^=",
	TokLtLtEq:     "<<=",
	TokGtGtEq:     ">>=",
	TokEllipsis:   "...",
	TokLParen:     "(",
	TokRParen:     ")",
	TokLBrace:     "{",
	TokRBrace:     "}",
	TokLBracket:   "[",
	TokRBracket:   "]",
	TokSemicolon:  ";",
	TokColon:      ":",
	TokComma:      ",",
}

// IsAssignOp reports whether the kind is = or a compound assignment.
func (k TokenKind) IsAssignOp() bool {
	return k == TokEq || (k >= TokPlusEq && k <= TokGtGtEq)
}

// ----------------------------------------------------------------------------
// Token
// ----------------------------------------------------------------------------

// Token represents a lexical token.
type Token struct {
	Kind  TokenKind
	Start int    // Byte offset in source
	End   int    // Byte offset of end (exclusive)
	Value string // For identifiers, literals, specifiers and pp lines
}

// Text returns the source text of the token.
func (t Token) Text(source string) string {
	if t.Start >= 0 && t.End <= len(source) {
		return source[t.Start:t.End]
	}
	return ""
}

// ----------------------------------------------------------------------------
// Keywords
// ----------------------------------------------------------------------------

// Keywords maps control-flow and aggregate keywords to their token kinds.
var Keywords = map[string]TokenKind{
	"__attribute__": TokAttribute,
	"break":         TokBreak,
	"case":          TokCase,
	"continue":      TokContinue,
	"default":       TokDefault,
	"do":            TokDo,
	"else":          TokElse,
	"enum":          TokEnum,
	"false":         TokFalse,
	"for":           TokFor,
	"goto":          TokGoto,
	"if":            TokIf,
	"return":        TokReturn,
	"sizeof":        TokSizeof,
	"struct":        TokStruct,
	"switch":        TokSwitch,
	"true":          TokTrue,
	"union":         TokUnion,
	"while":         TokWhile,
}

// Specifiers maps declaration specifier spellings to their kind and
// canonical value. OpenCL's double-underscore spellings canonicalize to the
// plain keyword.
var Specifiers = map[string]Token{}

// CTypeWords are the C99 type keywords. They may combine (unsigned long int).
var CTypeWords = []string{
	"void", "char", "short", "int", "long", "float", "double",
	"signed", "unsigned", "bool", "_Bool",
}

// OpenCLScalarTypes are the OpenCL scalar type names that are keywords.
var OpenCLScalarTypes = []string{
	"uchar", "ushort", "uint", "ulong", "half",
	"size_t", "ptrdiff_t", "intptr_t", "uintptr_t",
}

// VectorElementTypes are the scalar names that have vector forms.
var VectorElementTypes = []string{
	"uchar", "char", "ushort", "short", "uint", "int", "ulong", "long",
	"uintptr_t", "intptr_t", "size_t", "ptrdiff_t",
	"half", "float", "double", "void", "bool",
}

// VectorWidths are the supported vector widths.
var VectorWidths = []string{"2", "3", "4", "8", "16"}

var (
	cQualifiers      = []string{"const", "volatile", "restrict"}
	openCLQualifiers = []string{
		"global", "local", "constant", "private",
		"read_only", "write_only", "read_write",
	}
	storageWords = []string{"typedef", "extern", "static", "auto", "register"}
)

func init() {
	for _, w := range CTypeWords {
		Specifiers[w] = Token{Kind: TokTypeSpec, Value: w}
	}
	Specifiers["_Bool"] = Token{Kind: TokTypeSpec, Value: "bool"}
	for _, w := range OpenCLScalarTypes {
		Specifiers[w] = Token{Kind: TokTypeSpec, Value: w}
	}
	for _, elem := range VectorElementTypes {
		for _, width := range VectorWidths {
			Specifiers[elem+width] = Token{Kind: TokTypeSpec, Value: elem + width}
		}
	}
	for _, w := range cQualifiers {
		Specifiers[w] = Token{Kind: TokQualifier, Value: w}
	}
	Specifiers["__const"] = Token{Kind: TokQualifier, Value: "const"}
	Specifiers["__restrict"] = Token{Kind: TokQualifier, Value: "restrict"}
	for _, w := range openCLQualifiers {
		Specifiers[w] = Token{Kind: TokQualifier, Value: w}
		Specifiers["__"+w] = Token{Kind: TokQualifier, Value: w}
	}
	for _, w := range storageWords {
		Specifiers[w] = Token{Kind: TokStorage, Value: w}
	}
	Specifiers["inline"] = Token{Kind: TokFuncSpec, Value: "inline"}
	Specifiers["__inline"] = Token{Kind: TokFuncSpec, Value: "inline"}
	Specifiers["kernel"] = Token{Kind: TokFuncSpec, Value: "kernel"}
	Specifiers["__kernel"] = Token{Kind: TokFuncSpec, Value: "kernel"}

	initCharTables()
}

// ----------------------------------------------------------------------------
// Lexer
// ----------------------------------------------------------------------------

// Lexer tokenizes OpenCL C source code.
type Lexer struct {
	source string
	pos    int
	start  int
	tokens []Token

	// true while only blanks have been seen since the last newline
	lineStart bool
}

// New creates a new lexer for the given source.
func New(source string) *Lexer {
	return &Lexer{
		source:    source,
		tokens:    make([]Token, 0, len(source)/4), // Estimate
		lineStart: true,
	}
}

// Tokenize returns all tokens in the source.
func (l *Lexer) Tokenize() []Token {
	for {
		tok := l.Next()
		l.tokens = append(l.tokens, tok)
		if tok.Kind == TokEOF || tok.Kind == TokError {
			break
		}
	}
	return l.tokens
}

// Next returns the next token.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()

	if l.pos >= len(l.source) {
		return Token{Kind: TokEOF, Start: l.pos, End: l.pos}
	}

	l.start = l.pos
	ch := l.source[l.pos]

	if ch == '#' && l.lineStart {
		return l.scanPPLine()
	}
	l.lineStart = false

	// Identifiers and keywords
	if isIdentStart(ch) {
		return l.scanIdentOrKeyword()
	}

	// Numbers
	if isDigit(ch) || (ch == '.' && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1])) {
		return l.scanNumber()
	}

	switch ch {
	case '\'':
		return l.scanQuoted('\'', TokCharLiteral)
	case '"':
		return l.scanQuoted('"', TokStringLiteral)
	}

	// Operators and punctuation
	return l.scanOperator()
}

// ----------------------------------------------------------------------------
// Scanning Helpers
// ----------------------------------------------------------------------------

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]

		if ch == '\n' {
			l.lineStart = true
			l.pos++
			continue
		}
		if isWhitespace(ch) {
			l.pos++
			continue
		}

		// Line comment
		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/' {
			l.pos += 2
			for l.pos < len(l.source) && l.source[l.pos] != '\n' {
				l.pos++
			}
			continue
		}

		// Block comment. C block comments do not nest.
		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '*' {
			l.pos += 2
			for l.pos < len(l.source) {
				if l.source[l.pos] == '*' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/' {
					l.pos += 2
					break
				}
				if l.source[l.pos] == '\n' {
					l.lineStart = true
				}
				l.pos++
			}
			continue
		}

		break
	}
}

// scanPPLine consumes a preprocessor directive through the end of its line,
// joining backslash continuations.
func (l *Lexer) scanPPLine() Token {
	start := l.pos
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == '\\' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '\n' {
			l.pos += 2
			continue
		}
		if ch == '\n' {
			break
		}
		l.pos++
	}
	text := l.source[start:l.pos]
	return Token{Kind: TokPPLine, Start: start, End: l.pos, Value: text}
}

func (l *Lexer) scanIdentOrKeyword() Token {
	start := l.pos
	for l.pos < len(l.source) && isIdentContinue(l.source[l.pos]) {
		l.pos++
	}
	text := l.source[start:l.pos]

	if kind, ok := Keywords[text]; ok {
		return Token{Kind: kind, Start: start, End: l.pos, Value: text}
	}
	if spec, ok := Specifiers[text]; ok {
		return Token{Kind: spec.Kind, Start: start, End: l.pos, Value: spec.Value}
	}
	return Token{Kind: TokIdent, Start: start, End: l.pos, Value: text}
}

func (l *Lexer) scanNumber() Token {
	start := l.pos
	kind := TokIntLiteral

	if l.pos+1 < len(l.source) && l.source[l.pos] == '0' &&
		(l.source[l.pos+1] == 'x' || l.source[l.pos+1] == 'X') {
		l.pos += 2
		digits := l.pos
		for l.pos < len(l.source) && isHexDigit(l.source[l.pos]) {
			l.pos++
		}
		if l.pos == digits {
			return Token{Kind: TokError, Start: start, End: l.pos, Value: "malformed hex literal"}
		}
	} else {
		for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
			l.pos++
		}
		if l.pos < len(l.source) && l.source[l.pos] == '.' {
			kind = TokFloatLiteral
			l.pos++
			for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
				l.pos++
			}
		}
		if l.pos < len(l.source) && (l.source[l.pos] == 'e' || l.source[l.pos] == 'E') {
			kind = TokFloatLiteral
			l.pos++
			if l.pos < len(l.source) && (l.source[l.pos] == '+' || l.source[l.pos] == '-') {
				l.pos++
			}
			digits := l.pos
			for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
				l.pos++
			}
			if l.pos == digits {
				return Token{Kind: TokError, Start: start, End: l.pos, Value: "malformed exponent"}
			}
		}
	}

	// Suffixes: u, l, ul, lu, ll for integers; f, h, l for floats
	for l.pos < len(l.source) {
		ch := l.source[l.pos] | 0x20
		if kind == TokIntLiteral && (ch == 'u' || ch == 'l') {
			l.pos++
			continue
		}
		if ch == 'f' || ch == 'h' || (kind == TokFloatLiteral && ch == 'l') {
			kind = TokFloatLiteral
			l.pos++
			continue
		}
		break
	}

	if l.pos < len(l.source) && isIdentContinue(l.source[l.pos]) {
		for l.pos < len(l.source) && isIdentContinue(l.source[l.pos]) {
			l.pos++
		}
		return Token{Kind: TokError, Start: start, End: l.pos, Value: "invalid numeric suffix"}
	}

	return Token{Kind: kind, Start: start, End: l.pos, Value: l.source[start:l.pos]}
}

// scanQuoted scans a character or string literal. Value keeps the quotes.
func (l *Lexer) scanQuoted(quote byte, kind TokenKind) Token {
	start := l.pos
	l.pos++
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == '\\' {
			l.pos += 2
			continue
		}
		if ch == '\n' {
			break
		}
		l.pos++
		if ch == quote {
			return Token{Kind: kind, Start: start, End: l.pos, Value: l.source[start:l.pos]}
		}
	}
	if l.pos > len(l.source) {
		l.pos = len(l.source)
	}
	return Token{Kind: TokError, Start: start, End: l.pos, Value: "unterminated literal"}
}

func (l *Lexer) scanOperator() Token {
	start := l.pos
	ch := l.source[l.pos]
	l.pos++

	var next byte
	if l.pos < len(l.source) {
		next = l.source[l.pos]
	}

	tok := func(kind TokenKind) Token {
		return Token{Kind: kind, Start: start, End: l.pos}
	}
	// either returns two if the next byte is want, else one
	either := func(want byte, two, one TokenKind) Token {
		if next == want {
			l.pos++
			return tok(two)
		}
		return tok(one)
	}

	switch ch {
	case '+':
		if next == '+' {
			l.pos++
			return tok(TokPlusPlus)
		}
		return either('=', TokPlusEq, TokPlus)
	case '-':
		switch next {
		case '-':
			l.pos++
			return tok(TokMinusMinus)
		case '=':
			l.pos++
			return tok(TokMinusEq)
		case '>':
			l.pos++
			return tok(TokArrow)
		}
		return tok(TokMinus)
	case '*':
		return either('=', TokStarEq, TokStar)
	case '/':
		return either('=', TokSlashEq, TokSlash)
	case '%':
		return either('=', TokPercentEq, TokPercent)
	case '&':
		if next == '&' {
			l.pos++
			return tok(TokAmpAmp)
		}
		return either('=', TokAmpEq, TokAmp)
	case '|':
		if next == '|' {
			l.pos++
			return tok(TokPipePipe)
		}
		return either('=', TokPipeEq, TokPipe)
	case '^':
		return either('=', TokCaretEq, TokCaret)
	case '<':
		if next == '<' {
			l.pos++
			if l.pos < len(l.source) && l.source[l.pos] == '=' {
				l.pos++
				return tok(TokLtLtEq)
			}
			return tok(TokLtLt)
		}
		return either('=', TokLtEq, TokLt)
	case '>':
		if next == '>' {
			l.pos++
			if l.pos < len(l.source) && l.source[l.pos] == '=' {
				l.pos++
				return tok(TokGtGtEq)
			}
			return tok(TokGtGt)
		}
		return either('=', TokGtEq, TokGt)
	case '=':
		return either('=', TokEqEq, TokEq)
	case '!':
		return either('=', TokBangEq, TokBang)
	case '.':
		if next == '.' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '.' {
			l.pos += 2
			return tok(TokEllipsis)
		}
		return tok(TokDot)
	case '~':
		return tok(TokTilde)
	case '?':
		return tok(TokQuestion)
	case '(':
		return tok(TokLParen)
	case ')':
		return tok(TokRParen)
	case '{':
		return tok(TokLBrace)
	case '}':
		return tok(TokRBrace)
	case '[':
		return tok(TokLBracket)
	case ']':
		return tok(TokRBracket)
	case ';':
		return tok(TokSemicolon)
	case ':':
		return tok(TokColon)
	case ',':
		return tok(TokComma)
	}

	return Token{Kind: TokError, Start: start, End: l.pos, Value: "unexpected character"}
}

// ----------------------------------------------------------------------------
// Character Classification
// ----------------------------------------------------------------------------

// ASCII lookup tables for fast character classification.
var (
	asciiIdentStart    [256]bool
	asciiIdentContinue [256]bool
	asciiWhitespace    [256]bool
)

func initCharTables() {
	for c := 'a'; c <= 'z'; c++ {
		asciiIdentStart[c] = true
		asciiIdentContinue[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		asciiIdentStart[c] = true
		asciiIdentContinue[c] = true
	}
	asciiIdentStart['_'] = true
	asciiIdentContinue['_'] = true

	// Digits can continue but not start identifiers
	for c := '0'; c <= '9'; c++ {
		asciiIdentContinue[c] = true
	}

	asciiWhitespace[' '] = true
	asciiWhitespace['\t'] = true
	asciiWhitespace['\r'] = true
	asciiWhitespace['\v'] = true
	asciiWhitespace['\f'] = true
}

func isWhitespace(ch byte) bool {
	return asciiWhitespace[ch]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return asciiIdentStart[ch]
}

func isIdentContinue(ch byte) bool {
	return asciiIdentContinue[ch]
}
