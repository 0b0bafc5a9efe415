package lexer

import (
	"testing"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

func expectTokenValue(t *testing.T, input string, expectedKind TokenKind, expectedValue string) {
	t.Helper()
	l := New(input)
	tok := l.Next()
	if tok.Kind != expectedKind {
		t.Errorf("input %q: expected kind %v, got %v", input, expectedKind, tok.Kind)
	}
	if tok.Value != expectedValue {
		t.Errorf("input %q: expected value %q, got %q", input, expectedValue, tok.Value)
	}
}

func expectTokens(t *testing.T, input string, expected []TokenKind) {
	t.Helper()
	tokens := New(input).Tokenize()
	if len(tokens) != len(expected)+1 {
		t.Errorf("input %q: expected %d tokens, got %d", input, len(expected)+1, len(tokens))
		return
	}
	for i, exp := range expected {
		if tokens[i].Kind != exp {
			t.Errorf("input %q token %d: expected %v, got %v", input, i, exp, tokens[i].Kind)
		}
	}
	if last := tokens[len(tokens)-1]; last.Kind != TokEOF {
		t.Errorf("input %q: expected EOF, got %v", input, last.Kind)
	}
}

func expectError(t *testing.T, input string, message string) {
	t.Helper()
	tokens := New(input).Tokenize()
	last := tokens[len(tokens)-1]
	if last.Kind != TokError {
		t.Errorf("input %q: expected error, got %v", input, last.Kind)
		return
	}
	if last.Value != message {
		t.Errorf("input %q: expected error %q, got %q", input, message, last.Value)
	}
}

// ----------------------------------------------------------------------------
// Keywords and Specifiers
// ----------------------------------------------------------------------------

func TestKeywords(t *testing.T) {
	cases := []struct {
		input string
		kind  TokenKind
	}{
		{"if", TokIf},
		{"else", TokElse},
		{"for", TokFor},
		{"while", TokWhile},
		{"do", TokDo},
		{"switch", TokSwitch},
		{"case", TokCase},
		{"default", TokDefault},
		{"break", TokBreak},
		{"continue", TokContinue},
		{"goto", TokGoto},
		{"return", TokReturn},
		{"sizeof", TokSizeof},
		{"struct", TokStruct},
		{"union", TokUnion},
		{"enum", TokEnum},
		{"true", TokTrue},
		{"false", TokFalse},
		{"__attribute__", TokAttribute},
	}
	for _, c := range cases {
		expectTokenValue(t, c.input, c.kind, c.input)
	}
}

func TestSpecifiers(t *testing.T) {
	cases := []struct {
		input string
		kind  TokenKind
		value string
	}{
		{"int", TokTypeSpec, "int"},
		{"unsigned", TokTypeSpec, "unsigned"},
		{"_Bool", TokTypeSpec, "bool"},
		{"uint", TokTypeSpec, "uint"},
		{"size_t", TokTypeSpec, "size_t"},
		{"float4", TokTypeSpec, "float4"},
		{"uchar16", TokTypeSpec, "uchar16"},
		{"half3", TokTypeSpec, "half3"},
		{"const", TokQualifier, "const"},
		{"__const", TokQualifier, "const"},
		{"restrict", TokQualifier, "restrict"},
		{"global", TokQualifier, "global"},
		{"__global", TokQualifier, "global"},
		{"__local", TokQualifier, "local"},
		{"__read_only", TokQualifier, "read_only"},
		{"typedef", TokStorage, "typedef"},
		{"static", TokStorage, "static"},
		{"inline", TokFuncSpec, "inline"},
		{"kernel", TokFuncSpec, "kernel"},
		{"__kernel", TokFuncSpec, "kernel"},
	}
	for _, c := range cases {
		expectTokenValue(t, c.input, c.kind, c.value)
	}
}

func TestIdentifiers(t *testing.T) {
	expectTokenValue(t, "foo", TokIdent, "foo")
	expectTokenValue(t, "_bar9", TokIdent, "_bar9")
	expectTokenValue(t, "float5", TokIdent, "float5")
	expectTokenValue(t, "get_global_id", TokIdent, "get_global_id")
}

// ----------------------------------------------------------------------------
// Literals
// ----------------------------------------------------------------------------

func TestNumbers(t *testing.T) {
	cases := []struct {
		input string
		kind  TokenKind
	}{
		{"0", TokIntLiteral},
		{"42", TokIntLiteral},
		{"42u", TokIntLiteral},
		{"42UL", TokIntLiteral},
		{"0x1F", TokIntLiteral},
		{"0xffu", TokIntLiteral},
		{"1.5", TokFloatLiteral},
		{".5", TokFloatLiteral},
		{"1.", TokFloatLiteral},
		{"1e10", TokFloatLiteral},
		{"1.5e-3", TokFloatLiteral},
		{"1.0f", TokFloatLiteral},
		{"2.0h", TokFloatLiteral},
		{"3f", TokFloatLiteral},
	}
	for _, c := range cases {
		expectTokenValue(t, c.input, c.kind, c.input)
	}

	expectError(t, "0x", "malformed hex literal")
	expectError(t, "1e+", "malformed exponent")
	expectError(t, "12abc", "invalid numeric suffix")
}

func TestQuoted(t *testing.T) {
	expectTokenValue(t, `'a'`, TokCharLiteral, `'a'`)
	expectTokenValue(t, `'\n'`, TokCharLiteral, `'\n'`)
	expectTokenValue(t, `"hello"`, TokStringLiteral, `"hello"`)
	expectTokenValue(t, `"a\"b"`, TokStringLiteral, `"a\"b"`)

	expectError(t, `"open`, "unterminated literal")
	expectError(t, "'a\n'", "unterminated literal")
}

// ----------------------------------------------------------------------------
// Operators
// ----------------------------------------------------------------------------

func TestOperators(t *testing.T) {
	expectTokens(t, "+ ++ += - -- -= ->", []TokenKind{
		TokPlus, TokPlusPlus, TokPlusEq, TokMinus, TokMinusMinus, TokMinusEq, TokArrow,
	})
	expectTokens(t, "< << <<= <= > >> >>= >=", []TokenKind{
		TokLt, TokLtLt, TokLtLtEq, TokLtEq, TokGt, TokGtGt, TokGtGtEq, TokGtEq,
	})
	expectTokens(t, "& && &= | || |= ^ ^= ~ ! != = ==", []TokenKind{
		TokAmp, TokAmpAmp, TokAmpEq, TokPipe, TokPipePipe, TokPipeEq,
		TokCaret, TokCaretEq, TokTilde, TokBang, TokBangEq, TokEq, TokEqEq,
	})
	expectTokens(t, "* *= / /= % %= ? : . ...", []TokenKind{
		TokStar, TokStarEq, TokSlash, TokSlashEq, TokPercent, TokPercentEq,
		TokQuestion, TokColon, TokDot, TokEllipsis,
	})
	expectTokens(t, "( ) { } [ ] ; ,", []TokenKind{
		TokLParen, TokRParen, TokLBrace, TokRBrace, TokLBracket, TokRBracket, TokSemicolon, TokComma,
	})

	expectError(t, "@", "unexpected character")
}

func TestAssignOps(t *testing.T) {
	for _, k := range []TokenKind{TokEq, TokPlusEq, TokLtLtEq, TokGtGtEq, TokCaretEq} {
		if !k.IsAssignOp() {
			t.Errorf("%v: expected assignment operator", k)
		}
	}
	for _, k := range []TokenKind{TokEqEq, TokLtEq, TokGtEq, TokBangEq, TokArrow} {
		if k.IsAssignOp() {
			t.Errorf("%v: unexpected assignment operator", k)
		}
	}
}

// ----------------------------------------------------------------------------
// Comments and Preprocessor Lines
// ----------------------------------------------------------------------------

func TestComments(t *testing.T) {
	expectTokens(t, "a // comment\nb", []TokenKind{TokIdent, TokIdent})
	expectTokens(t, "a /* multi\nline */ b", []TokenKind{TokIdent, TokIdent})
	expectTokens(t, "a /* /* */ b", []TokenKind{TokIdent, TokIdent})
}

func TestPreprocessorLines(t *testing.T) {
	expectTokenValue(t, "#include <a.h>", TokPPLine, "#include <a.h>")
	expectTokenValue(t, "  #pragma unroll\nint", TokPPLine, "#pragma unroll")
	expectTokenValue(t, "#define A \\\n  1\nx", TokPPLine, "#define A \\\n  1")

	expectTokens(t, "int\n#include \"x.h\"\nint", []TokenKind{TokTypeSpec, TokPPLine, TokTypeSpec})
	expectTokens(t, "/* c */\n#if 0\n", []TokenKind{TokPPLine})

	// '#' in the middle of a line is not a directive
	expectError(t, "a #b", "unexpected character")
}

func TestPositions(t *testing.T) {
	src := "int x = 10;"
	tokens := New(src).Tokenize()
	want := []string{"int", "x", "=", "10", ";"}
	for i, w := range want {
		if got := tokens[i].Text(src); got != w {
			t.Errorf("token %d: expected text %q, got %q", i, w, got)
		}
	}
}
