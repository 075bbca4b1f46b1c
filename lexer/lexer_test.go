package lexer

import (
	"strings"
	"testing"

	"github.com/npillmayer/toyc"
	"github.com/npillmayer/toyc/diag"
)

func scanAll(t *testing.T, src string) ([]toyc.Token, *diag.Sink) {
	t.Helper()
	sink := diag.New()
	l := New(strings.NewReader(src), sink)
	var toks []toyc.Token
	for {
		tk := l.NextToken()
		toks = append(toks, tk)
		if tk.Kind == EOS {
			break
		}
	}
	return toks, sink
}

func kinds(toks []toyc.Token) []toyc.TokenKind {
	ks := make([]toyc.TokenKind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestIdentifiersAndReservedWords(t *testing.T) {
	toks, sink := scanAll(t, "foo bar123 while classy")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Errors())
	}
	want := []toyc.TokenKind{ID, ID, While, ID, EOS}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v want %v", i, got[i], want[i])
		}
	}
	if toks[3].Lexeme != "classy" {
		t.Errorf("expected 'classy' to lex as a plain id, got %q", toks[3].Lexeme)
	}
}

func TestInvalidLeadingUnderscore(t *testing.T) {
	toks, sink := scanAll(t, "_bogus+more ok")
	if !sink.HasErrors() {
		t.Fatal("expected a lexical error for a leading underscore")
	}
	if toks[0].Kind != InvalidID {
		t.Fatalf("got kind %v, want InvalidID", toks[0].Kind)
	}
	if toks[0].Lexeme != "_bogus+more" {
		t.Errorf("got lexeme %q, want greedy consumption up to whitespace", toks[0].Lexeme)
	}
	if toks[1].Kind != ID || toks[1].Lexeme != "ok" {
		t.Errorf("scanning should resume cleanly after the invalid id, got %+v", toks[1])
	}
}

func TestIntegerLiterals(t *testing.T) {
	toks, sink := scanAll(t, "0 42 007")
	if n := len(sink.Errors()); n != 1 {
		t.Fatalf("got %d errors, want exactly one (for '007'): %v", n, sink.Errors())
	}
	if toks[0].Kind != IntNum || toks[0].Lexeme != "0" {
		t.Errorf("got %+v", toks[0])
	}
	if toks[1].Kind != IntNum || toks[1].Lexeme != "42" {
		t.Errorf("got %+v", toks[1])
	}
	// a leading zero followed immediately by more digits is invalid.
	if toks[2].Kind != InvalidNum {
		t.Errorf("got %+v, want InvalidNum for '007'", toks[2])
	}
}

func TestFloatLiterals(t *testing.T) {
	cases := []struct {
		src  string
		kind toyc.TokenKind
	}{
		{"3.14", FloatNum},
		{"3.10", InvalidNum}, // trailing zero in the fractional part
		{"3.0", FloatNum},    // sole fractional digit may be zero
		{"1.5e10", FloatNum},
		{"1.5e-3", FloatNum},
		{"1.5e0", InvalidNum}, // a lone zero exponent is invalid
		{"3.", InvalidNum},    // no fractional digit at all
	}
	for _, c := range cases {
		toks, _ := scanAll(t, c.src)
		if toks[0].Kind != c.kind {
			t.Errorf("%q: got kind %v, want %v", c.src, toks[0].Kind, c.kind)
		}
	}
}

func TestComments(t *testing.T) {
	toks, sink := scanAll(t, "// hello\nfoo /* block\ncomment */ bar")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Errors())
	}
	if toks[0].Kind != InlineCmt {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Kind != ID || toks[1].Lexeme != "foo" {
		t.Fatalf("got %+v", toks[1])
	}
	if toks[1].Line() != 2 {
		t.Errorf("expected 'foo' on line 2, got line %d", toks[1].Line())
	}
	if toks[2].Kind != BlockCmt {
		t.Fatalf("got %+v", toks[2])
	}
	if toks[3].Kind != ID || toks[3].Lexeme != "bar" {
		t.Fatalf("got %+v", toks[3])
	}
	if toks[3].Line() != 3 {
		t.Errorf("expected 'bar' on line 3 after the embedded newline, got line %d", toks[3].Line())
	}
}

func TestUnterminatedComment(t *testing.T) {
	toks, sink := scanAll(t, "foo /* never closed")
	if !sink.HasErrors() {
		t.Fatal("expected an unterminated-comment error")
	}
	if toks[1].Kind != UnterminatedCmt {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestMultiCharOperators(t *testing.T) {
	toks, sink := scanAll(t, "a==b a<=b a>=b a<>b a=b a::b a:b")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Errors())
	}
	want := []toyc.TokenKind{ID, Eq, ID, ID, Leq, ID, ID, Geq, ID, ID, Neq, ID, ID, Assign, ID, ID, ScopeRes, ID, ID, Colon, ID, EOS}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestSkipCommentsOption(t *testing.T) {
	sink := diag.New()
	l := New(strings.NewReader("foo // skip me\nbar"), sink, SkipComments(true))
	var lexemes []string
	for {
		tk := l.NextToken()
		if tk.Kind == EOS {
			break
		}
		lexemes = append(lexemes, tk.Lexeme)
	}
	if len(lexemes) != 2 || lexemes[0] != "foo" || lexemes[1] != "bar" {
		t.Fatalf("got %v, want [foo bar] with the comment skipped", lexemes)
	}
}
