package parser

import (
	"strings"
	"testing"

	"github.com/npillmayer/toyc"
	"github.com/npillmayer/toyc/ast"
	"github.com/npillmayer/toyc/diag"
	"github.com/npillmayer/toyc/grammar"
	"github.com/npillmayer/toyc/lexer"
	"github.com/npillmayer/toyc/parsegen"
)

// fakeLexer replays a fixed token slice, then repeats its final token
// (assumed to be EOS) forever -- the contract tokenSource requires, and
// the one the real lexer.Lexer satisfies too.
type fakeLexer struct {
	toks []toyc.Token
	i    int
}

func (f *fakeLexer) NextToken() toyc.Token {
	if f.i >= len(f.toks) {
		return f.toks[len(f.toks)-1]
	}
	tk := f.toks[f.i]
	f.i++
	return tk
}

func tok(kind toyc.TokenKind, lexeme string, line int) toyc.Token {
	return toyc.Token{Kind: kind, KindName: lexer.KindName(kind), Lexeme: lexeme, Pos: toyc.Position{Line: line}}
}

func eos() toyc.Token { return tok(lexer.EOS, "$", 1) }

// A tiny grammar: E -> T E'; E' -> '+' T E' | EPSILON; T -> id, with
// actions that build a left-associative AddOp tree out of a flat '+'
// chain via the "push_op"/"op_addop" primitives.
const addChainGrammar = `
<START> ::= <E>
<E> ::= <T> <Eprime>
<Eprime> ::= '+' !push_op! <T> !op_addop! <Eprime>
<Eprime> ::= EPSILON
<T> ::= 'id' !push_id!
`

func buildTable(t *testing.T, src string) (*grammar.Grammar, *parsegen.Table) {
	t.Helper()
	g, err := grammar.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("grammar.Load: %v", err)
	}
	gen := parsegen.NewGenerator(g)
	return g, gen.Table
}

func TestParserBuildsAddOpAST(t *testing.T) {
	g, tbl := buildTable(t, addChainGrammar)
	toks := []toyc.Token{
		tok(lexer.ID, "a", 1),
		tok(lexer.Plus, "+", 1),
		tok(lexer.ID, "b", 1),
		eos(),
	}
	sink := diag.New()
	root := Parse(&fakeLexer{toks: toks}, g, tbl, sink)

	if sink.HasErrors() {
		t.Fatalf("unexpected syntax errors: %v", sink.Errors())
	}
	if root == nil || root.Kind != ast.AddOp {
		t.Fatalf("got %v, want an AddOp root", root)
	}
	if root.Lexeme != "+" {
		t.Fatalf("AddOp lexeme = %q, want \"+\"", root.Lexeme)
	}
	if len(root.Children) != 2 {
		t.Fatalf("AddOp has %d children, want 2", len(root.Children))
	}
	if root.Child(0).Lexeme != "a" || root.Child(1).Lexeme != "b" {
		t.Fatalf("children = (%q, %q), want (a, b)", root.Child(0).Lexeme, root.Child(1).Lexeme)
	}
}

// A grammar exercising "start"/"end_<kind>" sibling collection: a flat list
// of ids collected under a single StatList-kinded node (standing in for
// any list-shaped nonterminal -- the mechanism is identical for all of
// them).
const idListGrammar = `
<START> ::= !start! <IdList> !end_statlist!
<IdList> ::= 'id' !push_id! <IdList>
<IdList> ::= EPSILON
`

func TestParserCollectsSiblingsAboveMarker(t *testing.T) {
	g, tbl := buildTable(t, idListGrammar)
	toks := []toyc.Token{
		tok(lexer.ID, "x", 1),
		tok(lexer.ID, "y", 1),
		tok(lexer.ID, "z", 1),
		eos(),
	}
	sink := diag.New()
	root := Parse(&fakeLexer{toks: toks}, g, tbl, sink)

	if sink.HasErrors() {
		t.Fatalf("unexpected syntax errors: %v", sink.Errors())
	}
	if root == nil || root.Kind != ast.StatList {
		t.Fatalf("got %v, want a StatList root", root)
	}
	want := []string{"x", "y", "z"}
	if len(root.Children) != len(want) {
		t.Fatalf("got %d children, want %d", len(root.Children), len(want))
	}
	for i, w := range want {
		if root.Child(i).Lexeme != w {
			t.Errorf("child %d = %q, want %q (order must be preserved)", i, root.Child(i).Lexeme, w)
		}
	}
}

func TestParserReportsSyntaxErrorAndRecovers(t *testing.T) {
	g, tbl := buildTable(t, addChainGrammar)
	// "a + + b" -- a spurious second '+' where a <T> was expected.
	toks := []toyc.Token{
		tok(lexer.ID, "a", 1),
		tok(lexer.Plus, "+", 1),
		tok(lexer.Plus, "+", 2),
		tok(lexer.ID, "b", 2),
		eos(),
	}
	sink := diag.New()
	_ = Parse(&fakeLexer{toks: toks}, g, tbl, sink)
	if !sink.HasErrors() {
		t.Fatal("expected a syntax error to be recorded")
	}
}
