package parser

import (
	"fmt"
	"strings"

	"github.com/npillmayer/toyc"
	"github.com/npillmayer/toyc/ast"
	"github.com/npillmayer/toyc/diag"
	"github.com/npillmayer/toyc/grammar"
	"github.com/npillmayer/toyc/lexer"
	"github.com/npillmayer/toyc/parsegen"
)

// Parser is a table-driven LL(1) parser: a symbol stack drives the
// derivation, a semantic stack (with nil "start" markers) accumulates
// *ast.Node values that the embedded semantic actions assemble into the
// final tree. Both stacks, and the "previously matched token", are
// parse-local state living for exactly one Parse call -- see the
// distilled spec's concurrency section.
type Parser struct {
	lx   tokenSource
	g    *grammar.Grammar
	tbl  *parsegen.Table
	sink *diag.Sink

	symStack []grammar.Symbol
	semStack []*ast.Node // nil entries mark the start of a siblings run

	lookahead toyc.Token
	previous  toyc.Token
}

// tokenSource is the subset of *lexer.Lexer the parser needs, so tests can
// drive the driver with a canned token sequence without a real source file.
// NextToken must never fail and must return an EOS token forever once the
// underlying stream is exhausted, matching lexer.Lexer's contract.
type tokenSource interface {
	NextToken() toyc.Token
}

// Parse drives tbl over the tokens produced by lx, starting from
// grammar.StartSymbol, and returns the synthesized AST root --
// the unique non-nil node remaining on the semantic stack once the symbol
// stack is exhausted down to the end marker.
func Parse(lx tokenSource, g *grammar.Grammar, tbl *parsegen.Table, sink *diag.Sink) *ast.Node {
	return ParseFrom(lx, g, tbl, sink, grammar.StartSymbol)
}

// ParseFrom is Parse with an explicit start symbol, used by tests that
// exercise the driver over a grammar fragment rather than the full
// language grammar.
func ParseFrom(lx tokenSource, g *grammar.Grammar, tbl *parsegen.Table, sink *diag.Sink, start grammar.Symbol) *ast.Node {
	p := &Parser{lx: lx, g: g, tbl: tbl, sink: sink}
	p.symStack = []grammar.Symbol{grammar.EndSymbol, start}
	p.advance()
	p.run()
	if len(p.semStack) == 0 {
		return nil
	}
	return p.semStack[len(p.semStack)-1]
}

// advance reads the next grammar-significant token into p.lookahead,
// skipping comment tokens -- they carry no grammar meaning (distilled spec
// 4.4, step 1 of the main loop).
func (p *Parser) advance() {
	for {
		tk := p.lx.NextToken()
		if lexer.IsComment(tk) {
			continue
		}
		p.lookahead = tk
		return
	}
}

func (p *Parser) topSymbol() grammar.Symbol {
	return p.symStack[len(p.symStack)-1]
}

func (p *Parser) popSymbol() grammar.Symbol {
	s := p.topSymbol()
	p.symStack = p.symStack[:len(p.symStack)-1]
	return s
}

func (p *Parser) pushSymbols(rhs grammar.Rhs) {
	for i := len(rhs) - 1; i >= 0; i-- {
		if rhs[i].Kind() == grammar.Epsilon {
			continue // epsilon symbols are never pushed, per distilled spec 4.4
		}
		p.symStack = append(p.symStack, rhs[i])
	}
}

// run executes the main parser loop until the symbol stack's top is the
// end marker.
func (p *Parser) run() {
	for p.topSymbol() != grammar.EndSymbol {
		top := p.topSymbol()
		switch top.Kind() {
		case grammar.Action:
			p.popSymbol()
			p.execute(top)
		case grammar.Terminal:
			if top.MatchesToken(p.lookahead) {
				p.popSymbol()
				p.previous = p.lookahead
				p.advance()
			} else {
				p.recover(fmt.Sprintf("expected %s but found %s", top, p.lookahead))
			}
		default: // NonTerminal, Start
			lookaheadSym := grammar.SymbolFromToken(p.lookahead)
			prod, ok := p.tbl.Lookup(top, lookaheadSym)
			if !ok {
				p.recover(fmt.Sprintf("no production for %s with lookahead %s", top, p.lookahead))
				continue
			}
			p.popSymbol()
			p.pushSymbols(prod.RHS)
		}
	}
}

// recover implements the distilled spec's "minimal, primitive" error
// recovery: log a syntax error at the current token and pop the symbol
// stack's top to attempt to make progress. Visitor passes remain robust
// because the AST below every surviving node stays well-formed even when
// the tree as a whole is partial.
func (p *Parser) recover(msg string) {
	p.sink.Err(msg, p.lookahead.Line(), diag.Syntax)
	if len(p.symStack) > 1 { // never pop past the end marker
		p.popSymbol()
	} else {
		p.advance()
	}
}

// pushMarker pushes a nil onto the semantic stack, marking the start of a
// siblings run for the next end_<kind>/end_sign/end_scoperes action.
func (p *Parser) pushMarker() {
	p.semStack = append(p.semStack, nil)
}

// collectSiblings pops every node above (and including) the nearest nil
// marker, returning them in original left-to-right order.
func (p *Parser) collectSiblings() []*ast.Node {
	i := len(p.semStack) - 1
	for i >= 0 && p.semStack[i] != nil {
		i--
	}
	// semStack[i] is the marker (or i == -1 if the stack is malformed).
	siblings := make([]*ast.Node, len(p.semStack)-i-1)
	copy(siblings, p.semStack[i+1:])
	if i >= 0 {
		p.semStack = p.semStack[:i]
	} else {
		p.semStack = p.semStack[:0]
	}
	return siblings
}

func (p *Parser) pushNode(n *ast.Node) {
	p.semStack = append(p.semStack, n)
}

// popNode pops the semantic stack's top, or returns nil if the stack is
// empty (possible after error recovery has discarded part of a production).
func (p *Parser) popNode() *ast.Node {
	if len(p.semStack) == 0 {
		return nil
	}
	n := p.semStack[len(p.semStack)-1]
	p.semStack = p.semStack[:len(p.semStack)-1]
	return n
}

// pushHints maps a "push_<hint>" action suffix to the leaf Kind it builds.
var pushHints = map[string]ast.Kind{
	"id":       ast.Id,
	"intnum":   ast.IntNum,
	"floatnum": ast.FloatNum,
	"type":     ast.Type,
	"dim":      ast.Dim,
	"scoperes": ast.ScopeRes,
}

// execute dispatches a single semantic-action symbol to one of the six
// primitives of distilled spec 4.4.
func (p *Parser) execute(action grammar.Symbol) {
	name := action.RawStr()
	switch {
	case name == "start":
		p.pushMarker()
	case name == "end_sign":
		p.actEndSign()
	case name == "end_scoperes":
		p.actEndScopeRes()
	case strings.HasPrefix(name, "end_"):
		p.actEndKind(strings.TrimPrefix(name, "end_"))
	case name == "push_op":
		p.pushNode(ast.NewLeaf(ast.AddOp, p.previous.Lexeme, p.previous.Line()))
	case strings.HasPrefix(name, "push_"):
		p.actPush(strings.TrimPrefix(name, "push_"))
	case strings.HasPrefix(name, "op_"):
		p.actOp(strings.TrimPrefix(name, "op_"))
	default:
		T().Errorf("unrecognized semantic action %q; ignoring", name)
	}
}

func (p *Parser) actPush(hint string) {
	kind, ok := pushHints[hint]
	if !ok {
		T().Errorf("unrecognized push hint %q; defaulting to Id", hint)
		kind = ast.Id
	}
	lexeme := p.previous.Lexeme
	if hint == "dim" && p.previous.Kind != lexer.IntNum {
		lexeme = "" // an empty '[' ']' pair: the formal-parameter array case
	}
	p.pushNode(ast.NewLeaf(kind, lexeme, p.previous.Line()))
}

func (p *Parser) actEndKind(suffix string) {
	kind, ok := ast.KindByName(suffix)
	if !ok {
		T().Errorf("unrecognized end_ kind %q; defaulting to Prog", suffix)
		kind = ast.Prog
	}
	children := p.collectSiblings()
	p.pushNode(ast.NewWithChildren(kind, p.previous.Line(), children...))
}

// actEndSign builds the Sign node described in distilled spec 4.4: the
// sign lexeme comes directly from the previously matched token (no push
// primitive fires for it), and the single child is whatever factor node
// was just built.
func (p *Parser) actEndSign() {
	factor := p.popNode()
	n := ast.NewLeaf(ast.Sign, p.previous.Lexeme, p.previous.Line())
	n.Children = []*ast.Node{factor}
	p.pushNode(n)
}

// actEndScopeRes lifts the class-qualifier node ahead of the method name:
// when a scope-resolution prefix ("id ::") was present, two Id nodes sit
// above the marker in the order they were parsed (method name first, class
// qualifier second, since the optional "::" suffix is parsed after the
// bare name in this grammar's right-recursive func-head production); this
// reverses them into (classId, funcId) order before delegating to the
// generic framing. With no scope-resolution prefix, a single Id node is
// left untouched.
func (p *Parser) actEndScopeRes() {
	siblings := p.collectSiblings()
	if len(siblings) == 2 {
		siblings[0], siblings[1] = siblings[1], siblings[0]
	}
	p.pushNode(ast.NewWithChildren(ast.ScopeRes, p.previous.Line(), siblings...))
}

// opKinds maps an "op_<kind>" action suffix to the operator node Kind it
// builds.
var opKinds = map[string]ast.Kind{
	"addop":  ast.AddOp,
	"multop": ast.MultOp,
	"relop":  ast.RelOp,
}

// actOp implements the "op" primitive: the semantic stack holds, from top
// to bottom, [rhs, operatorLeaf, lhs] (postfix order); pop three, attach
// lhs and rhs as the operator node's children, push the operator.
func (p *Parser) actOp(hint string) {
	kind, ok := opKinds[hint]
	if !ok {
		T().Errorf("unrecognized op hint %q; defaulting to AddOp", hint)
		kind = ast.AddOp
	}
	rhs := p.popNode()
	opLeaf := p.popNode()
	lhs := p.popNode()
	lexeme, line := "", p.previous.Line()
	if opLeaf != nil {
		lexeme, line = opLeaf.Lexeme, opLeaf.Line
	}
	n := ast.NewLeaf(kind, lexeme, line)
	n.Children = []*ast.Node{lhs, rhs}
	p.pushNode(n)
}
