package grammar

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Rhs is the right-hand side of a production.
type Rhs []Symbol

// Production pairs a left-hand side with one of its right-hand sides, with
// semantic-action symbols stripped out -- the shape FIRST/FOLLOW
// computation needs.
type Production struct {
	LHS Symbol
	RHS Rhs
}

// RawProduction is a Production with semantic-action symbols left in place,
// the shape the parse table and the parser driver need: actions are pushed
// onto the symbol stack interleaved with the grammar symbols that surround
// them, so they fire at the right point during the derivation.
type RawProduction struct {
	LHS Symbol
	RHS Rhs
}

// Grammar is a context-free grammar loaded from a production list, one
// production per line, in the form:
//
//	<nonTerm> ::= 'term' <otherNonTerm> !action!
type Grammar struct {
	productions map[Symbol][]Rhs
	order       []Symbol // LHS symbols in first-seen order, for deterministic iteration
}

// Load reads a grammar from r. Each non-blank line must contain the literal
// substring "::=" separating a single left-hand-side symbol from a
// whitespace-separated sequence of right-hand-side symbols.
func Load(r io.Reader) (*Grammar, error) {
	g := &Grammar{productions: make(map[Symbol][]Rhs)}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		const delim = "::="
		idx := strings.Index(line, delim)
		if idx < 0 {
			return nil, fmt.Errorf("grammar line %d: missing %q: %q", lineNo, delim, line)
		}
		lhs := NewSymbol(line[:idx])
		fields := strings.Fields(line[idx+len(delim):])
		rhs := make(Rhs, len(fields))
		for i, f := range fields {
			rhs[i] = NewSymbol(f)
		}
		if _, seen := g.productions[lhs]; !seen {
			g.order = append(g.order, lhs)
		}
		g.productions[lhs] = append(g.productions[lhs], rhs)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	T().Debugf("loaded grammar with %d non-terminals", len(g.order))
	return g, nil
}

// Symbols returns every left-hand-side non-terminal, in first-seen order.
func (g *Grammar) Symbols() []Symbol {
	return g.order
}

// StripActions returns a copy of rhs with semantic-action symbols removed,
// the form FIRST/FOLLOW computation operates on.
func StripActions(rhs Rhs) Rhs {
	out := make(Rhs, 0, len(rhs))
	for _, s := range rhs {
		if s.Kind() != Action {
			out = append(out, s)
		}
	}
	return out
}

// GetProductionsForSymbol returns every production with symb on the
// left-hand side, action symbols stripped from each right-hand side.
func (g *Grammar) GetProductionsForSymbol(symb Symbol) []Production {
	rhss := g.productions[symb]
	out := make([]Production, 0, len(rhss))
	for _, rhs := range rhss {
		out = append(out, Production{LHS: symb, RHS: StripActions(rhs)})
	}
	return out
}

// GetProductionsWithSymbol returns every production (any left-hand side)
// whose right-hand side mentions symb, action symbols stripped.
func (g *Grammar) GetProductionsWithSymbol(symb Symbol) []Production {
	var out []Production
	for _, lhs := range g.order {
		for _, rhs := range g.productions[lhs] {
			for _, s := range rhs {
				if s == symb {
					out = append(out, Production{LHS: lhs, RHS: StripActions(rhs)})
					break
				}
			}
		}
	}
	return out
}

// AllRawProductions returns every production in the grammar with its
// right-hand side unmodified (actions included), for parse-table
// construction.
func (g *Grammar) AllRawProductions() []RawProduction {
	var out []RawProduction
	for _, lhs := range g.order {
		for _, rhs := range g.productions[lhs] {
			cp := make(Rhs, len(rhs))
			copy(cp, rhs)
			out = append(out, RawProduction{LHS: lhs, RHS: cp})
		}
	}
	return out
}

func (g *Grammar) String() string {
	var b strings.Builder
	for _, lhs := range g.order {
		for _, rhs := range g.productions[lhs] {
			fmt.Fprintf(&b, "%s ::= ", lhs)
			for _, s := range rhs {
				fmt.Fprintf(&b, "%s ", s)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
