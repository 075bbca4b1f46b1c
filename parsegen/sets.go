package parsegen

import (
	"github.com/cnf/structhash"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"

	"github.com/npillmayer/toyc/grammar"
)

func symbolComparator(a, b interface{}) int {
	return utils.StringComparator(a.(grammar.Symbol).String(), b.(grammar.Symbol).String())
}

func newSymbolSet(syms ...grammar.Symbol) *treeset.Set {
	s := treeset.NewWith(symbolComparator)
	for _, sym := range syms {
		s.Add(sym)
	}
	return s
}

func setToSlice(s *treeset.Set) []grammar.Symbol {
	if s == nil {
		return nil
	}
	vals := s.Values()
	out := make([]grammar.Symbol, len(vals))
	for i, v := range vals {
		out[i] = v.(grammar.Symbol)
	}
	return out
}

// rhsKey builds a stable memoization key for a right-hand side. []Symbol is
// never a valid Go map key (slices aren't comparable), so the sequence is
// first flattened to its textual symbols and then digested with
// structhash, mirroring the role std::map<Rhs, Set> played in the original
// (where Rhs, being a std::vector, was directly usable as an ordered map
// key).
func rhsKey(rhs grammar.Rhs) string {
	strs := make([]string, len(rhs))
	for i, s := range rhs {
		strs[i] = s.String()
	}
	h, err := structhash.Hash(strs, 1)
	if err != nil {
		// strs is a []string; structhash cannot fail hashing one.
		panic(err)
	}
	return h
}

func indexOfSymbol(rhs grammar.Rhs, symb grammar.Symbol) int {
	for i, s := range rhs {
		if s == symb {
			return i
		}
	}
	return -1
}

// Generator computes FIRST/FOLLOW sets for a grammar and, from them, its
// LL(1) parse table -- the Go counterpart of ParserGenerator.
type Generator struct {
	g *grammar.Grammar

	first      map[grammar.Symbol]*treeset.Set
	firstOfRhs map[string]*treeset.Set
	follow     map[grammar.Symbol]*treeset.Set
	depGraph   map[grammar.Symbol][]grammar.Symbol

	Table *Table
}

// NewGenerator computes FIRST/FOLLOW sets and the LL(1) table for g.
func NewGenerator(g *grammar.Grammar) *Generator {
	gen := &Generator{
		g:          g,
		first:      make(map[grammar.Symbol]*treeset.Set),
		firstOfRhs: make(map[string]*treeset.Set),
		follow:     make(map[grammar.Symbol]*treeset.Set),
		depGraph:   make(map[grammar.Symbol][]grammar.Symbol),
		Table:      NewTable(),
	}
	gen.calculateSets()
	gen.constructTable()
	T().Debugf("parse table built with %d entries", gen.Table.Size())
	return gen
}

// FirstSet returns FIRST(symb).
func (gen *Generator) FirstSet(symb grammar.Symbol) []grammar.Symbol {
	return setToSlice(gen.firstSetOf(symb))
}

// FollowSet returns FOLLOW(symb).
func (gen *Generator) FollowSet(symb grammar.Symbol) []grammar.Symbol {
	return setToSlice(gen.follow[symb])
}

func (gen *Generator) calculateSets() {
	for _, lhs := range gen.g.Symbols() {
		gen.firstSetOf(lhs)
		gen.followSetOf(lhs)
	}
	for _, lhs := range gen.g.Symbols() {
		gen.resolveDependencies(lhs)
	}
}

func (gen *Generator) firstSetOf(symb grammar.Symbol) *treeset.Set {
	if s, ok := gen.first[symb]; ok {
		return s
	}
	if symb.IsTerm() {
		s := newSymbolSet(symb)
		gen.first[symb] = s
		return s
	}
	result := treeset.NewWith(symbolComparator)
	for _, prod := range gen.g.GetProductionsForSymbol(symb) {
		result.Add(interfaceSlice(gen.firstSetOfRhs(prod.RHS))...)
	}
	gen.first[symb] = result
	return result
}

func interfaceSlice(s *treeset.Set) []interface{} {
	return s.Values()
}

// firstSetOfRhs computes FIRST(X1 X2 ... Xk) for a right-hand side,
// skipping action symbols and propagating epsilon across a leading run of
// nullable symbols, the way FirstSetOfRhs does. The "did we reach the last
// real symbol" check is computed against the last non-action position,
// since a production may carry a trailing semantic action after its final
// grammar symbol.
func (gen *Generator) firstSetOfRhs(rhs grammar.Rhs) *treeset.Set {
	key := rhsKey(rhs)
	if s, ok := gen.firstOfRhs[key]; ok {
		return s
	}
	lastReal := -1
	for i, symb := range rhs {
		if symb.Kind() != grammar.Action {
			lastReal = i
		}
	}
	result := treeset.NewWith(symbolComparator)
	for i, symb := range rhs {
		if symb.Kind() == grammar.Action {
			continue
		}
		if symb.Kind() == grammar.Epsilon {
			result.Add(symb)
			break
		}
		firstOfCur := gen.firstSetOf(symb)
		hasEpsilon := firstOfCur.Contains(grammar.EpsilonSymbol)
		for _, v := range firstOfCur.Values() {
			if v.(grammar.Symbol) != grammar.EpsilonSymbol {
				result.Add(v)
			}
		}
		if !hasEpsilon {
			break
		}
		if i == lastReal {
			result.Add(grammar.EpsilonSymbol)
		}
	}
	gen.firstOfRhs[key] = result
	return result
}

// followSetOf computes FOLLOW(symb). Dependencies of the form "FOLLOW(A)
// includes FOLLOW(B)" (arising when symb is the last symbol of some
// production B -> ...symb) are recorded in depGraph rather than resolved
// immediately, and merged in by resolveDependencies once every symbol's
// direct contribution has been computed.
func (gen *Generator) followSetOf(symb grammar.Symbol) *treeset.Set {
	if s, ok := gen.follow[symb]; ok {
		return s
	}
	result := treeset.NewWith(symbolComparator)
	gen.follow[symb] = result
	if symb.Kind() == grammar.Start {
		result.Add(grammar.EndSymbol)
		return result
	}
	for _, prod := range gen.g.GetProductionsWithSymbol(symb) {
		rhs := prod.RHS
		idx := indexOfSymbol(rhs, symb)
		for idx >= 0 {
			followPart := rhs[idx+1:]
			for len(followPart) > 0 {
				next := followPart[0]
				firstOfNext := gen.firstSetOf(next)
				hasEpsilon := firstOfNext.Contains(grammar.EpsilonSymbol)
				for _, v := range firstOfNext.Values() {
					if v.(grammar.Symbol) != grammar.EpsilonSymbol {
						result.Add(v)
					}
				}
				if !hasEpsilon {
					break
				}
				followPart = followPart[1:]
			}
			if len(followPart) == 0 {
				gen.depGraph[symb] = append(gen.depGraph[symb], prod.LHS)
			}
			rhs = followPart
			idx = indexOfSymbol(rhs, symb)
		}
	}
	return result
}

// resolveDependencies propagates FOLLOW sets across depGraph with a
// breadth-first search, the second pass of CalculateSets.
func (gen *Generator) resolveDependencies(symb grammar.Symbol) {
	visited := map[grammar.Symbol]bool{symb: true}
	queue := []grammar.Symbol{symb}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, neighbor := range gen.depGraph[cur] {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			queue = append(queue, neighbor)
			if nf, ok := gen.follow[neighbor]; ok {
				gen.follow[symb].Add(nf.Values()...)
			}
		}
	}
}

// constructTable fills one table cell per (non-terminal, lookahead
// terminal) pair, from FIRST(rhs) and, when rhs is nullable, FOLLOW(lhs).
func (gen *Generator) constructTable() {
	for _, prod := range gen.g.AllRawProductions() {
		rhsNoActions := grammar.StripActions(prod.RHS)
		firstRhs := gen.firstSetOfRhs(rhsNoActions)
		for _, v := range firstRhs.Values() {
			terminal := v.(grammar.Symbol)
			if terminal.Kind() != grammar.Epsilon {
				gen.Table.Set(prod.LHS, terminal, grammar.RawProduction{LHS: prod.LHS, RHS: prod.RHS})
			}
		}
		if firstRhs.Contains(grammar.EpsilonSymbol) {
			for _, v := range gen.followSetOf(prod.LHS).Values() {
				terminal := v.(grammar.Symbol)
				if terminal.Kind() != grammar.Epsilon {
					gen.Table.Set(prod.LHS, terminal, grammar.RawProduction{LHS: prod.LHS, RHS: prod.RHS})
				}
			}
		}
	}
}
