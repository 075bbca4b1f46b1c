package sema

import (
	"github.com/emirpasic/gods/lists/arraylist"

	"github.com/npillmayer/toyc/ast"
)

// EntryKind discriminates the six symbol-table entry kinds of the
// distilled spec's data model.
type EntryKind int

const (
	LocalVarEntry EntryKind = iota
	MemberVarEntry
	FreeFuncEntry
	MemberFuncEntry
	ClassEntry
	InheritEntry
)

func (k EntryKind) String() string {
	switch k {
	case LocalVarEntry:
		return "local"
	case MemberVarEntry:
		return "memberVar"
	case FreeFuncEntry:
		return "function"
	case MemberFuncEntry:
		return "memberFunction"
	case ClassEntry:
		return "class"
	case InheritEntry:
		return "inherit"
	}
	return "?"
}

// Visibility is the member access specifier.
type Visibility int

const (
	Public Visibility = iota
	Private
)

// Param is one formal parameter of a function entry: a (name, type) pair.
type Param struct {
	Name string
	Type Type
}

// Entry is a symbol-table entry. Not every field is meaningful for every
// Kind -- see the distilled spec's data model (section 3) for which fields
// belong to which kind. Size and Offset are populated only by
// codegen.MemSizeVisitor; every other field is populated by SymTabVisitor,
// except on the temp/literal entries that codegen synthesizes itself.
type Entry struct {
	Kind EntryKind
	Name string
	Line int

	Type Type // local/member variable; free/member function: return type

	Link *SymbolTable // class: class scope; function (free or member): body scope

	Dims []int // local/member variable: declared array dimensions

	ClassName  string     // member variable/member function: enclosing class
	Visibility Visibility // member variable/member function

	Params    []Param // free/member function, ordered
	ScopeRes  string  // free function: class name of an out-of-class def, else ""
	Signature string  // precomputed function signature

	Parents []string // inherit entry: ordered parent class names

	Size   int // bytes; codegen.MemSizeVisitor
	Offset int // bytes, negative from the frame base; codegen.MemSizeVisitor
}

// EntryName satisfies ast.Entry, so *Entry can be stored in ast.Node.SymtabEntry.
func (e *Entry) EntryName() string { return e.Name }

// key is the (entryKind, entryId) composite the distilled spec's data
// model uses: entryId is the name for variables/classes, the signature for
// functions, and the fixed string "inherit" for the inherit entry.
type key struct {
	kind EntryKind
	id   string
}

func keyFor(e *Entry) key {
	switch e.Kind {
	case FreeFuncEntry, MemberFuncEntry:
		return key{kind: e.Kind, id: e.Signature}
	case InheritEntry:
		return key{kind: InheritEntry, id: "inherit"}
	default:
		return key{kind: e.Kind, id: e.Name}
	}
}

// SymbolTable is a single nested scope: {name, level, parent, scope_size,
// entries}. Entries are held both in a map (for (kind,id) lookup) and in
// an insertion-ordered list (gods/arraylist, since entry insertion order is
// semantically load-bearing for MemSize's offset assignment -- a plain Go
// map has no deterministic iteration order).
type SymbolTable struct {
	Name      string
	Level     int
	Parent    *SymbolTable
	ScopeSize int

	// Function scopes only (main gets neither slot): the two reserved slots below the frame
	// base that every explicit entry's offset is computed beneath.
	// Populated by codegen.MemSizeVisitor, per distilled spec 4.7.
	ReturnSize   int
	ReturnOffset int
	LinkOffset   int

	byKey    map[key]*Entry
	order    *arraylist.List
	overload map[string]bool // "class::name" strings seen, for overload detection
}

// NewSymbolTable creates a scope named name, nested under parent (nil for
// the global scope).
func NewSymbolTable(name string, parent *SymbolTable) *SymbolTable {
	level := 0
	if parent != nil {
		level = parent.Level + 1
	}
	return &SymbolTable{
		Name:     name,
		Level:    level,
		Parent:   parent,
		byKey:    make(map[key]*Entry),
		order:    arraylist.New(),
		overload: make(map[string]bool),
	}
}

// ScopeName satisfies ast.SymbolTable, so *SymbolTable can be stored in
// ast.Node.Symtab.
func (s *SymbolTable) ScopeName() string { return s.Name }

// Insert adds e to the scope. If an entry with the same (kind, id) already
// exists, it is left in place and (existing, true) is returned so the
// caller (SymTabVisitor) can decide whether the collision is an error or a
// shadow/overload warning.
func (s *SymbolTable) Insert(e *Entry) (existing *Entry, collided bool) {
	k := keyFor(e)
	if prev, ok := s.byKey[k]; ok {
		return prev, true
	}
	s.byKey[k] = e
	s.order.Add(e)
	return nil, false
}

// Replace overwrites whatever entry currently occupies e's (kind, id) slot,
// keeping that slot's insertion position, or appends e if the slot is empty.
func (s *SymbolTable) Replace(e *Entry) {
	k := keyFor(e)
	if _, existed := s.byKey[k]; !existed {
		s.order.Add(e)
	} else {
		// keep insertion position: find and overwrite in place.
		s.order.Each(func(i int, v interface{}) {
			if v.(*Entry) == s.byKey[k] {
				s.order.Set(i, e)
			}
		})
	}
	s.byKey[k] = e
}

// Remove deletes the entry stored under e's (kind, id) slot, if it is still
// e (used by the post-pass step that removes out-of-class free-function
// stand-ins from the global scope once they are relinked).
func (s *SymbolTable) Remove(e *Entry) {
	k := keyFor(e)
	if s.byKey[k] != e {
		return
	}
	delete(s.byKey, k)
	idx := -1
	s.order.Each(func(i int, v interface{}) {
		if v.(*Entry) == e {
			idx = i
		}
	})
	if idx >= 0 {
		s.order.Remove(idx)
	}
}

// Lookup finds an entry by (kind, id) in this scope only.
func (s *SymbolTable) Lookup(kind EntryKind, id string) (*Entry, bool) {
	e, ok := s.byKey[key{kind: kind, id: id}]
	return e, ok
}

// LookupVar finds a local or member variable named name in this scope only
// (the two kinds share a namespace for lookup purposes, as a Var chain does
// not statically know which kind it will resolve to before consulting the
// scope).
func (s *SymbolTable) LookupVar(name string) (*Entry, bool) {
	if e, ok := s.Lookup(LocalVarEntry, name); ok {
		return e, true
	}
	return s.Lookup(MemberVarEntry, name)
}

// LookupChain walks from this scope up through Parent until name resolves
// as a variable, or returns false.
func (s *SymbolTable) LookupChain(name string) (*Entry, *SymbolTable, bool) {
	for t := s; t != nil; t = t.Parent {
		if e, ok := t.LookupVar(name); ok {
			return e, t, true
		}
	}
	return nil, nil, false
}

// Entries returns every entry in insertion order.
func (s *SymbolTable) Entries() []*Entry {
	vals := s.order.Values()
	out := make([]*Entry, len(vals))
	for i, v := range vals {
		out[i] = v.(*Entry)
	}
	return out
}

// CheckOverload records that scope::name was declared, returning true if
// this is the first declaration (no warning due) and false if a prior
// declaration with a different signature already exists (an overload,
// warned about by the caller) -- see distilled spec 4.5's duplicate rules
// and the resolved Open Question in SPEC_FULL 4.5 (a function's very first
// declaration never itself produces an overload warning).
func (s *SymbolTable) CheckOverload(scope, name string) (firstDeclaration bool) {
	k := scope + "::" + name
	if s.overload[k] {
		return false
	}
	s.overload[k] = true
	return true
}

var _ ast.SymbolTable = (*SymbolTable)(nil)
var _ ast.Entry = (*Entry)(nil)
