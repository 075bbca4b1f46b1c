package ast

import (
	"fmt"
	"strings"
)

// Kind tags the syntactic category of a Node, replacing the original
// implementation's one-C++-class-per-node-kind hierarchy.
type Kind int

const (
	Prog Kind = iota
	ClassList
	Class
	InheritList
	MemberList
	MemberVarDecl
	MemberFuncDecl
	FuncDefList
	FuncDef
	FuncBody
	VarDeclList
	VarDecl
	StatList
	IfStat
	While
	Read
	Write
	Return
	Assign
	FuncCall
	AParams
	FParamsList
	FParams
	ScopeRes
	Main
	Var
	DataMember
	IndiceList
	DimList
	Dim
	ArithExpr
	RelExpr
	AddOp
	MultOp
	RelOp
	Not
	Sign
	Type
	Id
	IntNum
	FloatNum
)

var kindNames = [...]string{
	"Prog", "ClassList", "Class", "InheritList", "MemberList",
	"MemberVarDecl", "MemberFuncDecl", "FuncDefList", "FuncDef", "FuncBody",
	"VarDeclList", "VarDecl", "StatList", "IfStat", "While", "Read",
	"Write", "Return", "Assign", "FuncCall", "AParams", "FParamsList",
	"FParams", "ScopeRes", "Main", "Var", "DataMember", "IndiceList",
	"DimList", "Dim", "ArithExpr", "RelExpr", "AddOp", "MultOp", "RelOp",
	"Not", "Sign", "Type", "Id", "IntNum", "FloatNum",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "?"
	}
	return kindNames[k]
}

// KindByName looks up a Kind by its name, case-insensitively, for use by
// the parser's semantic-action dispatch (action names such as "end_class"
// name the Kind "Class" to build). Returns false if name matches no Kind.
func KindByName(name string) (Kind, bool) {
	for i, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(i), true
		}
	}
	return 0, false
}

// sentinel register name meaning "no runtime index offset applies to this
// node's address", per the distilled spec's data model.
const NoOffsetRegister = "r0"

// TypeErrorLabel is the sentinel inferred-type string used before the sum-type
// Type introduced by package sema is formatted for a diagnostic.
const TypeErrorLabel = "typeerror"

// Entry is the minimal view of a sema.SymTabEntry that ast needs to hold a
// back-reference without importing package sema (which itself imports ast
// for the node tree it operates over). Package sema's entry types satisfy
// this interface.
type Entry interface {
	EntryName() string
}

// SymbolTable is the minimal view of a sema.SymbolTable that ast needs.
// Package sema's SymbolTable type satisfies this interface.
type SymbolTable interface {
	ScopeName() string
}

// Node is a single AST node. Every syntactic category is represented by
// this one struct tagged with a Kind; passes dispatch on Kind rather than
// on virtual-method overloads, matching the teacher's "no class hierarchy,
// one visitor function per pass" style (see package ast's doc comment).
type Node struct {
	Kind     Kind
	Lexeme   string // leaf nodes only
	Line     int
	Children []*Node

	// Populated by SymTabVisitor (package sema); see the field-ownership
	// table in the distilled spec's concurrency section.
	Symtab      SymbolTable
	SymtabEntry Entry

	// ResultEntry is populated by MemSizeVisitor (package codegen) for a
	// FuncCall node only: the synthesized temp entry holding the call's
	// return value. FuncCall is the one node kind where SymtabEntry (the
	// called function's own declaration entry, set by TypeCheckVisitor) and
	// the synthesized storage slot MemSizeVisitor allocates for every
	// expression node are two distinct things, so they need two fields;
	// every other synthesizing node kind (AddOp, MultOp, RelOp, RelExpr,
	// Not, IntNum, FloatNum) has no TypeCheckVisitor-assigned SymtabEntry of
	// its own and keeps using SymtabEntry for its temp/literal entry.
	ResultEntry Entry

	// Populated by TypeCheckVisitor (package sema). Kept as a string here
	// (rather than sema.Type) so that package ast has no import-cycle
	// dependency on package sema; sema assigns the formatted string to this
	// field directly, and codegen.MemSizeVisitor parses it back into a
	// sema.Type (typeFromString) when it needs the structured form.
	Type string

	// Populated by CodeGenVisitor (package codegen).
	Register string // NoOffsetRegister ("r0") until set otherwise

	// Extra fields used by exactly one Kind each, per the distilled spec's
	// data model ("Certain variants carry one extra field").
	SortedClasses []string // Prog only: topologically sorted class names
	ReceiverClass string   // DataMember, FuncCall only: empty for free calls
	MemLoc        int      // Var only: a memory-location integer, unused by this core
}

// New creates a bare node of the given kind with no children.
func New(kind Kind) *Node {
	return &Node{Kind: kind, Register: NoOffsetRegister}
}

// NewLeaf creates a leaf node carrying a lexeme and source line, as
// produced by the parser's "push" semantic action.
func NewLeaf(kind Kind, lexeme string, line int) *Node {
	n := New(kind)
	n.Lexeme = lexeme
	n.Line = line
	return n
}

// NewWithChildren creates a node of the given kind adopting children in
// order, as produced by the parser's "end_<kind>" semantic action.
func NewWithChildren(kind Kind, line int, children ...*Node) *Node {
	n := New(kind)
	n.Line = line
	n.Children = children
	return n
}

// AddChild appends a rightmost child and returns the receiver, for
// incremental construction.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// Child returns the i-th child, or nil if out of range -- helper for
// passes that index fixed syntactic positions (e.g. an IfStat's condition
// is always Children[0]).
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// LastChild returns the final child, or nil if n has none.
func (n *Node) LastChild() *Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

// IsTypeError reports whether the node's inferred type is the sentinel
// used to avoid cascading duplicate diagnostics.
func (n *Node) IsTypeError() bool {
	return n.Type == TypeErrorLabel
}

// HasOffsetRegister reports whether a non-sentinel index-offset register
// has been assigned to this node by CodeGenVisitor.
func (n *Node) HasOffsetRegister() bool {
	return n.Register != "" && n.Register != NoOffsetRegister
}

// String renders a single-line debug form: "Kind(lexeme)@line".
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Lexeme != "" {
		return fmt.Sprintf("%s(%q)@%d", n.Kind, n.Lexeme, n.Line)
	}
	return fmt.Sprintf("%s@%d", n.Kind, n.Line)
}

// Dump renders the subtree rooted at n as indented text, the Go-native
// substitute for the original implementation's Graphviz dot dump (itself
// explicitly out of scope; Dump exists only to make test failures and ad
// hoc debugging legible).
func (n *Node) Dump() string {
	var b strings.Builder
	n.dump(&b, 0)
	return b.String()
}

func (n *Node) dump(b *strings.Builder, depth int) {
	if n == nil {
		return
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.String())
	if n.Type != "" {
		fmt.Fprintf(b, " : %s", n.Type)
	}
	b.WriteByte('\n')
	for _, c := range n.Children {
		c.dump(b, depth+1)
	}
}

// Walk visits n and every descendant in pre-order, calling visit on each.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children {
		Walk(c, visit)
	}
}
