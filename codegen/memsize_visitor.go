package codegen

import (
	"strconv"
	"strings"

	"github.com/npillmayer/toyc/ast"
	"github.com/npillmayer/toyc/diag"
	"github.com/npillmayer/toyc/sema"
)

// MemSizeVisitor is AST pass 3: it assigns every symbol-table entry a size
// and, for class/function/main scopes, a frame-relative offset, per
// distilled spec 4.7. It also synthesizes the anonymous temporary/literal
// entries that every arithmetic, relational, boolean-not, and call
// expression node needs a storage slot for, and folds Sign nodes into their
// child's lexeme.
type MemSizeVisitor struct {
	sink   *diag.Sink
	global *sema.SymbolTable

	classSizes  map[string]int
	tempCounter int
	litCounter  int
}

// NewMemSizeVisitor creates a visitor. sink is accepted for symmetry with
// the other three pass constructors; this pass raises no diagnostics of its
// own (distilled spec 4.7 defines no error conditions for memory layout).
func NewMemSizeVisitor(sink *diag.Sink) *MemSizeVisitor {
	return &MemSizeVisitor{sink: sink, classSizes: make(map[string]int)}
}

// Run lays out prog, whose symbol tables were already built by SymTabVisitor
// (global) and typed by TypeCheckVisitor.
func (v *MemSizeVisitor) Run(prog *ast.Node, global *sema.SymbolTable) {
	v.global = global
	v.computeClassSizes(prog.SortedClasses)
	v.sizeGlobalEntries()

	classList := prog.Child(0)
	for _, classNode := range classList.Children {
		v.layoutClassScope(classNode)
	}
	funcDefList := prog.Child(1)
	for _, fd := range funcDefList.Children {
		v.layoutFunctionScope(fd)
	}
	v.layoutMainScope(prog.Child(2))
}

// ClassSize returns the computed size of className, for CodeGenVisitor's
// call-convention and label-stride arithmetic.
func (v *MemSizeVisitor) ClassSize(className string) int { return v.classSizes[className] }

// computeClassSizes sums each class's member sizes in base-before-derived
// order, so a member whose type is another class already has a final size
// by the time it is needed.
func (v *MemSizeVisitor) computeClassSizes(sorted []string) {
	for _, name := range sorted {
		e, ok := v.global.Lookup(sema.ClassEntry, name)
		if !ok {
			continue
		}
		total := 0
		for _, me := range e.Link.Entries() {
			if me.Kind != sema.MemberVarEntry {
				continue
			}
			total += v.sizeOfEntry(me)
		}
		v.classSizes[name] = total
	}
}

// sizeOfEntry multiplies the element type's size by every positive declared
// dimension, treating an unsized (formal-parameter array) dimension as a
// factor of one, per distilled spec 4.7.
func (v *MemSizeVisitor) sizeOfEntry(e *sema.Entry) int {
	elemSize := sema.ElementSize(e.Type, v.ClassSize)
	return elemSize * dimsFactor(e.Dims)
}

func dimsFactor(dims []int) int {
	factor := 1
	for _, d := range dims {
		if d > 0 {
			factor *= d
		}
	}
	return factor
}

// sizeGlobalEntries sizes every global-scope variable entry for
// completeness but assigns no offset: globals are addressed by generated
// label, not frame-relative offset (no activation record exists for them).
func (v *MemSizeVisitor) sizeGlobalEntries() {
	for _, e := range v.global.Entries() {
		if e.Kind == sema.MemberVarEntry || e.Kind == sema.LocalVarEntry {
			e.Size = v.sizeOfEntry(e)
		}
	}
}

func (v *MemSizeVisitor) assignOffset(scope *sema.SymbolTable, e *sema.Entry) {
	e.Size = v.sizeOfEntry(e)
	e.Offset = scope.ScopeSize - e.Size
	scope.ScopeSize -= e.Size
}

// layoutClassScope assigns offsets to a class's own (and, by the time this
// pass runs, already-copied-in inherited) member variables.
func (v *MemSizeVisitor) layoutClassScope(classNode *ast.Node) {
	name := classNode.Child(0).Lexeme
	e, ok := v.global.Lookup(sema.ClassEntry, name)
	if !ok {
		return
	}
	scope := e.Link
	scope.ScopeSize = 0
	for _, me := range scope.Entries() {
		if me.Kind != sema.MemberVarEntry {
			continue
		}
		v.assignOffset(scope, me)
	}
}

// layoutFunctionScope reserves the return-value and return-address slots at
// the bottom of the frame, synthesizes every expression temp/literal in the
// body, then assigns offsets to formal parameters, locals, and the newly
// synthesized entries in insertion order.
func (v *MemSizeVisitor) layoutFunctionScope(fd *ast.Node) {
	funcScope, ok := fd.Symtab.(*sema.SymbolTable)
	if !ok || funcScope == nil {
		return
	}
	retType := VoidT()
	if entry := v.findFuncEntry(funcScope); entry != nil {
		retType = entry.Type
	}
	retSize := sema.ElementSize(retType, v.ClassSize)
	funcScope.ReturnSize = retSize
	funcScope.ReturnOffset = 0
	funcScope.LinkOffset = -retSize
	funcScope.ScopeSize = -(retSize + 4)

	body := fd.Child(3)
	v.synthesize(body, funcScope)

	for _, e := range funcScope.Entries() {
		if e.Kind != sema.LocalVarEntry {
			continue
		}
		v.assignOffset(funcScope, e)
	}
}

// layoutMainScope lays out "main" like any other scope but without the
// function reservation: main never returns to a caller frame (distilled
// spec 4.8's prelude for main ends in hlt, not a link-register return), so
// it gets no return-value or return-address slot.
func (v *MemSizeVisitor) layoutMainScope(mainNode *ast.Node) {
	mainScope, ok := mainNode.Symtab.(*sema.SymbolTable)
	if !ok || mainScope == nil {
		return
	}
	mainScope.ScopeSize = 0
	v.synthesize(mainNode.Child(1), mainScope)
	for _, e := range mainScope.Entries() {
		if e.Kind != sema.LocalVarEntry {
			continue
		}
		v.assignOffset(mainScope, e)
	}
}

// FuncEntry exposes findFuncEntry to CodeGenVisitor, which needs the same
// scope-to-declaring-entry lookup to recover a function's class, name, and
// formal parameter types for label construction and call-site codegen.
func (v *MemSizeVisitor) FuncEntry(funcScope *sema.SymbolTable) *sema.Entry {
	return v.findFuncEntry(funcScope)
}

// findFuncEntry locates the symbol-table entry owning funcScope as its body
// scope, searching global free functions first, then every class's member
// functions (a member function's definition is relinked onto its
// declaration entry by SymTabVisitor's post-pass, so by this point a
// member's entry -- not a global stand-in -- is the one with Link ==
// funcScope).
func (v *MemSizeVisitor) findFuncEntry(funcScope *sema.SymbolTable) *sema.Entry {
	for _, e := range v.global.Entries() {
		if e.Kind == sema.FreeFuncEntry && e.Link == funcScope {
			return e
		}
	}
	for _, e := range v.global.Entries() {
		if e.Kind != sema.ClassEntry || e.Link == nil {
			continue
		}
		for _, me := range e.Link.Entries() {
			if me.Kind == sema.MemberFuncEntry && me.Link == funcScope {
				return me
			}
		}
	}
	return nil
}

// synthesize walks an expression/statement subtree, folding Sign nodes into
// their child's lexeme and, in post-order, synthesizing a fresh temp/lit
// entry into scope for every AddOp, MultOp, RelOp (RelExpr), Not, FuncCall,
// IntNum, and FloatNum node -- distilled spec 4.7's side effect.
func (v *MemSizeVisitor) synthesize(node *ast.Node, scope *sema.SymbolTable) {
	if node == nil {
		return
	}
	if node.Kind == ast.Sign {
		child := node.Child(0)
		if child != nil {
			child.Lexeme = node.Lexeme + child.Lexeme
		}
		v.synthesize(child, scope)
		return
	}
	for _, c := range node.Children {
		v.synthesize(c, scope)
	}
	switch node.Kind {
	case ast.AddOp, ast.MultOp, ast.RelOp, ast.RelExpr, ast.Not, ast.FuncCall:
		v.synthTemp(node, scope)
	case ast.IntNum, ast.FloatNum:
		v.synthLit(node, scope)
	}
}

func (v *MemSizeVisitor) synthTemp(node *ast.Node, scope *sema.SymbolTable) {
	v.tempCounter++
	entry := &sema.Entry{
		Kind: sema.LocalVarEntry,
		Name: tempName(v.tempCounter),
		Line: node.Line,
		Type: v.exprType(node),
	}
	scope.Insert(entry)
	if node.Kind == ast.FuncCall {
		// FuncCall's SymtabEntry already holds the called function's own
		// declaration entry (set by TypeCheckVisitor); the synthesized
		// return-value slot goes in ResultEntry instead, see ast.Node's
		// field doc.
		node.ResultEntry = entry
		return
	}
	node.SymtabEntry = entry
}

func (v *MemSizeVisitor) synthLit(node *ast.Node, scope *sema.SymbolTable) {
	v.litCounter++
	entry := &sema.Entry{
		Kind: sema.LocalVarEntry,
		Name: litName(v.litCounter),
		Line: node.Line,
		Type: v.exprType(node),
	}
	scope.Insert(entry)
	node.SymtabEntry = entry
}

func tempName(n int) string { return "temp" + strconv.Itoa(n) }
func litName(n int) string  { return "lit" + strconv.Itoa(n) }

// exprType recovers the sema.Type of an already-type-checked expression
// node. A FuncCall's own SymtabEntry (set by TypeCheckVisitor to the called
// function's entry) carries the exact structured return type; every other
// synthesizing node kind only ever carries a scalar type, recovered by
// parsing Node.Type's formatted string.
func (v *MemSizeVisitor) exprType(node *ast.Node) sema.Type {
	if node.Kind == ast.FuncCall {
		if e, ok := node.SymtabEntry.(*sema.Entry); ok {
			return e.Type
		}
	}
	return typeFromString(node.Type)
}

// typeFromString is the narrow inverse of sema.Type.String(), used only to
// recover the type of a synthesized temp/literal entry from the string form
// TypeCheckVisitor already stamped onto the node.
func typeFromString(s string) sema.Type {
	switch s {
	case "integer":
		return sema.IntegerT
	case "float":
		return sema.FloatT
	case "void":
		return sema.VoidT
	case "", "typeerror":
		return sema.ErrorT
	}
	base, dims := s, 0
	for strings.HasSuffix(base, "[]") {
		base = strings.TrimSuffix(base, "[]")
		dims++
	}
	var elem sema.Type
	switch base {
	case "integer":
		elem = sema.IntegerT
	case "float":
		elem = sema.FloatT
	default:
		elem = sema.Class(base)
	}
	if dims == 0 {
		return elem
	}
	return sema.Array(elem, make([]int, dims))
}

// VoidT is the zero-sized default return type layoutFunctionScope uses when
// no declaration entry is found for a function scope.
func VoidT() sema.Type { return sema.VoidT }
