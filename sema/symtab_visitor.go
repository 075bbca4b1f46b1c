package sema

import (
	"fmt"

	"github.com/npillmayer/toyc/ast"
	"github.com/npillmayer/toyc/diag"
)

// SymTabVisitor is AST pass 1: it builds every nested symbol table,
// resolves inheritance (topological sort with cycle detection), links
// out-of-class member-function definitions to their declarations, and
// copies inherited data members into each class scope. See distilled spec
// 4.5 for the normative algorithm; the exact four-step post-pass order
// (TSort -> CheckUndefinedMemberFunctions -> LinkMemberFunctionDefsToDecl ->
// GetInheritedEntries) is fixed in SPEC_FULL 4.5.
type SymTabVisitor struct {
	sink   *diag.Sink
	global *SymbolTable

	classGraph map[string][]string   // class -> parent class names (edge: derived -> base)
	classNode  map[string]*ast.Node  // class name -> its Class node
	classScope map[string]*SymbolTable
	declOrder  []string // classes in first-declared order, for a stable cycle report
}

// NewSymTabVisitor creates a visitor reporting into sink.
func NewSymTabVisitor(sink *diag.Sink) *SymTabVisitor {
	return &SymTabVisitor{
		sink:       sink,
		classGraph: make(map[string][]string),
		classNode:  make(map[string]*ast.Node),
		classScope: make(map[string]*SymbolTable),
	}
}

// Run executes the pass over prog (an ast.Prog node) and returns the global
// scope it built.
func (v *SymTabVisitor) Run(prog *ast.Node) *SymbolTable {
	if prog.Kind != ast.Prog {
		T().Errorf("SymTabVisitor.Run called on a %s node, not Prog", prog.Kind)
	}
	v.global = NewSymbolTable("global", nil)
	prog.Symtab = v.global
	for _, child := range prog.Children {
		v.visit(child, v.global, "")
	}
	sorted := v.postPass()
	prog.SortedClasses = sorted
	return v.global
}

// visit dispatches on node.Kind; the default behavior (no case matches) is
// a plain depth-first descent with the current scope unchanged, per the
// "shared DFS is the default arm" design note (distilled spec section 9).
func (v *SymTabVisitor) visit(node *ast.Node, scope *SymbolTable, curClass string) {
	if node == nil {
		return
	}
	node.Symtab = scope
	switch node.Kind {
	case ast.Class:
		v.visitClass(node, scope)
		return
	case ast.InheritList:
		v.visitInheritList(node, scope, curClass)
		return
	case ast.MemberVarDecl:
		v.visitMemberVarDecl(node, scope, curClass)
		return
	case ast.MemberFuncDecl:
		v.visitMemberFuncDecl(node, scope, curClass)
		return
	case ast.FuncDef:
		v.visitFuncDef(node, scope)
		return
	case ast.Main:
		v.visitMain(node, scope)
		return
	case ast.VarDecl:
		v.visitVarDecl(node, scope)
		return
	}
	for _, c := range node.Children {
		v.visit(c, scope, curClass)
	}
}

func (v *SymTabVisitor) visitClass(node *ast.Node, global *SymbolTable) {
	name := node.Child(0).Lexeme
	classScope := NewSymbolTable(name, global)
	node.Symtab = classScope
	entry := &Entry{Kind: ClassEntry, Name: name, Line: node.Line, Link: classScope}
	if _, collided := global.Insert(entry); collided {
		v.sink.Err(fmt.Sprintf("class %q redeclared", name), node.Line, diag.Semantic)
	}
	if _, seen := v.classGraph[name]; !seen {
		v.classGraph[name] = nil
		v.declOrder = append(v.declOrder, name)
	}
	v.classNode[name] = node
	v.classScope[name] = classScope
	for _, c := range node.Children[1:] {
		v.visit(c, classScope, name)
	}
}

func (v *SymTabVisitor) visitInheritList(node *ast.Node, classScope *SymbolTable, curClass string) {
	parents := make([]string, 0, len(node.Children))
	for _, c := range node.Children {
		parents = append(parents, c.Lexeme)
	}
	if len(parents) == 0 {
		return
	}
	entry := &Entry{Kind: InheritEntry, Name: "inherit", Line: node.Line, Parents: parents}
	classScope.Insert(entry) // inherit is unique per class scope by construction
	v.classGraph[curClass] = append(v.classGraph[curClass], parents...)
}

func (v *SymTabVisitor) resolveDeclaredType(typeNode *ast.Node) Type {
	switch typeNode.Lexeme {
	case "integer":
		return IntegerT
	case "float":
		return FloatT
	case "void":
		return VoidT
	default:
		return Class(typeNode.Lexeme)
	}
}

func dimsFromDimList(dimList *ast.Node) []int {
	if dimList == nil {
		return nil
	}
	dims := make([]int, len(dimList.Children))
	for i, d := range dimList.Children {
		if d.Lexeme == "" {
			dims[i] = 0
			continue
		}
		n := 0
		fmt.Sscanf(d.Lexeme, "%d", &n)
		dims[i] = n
	}
	return dims
}

func (v *SymTabVisitor) visitMemberVarDecl(node *ast.Node, classScope *SymbolTable, curClass string) {
	idNode, typeNode, dimList := node.Child(0), node.Child(1), node.Child(2)
	typ := v.resolveDeclaredType(typeNode)
	dims := dimsFromDimList(dimList)
	vis := Public
	if node.Lexeme == "private" {
		vis = Private
	}
	entry := &Entry{
		Kind: MemberVarEntry, Name: idNode.Lexeme, Line: node.Line,
		Type: typ, Dims: dims, ClassName: curClass, Visibility: vis,
	}
	if _, collided := classScope.Insert(entry); collided {
		v.sink.Err(fmt.Sprintf("member variable %q redeclared in class %q", idNode.Lexeme, curClass), node.Line, diag.Semantic)
	}
	if typ.Kind == ClassType {
		v.classGraph[curClass] = append(v.classGraph[curClass], typ.ClassName)
	}
	idNode.Symtab = classScope
	typeNode.Symtab = classScope
}

func paramsFromFParamsList(fpl *ast.Node, resolve func(*ast.Node) Type) []Param {
	if fpl == nil {
		return nil
	}
	out := make([]Param, 0, len(fpl.Children))
	for _, fp := range fpl.Children {
		idNode, typeNode := fp.Child(0), fp.Child(1)
		dims := dimsFromDimList(fp.Child(2))
		t := resolve(typeNode)
		if len(dims) > 0 {
			t = Array(t, dims)
		}
		out = append(out, Param{Name: idNode.Lexeme, Type: t})
	}
	return out
}

func (v *SymTabVisitor) visitMemberFuncDecl(node *ast.Node, classScope *SymbolTable, curClass string) {
	idNode, fparams, typeNode := node.Child(0), node.Child(1), node.Child(2)
	retType := v.resolveDeclaredType(typeNode)
	params := paramsFromFParamsList(fparams, v.resolveDeclaredType)
	paramTypes := make([]Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	sig := Signature(curClass, idNode.Lexeme, paramTypes)
	vis := Public
	if node.Lexeme == "private" {
		vis = Private
	}
	entry := &Entry{
		Kind: MemberFuncEntry, Name: idNode.Lexeme, Line: node.Line,
		Type: retType, ClassName: curClass, Visibility: vis,
		Params: params, Signature: sig,
	}
	if _, collided := classScope.Insert(entry); collided {
		v.sink.Err(fmt.Sprintf("member function %q redeclared with identical signature in class %q", sig, curClass), node.Line, diag.Semantic)
	} else if first := classScope.CheckOverload(curClass, idNode.Lexeme); !first {
		v.sink.Warn(fmt.Sprintf("overloaded member function %q in class %q", idNode.Lexeme, curClass), node.Line, diag.SemanticWarning)
	}
}

func (v *SymTabVisitor) visitFuncDef(node *ast.Node, enclosing *SymbolTable) {
	scopeRes, fparams, typeNode, body := node.Child(0), node.Child(1), node.Child(2), node.Child(3)
	funcName := scopeRes.LastChild().Lexeme
	scopeClass := ""
	if len(scopeRes.Children) == 2 {
		scopeClass = scopeRes.Child(0).Lexeme
	}
	retType := v.resolveDeclaredType(typeNode)
	params := paramsFromFParamsList(fparams, v.resolveDeclaredType)
	paramTypes := make([]Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	funcScope := NewSymbolTable(funcName, enclosing)
	node.Symtab = funcScope
	for _, p := range params {
		funcScope.Insert(&Entry{Kind: LocalVarEntry, Name: p.Name, Type: p.Type, Line: node.Line})
	}
	sig := Signature(scopeClass, funcName, paramTypes)
	entry := &Entry{
		Kind: FreeFuncEntry, Name: funcName, Line: node.Line,
		Type: retType, Link: funcScope, Params: params,
		ScopeRes: scopeClass, Signature: sig,
	}
	node.SymtabEntry = entry
	if _, collided := v.global.Insert(entry); collided {
		v.sink.Err(fmt.Sprintf("function %q redeclared with identical signature", sig), node.Line, diag.Semantic)
	} else if first := v.global.CheckOverload(scopeClass, funcName); !first {
		v.sink.Warn(fmt.Sprintf("overloaded function %q", sig), node.Line, diag.SemanticWarning)
	}
	sawReturn := false
	v.visitFuncBody(body, funcScope, scopeClass, &sawReturn)
	if retType.Kind != Void && !sawReturn {
		v.sink.Err(fmt.Sprintf("function %q has no return statement", funcName), node.Line, diag.Semantic)
	}
}

func (v *SymTabVisitor) visitFuncBody(body *ast.Node, scope *SymbolTable, curClass string, sawReturn *bool) {
	body.Symtab = scope
	for _, c := range body.Children {
		v.visitStatSubtree(c, scope, curClass, sawReturn)
	}
}

// visitStatSubtree is visit, specialized to also track whether a Return
// statement was encountered anywhere in a function body (VarDecl's
// recursion doesn't need this, but statement subtrees do) -- a minimal
// flag-threading mechanism standing in for the original's per-node boolean
// field set during the same traversal.
func (v *SymTabVisitor) visitStatSubtree(node *ast.Node, scope *SymbolTable, curClass string, sawReturn *bool) {
	if node == nil {
		return
	}
	node.Symtab = scope
	if node.Kind == ast.Return {
		*sawReturn = true
	}
	if node.Kind == ast.VarDecl {
		v.visitVarDecl(node, scope)
		return
	}
	for _, c := range node.Children {
		v.visitStatSubtree(c, scope, curClass, sawReturn)
	}
}

func (v *SymTabVisitor) visitMain(node *ast.Node, global *SymbolTable) {
	mainScope := NewSymbolTable("main", global)
	node.Symtab = mainScope
	entry := &Entry{Kind: FreeFuncEntry, Name: "main", Line: node.Line, Type: VoidT, Link: mainScope, Signature: "::main()"}
	global.Insert(entry)
	sawReturn := false
	for _, c := range node.Children {
		v.visitStatSubtree(c, mainScope, "", &sawReturn)
	}
}

func (v *SymTabVisitor) visitVarDecl(node *ast.Node, scope *SymbolTable) {
	idNode, typeNode, dimList := node.Child(0), node.Child(1), node.Child(2)
	typ := v.resolveDeclaredType(typeNode)
	dims := dimsFromDimList(dimList)
	entry := &Entry{Kind: LocalVarEntry, Name: idNode.Lexeme, Line: node.Line, Type: typ, Dims: dims}
	if _, collided := scope.Insert(entry); collided {
		v.sink.Err(fmt.Sprintf("local variable %q redeclared", idNode.Lexeme), node.Line, diag.Semantic)
	}
}

// postPass implements the four fixed steps of distilled spec 4.5's
// "Post-pass" (order fixed in SPEC_FULL 4.5).
func (v *SymTabVisitor) postPass() []string {
	sorted := v.topSort()
	v.checkUndefinedMemberFunctions(sorted)
	v.linkMemberFunctionDefsToDecl()
	v.copyInheritedEntries(sorted)
	return sorted
}

// topSort performs a depth-first post-order traversal over classGraph
// (edges point from a derived class to its parents), with a recursion
// stack to detect cycles. Post-order over "derived -> parent" edges yields
// base-first-before-derived output, per distilled spec 4.5 step 1.
func (v *SymTabVisitor) topSort() []string {
	var order []string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	reported := make(map[string]bool)

	var dfs func(name string)
	dfs = func(name string) {
		if visited[name] {
			return
		}
		if onStack[name] {
			if !reported[name] {
				v.sink.Err(fmt.Sprintf("cyclic inheritance dependency involving class %q", name), v.lineOf(name), diag.Semantic)
				reported[name] = true
			}
			return
		}
		onStack[name] = true
		for _, parent := range v.classGraph[name] {
			if _, declared := v.classGraph[parent]; !declared {
				v.sink.Err(fmt.Sprintf("class %q inherits undeclared class %q", name, parent), v.lineOf(name), diag.Semantic)
				continue
			}
			dfs(parent)
		}
		onStack[name] = false
		visited[name] = true
		order = append(order, name)
	}
	for _, name := range v.declOrder {
		dfs(name)
	}
	return order
}

func (v *SymTabVisitor) lineOf(class string) int {
	if n, ok := v.classNode[class]; ok {
		return n.Line
	}
	return -1
}

// checkUndefinedMemberFunctions reports, for every declared member
// function, a missing-definition diagnostic if no free-function entry in
// global matches its "class::method(args)" signature -- distilled spec 4.5
// step 2.
func (v *SymTabVisitor) checkUndefinedMemberFunctions(sorted []string) {
	for _, className := range sorted {
		scope := v.classScope[className]
		for _, e := range scope.Entries() {
			if e.Kind != MemberFuncEntry {
				continue
			}
			if _, ok := v.global.Lookup(FreeFuncEntry, e.Signature); !ok {
				v.sink.Err(fmt.Sprintf("declared member function %q has no definition", e.Signature), e.Line, diag.Semantic)
			}
		}
	}
}

// linkMemberFunctionDefsToDecl reparents every out-of-class free-function
// entry whose ScopeRes is non-empty onto its class scope, linking the
// class's declaration entry to the body scope and removing the temporary
// global stand-in -- distilled spec 4.5 step 3.
func (v *SymTabVisitor) linkMemberFunctionDefsToDecl() {
	for _, e := range v.global.Entries() {
		if e.Kind != FreeFuncEntry || e.ScopeRes == "" || e.Name == "main" {
			continue
		}
		classScope, ok := v.classScope[e.ScopeRes]
		if !ok {
			v.sink.Err(fmt.Sprintf("scope resolution %q::%q does not match any class", e.ScopeRes, e.Name), e.Line, diag.Semantic)
			continue
		}
		decl, ok := classScope.Lookup(MemberFuncEntry, e.Signature)
		if !ok {
			v.sink.Err(fmt.Sprintf("definition provided for undeclared member function %q", e.Signature), e.Line, diag.Semantic)
			continue
		}
		decl.Link = e.Link
		v.global.Remove(e)
	}
}

// copyInheritedEntries copies data members from every inherited class into
// each class scope, in topological (base-first) order so a grandparent's
// members are already present when a parent is processed -- distilled spec
// 4.5 step 4. A same-name collision against an inherited entry is a shadow
// warning; collisions within one class were already reported as errors
// when the class's own members were inserted.
func (v *SymTabVisitor) copyInheritedEntries(sorted []string) {
	for _, className := range sorted {
		scope := v.classScope[className]
		inherit, ok := scope.Lookup(InheritEntry, "inherit")
		if !ok {
			continue
		}
		for _, parent := range inherit.Parents {
			parentScope, ok := v.classScope[parent]
			if !ok {
				continue // already reported as "inherits undeclared class"
			}
			for _, pe := range parentScope.Entries() {
				if pe.Kind != MemberVarEntry {
					continue
				}
				copied := &Entry{
					Kind: MemberVarEntry, Name: pe.Name, Line: pe.Line,
					Type: pe.Type, Dims: pe.Dims, ClassName: className, Visibility: pe.Visibility,
				}
				if _, collided := scope.Insert(copied); collided {
					v.sink.Warn(fmt.Sprintf("member variable %q in class %q shadows an inherited member", pe.Name, className), pe.Line, diag.SemanticWarning)
				}
			}
			for _, pe := range parentScope.Entries() {
				if pe.Kind != MemberFuncEntry {
					continue
				}
				if _, exists := scope.Lookup(MemberFuncEntry, pe.Signature); exists {
					v.sink.Warn(fmt.Sprintf("member function %q in class %q shadows an inherited method", pe.Name, className), pe.Line, diag.SemanticWarning)
				}
			}
		}
	}
}
