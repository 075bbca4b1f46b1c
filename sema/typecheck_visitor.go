package sema

import (
	"fmt"

	"github.com/npillmayer/toyc/ast"
	"github.com/npillmayer/toyc/diag"
)

// TypeCheckVisitor is AST pass 2: bottom-up type propagation and
// diagnosis, per distilled spec 4.6. It runs after SymTabVisitor has
// populated every ast.Node.Symtab.
type TypeCheckVisitor struct {
	sink   *diag.Sink
	global *SymbolTable
}

// NewTypeCheckVisitor creates a visitor reporting into sink.
func NewTypeCheckVisitor(sink *diag.Sink) *TypeCheckVisitor {
	return &TypeCheckVisitor{sink: sink}
}

// Run type-checks prog, whose symbol tables were already built by
// SymTabVisitor into global.
func (v *TypeCheckVisitor) Run(prog *ast.Node, global *SymbolTable) {
	v.global = global
	for _, c := range prog.Children {
		v.visitTop(c)
	}
}

func (v *TypeCheckVisitor) visitTop(node *ast.Node) {
	switch node.Kind {
	case ast.ClassList:
		for _, class := range node.Children {
			v.visitClass(class)
		}
	case ast.FuncDefList:
		for _, fd := range node.Children {
			v.visitFuncDef(fd)
		}
	case ast.Main:
		v.visitStatList(node.Child(1), node.Symtab.(*SymbolTable), "")
	}
}

func (v *TypeCheckVisitor) visitClass(class *ast.Node) {
	className := class.Child(0).Lexeme
	classScope := v.global
	if e, ok := v.global.Lookup(ClassEntry, className); ok {
		classScope = e.Link
	}
	memberList := class.Child(2)
	for _, member := range memberList.Children {
		if member.Kind == ast.MemberVarDecl {
			v.checkDeclaredType(member.Child(1), classScope)
		}
	}
}

func (v *TypeCheckVisitor) visitFuncDef(fd *ast.Node) {
	scopeRes := fd.Child(0)
	curClass := ""
	if len(scopeRes.Children) == 2 {
		curClass = scopeRes.Child(0).Lexeme
	}
	funcScope, _ := fd.Symtab.(*SymbolTable)
	if funcScope == nil {
		return
	}
	// SymTabVisitor stashed the exact per-definition entry (keyed by its
	// full signature, not just its name -- two overloads can share a name
	// but never a signature) on fd.SymtabEntry; read the declared return
	// type back from there instead of re-resolving by simple name, which
	// could pick the wrong overload.
	retType := VoidT
	if entry, ok := fd.SymtabEntry.(*Entry); ok {
		retType = entry.Type
	}
	v.checkDeclaredType(fd.Child(2), funcScope)
	body := fd.Child(3)
	v.checkVarDeclList(body.Child(0), funcScope)
	v.visitStatListWithReturn(body.Child(1), funcScope, curClass, retType)
}

func (v *TypeCheckVisitor) classScope(name string) (*SymbolTable, bool) {
	e, ok := v.global.Lookup(ClassEntry, name)
	if !ok {
		return nil, false
	}
	return e.Link, true
}

func (v *TypeCheckVisitor) checkVarDeclList(vdl *ast.Node, scope *SymbolTable) {
	if vdl == nil {
		return
	}
	for _, vd := range vdl.Children {
		v.checkDeclaredType(vd.Child(1), scope)
	}
}

// checkDeclaredType implements distilled spec 4.6's last rule: a
// non-scalar declared type must name a class reachable from scope.
func (v *TypeCheckVisitor) checkDeclaredType(typeNode *ast.Node, scope *SymbolTable) {
	name := typeNode.Lexeme
	if name == "integer" || name == "float" || name == "void" {
		typeNode.Type = name
		return
	}
	if _, ok := v.global.Lookup(ClassEntry, name); !ok {
		v.sink.Err(fmt.Sprintf("undefined type %q in declaration", name), typeNode.Line, diag.Semantic)
		typeNode.Type = TypeErr.String()
		return
	}
	typeNode.Type = name
}

func (v *TypeCheckVisitor) visitStatList(stats *ast.Node, scope *SymbolTable, curClass string) {
	v.visitStatListWithReturn(stats, scope, curClass, VoidT)
}

func (v *TypeCheckVisitor) visitStatListWithReturn(stats *ast.Node, scope *SymbolTable, curClass string, retType Type) {
	if stats == nil {
		return
	}
	for _, s := range stats.Children {
		v.visitStat(s, scope, curClass, retType)
	}
}

func (v *TypeCheckVisitor) visitStat(node *ast.Node, scope *SymbolTable, curClass string, retType Type) {
	if node == nil {
		return
	}
	switch node.Kind {
	case ast.IfStat:
		v.inferExpr(node.Child(0), scope, curClass)
		v.visitStatListWithReturn(node.Child(1), scope, curClass, retType)
		v.visitStatListWithReturn(node.Child(2), scope, curClass, retType)
	case ast.While:
		v.inferExpr(node.Child(0), scope, curClass)
		v.visitStatListWithReturn(node.Child(1), scope, curClass, retType)
	case ast.Read:
		v.inferExpr(node.Child(0), scope, curClass)
	case ast.Write:
		v.inferExpr(node.Child(0), scope, curClass)
	case ast.Return:
		var exprType Type
		if len(node.Children) > 0 {
			exprType = v.inferExpr(node.Child(0), scope, curClass)
		} else {
			exprType = VoidT
		}
		if !exprType.IsError() && !retType.IsError() && !exprType.Equal(retType) {
			v.sink.Err(fmt.Sprintf("return type mismatch: function returns %s, got %s", retType, exprType), node.Line, diag.Semantic)
		}
		node.Type = exprType.String()
	case ast.Assign:
		lhs := v.inferExpr(node.Child(0), scope, curClass)
		rhs := v.inferExpr(node.Child(1), scope, curClass)
		if lhs.IsError() || rhs.IsError() {
			node.Type = TypeErr.String()
		} else if !lhs.Equal(rhs) {
			v.sink.Err(fmt.Sprintf("assignment type mismatch: %s = %s", lhs, rhs), node.Line, diag.Semantic)
			node.Type = TypeErr.String()
		} else {
			node.Type = lhs.String()
		}
	case ast.FuncCall:
		v.inferExpr(node, scope, curClass)
	default:
		for _, c := range node.Children {
			v.visitStat(c, scope, curClass, retType)
		}
	}
}

// inferExpr is the bottom-up type propagation core of distilled spec 4.6.
// It sets node.Type as a side effect and returns the structured Type for
// callers that need to combine it with a sibling's type.
func (v *TypeCheckVisitor) inferExpr(node *ast.Node, scope *SymbolTable, curClass string) Type {
	if node == nil {
		return ErrorT
	}
	var t Type
	switch node.Kind {
	case ast.IntNum:
		t = IntegerT
	case ast.FloatNum:
		t = FloatT
	case ast.AddOp, ast.MultOp:
		t = v.checkScalarBinOp(node, scope, curClass)
	case ast.RelOp, ast.RelExpr:
		t = v.checkRelOp(node, scope, curClass)
	case ast.ArithExpr, ast.Not, ast.Sign:
		t = v.inferExpr(node.Child(0), scope, curClass)
	case ast.Var:
		t = v.resolveVar(node, scope, curClass)
	case ast.FuncCall:
		t = v.resolveFuncCall(node, scope, curClass, nil, scope)
	default:
		t = ErrorT
	}
	node.Type = t.String()
	return t
}

func (v *TypeCheckVisitor) checkScalarBinOp(node *ast.Node, scope *SymbolTable, curClass string) Type {
	lt := v.inferExpr(node.Child(0), scope, curClass)
	rt := v.inferExpr(node.Child(1), scope, curClass)
	if lt.IsError() || rt.IsError() {
		return ErrorT
	}
	if !lt.IsScalar() || !rt.IsScalar() || !lt.Equal(rt) {
		v.sink.Err(fmt.Sprintf("operand type mismatch for %q: %s vs %s", node.Lexeme, lt, rt), node.Line, diag.Semantic)
		return ErrorT
	}
	return lt
}

func (v *TypeCheckVisitor) checkRelOp(node *ast.Node, scope *SymbolTable, curClass string) Type {
	lt := v.inferExpr(node.Child(0), scope, curClass)
	rt := v.inferExpr(node.Child(1), scope, curClass)
	if lt.IsError() || rt.IsError() {
		return ErrorT
	}
	if lt.Kind == ClassType || rt.Kind == ClassType || !lt.Equal(rt) {
		v.sink.Err(fmt.Sprintf("operand type mismatch for relational operator %q: %s vs %s", node.Lexeme, lt, rt), node.Line, diag.Semantic)
		return ErrorT
	}
	return IntegerT
}

// resolveVar walks a Var node's dot-chain, resolving each part against the
// receiver type carried from the previous part (or the lexical scope chain
// for the first part), per distilled spec 4.6's DataMember/Var rules.
func (v *TypeCheckVisitor) resolveVar(varNode *ast.Node, scope *SymbolTable, curClass string) Type {
	var receiver Type
	var receiverScope *SymbolTable
	for i, part := range varNode.Children {
		first := i == 0
		t := v.resolvePart(part, scope, curClass, first, receiver, receiverScope)
		if t.IsError() {
			varNode.Type = TypeErr.String()
			return ErrorT
		}
		receiver = t
		if t.Kind == ClassType {
			receiverScope, _ = v.classScope(t.ClassName)
		} else {
			receiverScope = nil
		}
	}
	return receiver
}

func (v *TypeCheckVisitor) resolvePart(part *ast.Node, scope *SymbolTable, curClass string, first bool, receiver Type, receiverScope *SymbolTable) Type {
	name := part.Lexeme
	if part.Kind == ast.DataMember {
		name = part.Child(0).Lexeme
	} else if part.Kind == ast.FuncCall {
		return v.resolveFuncCall(part, scope, curClass, boolToScopePtr(!first, receiver), receiverScope)
	}

	var entry *Entry
	var declClass string
	if first {
		e, _, ok := scope.LookupChain(name)
		if !ok {
			v.sink.Err(fmt.Sprintf("use of undeclared variable %q", name), part.Line, diag.Semantic)
			return ErrorT
		}
		entry = e
		if e.Kind == MemberVarEntry {
			declClass = e.ClassName
		}
	} else {
		if receiver.Kind != ClassType {
			v.sink.Err(fmt.Sprintf("dot operator applied to non-class type %s", receiver), part.Line, diag.Semantic)
			return ErrorT
		}
		if receiverScope == nil {
			return ErrorT
		}
		e, ok := receiverScope.Lookup(MemberVarEntry, name)
		if !ok {
			v.sink.Err(fmt.Sprintf("undeclared member %q accessed via dot on class %q", name, receiver.ClassName), part.Line, diag.Semantic)
			return ErrorT
		}
		entry = e
		declClass = e.ClassName
		if e.Visibility == Private && curClass != declClass {
			v.sink.Err(fmt.Sprintf("private member %q accessed from outside class %q", name, declClass), part.Line, diag.Semantic)
			return ErrorT
		}
	}

	part.SymtabEntry = entry
	baseType := entry.Type
	if len(entry.Dims) > 0 {
		baseType = Array(entry.Type, entry.Dims)
	}
	resultType := baseType

	if part.Kind == ast.DataMember {
		indiceList := part.Child(1)
		nIdx := len(indiceList.Children)
		if nIdx > len(entry.Dims) {
			v.sink.Err(fmt.Sprintf("array %q indexed with %d indices, declared with %d dimensions", name, nIdx, len(entry.Dims)), part.Line, diag.Semantic)
			part.Type = TypeErr.String()
			return ErrorT
		}
		for _, idxExpr := range indiceList.Children {
			idxType := v.inferExpr(idxExpr, scope, curClass)
			if !idxType.IsError() && idxType.Kind != Integer {
				v.sink.Err("array index must be of type integer", idxExpr.Line, diag.Semantic)
			}
		}
		for j := 0; j < nIdx; j++ {
			resultType = resultType.DropDim()
		}
	}
	part.Type = resultType.String()
	part.ReceiverClass = declClass
	return resultType
}

// boolToScopePtr and the receiverScope argument thread "is this FuncCall a
// qualified (dot) call" through to resolveFuncCall without adding a second
// bool parameter everywhere resolveVar/resolvePart already pass a Type.
func boolToScopePtr(qualified bool, receiver Type) *Type {
	if !qualified {
		return nil
	}
	r := receiver
	return &r
}

// resolveFuncCall resolves a FuncCall node's signature against either the
// free-function table (receiver == nil) or the class scope chain of a
// qualified receiver, per distilled spec 4.6.
func (v *TypeCheckVisitor) resolveFuncCall(node *ast.Node, scope *SymbolTable, curClass string, receiver *Type, receiverScope *SymbolTable) Type {
	name := node.Child(0).Lexeme
	aparams := node.Child(1)
	argTypes := make([]Type, 0, len(aparams.Children))
	for _, a := range aparams.Children {
		argTypes = append(argTypes, v.inferExpr(a, scope, curClass))
	}

	if receiver != nil {
		if receiver.Kind != ClassType {
			v.sink.Err(fmt.Sprintf("dot operator applied to non-class type %s", *receiver), node.Line, diag.Semantic)
			return ErrorT
		}
		sig := Signature(receiver.ClassName, name, argTypes)
		e, _, ok := v.lookupMethodInChain(receiver.ClassName, sig)
		if !ok {
			v.sink.Err(fmt.Sprintf("undeclared member function %q accessed via dot on class %q", sig, receiver.ClassName), node.Line, diag.Semantic)
			return ErrorT
		}
		if e.Visibility == Private && curClass != e.ClassName {
			v.sink.Err(fmt.Sprintf("private member function %q accessed from outside class %q", sig, e.ClassName), node.Line, diag.Semantic)
			return ErrorT
		}
		node.ReceiverClass = e.ClassName
		node.SymtabEntry = e
		return e.Type
	}

	if curClass != "" {
		sig := Signature(curClass, name, argTypes)
		if e, _, ok := v.lookupMethodInChain(curClass, sig); ok {
			node.ReceiverClass = e.ClassName
			node.SymtabEntry = e
			return e.Type
		}
	}
	sig := Signature("", name, argTypes)
	e, ok := v.lookupFreeFuncBySignature(sig)
	if !ok {
		v.sink.Err(fmt.Sprintf("use of undeclared function %q", sig), node.Line, diag.Semantic)
		return ErrorT
	}
	node.SymtabEntry = e
	return e.Type
}

func (v *TypeCheckVisitor) lookupFreeFuncBySignature(sig string) (*Entry, bool) {
	return v.global.Lookup(FreeFuncEntry, sig)
}

// lookupMethodInChain searches className's scope, then (transitively) each
// inherited parent's scope, for a member function matching sig exactly.
func (v *TypeCheckVisitor) lookupMethodInChain(className, sig string) (*Entry, *SymbolTable, bool) {
	seen := make(map[string]bool)
	var walk func(string) (*Entry, *SymbolTable, bool)
	walk = func(cls string) (*Entry, *SymbolTable, bool) {
		if seen[cls] {
			return nil, nil, false
		}
		seen[cls] = true
		scope, ok := v.classScope(cls)
		if !ok {
			return nil, nil, false
		}
		if e, ok := scope.Lookup(MemberFuncEntry, sig); ok {
			return e, scope, true
		}
		if inherit, ok := scope.Lookup(InheritEntry, "inherit"); ok {
			for _, parent := range inherit.Parents {
				if e, s, ok := walk(parent); ok {
					return e, s, true
				}
			}
		}
		return nil, nil, false
	}
	return walk(className)
}
