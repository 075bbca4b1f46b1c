package sema

import (
	"testing"

	"github.com/npillmayer/toyc/ast"
	"github.com/npillmayer/toyc/diag"
)

func id(name string, line int) *ast.Node      { return ast.NewLeaf(ast.Id, name, line) }
func typ(name string, line int) *ast.Node     { return ast.NewLeaf(ast.Type, name, line) }
func emptyDimList(line int) *ast.Node         { return ast.NewWithChildren(ast.DimList, line) }
func intMemberVar(name, visibility string, line int) *ast.Node {
	n := ast.NewWithChildren(ast.MemberVarDecl, line, id(name, line), typ("integer", line), emptyDimList(line))
	n.Lexeme = visibility
	return n
}

func classNode(name string, line int, parents []string, members ...*ast.Node) *ast.Node {
	inherit := ast.NewWithChildren(ast.InheritList, line)
	for _, p := range parents {
		inherit.AddChild(id(p, line))
	}
	memberList := ast.NewWithChildren(ast.MemberList, line, members...)
	return ast.NewWithChildren(ast.Class, line, id(name, line), inherit, memberList)
}

func progWith(classes ...*ast.Node) *ast.Node {
	classList := ast.NewWithChildren(ast.ClassList, 1, classes...)
	funcDefList := ast.NewWithChildren(ast.FuncDefList, 1)
	main := ast.NewWithChildren(ast.Main, 1,
		ast.NewWithChildren(ast.VarDeclList, 1),
		ast.NewWithChildren(ast.StatList, 1),
	)
	return ast.NewWithChildren(ast.Prog, 1, classList, funcDefList, main)
}

func scopeRes(funcName string, line int) *ast.Node {
	return ast.NewWithChildren(ast.ScopeRes, line, id(funcName, line))
}

func fparam(name, typeName string, line int) *ast.Node {
	return ast.NewWithChildren(ast.FParams, line, id(name, line), typ(typeName, line), emptyDimList(line))
}

func freeFuncDef(name, retType string, line int, params ...*ast.Node) *ast.Node {
	body := ast.NewWithChildren(ast.FuncBody, line,
		ast.NewWithChildren(ast.VarDeclList, line),
		ast.NewWithChildren(ast.StatList, line),
	)
	return ast.NewWithChildren(ast.FuncDef, line,
		scopeRes(name, line),
		ast.NewWithChildren(ast.FParamsList, line, params...),
		typ(retType, line),
		body,
	)
}

func progWithFuncs(funcs ...*ast.Node) *ast.Node {
	classList := ast.NewWithChildren(ast.ClassList, 1)
	funcDefList := ast.NewWithChildren(ast.FuncDefList, 1, funcs...)
	main := ast.NewWithChildren(ast.Main, 1,
		ast.NewWithChildren(ast.VarDeclList, 1),
		ast.NewWithChildren(ast.StatList, 1),
	)
	return ast.NewWithChildren(ast.Prog, 1, classList, funcDefList, main)
}

func TestSymTabVisitorRegistersClasses(t *testing.T) {
	sink := diag.New()
	prog := progWith(
		classNode("A", 1, nil, intMemberVar("z", "public", 1)),
		classNode("B", 2, []string{"A"}, intMemberVar("z", "public", 2)),
	)
	v := NewSymTabVisitor(sink)
	global := v.Run(prog)

	for _, name := range []string{"A", "B"} {
		e, ok := global.Lookup(ClassEntry, name)
		if !ok {
			t.Fatalf("class %q not registered in global scope", name)
		}
		if e.Link == nil || e.Link.Name != name {
			t.Fatalf("class %q entry has no link to its own scope", name)
		}
	}
}

func TestSymTabVisitorTopSortIsBaseFirst(t *testing.T) {
	sink := diag.New()
	prog := progWith(
		classNode("B", 2, []string{"A"}, intMemberVar("z", "public", 2)),
		classNode("A", 1, nil, intMemberVar("z", "public", 1)),
	)
	v := NewSymTabVisitor(sink)
	v.Run(prog)
	sorted := prog.SortedClasses
	idxA, idxB := -1, -1
	for i, c := range sorted {
		if c == "A" {
			idxA = i
		}
		if c == "B" {
			idxB = i
		}
	}
	if idxA < 0 || idxB < 0 || idxA > idxB {
		t.Fatalf("expected A before B in topological order, got %v", sorted)
	}
}

func TestSymTabVisitorReportsCyclicInheritance(t *testing.T) {
	sink := diag.New()
	prog := progWith(
		classNode("A", 1, []string{"B"}),
		classNode("B", 2, []string{"A"}),
	)
	v := NewSymTabVisitor(sink)
	v.Run(prog)
	if !sink.HasErrors() {
		t.Fatal("expected a cyclic-dependency error")
	}
}

func TestSymTabVisitorShadowedMemberIsWarningNotError(t *testing.T) {
	sink := diag.New()
	prog := progWith(
		classNode("A", 1, nil, intMemberVar("z", "public", 1)),
		classNode("B", 2, []string{"A"}, intMemberVar("z", "public", 2)),
	)
	v := NewSymTabVisitor(sink)
	global := v.Run(prog)

	if sink.HasErrors() {
		t.Fatalf("shadowing an inherited member must not be an error, got: %v", sink.Errors())
	}
	if !sink.HasWarnings() {
		t.Fatal("expected a shadow warning for B.z")
	}
	be, _ := global.Lookup(ClassEntry, "B")
	if _, ok := be.Link.Lookup(MemberVarEntry, "z"); !ok {
		t.Fatal("B's own z entry must still be present after inheritance copy")
	}
}

func TestSymTabVisitorReportsOverloadedFreeFunction(t *testing.T) {
	sink := diag.New()
	prog := progWithFuncs(
		freeFuncDef("f", "void", 1, fparam("a", "integer", 1)),
		freeFuncDef("f", "void", 2, fparam("a", "float", 2)),
	)
	v := NewSymTabVisitor(sink)
	v.Run(prog)

	if sink.HasErrors() {
		t.Fatalf("overloaded free functions with distinct signatures must not be an error, got: %v", sink.Errors())
	}
	if !sink.HasWarnings() {
		t.Fatal("expected an overload warning for f(integer) vs f(float)")
	}
}

func TestSymTabVisitorClassRedeclarationIsError(t *testing.T) {
	sink := diag.New()
	prog := progWith(
		classNode("A", 1, nil),
		classNode("A", 2, nil),
	)
	v := NewSymTabVisitor(sink)
	v.Run(prog)
	if !sink.HasErrors() {
		t.Fatal("expected a class-redeclaration error")
	}
}
