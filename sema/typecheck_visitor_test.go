package sema

import (
	"testing"

	"github.com/npillmayer/toyc/ast"
	"github.com/npillmayer/toyc/diag"
)

func varDecl(name, typeName string, line int) *ast.Node {
	return ast.NewWithChildren(ast.VarDecl, line, id(name, line), typ(typeName, line), emptyDimList(line))
}

func simpleVar(name string, line int) *ast.Node {
	return ast.NewWithChildren(ast.Var, line, id(name, line))
}

func assign(lhs, rhs *ast.Node, line int) *ast.Node {
	return ast.NewWithChildren(ast.Assign, line, lhs, rhs)
}

func mainWith(decls []*ast.Node, stats []*ast.Node) *ast.Node {
	return ast.NewWithChildren(ast.Main, 1,
		ast.NewWithChildren(ast.VarDeclList, 1, decls...),
		ast.NewWithChildren(ast.StatList, 1, stats...),
	)
}

func progWithMain(main *ast.Node) *ast.Node {
	return ast.NewWithChildren(ast.Prog, 1,
		ast.NewWithChildren(ast.ClassList, 1),
		ast.NewWithChildren(ast.FuncDefList, 1),
		main,
	)
}

func runBothPasses(t *testing.T, prog *ast.Node) *diag.Sink {
	t.Helper()
	sink := diag.New()
	global := NewSymTabVisitor(sink).Run(prog)
	NewTypeCheckVisitor(sink).Run(prog, global)
	return sink
}

func TestAssignTypeMismatchIsReportedOnce(t *testing.T) {
	decls := []*ast.Node{varDecl("x", "integer", 1), varDecl("y", "float", 1)}
	assignStat := assign(simpleVar("x", 2), simpleVar("y", 2), 2)
	prog := progWithMain(mainWith(decls, []*ast.Node{assignStat}))

	sink := runBothPasses(t, prog)
	if len(sink.Errors()) != 1 {
		t.Fatalf("expected exactly one mismatch diagnostic, got %v", sink.Errors())
	}
	if assignStat.Type != TypeErr.String() {
		t.Fatalf("Assign node type = %q, want the typeerror sentinel", assignStat.Type)
	}
}

func TestAssignMatchingTypesProducesNoDiagnostic(t *testing.T) {
	decls := []*ast.Node{varDecl("x", "integer", 1)}
	lit := ast.NewLeaf(ast.IntNum, "5", 2)
	assignStat := assign(simpleVar("x", 2), lit, 2)
	prog := progWithMain(mainWith(decls, []*ast.Node{assignStat}))

	sink := runBothPasses(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Errors())
	}
	if assignStat.Type != "integer" {
		t.Fatalf("Assign node type = %q, want \"integer\"", assignStat.Type)
	}
}

func TestUndeclaredVariableIsReported(t *testing.T) {
	assignStat := assign(simpleVar("missing", 2), ast.NewLeaf(ast.IntNum, "1", 2), 2)
	prog := progWithMain(mainWith(nil, []*ast.Node{assignStat}))

	sink := runBothPasses(t, prog)
	if !sink.HasErrors() {
		t.Fatal("expected an undeclared-variable diagnostic")
	}
}

func TestArrayDimensionalityMismatchIsReported(t *testing.T) {
	decl := ast.NewWithChildren(ast.VarDecl, 1, id("a", 1), typ("integer", 1),
		ast.NewWithChildren(ast.DimList, 1, ast.NewLeaf(ast.Dim, "5", 1)))

	idx1 := ast.NewLeaf(ast.IntNum, "0", 2)
	idx2 := ast.NewLeaf(ast.IntNum, "1", 2)
	dm := ast.NewWithChildren(ast.DataMember, 2, id("a", 2),
		ast.NewWithChildren(ast.IndiceList, 2, idx1, idx2))
	v := ast.NewWithChildren(ast.Var, 2, dm)
	assignStat := assign(v, ast.NewLeaf(ast.IntNum, "1", 2), 2)

	prog := progWithMain(mainWith([]*ast.Node{decl}, []*ast.Node{assignStat}))
	sink := runBothPasses(t, prog)
	if !sink.HasErrors() {
		t.Fatal("expected an array-dimensionality-mismatch diagnostic")
	}
}
