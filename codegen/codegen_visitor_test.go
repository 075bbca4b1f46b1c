package codegen

import (
	"strings"
	"testing"

	"github.com/npillmayer/toyc/ast"
	"github.com/npillmayer/toyc/diag"
	"github.com/npillmayer/toyc/sema"
)

// runCodeGen runs all four passes and returns the emitted assembly text
// alongside the diagnostics sink, for assertions on the generated shape.
func runCodeGen(t *testing.T, prog *ast.Node) (string, *diag.Sink) {
	t.Helper()
	sink := diag.New()
	global := sema.NewSymTabVisitor(sink).Run(prog)
	sema.NewTypeCheckVisitor(sink).Run(prog, global)
	mem := NewMemSizeVisitor(sink)
	mem.Run(prog, global)
	cg := NewCodeGenVisitor(sink, mem)
	asm := cg.Run(prog, global)
	return asm, sink
}

func simpleVar(name string, line int) *ast.Node {
	return ast.NewWithChildren(ast.Var, line, id(name, line))
}

func dataMember(name string, line int, indices ...*ast.Node) *ast.Node {
	return ast.NewWithChildren(ast.DataMember, line, id(name, line), ast.NewWithChildren(ast.IndiceList, line, indices...))
}

func indexedVar(name string, line int, indices ...*ast.Node) *ast.Node {
	return ast.NewWithChildren(ast.Var, line, dataMember(name, line, indices...))
}

func assignStat(lhs, rhs *ast.Node, line int) *ast.Node {
	return ast.NewWithChildren(ast.Assign, line, lhs, rhs)
}

func writeStat(expr *ast.Node, line int) *ast.Node {
	return ast.NewWithChildren(ast.Write, line, expr)
}

func readStat(v *ast.Node, line int) *ast.Node {
	return ast.NewWithChildren(ast.Read, line, v)
}

func returnStat(line int, expr *ast.Node) *ast.Node {
	if expr == nil {
		return ast.NewWithChildren(ast.Return, line)
	}
	return ast.NewWithChildren(ast.Return, line, expr)
}

func ifStat(cond *ast.Node, line int, thenStats, elseStats []*ast.Node) *ast.Node {
	return ast.NewWithChildren(ast.IfStat, line, cond,
		ast.NewWithChildren(ast.StatList, line, thenStats...),
		ast.NewWithChildren(ast.StatList, line, elseStats...))
}

func whileStat(cond *ast.Node, line int, bodyStats []*ast.Node) *ast.Node {
	return ast.NewWithChildren(ast.While, line, cond,
		ast.NewWithChildren(ast.StatList, line, bodyStats...))
}

func intNum(lexeme string, line int) *ast.Node { return ast.NewLeaf(ast.IntNum, lexeme, line) }

func binOp(kind ast.Kind, op string, lhs, rhs *ast.Node, line int) *ast.Node {
	n := ast.NewWithChildren(kind, line, lhs, rhs)
	n.Lexeme = op
	return n
}

func aparams(line int, exprs ...*ast.Node) *ast.Node {
	return ast.NewWithChildren(ast.AParams, line, exprs...)
}

func funcCall(name string, line int, args ...*ast.Node) *ast.Node {
	return ast.NewWithChildren(ast.FuncCall, line, id(name, line), aparams(line, args...))
}

func scopeRes(funcName string, line int) *ast.Node {
	return ast.NewWithChildren(ast.ScopeRes, line, id(funcName, line))
}

func fparam(name, typeName string, line int) *ast.Node {
	return ast.NewWithChildren(ast.FParams, line, id(name, line), typ(typeName, line), dimList(line))
}

func funcBody(decls, stats []*ast.Node, line int) *ast.Node {
	return ast.NewWithChildren(ast.FuncBody, line,
		ast.NewWithChildren(ast.VarDeclList, line, decls...),
		ast.NewWithChildren(ast.StatList, line, stats...))
}

func freeFuncDef(name, retType string, line int, params []*ast.Node, body *ast.Node) *ast.Node {
	return ast.NewWithChildren(ast.FuncDef, line,
		scopeRes(name, line),
		ast.NewWithChildren(ast.FParamsList, line, params...),
		typ(retType, line),
		body,
	)
}

func progWithFuncAndMain(fd *ast.Node, mainDecls, mainStats []*ast.Node) *ast.Node {
	funcDefList := ast.NewWithChildren(ast.FuncDefList, 1)
	if fd != nil {
		funcDefList.AddChild(fd)
	}
	main := ast.NewWithChildren(ast.Main, 1,
		ast.NewWithChildren(ast.VarDeclList, 1, mainDecls...),
		ast.NewWithChildren(ast.StatList, 1, mainStats...),
	)
	return ast.NewWithChildren(ast.Prog, 1, ast.NewWithChildren(ast.ClassList, 1), funcDefList, main)
}

func TestCodeGenArithmeticAndWrite(t *testing.T) {
	decls := []*ast.Node{varDecl("x", "integer", 1)}
	add := binOp(ast.AddOp, "+", intNum("1", 2), intNum("2", 2), 2)
	stats := []*ast.Node{
		assignStat(simpleVar("x", 2), add, 2),
		writeStat(simpleVar("x", 3), 3),
	}
	prog := progWithFuncAndMain(nil, decls, stats)
	asm, sink := runCodeGen(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Errors())
	}
	if !strings.Contains(asm, "add ") {
		t.Fatalf("expected an add instruction in:\n%s", asm)
	}
	if !strings.Contains(asm, "jl r15, putint") {
		t.Fatalf("expected a call to putint in:\n%s", asm)
	}
	if !strings.Contains(asm, "putint:") {
		t.Fatalf("expected the putint library procedure to be included in:\n%s", asm)
	}
	if strings.Count(asm, "putint:") != 1 {
		t.Fatalf("putint procedure must be included at most once, got %d in:\n%s", strings.Count(asm, "putint:"), asm)
	}
}

func TestCodeGenReadIncludesGetint(t *testing.T) {
	decls := []*ast.Node{varDecl("x", "integer", 1)}
	stats := []*ast.Node{readStat(simpleVar("x", 2), 2)}
	prog := progWithFuncAndMain(nil, decls, stats)
	asm, sink := runCodeGen(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Errors())
	}
	if !strings.Contains(asm, "jl r15, getint") {
		t.Fatalf("expected a call to getint in:\n%s", asm)
	}
	if strings.Count(asm, "getint:") != 1 {
		t.Fatalf("getint procedure must be included exactly once, got %d", strings.Count(asm, "getint:"))
	}
}

func TestCodeGenRelOpUsesMappedOpcode(t *testing.T) {
	decls := []*ast.Node{varDecl("x", "integer", 1), varDecl("y", "integer", 1)}
	rel := binOp(ast.RelOp, "<", simpleVar("x", 2), simpleVar("y", 2), 2)
	stats := []*ast.Node{
		ifStat(rel, 2, []*ast.Node{writeStat(intNum("1", 2), 2)}, []*ast.Node{writeStat(intNum("0", 2), 2)}),
	}
	prog := progWithFuncAndMain(nil, decls, stats)
	asm, sink := runCodeGen(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Errors())
	}
	if !strings.Contains(asm, "clt ") {
		t.Fatalf("expected a clt instruction for '<' in:\n%s", asm)
	}
}

func TestCodeGenIfElseLabelsAreNumberedPerIf(t *testing.T) {
	decls := []*ast.Node{varDecl("x", "integer", 1)}
	cond1 := binOp(ast.RelOp, "==", simpleVar("x", 2), intNum("0", 2), 2)
	cond2 := binOp(ast.RelOp, "==", simpleVar("x", 3), intNum("1", 3), 3)
	stats := []*ast.Node{
		ifStat(cond1, 2, []*ast.Node{writeStat(intNum("1", 2), 2)}, nil),
		ifStat(cond2, 3, []*ast.Node{writeStat(intNum("2", 3), 3)}, nil),
	}
	prog := progWithFuncAndMain(nil, decls, stats)
	asm, sink := runCodeGen(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Errors())
	}
	for _, want := range []string{"else_1:", "endif_1:", "else_2:", "endif_2:"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected label %q in:\n%s", want, asm)
		}
	}
}

func TestCodeGenWhileLabels(t *testing.T) {
	decls := []*ast.Node{varDecl("x", "integer", 1)}
	cond := binOp(ast.RelOp, "<", simpleVar("x", 2), intNum("10", 2), 2)
	assign := assignStat(simpleVar("x", 2), binOp(ast.AddOp, "+", simpleVar("x", 2), intNum("1", 2), 2), 2)
	stats := []*ast.Node{whileStat(cond, 2, []*ast.Node{assign})}
	prog := progWithFuncAndMain(nil, decls, stats)
	asm, sink := runCodeGen(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Errors())
	}
	for _, want := range []string{"gowhile_1:", "endwhile_1:"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected label %q in:\n%s", want, asm)
		}
	}
}

func TestCodeGenFunctionCallFollowsFrameConvention(t *testing.T) {
	// integer id(integer n) { return n; }
	params := []*ast.Node{fparam("n", "integer", 1)}
	body := funcBody(nil, []*ast.Node{returnStat(2, simpleVar("n", 2))}, 1)
	fd := freeFuncDef("id", "integer", 1, params, body)

	decls := []*ast.Node{varDecl("x", "integer", 3)}
	stats := []*ast.Node{assignStat(simpleVar("x", 4), funcCall("id", 4, intNum("5", 4)), 4)}
	prog := progWithFuncAndMain(fd, decls, stats)

	asm, sink := runCodeGen(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Errors())
	}
	if !strings.Contains(asm, "idinteger:") {
		t.Fatalf("expected a label for function id(integer) in:\n%s", asm)
	}
	if !strings.Contains(asm, "jl r15, idinteger") {
		t.Fatalf("expected a call-site jump to idinteger in:\n%s", asm)
	}
	if !strings.Contains(asm, "addi r14, r14,") || !strings.Contains(asm, "subi r14, r14,") {
		t.Fatalf("expected frame-pointer bump/restore around the call in:\n%s", asm)
	}
	if !strings.Contains(asm, "jr r15") {
		t.Fatalf("expected id's body to return via jr r15 in:\n%s", asm)
	}
}

func TestCodeGenArrayIndexUsesElementSize(t *testing.T) {
	decls := []*ast.Node{varDecl("a", "float", 1, "3")}
	stats := []*ast.Node{writeStat(indexedVar("a", 2, intNum("1", 2)), 2)}
	prog := progWithFuncAndMain(nil, decls, stats)
	asm, sink := runCodeGen(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Errors())
	}
	// a float element is 8 bytes (sema.ElementSize), not the original's
	// hardcoded 4 -- the resolved Open Question on array-index stride.
	if !strings.Contains(asm, "muli") {
		t.Fatalf("expected a muli stride computation in:\n%s", asm)
	}
	if !strings.Contains(asm, ", 8") {
		t.Fatalf("expected the float element stride (8) to appear in:\n%s", asm)
	}
}

func TestCodeGenBoolAndIsShortCircuitFree(t *testing.T) {
	decls := []*ast.Node{varDecl("x", "integer", 1), varDecl("y", "integer", 1)}
	lhs := binOp(ast.RelOp, ">", simpleVar("x", 2), intNum("0", 2), 2)
	rhs := binOp(ast.RelOp, ">", simpleVar("y", 2), intNum("0", 2), 2)
	and := binOp(ast.MultOp, "and", lhs, rhs, 2)
	stats := []*ast.Node{ifStat(and, 2, []*ast.Node{writeStat(intNum("1", 2), 2)}, nil)}
	prog := progWithFuncAndMain(nil, decls, stats)
	asm, sink := runCodeGen(t, prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Errors())
	}
	for _, want := range []string{"andzero_1:", "endand_1:"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected label %q in:\n%s", want, asm)
		}
	}
	// both relational comparisons must be emitted -- and/or never short-circuits.
	if strings.Count(asm, "cgt ") != 2 {
		t.Fatalf("expected both operands of 'and' to be evaluated (2 cgt ops), got %d in:\n%s", strings.Count(asm, "cgt "), asm)
	}
}
