package ast

// This file fixes the child-index and extra-field conventions every pass
// (package sema, package codegen) relies on when it dispatches on a node's
// Kind. The on-disk grammar file and its production text are explicitly out
// of scope (the grammar loader and the parser driver are generic over
// whatever grammar they are given), so these conventions -- not a literal
// production list -- are this module's normative AST shape.
//
//	Prog          children: [ClassList, FuncDefList, Main]
//	ClassList     children: Class*
//	Class         children: [Id(name), InheritList, MemberList]
//	InheritList   children: Id* (parent class names; may be empty)
//	MemberList    children: (MemberVarDecl | MemberFuncDecl)*
//	MemberVarDecl Lexeme: visibility ("public"|"private"); children: [Id, Type, DimList]
//	MemberFuncDecl Lexeme: visibility; children: [Id, FParamsList, Type(return)]
//	FuncDefList   children: FuncDef*
//	FuncDef       children: [ScopeRes, FParamsList, Type(return), FuncBody]
//	FuncBody      children: [VarDeclList, StatList]
//	VarDeclList   children: VarDecl*
//	VarDecl       children: [Id(name), Type, DimList]
//	DimList       children: Dim* (Dim.Lexeme: digits, or "" for unsized)
//	StatList      children: statement nodes (IfStat|While|Read|Write|Return|Assign|FuncCall|Var chains)
//	IfStat        children: [condExpr, thenStatList, elseStatList]
//	While         children: [condExpr, bodyStatList]
//	Read          children: [Var]
//	Write         children: [expr]
//	Return        children: [expr] (0 children: a void return)
//	Assign        children: [Var, expr]
//	FuncCall      ReceiverClass set by TypeCheckVisitor; children: [Id(name), AParams]
//	AParams       children: expr* (actual parameters, in order)
//	FParamsList   children: FParams*
//	FParams       children: [Id(name), Type, DimList]
//	ScopeRes      children: [Id(class)?, Id(funcName)] -- 1 child for a plain free function
//	Main          children: [VarDeclList, StatList]
//	Var           children: (Id | DataMember)* -- the dot-chain, left to right
//	DataMember    ReceiverClass set by TypeCheckVisitor; children: [Id(name), IndiceList]
//	IndiceList    children: expr* (index expressions, outermost dimension first)
//	ArithExpr     children: [operand] (pass-through; type mirrors the operand)
//	RelExpr       children: [lhs, rhs] when built directly over a RelOp; see below
//	AddOp/MultOp/RelOp  Lexeme: operator text; children: [lhs, rhs]
//	Not           children: [operand]
//	Sign          Lexeme: sign character; children: [factor]
//	Type          leaf; Lexeme: type name ("integer", "float", or a class name)
//	Id            leaf; Lexeme: identifier text
//	IntNum/FloatNum leaf; Lexeme: literal text
//
// RelExpr, in this module, is synthesized directly as the RelOp comparison
// node (the distilled spec's grammar folds the nonterminal RelExpr into a
// single production producing one RelOp-kinded comparison; no separate
// wrapper node is built), so TypeCheckVisitor and CodeGenVisitor handle
// RelExpr and RelOp identically wherever the distilled spec mentions either.
