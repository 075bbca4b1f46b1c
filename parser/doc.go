/*
Package parser implements the table-driven LL(1) parser: a two-stack driver
(a symbol stack of grammar.Symbol, a semantic stack of *ast.Node with nil
markers) that synthesizes a typed AST from a token stream by executing the
six semantic-action primitives embedded in the grammar ("start", "end_<kind>",
"push_<hint>", "op_<kind>", "end_sign", "end_scoperes") without any
per-nonterminal handwritten routine.

The "collect siblings above a marker, then adopt them in order" discipline
that end_<kind> implements mirrors terex/termr.ASTBuilder's construction of a
rewritten term from values collected above a marker on its own stack; here
it is generalized from TeREx's single rewrite-rule shape to the full set of
semantic-action primitives of the distilled specification.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package parser

import (
	"github.com/npillmayer/schuko/tracing"
)

// T traces with key 'toyc.parser'.
func T() tracing.Trace {
	return tracing.Select("toyc.parser")
}
