/*
Package sema implements the two AST passes that build and use symbol
tables: SymTabVisitor (symbol-table construction, inheritance resolution,
topological class ordering) and TypeCheckVisitor (bottom-up type
propagation and diagnosis).

Inferred types are modeled as the sum type Type rather than as the original
implementation's ad hoc strings (design note in section 9 of the distilled
specification): Type.String formats to the same textual forms ("typeerror",
"<base>[]") only at diagnostic- and signature-construction boundaries, the
way the teacher's own packages keep a structured value internally and defer
to String() for display.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package sema

import (
	"github.com/npillmayer/schuko/tracing"
)

// T traces with key 'toyc.sema'.
func T() tracing.Trace {
	return tracing.Select("toyc.sema")
}
