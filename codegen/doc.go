/*
Package codegen implements the final two AST passes: MemSizeVisitor assigns
every symbol-table entry a size and a frame-relative offset, and
CodeGenVisitor walks the now fully-typed, fully-sized tree to emit target
assembly text.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package codegen

import (
	"github.com/npillmayer/schuko/tracing"
)

// T traces with key 'toyc.codegen'.
func T() tracing.Trace {
	return tracing.Select("toyc.codegen")
}
