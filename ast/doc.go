/*
Package ast defines the abstract syntax tree synthesized by the parser's
semantic actions. Rather than the original's one-C++-class-per-node-kind
hierarchy (AddOpNode, AParamsNode, ClassNode, ...), every node is a single Go
struct tagged with a Kind, with passes dispatching on that tag -- a data
layout the language's visitor-per-pass compiler structure fits naturally,
and one that avoids reproducing three dozen near-empty subclasses whose only
distinct behavior was their ToStr() label and which concrete Visit overload
they called.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package ast

import (
	"github.com/npillmayer/schuko/tracing"
)

// T traces with key 'toyc.ast'.
func T() tracing.Trace {
	return tracing.Select("toyc.ast")
}
