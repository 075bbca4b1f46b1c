/*
Package parsegen computes FIRST/FOLLOW sets for a grammar and constructs the
LL(1) parse table from them, following the two-pass algorithm of the
original ParserGenerator: CalculateSets (FIRST and FOLLOW, with
cross-symbol FOLLOW dependencies resolved by a second pass) then
ConstructTable (fill one table cell per (non-terminal, lookahead) pair).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package parsegen

import (
	"github.com/npillmayer/schuko/tracing"
)

// T traces with key 'toyc.parsegen'.
func T() tracing.Trace {
	return tracing.Select("toyc.parsegen")
}
