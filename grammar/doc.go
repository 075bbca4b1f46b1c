/*
Package grammar models a context-free grammar loaded from a plain-text
production list, in the istream-line-splitting style of the original
Grammar::ReadGrammar, adapted to Go's bufio.Scanner.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package grammar

import (
	"github.com/npillmayer/schuko/tracing"
)

// T traces with key 'toyc.grammar'.
func T() tracing.Trace {
	return tracing.Select("toyc.grammar")
}
