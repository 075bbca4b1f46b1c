/*
Package lexer implements a single-pass, single-rune-lookahead scanner for the
source language, in the shape of lr/scanner.DefaultTokenizer (a constructor
plus functional Options and a package-local tracer), but hand-rolling the
character-class control flow instead of delegating to text/scanner, since
the tokenization rules below are considerably more irregular than Go's own
lexical grammar.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package lexer

import (
	"github.com/npillmayer/schuko/tracing"
)

// T traces with key 'toyc.lexer'.
func T() tracing.Trace {
	return tracing.Select("toyc.lexer")
}
