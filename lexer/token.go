package lexer

import "github.com/npillmayer/toyc"

// Token kinds, in the same order as the original token taxonomy.
const (
	ID toyc.TokenKind = iota
	IntNum
	FloatNum
	Eq
	Neq
	Lt
	Gt
	Leq
	Geq
	Plus
	Minus
	Mult
	Div
	Assign
	OpenPar
	ClosePar
	OpenCbr
	CloseCbr
	OpenSqbr
	CloseSqbr
	Semicolon
	Comma
	Dot
	Colon
	ScopeRes
	// Reserved words.
	If
	Then
	Else
	While
	Class
	Integer
	Float
	Do
	End
	Public
	Private
	Or
	And
	Not
	Read
	Write
	Return
	Main
	Inherits
	Local
	Void
	// Comments.
	BlockCmt
	InlineCmt
	// Lexical errors.
	InvalidID
	InvalidChar
	InvalidNum
	UnterminatedCmt
	// End of source.
	EOS
)

// kindNames gives the canonical name used both as Token.KindName and as the
// raw text of a quoted terminal symbol in the grammar file.
var kindNames = map[toyc.TokenKind]string{
	ID:        "id",
	IntNum:    "intNum",
	FloatNum:  "floatNum",
	Eq:        "eq",
	Neq:       "neq",
	Lt:        "lt",
	Gt:        "gt",
	Leq:       "leq",
	Geq:       "geq",
	Plus:      "+",
	Minus:     "-",
	Mult:      "*",
	Div:       "/",
	Assign:    "=",
	OpenPar:   "(",
	ClosePar:  ")",
	OpenCbr:   "{",
	CloseCbr:  "}",
	OpenSqbr:  "[",
	CloseSqbr: "]",
	Semicolon: ";",
	Comma:     ",",
	Dot:       ".",
	Colon:     ":",
	ScopeRes:  "sr",

	If:       "if",
	Then:     "then",
	Else:     "else",
	While:    "while",
	Class:    "class",
	Integer:  "integer",
	Float:    "float",
	Do:       "do",
	End:      "end",
	Public:   "public",
	Private:  "private",
	Or:       "or",
	And:      "and",
	Not:      "not",
	Read:     "read",
	Write:    "write",
	Return:   "return",
	Main:     "main",
	Inherits: "inherits",
	Local:    "local",
	Void:     "void",

	BlockCmt:  "block_cmt",
	InlineCmt: "inline_cmt",

	InvalidID:       "invalid_id",
	InvalidChar:     "invalid_char",
	InvalidNum:      "invalid_num",
	UnterminatedCmt: "unterminated_cmt",

	EOS: "$",
}

// reservedWords maps a scanned identifier's text to its reserved TokenKind.
var reservedWords = map[string]toyc.TokenKind{
	"if": If, "then": Then, "else": Else, "while": While, "class": Class,
	"integer": Integer, "float": Float, "do": Do, "end": End,
	"public": Public, "private": Private, "or": Or, "and": And, "not": Not,
	"read": Read, "write": Write, "return": Return, "main": Main,
	"inherits": Inherits, "local": Local, "void": Void,
}

// KindName returns the canonical textual name for a token kind.
func KindName(k toyc.TokenKind) string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "?"
}

// IsReserved reports whether word is one of the language's reserved words.
func IsReserved(word string) bool {
	_, ok := reservedWords[word]
	return ok
}

func makeToken(kind toyc.TokenKind, lexeme string, line int) toyc.Token {
	return toyc.Token{Kind: kind, KindName: KindName(kind), Lexeme: lexeme, Pos: toyc.Position{Line: line}}
}

// IsComment reports whether a token is a (block or inline) comment token.
func IsComment(t toyc.Token) bool {
	return t.Kind == BlockCmt || t.Kind == InlineCmt
}
