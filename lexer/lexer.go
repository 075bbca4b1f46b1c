package lexer

import (
	"bufio"
	"io"
	"strings"

	"github.com/npillmayer/toyc"
	"github.com/npillmayer/toyc/diag"
)

// Option configures a Lexer, following the functional-option shape of
// lr/scanner.Option.
type Option func(*Lexer)

// SkipComments makes NextToken transparently skip comment tokens instead of
// returning them. The parser driver normally does this skipping itself (the
// grammar treats comments as insignificant), but Option is provided for
// standalone lexer use and tests.
func SkipComments(b bool) Option {
	return func(l *Lexer) { l.skipComments = b }
}

// Lexer is a single-pass, single-rune-lookahead scanner over a source
// reader. Re-usable across a full source file: NextToken never fails,
// lexical errors are surfaced as error-kind tokens and also reported to the
// diagnostics sink supplied at construction.
type Lexer struct {
	r            *bufio.Reader
	line         int
	sink         *diag.Sink
	skipComments bool
	atEOF        bool
}

// New creates a Lexer reading from r, reporting lexical errors into sink.
func New(r io.Reader, sink *diag.Sink, opts ...Option) *Lexer {
	l := &Lexer{r: bufio.NewReader(r), line: 1, sink: sink}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lexer) getRune() (rune, bool) {
	if l.atEOF {
		return 0, false
	}
	r, _, err := l.r.ReadRune()
	if err != nil {
		l.atEOF = true
		return 0, false
	}
	return r, true
}

// ungetRune pushes back the most recently read rune. Valid only immediately
// after a successful getRune, matching the single-character unget()
// discipline of the original scanner.
func (l *Lexer) ungetRune() {
	_ = l.r.UnreadRune()
}

func isAlpha(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isAlnum(r rune) bool { return isAlpha(r) || isDigit(r) }
func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// isNumTerminatingChar reports whether r can legally terminate a numeric
// literal, per the terminator set fixed in section 4.1 of the specification.
func isNumTerminatingChar(r rune) bool {
	if isSpaceRune(r) {
		return true
	}
	switch r {
	case '=', '+', '-', '/', '*', '<', '>', '(', ')', ';', ']', ',':
		return true
	}
	return false
}

// HasNext reports whether more tokens remain. Skips whitespace as a side
// effect, matching the original Lexer::HasNext.
func (l *Lexer) HasNext() bool {
	l.skipWs()
	return !l.atEOF
}

// skipWs consumes whitespace, counting newlines towards the line number.
func (l *Lexer) skipWs() {
	for {
		c, ok := l.getRune()
		if !ok {
			return
		}
		if !isSpaceRune(c) {
			l.ungetRune()
			return
		}
		if c == '\n' {
			l.line++
		}
	}
}

// NextToken returns the next token, skipping leading whitespace. At end of
// input it returns an EOS token forever after.
func (l *Lexer) NextToken() toyc.Token {
	for {
		tk := l.nextTokenRaw()
		if l.skipComments && IsComment(tk) {
			continue
		}
		return tk
	}
}

func (l *Lexer) nextTokenRaw() toyc.Token {
	l.skipWs()
	line := l.line
	c, ok := l.getRune()
	var tk toyc.Token
	switch {
	case !ok:
		tk = makeToken(EOS, "$", line)
	case isAlpha(c) || c == '_':
		tk = l.handleID(c, line)
	case isDigit(c):
		tk = l.handleNum(c, line)
	case c == '=':
		if c2, ok2 := l.getRune(); ok2 && c2 == '=' {
			tk = makeToken(Eq, "==", line)
		} else {
			if ok2 {
				l.ungetRune()
			}
			tk = makeToken(Assign, "=", line)
		}
	case c == '<':
		if c2, ok2 := l.getRune(); ok2 && c2 == '=' {
			tk = makeToken(Leq, "<=", line)
		} else if ok2 && c2 == '>' {
			tk = makeToken(Neq, "<>", line)
		} else {
			if ok2 {
				l.ungetRune()
			}
			tk = makeToken(Lt, "<", line)
		}
	case c == '>':
		if c2, ok2 := l.getRune(); ok2 && c2 == '=' {
			tk = makeToken(Geq, ">=", line)
		} else {
			if ok2 {
				l.ungetRune()
			}
			tk = makeToken(Gt, ">", line)
		}
	case c == '+':
		tk = makeToken(Plus, "+", line)
	case c == '-':
		tk = makeToken(Minus, "-", line)
	case c == '*':
		tk = makeToken(Mult, "*", line)
	case c == '/':
		tk = l.handleDivOrComment(line)
	case c == '(':
		tk = makeToken(OpenPar, "(", line)
	case c == ')':
		tk = makeToken(ClosePar, ")", line)
	case c == '{':
		tk = makeToken(OpenCbr, "{", line)
	case c == '}':
		tk = makeToken(CloseCbr, "}", line)
	case c == '[':
		tk = makeToken(OpenSqbr, "[", line)
	case c == ']':
		tk = makeToken(CloseSqbr, "]", line)
	case c == ';':
		tk = makeToken(Semicolon, ";", line)
	case c == ',':
		tk = makeToken(Comma, ",", line)
	case c == '.':
		tk = makeToken(Dot, ".", line)
	case c == ':':
		if c2, ok2 := l.getRune(); ok2 && c2 == ':' {
			tk = makeToken(ScopeRes, "::", line)
		} else {
			if ok2 {
				l.ungetRune()
			}
			tk = makeToken(Colon, ":", line)
		}
	default:
		tk = makeToken(InvalidChar, string(c), line)
	}
	l.logToken(tk)
	return tk
}

// handleID scans an identifier/reserved word, or (when first == '_') an
// invalid identifier that greedily consumes up to the next whitespace.
func (l *Lexer) handleID(first rune, line int) toyc.Token {
	var sb strings.Builder
	sb.WriteRune(first)
	if first == '_' {
		for {
			c, ok := l.getRune()
			if !ok || isSpaceRune(c) {
				if ok {
					l.ungetRune()
				}
				break
			}
			sb.WriteRune(c)
		}
		return makeToken(InvalidID, sb.String(), line)
	}
	for {
		c, ok := l.getRune()
		if !ok || !(isAlnum(c) || c == '_') {
			if ok {
				l.ungetRune()
			}
			break
		}
		sb.WriteRune(c)
	}
	s := sb.String()
	if kind, isRes := reservedWords[s]; isRes {
		return makeToken(kind, s, line)
	}
	return makeToken(ID, s, line)
}

// consumeGreedyInvalid appends every character up to the next terminator (or
// EOF) to sb, used by both HandleNum and HandleFloatNum's invalid-number
// tails.
func (l *Lexer) consumeGreedyInvalid(sb *strings.Builder) {
	for {
		c, ok := l.getRune()
		if !ok || isNumTerminatingChar(c) {
			if ok {
				l.ungetRune()
			}
			return
		}
		sb.WriteRune(c)
	}
}

// handleNum scans an integer or float literal starting at the already-read
// digit `first`.
func (l *Lexer) handleNum(first rune, line int) toyc.Token {
	var sb strings.Builder
	sb.WriteRune(first)
	if first == '0' {
		c, ok := l.getRune()
		if !ok {
			return makeToken(IntNum, sb.String(), line)
		}
		if c == '.' {
			return l.handleFloatNum(&sb, line)
		}
		if !isNumTerminatingChar(c) {
			sb.WriteRune(c)
			l.consumeGreedyInvalid(&sb)
			return makeToken(InvalidNum, sb.String(), line)
		}
		l.ungetRune()
		return makeToken(IntNum, sb.String(), line)
	}
	// non-zero leading digit: consume the rest of the integer part.
	for {
		c, ok := l.getRune()
		if !ok || !isDigit(c) {
			if ok {
				l.ungetRune()
			}
			break
		}
		sb.WriteRune(c)
	}
	c, ok := l.getRune()
	if ok && c == '.' {
		return l.handleFloatNum(&sb, line)
	}
	if ok && !isNumTerminatingChar(c) {
		sb.WriteRune(c)
		l.consumeGreedyInvalid(&sb)
		return makeToken(InvalidNum, sb.String(), line)
	}
	if ok {
		l.ungetRune()
	}
	return makeToken(IntNum, sb.String(), line)
}

// handleFloatNum scans the fractional part (and optional exponent) of a
// float literal; sb already holds the integer part and the caller has just
// consumed the '.'. A fractional part must have at least one digit and must
// not end in '0' (unless the fraction is exactly "0"); a lone zero exponent
// is invalid.
func (l *Lexer) handleFloatNum(sb *strings.Builder, line int) toyc.Token {
	sb.WriteRune('.')
	c, ok := l.getRune()
	if !ok || !isDigit(c) {
		if ok {
			l.ungetRune()
		}
		return makeToken(InvalidNum, sb.String(), line)
	}
	sb.WriteRune(c)
	fracDigits := 1
	endsWithZero := c == '0'
	for {
		c, ok = l.getRune()
		if !ok || !isDigit(c) {
			break
		}
		fracDigits++
		endsWithZero = c == '0'
		sb.WriteRune(c)
	}
	if endsWithZero && fracDigits > 1 {
		if ok {
			l.ungetRune()
		}
		return makeToken(InvalidNum, sb.String(), line)
	}
	if ok && c == 'e' {
		return l.handleExponent(sb, line)
	}
	if ok {
		l.ungetRune()
	}
	return makeToken(FloatNum, sb.String(), line)
}

func (l *Lexer) handleExponent(sb *strings.Builder, line int) toyc.Token {
	sb.WriteRune('e')
	c, ok := l.getRune()
	if ok && (c == '+' || c == '-') {
		sb.WriteRune(c)
		c, ok = l.getRune()
	}
	if !ok || !isDigit(c) {
		if ok {
			l.ungetRune()
		}
		return makeToken(InvalidNum, sb.String(), line)
	}
	if c == '0' {
		sb.WriteRune(c)
		c2, ok2 := l.getRune()
		if ok2 && !isNumTerminatingChar(c2) {
			sb.WriteRune(c2)
			l.consumeGreedyInvalid(sb)
			return makeToken(InvalidNum, sb.String(), line)
		}
		if ok2 {
			l.ungetRune()
		}
		return makeToken(InvalidNum, sb.String(), line) // a lone '0' exponent is invalid
	}
	sb.WriteRune(c)
	for {
		c, ok = l.getRune()
		if !ok || !isDigit(c) {
			if ok {
				l.ungetRune()
			}
			break
		}
		sb.WriteRune(c)
	}
	return makeToken(FloatNum, sb.String(), line)
}

// handleDivOrComment disambiguates '/', "//..." and "/*...*/".
func (l *Lexer) handleDivOrComment(line int) toyc.Token {
	c, ok := l.getRune()
	if ok && c == '/' {
		var sb strings.Builder
		sb.WriteString("//")
		for {
			c, ok = l.getRune()
			if !ok || c == '\n' {
				if ok {
					l.ungetRune()
				}
				break
			}
			sb.WriteRune(c)
		}
		return makeToken(InlineCmt, sb.String(), line)
	}
	if ok && c == '*' {
		var sb strings.Builder
		sb.WriteString("/*")
		for {
			c, ok = l.getRune()
			if !ok {
				return makeToken(UnterminatedCmt, sb.String(), line)
			}
			if c == '*' {
				c2, ok2 := l.getRune()
				if !ok2 {
					return makeToken(UnterminatedCmt, sb.String(), line)
				}
				if c2 == '/' {
					sb.WriteString("*/")
					return makeToken(BlockCmt, sb.String(), line)
				}
				sb.WriteRune('*')
				l.ungetRune()
				continue
			}
			if c == '\n' {
				l.line++
			}
			sb.WriteRune(c)
		}
	}
	if ok {
		l.ungetRune()
	}
	return makeToken(Div, "/", line)
}

// logToken appends every token to the trace, and raises a diagnostic for
// error-kind tokens.
func (l *Lexer) logToken(tk toyc.Token) {
	T().Debugf("token %s", tk)
	if l.sink == nil {
		return
	}
	switch tk.Kind {
	case InvalidID:
		l.sink.Err("Invalid identifier '"+tk.Lexeme+"'", tk.Line(), diag.Lexing)
	case InvalidChar:
		l.sink.Err("Invalid character '"+tk.Lexeme+"'", tk.Line(), diag.Lexing)
	case InvalidNum:
		l.sink.Err("Invalid number '"+tk.Lexeme+"'", tk.Line(), diag.Lexing)
	case UnterminatedCmt:
		l.sink.Err("Unterminated comment '"+tk.Lexeme+"'", tk.Line(), diag.Lexing)
	}
}
