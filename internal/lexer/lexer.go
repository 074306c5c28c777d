// Package lexer turns Tern source text into a stream of tokens.
// Tokens are produced lazily, one NextToken call at a time, so the
// compiler can pull them without the whole program being tokenized
// up front.
package lexer

import (
	"github.com/funvibe/tern/internal/token"
)

type Lexer struct {
	input    string
	start    int // start of the token currently being scanned
	position int // current position in input (points to next unread byte)
	line     int // current line number
}

func New(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// NextToken scans and returns the next token in the input.
// At end of input it returns EOF tokens forever. Invalid input
// produces an ILLEGAL token whose Lexeme is the error message;
// scanning can continue past it.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	l.start = l.position

	if l.isAtEnd() {
		return l.makeToken(token.EOF)
	}

	ch := l.advance()

	switch ch {
	case '(':
		return l.makeToken(token.LPAREN)
	case ')':
		return l.makeToken(token.RPAREN)
	case '{':
		return l.makeToken(token.LBRACE)
	case '}':
		return l.makeToken(token.RBRACE)
	case ',':
		return l.makeToken(token.COMMA)
	case '.':
		return l.makeToken(token.DOT)
	case ';':
		return l.makeToken(token.SEMICOLON)
	case '+':
		return l.makeToken(token.PLUS)
	case '-':
		return l.makeToken(token.MINUS)
	case '*':
		return l.makeToken(token.STAR)
	case '/':
		return l.makeToken(token.SLASH)
	case '!':
		if l.match('=') {
			return l.makeToken(token.NOT_EQ)
		}
		return l.makeToken(token.BANG)
	case '=':
		if l.match('=') {
			return l.makeToken(token.EQ)
		}
		return l.makeToken(token.ASSIGN)
	case '<':
		if l.match('=') {
			return l.makeToken(token.LT_EQ)
		}
		return l.makeToken(token.LT)
	case '>':
		if l.match('=') {
			return l.makeToken(token.GT_EQ)
		}
		return l.makeToken(token.GT)
	case '"':
		return l.scanString()
	}

	if isDigit(ch) {
		return l.scanNumber()
	}
	if isAlpha(ch) {
		return l.scanIdent()
	}

	return l.errorToken("unexpected character '" + string(ch) + "'")
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.position++
		case '\n':
			l.line++
			l.position++
		case '/':
			// Line comments; a lone '/' is a token, not whitespace.
			if l.peekNext() == '/' {
				for !l.isAtEnd() && l.peek() != '\n' {
					l.position++
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanString() token.Token {
	for !l.isAtEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			l.line++
		}
		l.position++
	}
	if l.isAtEnd() {
		return l.errorToken("unterminated string")
	}
	l.position++ // closing quote
	return l.makeToken(token.STRING)
}

func (l *Lexer) scanNumber() token.Token {
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.position++
	}
	// Fractional part; the dot must be followed by a digit.
	if !l.isAtEnd() && l.peek() == '.' && isDigit(l.peekNext()) {
		l.position++
		for !l.isAtEnd() && isDigit(l.peek()) {
			l.position++
		}
	}
	return l.makeToken(token.NUMBER)
}

func (l *Lexer) scanIdent() token.Token {
	for !l.isAtEnd() && isAlphaNumeric(l.peek()) {
		l.position++
	}
	return l.makeToken(token.LookupIdent(l.input[l.start:l.position]))
}

func (l *Lexer) advance() byte {
	ch := l.input[l.position]
	l.position++
	return ch
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.input[l.position] != expected {
		return false
	}
	l.position++
	return true
}

func (l *Lexer) peek() byte {
	return l.input[l.position]
}

func (l *Lexer) peekNext() byte {
	if l.position+1 >= len(l.input) {
		return 0
	}
	return l.input[l.position+1]
}

func (l *Lexer) isAtEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) makeToken(t token.Type) token.Token {
	return token.Token{Type: t, Lexeme: l.input[l.start:l.position], Line: l.line}
}

func (l *Lexer) errorToken(msg string) token.Token {
	return token.Token{Type: token.ILLEGAL, Lexeme: msg, Line: l.line}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}
