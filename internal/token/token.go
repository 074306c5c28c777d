// Package token defines the lexical tokens of Tern.
package token

// Type identifies the kind of a token
type Type string

// Token is a single lexical unit produced by the lexer
type Token struct {
	Type   Type
	Lexeme string // the raw source text of the token
	Line   int    // 1-based source line the token starts on
}

const (
	ILLEGAL = "ILLEGAL" // scan error; Lexeme carries the message
	EOF     = "EOF"

	// Identifiers and literals
	IDENT  = "IDENT"
	NUMBER = "NUMBER"
	STRING = "STRING"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	STAR     = "*"
	SLASH    = "/"
	BANG     = "!"
	EQ       = "=="
	NOT_EQ   = "!="
	LT       = "<"
	GT       = ">"
	LT_EQ    = "<="
	GT_EQ    = ">="

	// Delimiters
	COMMA     = ","
	DOT       = "."
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"

	// Keywords
	AND    = "AND"
	ELSE   = "ELSE"
	FALSE  = "FALSE"
	FOR    = "FOR"
	FUN    = "FUN"
	IF     = "IF"
	NIL    = "NIL"
	OR     = "OR"
	PRINT  = "PRINT"
	RETURN = "RETURN"
	TRUE   = "TRUE"
	VAR    = "VAR"
	WHILE  = "WHILE"
)

var keywords = map[string]Type{
	"and":    AND,
	"else":   ELSE,
	"false":  FALSE,
	"for":    FOR,
	"fun":    FUN,
	"if":     IF,
	"nil":    NIL,
	"or":     OR,
	"print":  PRINT,
	"return": RETURN,
	"true":   TRUE,
	"var":    VAR,
	"while":  WHILE,
}

// LookupIdent returns the keyword type for ident, or IDENT if it is not a keyword
func LookupIdent(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}
