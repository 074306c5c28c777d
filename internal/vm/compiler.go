package vm

import (
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/funvibe/tern/internal/lexer"
	"github.com/funvibe/tern/internal/token"
)

// Static limits enforced at compile time
const (
	MaxLocals    = 256   // locals per function (1-byte slot operand)
	MaxUpvalues  = 256   // upvalues per function (1-byte index operand)
	MaxConstants = 65535 // constants per chunk (2-byte index operand)
	MaxArguments = 255   // arguments per call (1-byte count operand)
)

// Local represents a local variable during compilation. Its index in
// the locals list is its stack slot relative to the frame base.
type Local struct {
	Name       string
	Depth      int  // scope depth where declared; -1 until the initializer completes
	IsCaptured bool // true if captured by a nested function
}

// Upvalue is a compile-time capture descriptor
type Upvalue struct {
	Index   uint8 // slot in the enclosing function's locals, or its upvalue index
	IsLocal bool  // true if Index refers to an enclosing local, false to an enclosing upvalue
}

// FunctionType distinguishes top-level code from functions
type FunctionType int

const (
	TYPE_SCRIPT FunctionType = iota
	TYPE_FUNCTION
)

// Compiler is the per-function compilation state. Nested function
// literals push a new Compiler; the stack in Parser links them, with
// the parent at the next lower index.
type Compiler struct {
	function *CompiledFunction
	funcType FunctionType

	locals     []Local
	upvalues   []Upvalue
	scopeDepth int
}

func newCompiler(name string, funcType FunctionType) *Compiler {
	c := &Compiler{
		function: &CompiledFunction{Name: name, Chunk: NewChunk()},
		funcType: funcType,
		locals:   make([]Local, 0, 8),
	}
	// Slot 0 holds the closure being executed; reserve it with a name
	// no identifier can collide with.
	c.locals = append(c.locals, Local{Name: "", Depth: 0})
	return c
}

// Parser is the single-pass compiler: it pulls tokens from the lexer
// with one token of lookahead and emits bytecode as it parses.
type Parser struct {
	lex        *lexer.Lexer
	prev, curr token.Token

	// compilers is the stack of function compilation states,
	// innermost last. Index i's parent is index i-1.
	compilers []*Compiler

	interner *Interner

	errs      *multierror.Error
	panicMode bool
}

// Compile turns source text into the top-level function. On failure
// it returns nil and a *multierror.Error whose Errors slice holds
// every *CompileError found, in source order; no partially valid
// function is ever returned.
func Compile(source string, interner *Interner) (*CompiledFunction, error) {
	p := &Parser{
		lex:      lexer.New(source),
		interner: interner,
	}
	p.pushCompiler("", TYPE_SCRIPT)

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	fn, _ := p.endCompiler()

	if err := p.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *Parser) current() *Compiler {
	return p.compilers[len(p.compilers)-1]
}

func (p *Parser) currentChunk() *Chunk {
	return p.current().function.Chunk
}

func (p *Parser) pushCompiler(name string, funcType FunctionType) {
	p.compilers = append(p.compilers, newCompiler(name, funcType))
}

// endCompiler finishes the innermost function: appends the implicit
// nil return, pops the compiler state and hands back the function with
// its capture descriptors for the enclosing OP_CLOSURE.
func (p *Parser) endCompiler() (*CompiledFunction, []Upvalue) {
	p.emitReturn()
	c := p.current()
	c.function.UpvalueCount = len(c.upvalues)
	p.compilers = p.compilers[:len(p.compilers)-1]

	if logrus.IsLevelEnabled(logrus.DebugLevel) && p.errs.ErrorOrNil() == nil {
		logrus.Debug(Disassemble(c.function.Chunk, c.function.Inspect()))
	}
	return c.function, c.upvalues
}

/* Token handling */

func (p *Parser) advance() {
	p.prev = p.curr
	for {
		p.curr = p.lex.NextToken()
		if p.curr.Type != token.ILLEGAL {
			return
		}
		// The lexer already recovered; report and keep pulling.
		p.errorAtCurrent(p.curr.Lexeme)
	}
}

func (p *Parser) check(t token.Type) bool {
	return p.curr.Type == t
}

func (p *Parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t token.Type, msg string) {
	if p.check(t) {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

/* Error reporting and synchronization */

func (p *Parser) errorAt(tok token.Token, msg string) {
	// One diagnostic per synchronization window.
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.errs = multierror.Append(p.errs, &CompileError{Line: tok.Line, Message: msg})
}

func (p *Parser) error(msg string) {
	p.errorAt(p.prev, msg)
}

func (p *Parser) errorAtCurrent(msg string) {
	p.errorAt(p.curr, msg)
}

// synchronize discards tokens until a statement boundary so the
// compile can continue and report further independent errors.
func (p *Parser) synchronize() {
	p.panicMode = false
	for !p.check(token.EOF) {
		if p.prev.Type == token.SEMICOLON {
			return
		}
		switch p.curr.Type {
		case token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}
