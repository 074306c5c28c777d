package vm

import (
	"github.com/funvibe/tern/internal/token"
)

func (p *Parser) declaration() {
	switch {
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

/* Declarations */

// parseVariable consumes a variable name. For locals it declares the
// name and returns -1; for globals it returns the name's constant
// index, to be consumed by OP_DEFINE_GLOBAL.
func (p *Parser) parseVariable(msg string) int {
	p.consume(token.IDENT, msg)
	p.declareVariable()
	if p.current().scopeDepth > 0 {
		return -1
	}
	return p.identifierConstant(p.prev.Lexeme)
}

// defineVariable completes a declaration: globals bind by name at
// runtime, locals simply stay at their stack slot.
func (p *Parser) defineVariable(global int) {
	if global == -1 {
		p.markInitialized()
		return
	}
	p.emit(OP_DEFINE_GLOBAL)
	p.emitByte(byte(global >> 8))
	p.emitByte(byte(global))
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("expect variable name")

	if p.match(token.ASSIGN) {
		p.expression()
	} else {
		p.emit(OP_NIL)
	}
	p.consume(token.SEMICOLON, "expect ';' after variable declaration")
	p.defineVariable(global)
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("expect function name")
	// The name is usable inside the body, so recursion works.
	p.markInitialized()
	p.function(p.prev.Lexeme)
	p.defineVariable(global)
}

// function compiles a function body into its own chunk and emits the
// OP_CLOSURE that builds the runtime value at the declaration site.
func (p *Parser) function(name string) {
	p.pushCompiler(name, TYPE_FUNCTION)
	p.beginScope()

	p.consume(token.LPAREN, "expect '(' after function name")
	if !p.check(token.RPAREN) {
		for {
			fn := p.current().function
			fn.Arity++
			if fn.Arity > MaxArguments {
				p.errorAtCurrent("too many parameters")
			}
			param := p.parseVariable("expect parameter name")
			p.defineVariable(param)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after parameters")
	p.consume(token.LBRACE, "expect '{' before function body")
	p.block()

	// The function compiler ends with the body; its outermost scope
	// dies with the frame, so no explicit endScope is needed.
	fn, upvalues := p.endCompiler()

	index := p.makeConstant(ObjVal(fn))
	p.emit(OP_CLOSURE)
	p.emitByte(byte(index >> 8))
	p.emitByte(byte(index))
	for _, up := range upvalues {
		if up.IsLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(up.Index)
	}
}

/* Statements */

func (p *Parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "expect '}' after block")
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after expression")
	p.emit(OP_POP)
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after value")
	p.emit(OP_PRINT)
}

func (p *Parser) returnStatement() {
	if p.current().funcType == TYPE_SCRIPT {
		p.error("can't return from top-level code")
	}
	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}
	p.expression()
	p.consume(token.SEMICOLON, "expect ';' after return value")
	p.emit(OP_RETURN)
}

func (p *Parser) ifStatement() {
	p.consume(token.LPAREN, "expect '(' after 'if'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	thenJump := p.emitJump(OP_JUMP_IF_FALSE)
	p.emit(OP_POP)
	p.statement()

	elseJump := p.emitJump(OP_JUMP)
	p.patchJump(thenJump)
	p.emit(OP_POP)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := p.currentChunk().Len()
	p.consume(token.LPAREN, "expect '(' after 'while'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	exitJump := p.emitJump(OP_JUMP_IF_FALSE)
	p.emit(OP_POP)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emit(OP_POP)
}

// forStatement compiles the C-style three-clause loop. The increment
// clause runs after the body, which takes a pair of jumps since the
// clause appears before the body in the bytecode.
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "expect '(' after 'for'")

	// Initializer.
	switch {
	case p.match(token.SEMICOLON):
		// none
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := p.currentChunk().Len()

	// Condition.
	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "expect ';' after loop condition")
		exitJump = p.emitJump(OP_JUMP_IF_FALSE)
		p.emit(OP_POP)
	}

	// Increment.
	if !p.match(token.RPAREN) {
		bodyJump := p.emitJump(OP_JUMP)
		incrementStart := p.currentChunk().Len()
		p.expression()
		p.emit(OP_POP)
		p.consume(token.RPAREN, "expect ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emit(OP_POP)
	}
	p.endScope()
}
