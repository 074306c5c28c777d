package vm

import (
	"strconv"

	"github.com/funvibe/tern/internal/token"
)

// Precedence levels, lowest first. parsePrecedence consumes infix
// operators while their level is at least the requested minimum.
type Precedence int

const (
	PREC_NONE       Precedence = iota
	PREC_ASSIGNMENT            // =
	PREC_OR                    // or
	PREC_AND                   // and
	PREC_EQUALITY              // == !=
	PREC_COMPARISON            // < > <= >=
	PREC_TERM                  // + -
	PREC_FACTOR                // * /
	PREC_UNARY                 // ! -
	PREC_CALL                  // ()
	PREC_PRIMARY
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

// rules is the Pratt table: per token kind, an optional prefix rule,
// an optional infix rule and the infix precedence.
var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LPAREN: {(*Parser).grouping, (*Parser).call, PREC_CALL},
		token.MINUS:  {(*Parser).unary, (*Parser).binary, PREC_TERM},
		token.PLUS:   {nil, (*Parser).binary, PREC_TERM},
		token.SLASH:  {nil, (*Parser).binary, PREC_FACTOR},
		token.STAR:   {nil, (*Parser).binary, PREC_FACTOR},
		token.BANG:   {(*Parser).unary, nil, PREC_NONE},
		token.NOT_EQ: {nil, (*Parser).binary, PREC_EQUALITY},
		token.EQ:     {nil, (*Parser).binary, PREC_EQUALITY},
		token.GT:     {nil, (*Parser).binary, PREC_COMPARISON},
		token.GT_EQ:  {nil, (*Parser).binary, PREC_COMPARISON},
		token.LT:     {nil, (*Parser).binary, PREC_COMPARISON},
		token.LT_EQ:  {nil, (*Parser).binary, PREC_COMPARISON},
		token.IDENT:  {(*Parser).variable, nil, PREC_NONE},
		token.STRING: {(*Parser).stringLiteral, nil, PREC_NONE},
		token.NUMBER: {(*Parser).number, nil, PREC_NONE},
		token.AND:    {nil, (*Parser).and, PREC_AND},
		token.OR:     {nil, (*Parser).or, PREC_OR},
		token.FALSE:  {(*Parser).literal, nil, PREC_NONE},
		token.NIL:    {(*Parser).literal, nil, PREC_NONE},
		token.TRUE:   {(*Parser).literal, nil, PREC_NONE},
	}
}

func getRule(t token.Type) parseRule {
	return rules[t]
}

// expression compiles one expression, leaving exactly one value on
// the runtime stack.
func (p *Parser) expression() {
	p.parsePrecedence(PREC_ASSIGNMENT)
}

// parsePrecedence is the Pratt core: run the prefix rule for the
// current token, then fold infix operators while their precedence is
// at least prec. Assignment is only legal when the target expression
// was parsed at assignment precedence or lower.
func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := getRule(p.prev.Type).prefix
	if prefix == nil {
		p.error("expect expression")
		return
	}
	canAssign := prec <= PREC_ASSIGNMENT
	prefix(p, canAssign)

	for getRule(p.curr.Type).prec >= prec {
		p.advance()
		getRule(p.prev.Type).infix(p, canAssign)
	}

	if canAssign && p.match(token.ASSIGN) {
		p.error("invalid assignment target")
	}
}

func (p *Parser) grouping(_ bool) {
	p.expression()
	p.consume(token.RPAREN, "expect ')' after expression")
}

func (p *Parser) number(_ bool) {
	value, err := strconv.ParseFloat(p.prev.Lexeme, 64)
	if err != nil {
		p.error("invalid number literal")
		return
	}
	p.emitConstant(NumberVal(value))
}

func (p *Parser) stringLiteral(_ bool) {
	// Strip the surrounding quotes; interning makes every occurrence
	// of the same content share one allocation.
	lexeme := p.prev.Lexeme
	chars := lexeme[1 : len(lexeme)-1]
	p.emitConstant(ObjVal(p.interner.Intern(chars)))
}

func (p *Parser) literal(_ bool) {
	switch p.prev.Type {
	case token.FALSE:
		p.emit(OP_FALSE)
	case token.NIL:
		p.emit(OP_NIL)
	case token.TRUE:
		p.emit(OP_TRUE)
	}
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.prev.Lexeme, canAssign)
}

// namedVariable compiles a variable reference or assignment. The
// three-tier resolution order is local, then upvalue, then global.
func (p *Parser) namedVariable(name string, canAssign bool) {
	ci := len(p.compilers) - 1

	var getOp, setOp Opcode
	var arg int
	wideOperand := false

	if slot := p.resolveLocal(ci, name); slot != -1 {
		arg, getOp, setOp = slot, OP_GET_LOCAL, OP_SET_LOCAL
	} else if upvalue := p.resolveUpvalue(ci, name); upvalue != -1 {
		arg, getOp, setOp = upvalue, OP_GET_UPVALUE, OP_SET_UPVALUE
	} else {
		arg = p.identifierConstant(name)
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
		wideOperand = true
	}

	op := getOp
	if canAssign && p.match(token.ASSIGN) {
		p.expression()
		op = setOp
	}
	p.emit(op)
	if wideOperand {
		p.emitByte(byte(arg >> 8))
	}
	p.emitByte(byte(arg))
}

func (p *Parser) unary(_ bool) {
	op := p.prev.Type

	// Compile the operand.
	p.parsePrecedence(PREC_UNARY)

	switch op {
	case token.BANG:
		p.emit(OP_NOT)
	case token.MINUS:
		p.emit(OP_NEG)
	}
}

func (p *Parser) binary(_ bool) {
	op := p.prev.Type
	rule := getRule(op)

	// Left associativity: the right operand binds one level tighter.
	p.parsePrecedence(rule.prec + 1)

	switch op {
	case token.NOT_EQ:
		p.emit(OP_EQ)
		p.emit(OP_NOT)
	case token.EQ:
		p.emit(OP_EQ)
	case token.GT:
		p.emit(OP_GT)
	case token.GT_EQ:
		p.emit(OP_LT)
		p.emit(OP_NOT)
	case token.LT:
		p.emit(OP_LT)
	case token.LT_EQ:
		p.emit(OP_GT)
		p.emit(OP_NOT)
	case token.PLUS:
		p.emit(OP_ADD)
	case token.MINUS:
		p.emit(OP_SUB)
	case token.STAR:
		p.emit(OP_MUL)
	case token.SLASH:
		p.emit(OP_DIV)
	}
}

// and short-circuits: if the left side is falsey it is the result and
// the right side is skipped.
func (p *Parser) and(_ bool) {
	endJump := p.emitJump(OP_JUMP_IF_FALSE)
	p.emit(OP_POP)
	p.parsePrecedence(PREC_AND)
	p.patchJump(endJump)
}

// or short-circuits: if the left side is truthy it is the result and
// the right side is skipped.
func (p *Parser) or(_ bool) {
	elseJump := p.emitJump(OP_JUMP_IF_FALSE)
	endJump := p.emitJump(OP_JUMP)
	p.patchJump(elseJump)
	p.emit(OP_POP)
	p.parsePrecedence(PREC_OR)
	p.patchJump(endJump)
}

func (p *Parser) call(_ bool) {
	argCount := p.argumentList()
	p.emit(OP_CALL)
	p.emitByte(byte(argCount))
}

func (p *Parser) argumentList() int {
	argCount := 0
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if argCount == MaxArguments {
				p.error("too many arguments")
			}
			argCount++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after arguments")
	return argCount
}
