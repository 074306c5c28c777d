package vm

// beginScope starts a new block scope
func (p *Parser) beginScope() {
	p.current().scopeDepth++
}

// endScope ends the current scope and emits cleanup code. Captured
// locals are hoisted into their upvalue cells instead of being
// dropped, so closures created in the scope stay valid.
func (p *Parser) endScope() {
	c := p.current()
	c.scopeDepth--

	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].IsCaptured {
			p.emit(OP_CLOSE_UPVALUE)
		} else {
			p.emit(OP_POP)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// declareVariable records a new local in the current scope. Globals
// are late-bound by name and need no declaration.
func (p *Parser) declareVariable() {
	c := p.current()
	if c.scopeDepth == 0 {
		return
	}
	name := p.prev.Lexeme
	for i := len(c.locals) - 1; i >= 0; i-- {
		local := &c.locals[i]
		if local.Depth != -1 && local.Depth < c.scopeDepth {
			break // shadowing in a deeper scope is allowed
		}
		if local.Name == name {
			p.error("already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

func (p *Parser) addLocal(name string) {
	c := p.current()
	if len(c.locals) >= MaxLocals {
		p.error("too many local variables in function")
		return
	}
	// Depth -1 marks the local as declared but not yet initialized,
	// so its own initializer cannot read it.
	c.locals = append(c.locals, Local{Name: name, Depth: -1})
}

// markInitialized completes the innermost local's declaration
func (p *Parser) markInitialized() {
	c := p.current()
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].Depth = c.scopeDepth
}

// resolveLocal looks up name in compiler ci's locals, innermost
// declaration first. It returns the stack slot or -1, and reports a
// self-referential initializer as a compile error.
func (p *Parser) resolveLocal(ci int, name string) int {
	c := p.compilers[ci]
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			if c.locals[i].Depth == -1 {
				p.error("can't read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue resolves name as a capture for compiler ci, walking
// the compiler stack toward the script. A local of the immediate
// parent is captured directly; anything further out is reached through
// the parent's own upvalue, giving transitive sharing.
func (p *Parser) resolveUpvalue(ci int, name string) int {
	if ci == 0 {
		return -1
	}
	parent := ci - 1

	if slot := p.resolveLocal(parent, name); slot != -1 {
		p.compilers[parent].locals[slot].IsCaptured = true
		return p.addUpvalue(ci, uint8(slot), true)
	}
	if upvalue := p.resolveUpvalue(parent, name); upvalue != -1 {
		return p.addUpvalue(ci, uint8(upvalue), false)
	}
	return -1
}

// addUpvalue appends a capture descriptor, reusing an existing one
// for the same target so every reference shares a single cell.
func (p *Parser) addUpvalue(ci int, index uint8, isLocal bool) int {
	c := p.compilers[ci]
	for i, up := range c.upvalues {
		if up.Index == index && up.IsLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= MaxUpvalues {
		p.error("too many closure variables in function")
		return 0
	}
	c.upvalues = append(c.upvalues, Upvalue{Index: index, IsLocal: isLocal})
	return len(c.upvalues) - 1
}

/* Emit helpers */

func (p *Parser) emit(op Opcode) {
	p.currentChunk().WriteOp(op, p.prev.Line)
}

func (p *Parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.prev.Line)
}

// makeConstant adds a constant and returns its 2-byte pool index
func (p *Parser) makeConstant(value Value) int {
	index := p.currentChunk().AddConstant(value)
	if index > MaxConstants {
		p.error("too many constants in one chunk")
		return 0
	}
	return index
}

func (p *Parser) emitConstant(value Value) {
	index := p.makeConstant(value)
	p.emit(OP_CONST)
	p.emitByte(byte(index >> 8))
	p.emitByte(byte(index))
}

// identifierConstant interns name and stores it in the constant pool
func (p *Parser) identifierConstant(name string) int {
	return p.makeConstant(ObjVal(p.interner.Intern(name)))
}

// emitJump writes op with a placeholder offset and returns the
// position to patch once the jump target is known.
func (p *Parser) emitJump(op Opcode) int {
	p.emit(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return p.currentChunk().Len() - 2
}

// patchJump back-fills the placeholder at offset with the distance to
// the current end of the chunk.
func (p *Parser) patchJump(offset int) {
	jump := p.currentChunk().Len() - offset - 2
	if jump > 0xffff {
		p.error("too much code to jump over")
	}
	p.currentChunk().Code[offset] = byte(jump >> 8)
	p.currentChunk().Code[offset+1] = byte(jump)
}

// emitLoop jumps backward to loopStart
func (p *Parser) emitLoop(loopStart int) {
	p.emit(OP_LOOP)
	jump := p.currentChunk().Len() + 2 - loopStart
	if jump > 0xffff {
		p.error("loop body too large")
	}
	p.emitByte(byte(jump >> 8))
	p.emitByte(byte(jump))
}

// emitReturn appends the implicit return for bodies that fall through
func (p *Parser) emitReturn() {
	p.emit(OP_NIL)
	p.emit(OP_RETURN)
}
