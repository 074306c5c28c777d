// Package tern is the embedding API: compile Tern source text and run
// the result against an output sink of the caller's choosing.
package tern

import (
	"io"

	"github.com/funvibe/tern/internal/vm"
)

// Program is a compiled top-level function together with the intern
// table it was compiled against. Running it through any other session
// would break string identity, so the pairing is kept explicit.
type Program struct {
	function *vm.CompiledFunction
	session  *Session
}

// Session holds the state that outlives a single program run: the
// string intern table and the VM with its global bindings. A REPL
// compiles each line into the same session so globals persist.
type Session struct {
	interner *vm.Interner
	machine  *vm.VM
}

// NewSession creates an empty session
func NewSession() *Session {
	interner := vm.NewInterner()
	return &Session{
		interner: interner,
		machine:  vm.New(interner),
	}
}

// SetTrace enables per-instruction execution logging on the session's VM
func (s *Session) SetTrace(enabled bool) {
	s.machine.SetTrace(enabled)
}

// Compile turns source into a runnable Program. On failure it returns
// nil and an error whose multierror Errors slice holds every
// *vm.CompileError found, in source order; a partially valid program
// is never returned.
func (s *Session) Compile(source string) (*Program, error) {
	fn, err := vm.Compile(source, s.interner)
	if err != nil {
		return nil, err
	}
	return &Program{function: fn, session: s}, nil
}

// Run executes the program, writing print output to out. A non-nil
// error is a *vm.RuntimeError. Global state survives in the session
// either way.
func (p *Program) Run(out io.Writer) error {
	p.session.machine.SetOutput(out)
	return p.session.machine.Run(p.function)
}

// Function exposes the compiled top-level function (for disassembly)
func (p *Program) Function() *vm.CompiledFunction {
	return p.function
}

// Compile compiles source in a fresh session
func Compile(source string) (*Program, error) {
	return NewSession().Compile(source)
}

// Interpret compiles and runs source in a fresh session, writing
// print output to out.
func Interpret(source string, out io.Writer) error {
	program, err := Compile(source)
	if err != nil {
		return err
	}
	return program.Run(out)
}
