package vm

import (
	"fmt"
	"strings"
)

// CompileError is a single compile-time diagnostic. A failed compile
// reports a batch of these, collected through error synchronization.
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Message)
}

// TraceFrame is one entry of a runtime call-stack trace
type TraceFrame struct {
	Function string // function name, "script" for top-level code
	Line     int
}

// RuntimeError aborts execution. It carries the failure line and the
// call stack at the point of failure, innermost frame first.
type RuntimeError struct {
	Message string
	Line    int
	Trace   []TraceFrame
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Message)
}

// Stack renders the trace in reporting order
func (e *RuntimeError) Stack() string {
	var sb strings.Builder
	for _, frame := range e.Trace {
		fmt.Fprintf(&sb, "[line %d] in %s\n", frame.Line, frame.Function)
	}
	return sb.String()
}
