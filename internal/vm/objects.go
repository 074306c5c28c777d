package vm

import "fmt"

// ObjectType identifies the kind of a heap object
type ObjectType string

const (
	STRING_OBJ   ObjectType = "STRING"
	FUNCTION_OBJ ObjectType = "FUNCTION"
	CLOSURE_OBJ  ObjectType = "CLOSURE"
	UPVALUE_OBJ  ObjectType = "UPVALUE"
)

// Object is a heap-allocated value. The set of kinds is closed:
// strings, compiled functions, closures and upvalue cells.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// ObjString is an immutable, interned string. Two ObjStrings with
// equal content are always the same allocation, so equality reduces
// to pointer comparison.
type ObjString struct {
	Chars string
	Hash  uint32 // FNV-1a of Chars, cached for table lookups
}

func (s *ObjString) Type() ObjectType { return STRING_OBJ }
func (s *ObjString) Inspect() string  { return s.Chars }

// CompiledFunction represents a function compiled to bytecode.
// Immutable after compilation; it lives in the enclosing chunk's
// constant pool and is shared by every closure built over it.
type CompiledFunction struct {
	Arity        int    // number of parameters
	Chunk        *Chunk // bytecode
	Name         string // function name, "" for the top-level script
	UpvalueCount int    // number of upvalues this function captures
}

func (f *CompiledFunction) Type() ObjectType { return FUNCTION_OBJ }
func (f *CompiledFunction) Inspect() string {
	if f.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}

// ObjClosure wraps a CompiledFunction with its captured upvalues
type ObjClosure struct {
	Function *CompiledFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Type() ObjectType { return CLOSURE_OBJ }
func (c *ObjClosure) Inspect() string  { return c.Function.Inspect() }

// ObjUpvalue is one captured variable. While open it refers to a live
// stack slot; Close detaches it with a private copy of the value. The
// transition happens exactly once, when the slot's frame or block is
// torn down. All closures capturing the same live slot share one cell,
// so writes through one are seen through all.
type ObjUpvalue struct {
	slot   int  // absolute value-stack index; valid while open
	closed bool
	value  Value // holds the value once closed

	// next links the VM's list of open upvalues, sorted by slot
	// (highest first).
	next *ObjUpvalue
}

func (u *ObjUpvalue) Type() ObjectType { return UPVALUE_OBJ }
func (u *ObjUpvalue) Inspect() string  { return "upvalue" }

// Get reads through the cell, open or closed
func (u *ObjUpvalue) Get(stack []Value) Value {
	if u.closed {
		return u.value
	}
	return stack[u.slot]
}

// Set writes through the cell, open or closed
func (u *ObjUpvalue) Set(stack []Value, v Value) {
	if u.closed {
		u.value = v
		return
	}
	stack[u.slot] = v
}

// Close copies the referenced slot into the cell and detaches it from
// the stack. Closing an already-closed cell is a no-op.
func (u *ObjUpvalue) Close(stack []Value) {
	if u.closed {
		return
	}
	u.value = stack[u.slot]
	u.closed = true
}
