// Package vm implements the Tern bytecode compiler and virtual machine
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Constants and literals
	OP_CONST Opcode = iota // Push constant from pool (2-byte index)
	OP_NIL                 // Push nil
	OP_TRUE                // Push true
	OP_FALSE               // Push false

	// Stack manipulation
	OP_POP // Discard top of stack

	// Variables
	OP_GET_LOCAL     // Get local by frame-relative slot (1 byte)
	OP_SET_LOCAL     // Set local by frame-relative slot (1 byte)
	OP_GET_GLOBAL    // Get global by name constant (2 bytes)
	OP_DEFINE_GLOBAL // Define global by name constant (2 bytes)
	OP_SET_GLOBAL    // Set existing global by name constant (2 bytes)
	OP_GET_UPVALUE   // Get captured variable (1-byte upvalue index)
	OP_SET_UPVALUE   // Set captured variable (1-byte upvalue index)

	// Comparison
	OP_EQ // ==
	OP_GT // >
	OP_LT // <

	// Arithmetic
	OP_ADD // + (numbers, or string concatenation)
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /

	// Logic
	OP_NOT // !
	OP_NEG // Unary minus

	// Output
	OP_PRINT // Pop and write through the output sink

	// Control flow
	OP_JUMP          // Unconditional forward jump (2-byte offset)
	OP_JUMP_IF_FALSE // Jump forward if top of stack is falsey
	OP_LOOP          // Jump backward (2-byte offset)

	// Functions and closures
	OP_CALL          // Call with argument count (1 byte)
	OP_CLOSURE       // Build closure: function constant + (isLocal, index) pairs
	OP_CLOSE_UPVALUE // Hoist the top stack slot into its upvalue cell, then pop
	OP_RETURN        // Return from function
)

// OpcodeNames maps opcodes to their string names (for the disassembler)
var OpcodeNames = map[Opcode]string{
	OP_CONST: "CONST",
	OP_NIL:   "NIL",
	OP_TRUE:  "TRUE",
	OP_FALSE: "FALSE",

	OP_POP: "POP",

	OP_GET_LOCAL:     "GET_LOCAL",
	OP_SET_LOCAL:     "SET_LOCAL",
	OP_GET_GLOBAL:    "GET_GLOBAL",
	OP_DEFINE_GLOBAL: "DEFINE_GLOBAL",
	OP_SET_GLOBAL:    "SET_GLOBAL",
	OP_GET_UPVALUE:   "GET_UPVALUE",
	OP_SET_UPVALUE:   "SET_UPVALUE",

	OP_EQ: "EQ",
	OP_GT: "GT",
	OP_LT: "LT",

	OP_ADD: "ADD",
	OP_SUB: "SUB",
	OP_MUL: "MUL",
	OP_DIV: "DIV",

	OP_NOT: "NOT",
	OP_NEG: "NEG",

	OP_PRINT: "PRINT",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_LOOP:          "LOOP",

	OP_CALL:          "CALL",
	OP_CLOSURE:       "CLOSURE",
	OP_CLOSE_UPVALUE: "CLOSE_UPVALUE",
	OP_RETURN:        "RETURN",
}
