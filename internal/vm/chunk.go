package vm

// Chunk represents a sequence of bytecode instructions
type Chunk struct {
	// Code is the bytecode instructions
	Code []byte

	// Constants pool - literals, function objects, identifier names
	Constants []Value

	// Lines maps bytecode offset to source line number (for errors)
	Lines []int
}

// NewChunk creates a new empty chunk
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]Value, 0, 8),
		Lines:     make([]int, 0, 64),
	}
}

// Write adds a byte to the chunk with line info
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp writes an opcode to the chunk
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// AddConstant adds a constant to the pool and returns its index.
// The compiler checks the index against the 2-byte operand limit.
func (c *Chunk) AddConstant(value Value) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// ReadConstantIndex reads a 2-byte constant index at offset
func (c *Chunk) ReadConstantIndex(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

// Len returns the number of bytes in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}
