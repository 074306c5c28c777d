package vm

// Interner canonicalizes string content to a single ObjString
// allocation. The compiler interns literals and identifier constants;
// the VM interns concatenation results through the same instance, so
// every string with equal content in one session is pointer-equal.
type Interner struct {
	strings *Table
}

// NewInterner creates an empty intern table
func NewInterner() *Interner {
	return &Interner{strings: NewTable()}
}

// Intern returns the canonical ObjString for chars, allocating it on
// first occurrence.
func (in *Interner) Intern(chars string) *ObjString {
	hash := hashString(chars)
	if s := in.strings.FindString(chars, hash); s != nil {
		return s
	}
	s := &ObjString{Chars: chars, Hash: hash}
	in.strings.Set(s, NilVal())
	return s
}
