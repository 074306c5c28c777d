package vm

import (
	"math"
	"strconv"
)

// ValueType identifies the type of value stored in the Value struct
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj // heap object (string, function, closure, upvalue)
)

// Value is a stack-allocated tagged union. Nil, booleans and numbers
// are stored inline; heap objects are referenced through Obj.
type Value struct {
	Type ValueType
	Data uint64 // float64 bits or bool (0/1)
	Obj  Object
}

// Constructors

func NilVal() Value {
	return Value{Type: ValNil}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func NumberVal(v float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(v)}
}

func ObjVal(o Object) Value {
	return Value{Type: ValObj, Obj: o}
}

// Accessors

func (v Value) AsBool() bool {
	return v.Data == 1
}

func (v Value) AsNumber() float64 {
	return math.Float64frombits(v.Data)
}

func (v Value) AsString() *ObjString {
	return v.Obj.(*ObjString)
}

// Type checking helpers

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }

func (v Value) IsString() bool {
	if v.Type != ValObj {
		return false
	}
	_, ok := v.Obj.(*ObjString)
	return ok
}

// IsFalsey implements the language truthiness rule: only nil and
// false are falsey, everything else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.Type == ValNil || (v.Type == ValBool && v.Data == 0)
}

// Equals compares two values. Nil, booleans and numbers compare by
// value. Strings are interned, so identity comparison on Obj is
// content comparison; other object kinds compare by identity.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return v.Data == other.Data
	case ValNumber:
		return v.AsNumber() == other.AsNumber()
	case ValObj:
		return v.Obj == other.Obj
	default:
		return false
	}
}

// Inspect renders a value the way the print statement does
func (v Value) Inspect() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.Data == 1 {
			return "true"
		}
		return "false"
	case ValNumber:
		return strconv.FormatFloat(v.AsNumber(), 'g', -1, 64)
	case ValObj:
		return v.Obj.Inspect()
	default:
		return "nil"
	}
}
