package eval

import (
	"fmt"

	"github.com/imxcstar/mini-os/heap"
)

type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindString
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// Value is the tagged union MiniC expressions produce. Pointers carry the
// heap they point into; a pointer is null iff its heap is absent or its
// address is negative.
type Value struct {
	Kind Kind
	Int  int32
	Str  string
	Heap *heap.Heap
	Addr int32
}

func VoidValue() Value {
	return Value{Kind: KindVoid}
}

func IntValue(v int32) Value {
	return Value{Kind: KindInt, Int: v}
}

func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func PointerValue(h *heap.Heap, addr int32) Value {
	return Value{Kind: KindPointer, Heap: h, Addr: addr}
}

func NullPointer() Value {
	return Value{Kind: KindPointer, Addr: -1}
}

func (v Value) IsNull() bool {
	return v.Kind == KindPointer && (v.Heap == nil || v.Addr < 0)
}

// AsInt is the integer representation used for arithmetic, truthiness and
// assignment to numeric slots. Void normalizes to 0 and pointers to their
// address; strings have no integer representation.
func (v Value) AsInt() (int32, error) {
	switch v.Kind {
	case KindVoid:
		return 0, nil
	case KindInt:
		return v.Int, nil
	case KindPointer:
		if v.IsNull() {
			return 0, nil
		}
		return v.Addr, nil
	default:
		return 0, fmt.Errorf("%s value has no integer representation", v.Kind)
	}
}

func (v Value) Truthy() (bool, error) {
	switch v.Kind {
	case KindString:
		return v.Str != "", nil
	default:
		n, err := v.AsInt()
		if err != nil {
			return false, err
		}
		return n != 0, nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindPointer:
		if v.IsNull() {
			return "null"
		}
		return fmt.Sprintf("ptr(0x%x)", v.Addr)
	default:
		return "unknown"
	}
}
