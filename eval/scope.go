package eval

import "github.com/imxcstar/mini-os/minic"

// Variable is one named slot, or a fixed-length array of slots. Array length
// is set at declaration and never changes.
type Variable struct {
	Type    *minic.Type
	IsArray bool
	Value   Value
	Slots   []Value
}

// frame is one function activation: a stack of nested block scopes, innermost
// last. Name resolution searches innermost-out, then falls back to globals.
type frame struct {
	fn     *minic.Function
	scopes []map[string]*Variable
}

func newFrame(fn *minic.Function) *frame {
	return &frame{
		fn:     fn,
		scopes: []map[string]*Variable{make(map[string]*Variable)},
	}
}

func (f *frame) push() {
	f.scopes = append(f.scopes, make(map[string]*Variable))
}

func (f *frame) pop() {
	f.scopes = f.scopes[:len(f.scopes)-1]
}

func (f *frame) declare(name string, v *Variable) bool {
	scope := f.scopes[len(f.scopes)-1]
	if _, exists := scope[name]; exists {
		return false
	}

	scope[name] = v
	return true
}

func (f *frame) lookup(name string) (*Variable, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if v, ok := f.scopes[i][name]; ok {
			return v, true
		}
	}

	return nil, false
}
