// Package eval is the tree-walking interpreter for compiled MiniC programs.
// It executes a program graph against the owning process's heap and the
// injected syscall surface.
package eval

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/imxcstar/mini-os/heap"
	"github.com/imxcstar/mini-os/kernel"
	"github.com/imxcstar/mini-os/minic"
)

// ErrCancelled unwinds the evaluator when cooperative cancellation is
// observed. The scheduler reports it as exit code 130.
var ErrCancelled = errors.New("process cancelled")

// RuntimeError is fatal to the offending process only: the process prints the
// message and exits with code 1.
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("runtime error: %s (line %d)", e.Message, e.Line)
	}
	return fmt.Sprintf("runtime error: %s", e.Message)
}

func rtErrf(line int, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// Builtin is one entry of the syscall surface. Builtins ignore declared
// argument counts; they validate what they need themselves.
type Builtin func(ctx context.Context, task *kernel.Task, args []Value) (Value, error)

// Syscalls is the surface the evaluator dispatches unresolved calls to.
type Syscalls interface {
	Lookup(name string) (Builtin, bool)
}

// control-flow results propagated up the statement execution chain. Loops
// absorb broke/continued; function bodies absorb returned.
type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlReturn
	ctrlBreak
	ctrlContinue
)

type ctrl struct {
	kind  ctrlKind
	value Value
}

type Evaluator struct {
	prog    *minic.Program
	task    *kernel.Task
	sys     Syscalls
	globals map[string]*Variable
}

func New(prog *minic.Program, task *kernel.Task, sys Syscalls) *Evaluator {
	return &Evaluator{
		prog:    prog,
		task:    task,
		sys:     sys,
		globals: make(map[string]*Variable),
	}
}

func (e *Evaluator) heap() *heap.Heap {
	if e.task == nil {
		return nil
	}
	return e.task.Heap()
}

// Run executes main exactly once and returns the exit code narrowed from its
// return value (0 when main yields nothing).
func (e *Evaluator) Run(ctx context.Context) (int32, error) {
	if err := e.initGlobals(); err != nil {
		return 0, err
	}

	main := e.prog.Functions["main"]
	if main == nil || !main.HasBody {
		return 0, rtErrf(0, "program has no main function")
	}

	if len(main.Params) > 0 {
		return 0, rtErrf(main.Line, "main takes no parameters; use argc/argv")
	}

	v, err := e.invoke(ctx, main, nil)
	if err != nil {
		return 0, err
	}

	if v.Kind == KindVoid {
		return 0, nil
	}

	code, err := v.AsInt()
	if err != nil {
		return 0, rtErrf(main.Line, "main returned a %s value", v.Kind)
	}

	return code, nil
}

// initGlobals builds the global table once. Only literal initializers are
// allowed at global scope.
func (e *Evaluator) initGlobals() error {
	for _, decl := range e.prog.Globals {
		v, err := e.newVariable(context.Background(), decl, nil)
		if err != nil {
			return err
		}

		if _, exists := e.globals[decl.Name]; exists {
			return rtErrf(decl.Line, "duplicate global %q", decl.Name)
		}

		e.globals[decl.Name] = v
	}

	return nil
}

func (e *Evaluator) literal(x minic.Expr) (Value, error) {
	switch lit := x.(type) {
	case *minic.IntLit:
		return IntValue(lit.Value), nil
	case *minic.StringLit:
		return StringValue(lit.Value), nil
	case *minic.Unary:
		if inner, ok := lit.X.(*minic.IntLit); ok && lit.Op == "-" {
			return IntValue(-inner.Value), nil
		}
	}

	return Value{}, rtErrf(x.ExprLine(), "global initializers must be literals")
}

// newVariable builds the storage for a declaration. fr is nil for globals,
// which restricts initializers to literals.
func (e *Evaluator) newVariable(ctx context.Context, decl *minic.VarDecl, fr *frame) (*Variable, error) {
	if decl.Type.IsVoid() {
		return nil, rtErrf(decl.Line, "cannot declare void variable %q", decl.Name)
	}

	v := &Variable{Type: decl.Type}

	if decl.IsArray {
		v.IsArray = true
		v.Slots = make([]Value, decl.ArrayLen)
		for i := range v.Slots {
			v.Slots[i] = e.zeroValue(decl.Type)
		}
		return v, nil
	}

	var init Value
	var err error

	switch {
	case decl.Init == nil:
		init = e.zeroValue(decl.Type)
	case fr == nil:
		init, err = e.literal(decl.Init)
	default:
		init, err = e.evalExpr(ctx, fr, decl.Init)
	}
	if err != nil {
		return nil, err
	}

	v.Value, err = e.coerce(decl.Type, init, decl.Line)
	if err != nil {
		return nil, err
	}

	return v, nil
}

func (e *Evaluator) zeroValue(t *minic.Type) Value {
	if t.IsPointer() {
		return NullPointer()
	}
	return IntValue(0)
}

// coerce applies the assignment rules for a slot of the given declared type.
func (e *Evaluator) coerce(t *minic.Type, v Value, line int) (Value, error) {
	if t.IsPointer() {
		switch v.Kind {
		case KindString, KindPointer:
			return v, nil
		case KindVoid:
			return NullPointer(), nil
		case KindInt:
			if v.Int == 0 {
				return NullPointer(), nil
			}
			return PointerValue(e.heap(), v.Int), nil
		}
	}

	if v.Kind == KindString {
		return Value{}, rtErrf(line, "cannot assign string to %s", t)
	}

	n, err := v.AsInt()
	if err != nil {
		return Value{}, rtErrf(line, "%s", err)
	}

	return IntValue(n), nil
}

func (e *Evaluator) checkCancel(ctx context.Context) error {
	if e.task != nil && e.task.Cancelled() {
		return ErrCancelled
	}

	if ctx.Err() != nil {
		return ErrCancelled
	}

	return nil
}

// invoke runs a user function in a fresh frame.
func (e *Evaluator) invoke(ctx context.Context, fn *minic.Function, args []Value) (Value, error) {
	fr := newFrame(fn)

	for i, p := range fn.Params {
		v, err := e.coerce(p.Type, args[i], fn.Line)
		if err != nil {
			return Value{}, err
		}

		fr.declare(p.Name, &Variable{Type: p.Type, Value: v})
	}

	for _, s := range fn.Body {
		c, err := e.execStmt(ctx, fr, s)
		if err != nil {
			return Value{}, err
		}

		switch c.kind {
		case ctrlReturn:
			return c.value, nil
		case ctrlBreak, ctrlContinue:
			return Value{}, rtErrf(s.StmtLine(), "break/continue outside loop")
		}
	}

	return VoidValue(), nil
}

// ---- statements ----

func (e *Evaluator) execStmt(ctx context.Context, fr *frame, s minic.Stmt) (ctrl, error) {
	// Cancellation is polled once per statement.
	if err := e.checkCancel(ctx); err != nil {
		return ctrl{}, err
	}

	switch st := s.(type) {
	case *minic.VarDecl:
		v, err := e.newVariable(ctx, st, fr)
		if err != nil {
			return ctrl{}, err
		}
		if !fr.declare(st.Name, v) {
			return ctrl{}, rtErrf(st.Line, "variable %q redeclared", st.Name)
		}
		return ctrl{}, nil

	case *minic.ExprStmt:
		_, err := e.evalExpr(ctx, fr, st.X)
		return ctrl{}, err

	case *minic.Block:
		fr.push()
		defer fr.pop()

		for _, inner := range st.Stmts {
			c, err := e.execStmt(ctx, fr, inner)
			if err != nil || c.kind != ctrlNone {
				return c, err
			}
		}
		return ctrl{}, nil

	case *minic.If:
		ok, err := e.condition(ctx, fr, st.Cond)
		if err != nil {
			return ctrl{}, err
		}

		if ok {
			return e.execStmt(ctx, fr, st.Then)
		}
		if st.Else != nil {
			return e.execStmt(ctx, fr, st.Else)
		}
		return ctrl{}, nil

	case *minic.While:
		for {
			ok, err := e.condition(ctx, fr, st.Cond)
			if err != nil {
				return ctrl{}, err
			}
			if !ok {
				return ctrl{}, nil
			}

			c, err := e.execStmt(ctx, fr, st.Body)
			if err != nil {
				return ctrl{}, err
			}

			switch c.kind {
			case ctrlBreak:
				return ctrl{}, nil
			case ctrlReturn:
				return c, nil
			}
		}

	case *minic.For:
		fr.push()
		defer fr.pop()

		if st.Init != nil {
			if _, err := e.execStmt(ctx, fr, st.Init); err != nil {
				return ctrl{}, err
			}
		}

		for {
			if st.Cond != nil {
				ok, err := e.condition(ctx, fr, st.Cond)
				if err != nil {
					return ctrl{}, err
				}
				if !ok {
					return ctrl{}, nil
				}
			}

			c, err := e.execStmt(ctx, fr, st.Body)
			if err != nil {
				return ctrl{}, err
			}

			if c.kind == ctrlBreak {
				return ctrl{}, nil
			}
			if c.kind == ctrlReturn {
				return c, nil
			}

			if st.Post != nil {
				if _, err := e.evalExpr(ctx, fr, st.Post); err != nil {
					return ctrl{}, err
				}
			}
		}

	case *minic.Return:
		if st.Value == nil {
			if !fr.fn.Return.IsVoid() {
				return ctrl{}, rtErrf(st.Line, "%s function %q returns no value", fr.fn.Return, fr.fn.Name)
			}
			return ctrl{kind: ctrlReturn, value: VoidValue()}, nil
		}

		if fr.fn.Return.IsVoid() {
			return ctrl{}, rtErrf(st.Line, "void function %q returns a value", fr.fn.Name)
		}

		v, err := e.evalExpr(ctx, fr, st.Value)
		if err != nil {
			return ctrl{}, err
		}

		return ctrl{kind: ctrlReturn, value: v}, nil

	case *minic.Break:
		return ctrl{kind: ctrlBreak}, nil

	case *minic.Continue:
		return ctrl{kind: ctrlContinue}, nil

	default:
		return ctrl{}, rtErrf(s.StmtLine(), "unhandled statement %T", s)
	}
}

func (e *Evaluator) condition(ctx context.Context, fr *frame, x minic.Expr) (bool, error) {
	v, err := e.evalExpr(ctx, fr, x)
	if err != nil {
		return false, err
	}

	ok, terr := v.Truthy()
	if terr != nil {
		return false, rtErrf(x.ExprLine(), "%s", terr)
	}

	return ok, nil
}

// ---- expressions ----

func (e *Evaluator) evalExpr(ctx context.Context, fr *frame, x minic.Expr) (Value, error) {
	switch ex := x.(type) {
	case *minic.IntLit:
		return IntValue(ex.Value), nil

	case *minic.StringLit:
		return StringValue(ex.Value), nil

	case *minic.Ident:
		v, ok := e.resolve(fr, ex.Name)
		if !ok {
			return Value{}, rtErrf(ex.Line, "unknown identifier %q", ex.Name)
		}

		if v.IsArray {
			return e.decayArray(v, ex.Line)
		}

		return v.Value, nil

	case *minic.Assign:
		return e.evalAssign(ctx, fr, ex)

	case *minic.Logical:
		return e.evalLogical(ctx, fr, ex)

	case *minic.Binary:
		l, err := e.evalExpr(ctx, fr, ex.Left)
		if err != nil {
			return Value{}, err
		}
		r, err := e.evalExpr(ctx, fr, ex.Right)
		if err != nil {
			return Value{}, err
		}
		return binaryOp(ex.Op, l, r, ex.Line)

	case *minic.Unary:
		return e.evalUnary(ctx, fr, ex)

	case *minic.Deref:
		v, err := e.evalExpr(ctx, fr, ex.X)
		if err != nil {
			return Value{}, err
		}
		return e.readPointer(v, 0, ex.Line)

	case *minic.IncDec:
		return e.evalIncDec(ctx, fr, ex)

	case *minic.Index:
		return e.evalIndex(ctx, fr, ex)

	case *minic.Call:
		return e.evalCall(ctx, fr, ex)

	default:
		return Value{}, rtErrf(x.ExprLine(), "unhandled expression %T", x)
	}
}

func (e *Evaluator) resolve(fr *frame, name string) (*Variable, bool) {
	if fr != nil {
		if v, ok := fr.lookup(name); ok {
			return v, true
		}
	}

	v, ok := e.globals[name]
	return v, ok
}

// decayArray borrows an array's content where a pointer or string is
// expected. Only char arrays decay; their slots are read as raw bytes up to
// the first NUL.
func (e *Evaluator) decayArray(v *Variable, line int) (Value, error) {
	if v.Type.Kind != minic.TypeChar {
		return Value{}, rtErrf(line, "%s array cannot be used as a value", v.Type)
	}

	buf := make([]byte, 0, len(v.Slots))
	for _, slot := range v.Slots {
		n, err := slot.AsInt()
		if err != nil {
			return Value{}, rtErrf(line, "%s", err)
		}
		if n == 0 {
			break
		}
		buf = append(buf, byte(n))
	}

	return StringValue(string(buf)), nil
}

func (e *Evaluator) evalLogical(ctx context.Context, fr *frame, ex *minic.Logical) (Value, error) {
	l, err := e.condition(ctx, fr, ex.Left)
	if err != nil {
		return Value{}, err
	}

	if ex.Op == "&&" && !l {
		return IntValue(0), nil
	}
	if ex.Op == "||" && l {
		return IntValue(1), nil
	}

	r, err := e.condition(ctx, fr, ex.Right)
	if err != nil {
		return Value{}, err
	}

	if r {
		return IntValue(1), nil
	}
	return IntValue(0), nil
}

func (e *Evaluator) evalUnary(ctx context.Context, fr *frame, ex *minic.Unary) (Value, error) {
	v, err := e.evalExpr(ctx, fr, ex.X)
	if err != nil {
		return Value{}, err
	}

	switch ex.Op {
	case "!":
		ok, terr := v.Truthy()
		if terr != nil {
			return Value{}, rtErrf(ex.Line, "%s", terr)
		}
		if ok {
			return IntValue(0), nil
		}
		return IntValue(1), nil

	case "-":
		n, nerr := v.AsInt()
		if nerr != nil {
			return Value{}, rtErrf(ex.Line, "%s", nerr)
		}
		return IntValue(-n), nil

	case "+":
		n, nerr := v.AsInt()
		if nerr != nil {
			return Value{}, rtErrf(ex.Line, "%s", nerr)
		}
		return IntValue(n), nil
	}

	return Value{}, rtErrf(ex.Line, "unknown unary operator %q", ex.Op)
}

// readPointer loads one byte through a pointer (or one byte of a string).
// Pointer arithmetic is byte-scaled throughout.
func (e *Evaluator) readPointer(v Value, offset int32, line int) (Value, error) {
	switch v.Kind {
	case KindPointer:
		if v.IsNull() {
			return Value{}, rtErrf(line, "dereference of null pointer")
		}

		b, err := v.Heap.ReadByte(v.Addr + offset)
		if err != nil {
			return Value{}, rtErrf(line, "%s", err)
		}

		return IntValue(int32(b)), nil

	case KindString:
		if offset < 0 || int(offset) >= len(v.Str) {
			return IntValue(0), nil
		}
		return IntValue(int32(v.Str[offset])), nil
	}

	return Value{}, rtErrf(line, "cannot dereference %s value", v.Kind)
}

func (e *Evaluator) evalIndex(ctx context.Context, fr *frame, ex *minic.Index) (Value, error) {
	idxv, err := e.evalExpr(ctx, fr, ex.Index)
	if err != nil {
		return Value{}, err
	}

	idx, ierr := idxv.AsInt()
	if ierr != nil {
		return Value{}, rtErrf(ex.Line, "%s", ierr)
	}

	// Indexing an array variable reads its slot directly.
	if id, ok := ex.X.(*minic.Ident); ok {
		if v, found := e.resolve(fr, id.Name); found && v.IsArray {
			if idx < 0 || int(idx) >= len(v.Slots) {
				return Value{}, rtErrf(ex.Line, "index %d out of range for %q [%d]", idx, id.Name, len(v.Slots))
			}
			return v.Slots[idx], nil
		}
	}

	base, err := e.evalExpr(ctx, fr, ex.X)
	if err != nil {
		return Value{}, err
	}

	return e.readPointer(base, idx, ex.Line)
}

func (e *Evaluator) evalIncDec(ctx context.Context, fr *frame, ex *minic.IncDec) (Value, error) {
	old, err := e.readTarget(ctx, fr, ex.Target)
	if err != nil {
		return Value{}, err
	}

	var next Value

	switch old.Kind {
	case KindPointer:
		step := int32(1)
		if ex.Op == "--" {
			step = -1
		}
		next = PointerValue(old.Heap, old.Addr+step)
	default:
		n, nerr := old.AsInt()
		if nerr != nil {
			return Value{}, rtErrf(ex.Line, "%s", nerr)
		}
		if ex.Op == "++" {
			next = IntValue(n + 1)
		} else {
			next = IntValue(n - 1)
		}
	}

	if err := e.writeTarget(ctx, fr, ex.Target, next); err != nil {
		return Value{}, err
	}

	if ex.Prefix {
		return next, nil
	}
	return old, nil
}

func (e *Evaluator) evalAssign(ctx context.Context, fr *frame, ex *minic.Assign) (Value, error) {
	val, err := e.evalExpr(ctx, fr, ex.Value)
	if err != nil {
		return Value{}, err
	}

	if ex.Op != "" {
		old, rerr := e.readTarget(ctx, fr, ex.Target)
		if rerr != nil {
			return Value{}, rerr
		}

		val, err = binaryOp(ex.Op, old, val, ex.Line)
		if err != nil {
			return Value{}, err
		}
	}

	if err := e.writeTarget(ctx, fr, ex.Target, val); err != nil {
		return Value{}, err
	}

	return val, nil
}

// readTarget evaluates an lvalue for its current value.
func (e *Evaluator) readTarget(ctx context.Context, fr *frame, target minic.Expr) (Value, error) {
	switch t := target.(type) {
	case *minic.Ident:
		v, ok := e.resolve(fr, t.Name)
		if !ok {
			return Value{}, rtErrf(t.Line, "unknown identifier %q", t.Name)
		}
		if v.IsArray {
			return Value{}, rtErrf(t.Line, "array %q cannot be assigned", t.Name)
		}
		return v.Value, nil

	case *minic.Index, *minic.Deref:
		return e.evalExpr(ctx, fr, target)
	}

	return Value{}, rtErrf(target.ExprLine(), "invalid assignment target")
}

func (e *Evaluator) writeTarget(ctx context.Context, fr *frame, target minic.Expr, val Value) error {
	switch t := target.(type) {
	case *minic.Ident:
		v, ok := e.resolve(fr, t.Name)
		if !ok {
			return rtErrf(t.Line, "unknown identifier %q", t.Name)
		}
		if v.IsArray {
			return rtErrf(t.Line, "array %q cannot be assigned", t.Name)
		}

		coerced, err := e.coerce(v.Type, val, t.Line)
		if err != nil {
			return err
		}

		v.Value = coerced
		return nil

	case *minic.Index:
		idxv, err := e.evalExpr(ctx, fr, t.Index)
		if err != nil {
			return err
		}

		idx, ierr := idxv.AsInt()
		if ierr != nil {
			return rtErrf(t.Line, "%s", ierr)
		}

		if id, ok := t.X.(*minic.Ident); ok {
			if v, found := e.resolve(fr, id.Name); found && v.IsArray {
				if idx < 0 || int(idx) >= len(v.Slots) {
					return rtErrf(t.Line, "index %d out of range for %q [%d]", idx, id.Name, len(v.Slots))
				}

				slot, cerr := e.coerce(v.Type, val, t.Line)
				if cerr != nil {
					return cerr
				}

				v.Slots[idx] = slot
				return nil
			}
		}

		base, err := e.evalExpr(ctx, fr, t.X)
		if err != nil {
			return err
		}

		return e.writePointer(base, idx, val, t.Line)

	case *minic.Deref:
		base, err := e.evalExpr(ctx, fr, t.X)
		if err != nil {
			return err
		}

		return e.writePointer(base, 0, val, t.Line)
	}

	return rtErrf(target.ExprLine(), "invalid assignment target")
}

func (e *Evaluator) writePointer(base Value, offset int32, val Value, line int) error {
	if base.Kind != KindPointer {
		return rtErrf(line, "cannot write through %s value", base.Kind)
	}

	if base.IsNull() {
		return rtErrf(line, "write through null pointer")
	}

	n, err := val.AsInt()
	if err != nil {
		return rtErrf(line, "%s", err)
	}

	if werr := base.Heap.WriteByte(base.Addr+offset, byte(n)); werr != nil {
		return rtErrf(line, "%s", werr)
	}

	return nil
}

// binaryOp implements the arithmetic/relational operators. Pointer arithmetic
// offsets by bytes; division and modulo by zero yield 0.
func binaryOp(op string, l, r Value, line int) (Value, error) {
	if l.Kind == KindString || r.Kind == KindString {
		switch op {
		case "==":
			return boolValue(l.Kind == KindString && r.Kind == KindString && l.Str == r.Str), nil
		case "!=":
			return boolValue(l.Kind != r.Kind || l.Str != r.Str), nil
		default:
			return Value{}, rtErrf(line, "invalid string operands for %q", op)
		}
	}

	// Pointer arithmetic: byte-scaled, uniformly.
	if l.Kind == KindPointer || r.Kind == KindPointer {
		switch op {
		case "+":
			if l.Kind == KindPointer && r.Kind == KindInt {
				return PointerValue(l.Heap, l.Addr+r.Int), nil
			}
			if l.Kind == KindInt && r.Kind == KindPointer {
				return PointerValue(r.Heap, r.Addr+l.Int), nil
			}
		case "-":
			if l.Kind == KindPointer && r.Kind == KindInt {
				return PointerValue(l.Heap, l.Addr-r.Int), nil
			}
			if l.Kind == KindPointer && r.Kind == KindPointer {
				return IntValue(l.Addr - r.Addr), nil
			}
		}
	}

	a, err := l.AsInt()
	if err != nil {
		return Value{}, rtErrf(line, "%s", err)
	}

	b, err := r.AsInt()
	if err != nil {
		return Value{}, rtErrf(line, "%s", err)
	}

	switch op {
	case "+":
		return IntValue(a + b), nil
	case "-":
		return IntValue(a - b), nil
	case "*":
		return IntValue(a * b), nil
	case "/":
		if b == 0 {
			return IntValue(0), nil
		}
		return IntValue(a / b), nil
	case "%":
		if b == 0 {
			return IntValue(0), nil
		}
		return IntValue(a % b), nil
	case "==":
		return boolValue(a == b), nil
	case "!=":
		return boolValue(a != b), nil
	case "<":
		return boolValue(a < b), nil
	case ">":
		return boolValue(a > b), nil
	case "<=":
		return boolValue(a <= b), nil
	case ">=":
		return boolValue(a >= b), nil
	}

	return Value{}, rtErrf(line, "unknown operator %q", op)
}

func boolValue(ok bool) Value {
	if ok {
		return IntValue(1)
	}
	return IntValue(0)
}

// evalCall resolves a call: user function with a body first, then the builtin
// table, then the two failure cases.
func (e *Evaluator) evalCall(ctx context.Context, fr *frame, c *minic.Call) (Value, error) {
	fn, declared := e.prog.Functions[c.Name]

	if declared && fn.HasBody {
		if len(c.Args) != len(fn.Params) {
			return Value{}, rtErrf(c.Line, "%q expects %d arguments, got %d", c.Name, len(fn.Params), len(c.Args))
		}

		args, err := e.evalArgs(ctx, fr, c.Args)
		if err != nil {
			return Value{}, err
		}

		return e.invoke(ctx, fn, args)
	}

	if e.sys != nil {
		if builtin, ok := e.sys.Lookup(c.Name); ok {
			args, err := e.evalArgs(ctx, fr, c.Args)
			if err != nil {
				return Value{}, err
			}

			v, err := builtin(ctx, e.task, args)
			if err != nil {
				if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
					return Value{}, ErrCancelled
				}
				if _, isRT := err.(*RuntimeError); isRT {
					return Value{}, err
				}
				return Value{}, rtErrf(c.Line, "%s: %s", c.Name, err)
			}

			return v, nil
		}
	}

	if declared {
		return Value{}, rtErrf(c.Line, "function %q declared but not defined", c.Name)
	}

	return Value{}, rtErrf(c.Line, "unknown function %q", c.Name)
}

func (e *Evaluator) evalArgs(ctx context.Context, fr *frame, exprs []minic.Expr) ([]Value, error) {
	args := make([]Value, len(exprs))

	for i, x := range exprs {
		v, err := e.evalExpr(ctx, fr, x)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	return args, nil
}
