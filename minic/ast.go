package minic

// TypeKind tags the closed set of MiniC types.
type TypeKind int

const (
	TypeVoid TypeKind = iota
	TypeInt
	TypeChar
	TypePointer
)

type Type struct {
	Kind TypeKind
	Elem *Type // pointee, set when Kind == TypePointer
}

var (
	Void = &Type{Kind: TypeVoid}
	Int  = &Type{Kind: TypeInt}
	Char = &Type{Kind: TypeChar}
)

func PointerTo(elem *Type) *Type {
	return &Type{Kind: TypePointer, Elem: elem}
}

func (t *Type) IsVoid() bool    { return t.Kind == TypeVoid }
func (t *Type) IsPointer() bool { return t.Kind == TypePointer }

func (t *Type) String() string {
	switch t.Kind {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeChar:
		return "char"
	case TypePointer:
		return t.Elem.String() + "*"
	default:
		return "unknown"
	}
}

// Program is the immutable result of compiling one translation unit.
type Program struct {
	Functions map[string]*Function
	Globals   []*VarDecl
}

type Param struct {
	Name string
	Type *Type
}

type Function struct {
	Name    string
	Return  *Type
	Params  []Param
	Body    []Stmt
	HasBody bool // false for prototypes
	Line    int
}

// Stmt is a closed set: VarDecl, ExprStmt, Block, If, While, For, Return,
// Break, Continue. The evaluator dispatches with an exhaustive type switch.
type Stmt interface {
	stmt()
	StmtLine() int
}

type VarDecl struct {
	Name     string
	Type     *Type
	ArrayLen int  // 0 for scalars
	IsArray  bool
	Init     Expr // nil when absent
	Line     int
}

type ExprStmt struct {
	X    Expr
	Line int
}

type Block struct {
	Stmts []Stmt
	Line  int
}

type If struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil when absent
	Line int
}

type While struct {
	Cond Expr
	Body Stmt
	Line int
}

type For struct {
	Init Stmt // nil, VarDecl or ExprStmt
	Cond Expr // nil means always true
	Post Expr // nil when absent
	Body Stmt
	Line int
}

type Return struct {
	Value Expr // nil for bare return
	Line  int
}

type Break struct {
	Line int
}

type Continue struct {
	Line int
}

func (*VarDecl) stmt()  {}
func (*ExprStmt) stmt() {}
func (*Block) stmt()    {}
func (*If) stmt()       {}
func (*While) stmt()    {}
func (*For) stmt()      {}
func (*Return) stmt()   {}
func (*Break) stmt()    {}
func (*Continue) stmt() {}

func (s *VarDecl) StmtLine() int  { return s.Line }
func (s *ExprStmt) StmtLine() int { return s.Line }
func (s *Block) StmtLine() int    { return s.Line }
func (s *If) StmtLine() int       { return s.Line }
func (s *While) StmtLine() int    { return s.Line }
func (s *For) StmtLine() int      { return s.Line }
func (s *Return) StmtLine() int   { return s.Line }
func (s *Break) StmtLine() int    { return s.Line }
func (s *Continue) StmtLine() int { return s.Line }

// Expr is the closed expression set.
type Expr interface {
	expr()
	ExprLine() int
}

type IntLit struct {
	Value int32
	Line  int
}

type StringLit struct {
	Value string
	Line  int
}

type Ident struct {
	Name string
	Line int
}

// Assign covers =, +=, -=, *=, /= and %=. Op is empty for plain assignment,
// otherwise the compound arithmetic operator ("+", "-", ...).
type Assign struct {
	Target Expr // Ident, Index or Deref
	Op     string
	Value  Expr
	Line   int
}

type Binary struct {
	Op    string
	Left  Expr
	Right Expr
	Line  int
}

// Logical is short-circuit && / ||.
type Logical struct {
	Op    string
	Left  Expr
	Right Expr
	Line  int
}

type Unary struct {
	Op   string // "!", "-", "+"
	X    Expr
	Line int
}

type Deref struct {
	X    Expr
	Line int
}

// IncDec is ++/--; Prefix selects between prefix and postfix evaluation.
type IncDec struct {
	Target Expr // Ident, Index or Deref
	Op     string
	Prefix bool
	Line   int
}

type Call struct {
	Name string
	Args []Expr
	Line int
}

type Index struct {
	X     Expr
	Index Expr
	Line  int
}

func (*IntLit) expr()    {}
func (*StringLit) expr() {}
func (*Ident) expr()     {}
func (*Assign) expr()    {}
func (*Binary) expr()    {}
func (*Logical) expr()   {}
func (*Unary) expr()     {}
func (*Deref) expr()     {}
func (*IncDec) expr()    {}
func (*Call) expr()      {}
func (*Index) expr()     {}

func (e *IntLit) ExprLine() int    { return e.Line }
func (e *StringLit) ExprLine() int { return e.Line }
func (e *Ident) ExprLine() int     { return e.Line }
func (e *Assign) ExprLine() int    { return e.Line }
func (e *Binary) ExprLine() int    { return e.Line }
func (e *Logical) ExprLine() int   { return e.Line }
func (e *Unary) ExprLine() int     { return e.Line }
func (e *Deref) ExprLine() int     { return e.Line }
func (e *IncDec) ExprLine() int    { return e.Line }
func (e *Call) ExprLine() int      { return e.Line }
func (e *Index) ExprLine() int     { return e.Line }
