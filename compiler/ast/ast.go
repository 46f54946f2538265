package ast

type (
	// Node is any element of the parse tree. Walkers dispatch on the
	// concrete type; every node embeds Base and so carries its source
	// position.
	Node interface {
		Where() (line, col int)
	}

	Base struct {
		Pos  int
		Line int
		Col  int
	}

	// TypeRef is a source-level type annotation. Elem is non-nil for
	// array annotations (`integer[]`).
	TypeRef struct {
		Base

		Name string
		Elem *TypeRef
	}

	Param struct {
		Base

		Name string
		Type *TypeRef
	}

	Program struct {
		Base

		Stmts []Node
	}

	// VarDecl covers both `let` and `const`.
	VarDecl struct {
		Base

		Name  string
		Type  *TypeRef
		Init  Node
		Const bool
	}

	// Assign target is an Ident, Property or Index node.
	Assign struct {
		Base

		Target Node
		Value  Node
	}

	ExprStmt struct {
		Base

		X Node
	}

	Print struct {
		Base

		X Node
	}

	Block struct {
		Base

		Stmts []Node
	}

	If struct {
		Base

		Cond Node
		Then *Block
		Else *Block
	}

	While struct {
		Base

		Cond Node
		Body *Block
	}

	DoWhile struct {
		Base

		Body *Block
		Cond Node
	}

	For struct {
		Base

		Init Node
		Cond Node
		Post Node
		Body *Block
	}

	Foreach struct {
		Base

		Name string
		Seq  Node
		Body *Block
	}

	SwitchCase struct {
		Base

		Value Node // nil for default
		Stmts []Node
	}

	Switch struct {
		Base

		Subject Node
		Cases   []SwitchCase
	}

	Break struct {
		Base
	}

	Continue struct {
		Base
	}

	Return struct {
		Base

		X Node
	}

	FuncDecl struct {
		Base

		Name   string
		Params []Param
		Ret    *TypeRef
		Body   *Block
	}

	ClassDecl struct {
		Base

		Name    string
		BaseCls string
		Members []Node // VarDecl and FuncDecl
	}

	Ident struct {
		Base

		Name string
	}

	IntLit struct {
		Base

		Text string
	}

	FloatLit struct {
		Base

		Text string
	}

	StrLit struct {
		Base

		Value string
	}

	BoolLit struct {
		Base

		Value bool
	}

	NullLit struct {
		Base
	}

	This struct {
		Base
	}

	ArrayLit struct {
		Base

		Elems []Node
	}

	Unary struct {
		Base

		Op string
		X  Node
	}

	Binary struct {
		Base

		Op string
		L  Node
		R  Node
	}

	Ternary struct {
		Base

		Cond Node
		Then Node
		Else Node
	}

	Call struct {
		Base

		Fun  Node // Ident or Property
		Args []Node
	}

	Index struct {
		Base

		X   Node
		Idx Node
	}

	Property struct {
		Base

		X    Node
		Name string
	}

	New struct {
		Base

		Class string
		Args  []Node
	}
)

func (b Base) Where() (line, col int) { return b.Line, b.Col }
