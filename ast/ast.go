// Package ast defines the syntax tree consumed by the cscrape engine.
//
// The tree is produced by an external C parser (see package cparse) from
// sanitized source text. Only the node kinds the engine needs are modelled;
// every node carries the 1-based source line it starts on.
package ast

// Kind identifies the concrete type of a Node.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFile
	KindFuncDef
	KindDecl
	KindTypedef
	KindTypeDecl
	KindIdentifierType
	KindPtrDecl
	KindArrayDecl
	KindFuncDecl
	KindStruct
	KindEnum
	KindEnumerator
	KindConstant
	KindBinaryOp
	KindUnaryOp
	KindTypename
	KindID
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFuncDef:
		return "funcdef"
	case KindDecl:
		return "decl"
	case KindTypedef:
		return "typedef"
	case KindTypeDecl:
		return "typedecl"
	case KindIdentifierType:
		return "identifier_type"
	case KindPtrDecl:
		return "ptrdecl"
	case KindArrayDecl:
		return "arraydecl"
	case KindFuncDecl:
		return "funcdecl"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindEnumerator:
		return "enumerator"
	case KindConstant:
		return "constant"
	case KindBinaryOp:
		return "binaryop"
	case KindUnaryOp:
		return "unaryop"
	case KindTypename:
		return "typename"
	case KindID:
		return "id"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Node is implemented by every syntax tree node. The set is closed.
type Node interface {
	// Kind returns the node kind.
	Kind() Kind

	// Line returns the 1-based source line the node starts on.
	Line() int

	// Children returns the direct children in source order.
	Children() []Node

	node()
}

// Pos is embedded in every node to carry its line coordinate.
type Pos struct {
	LineNo int
}

func (p Pos) Line() int { return p.LineNo }
func (Pos) node()       {}

// File is the root of a translation unit.
type File struct {
	Pos
	Decls []Node
}

// FuncDef is a function definition with a body.
type FuncDef struct {
	Pos
	Decl *Decl // Type is a *FuncDecl chain
	Body []Node
}

// Decl declares one named entity. Type is a declarator chain ending in a
// *TypeDecl, or a bare *Struct / *Enum for tag-only declarations.
type Decl struct {
	Pos
	Name    string
	Storage []string
	Quals   []string
	Type    Node
	Init    Node
}

// HasStorage reports whether the declaration carries the storage class s.
func (d *Decl) HasStorage(s string) bool {
	for _, v := range d.Storage {
		if v == s {
			return true
		}
	}
	return false
}

// Typedef declares a type alias.
type Typedef struct {
	Pos
	Name string
	Type Node
}

// TypeDecl terminates a declarator chain. Type is an *IdentifierType,
// *Struct or *Enum.
type TypeDecl struct {
	Pos
	Name string
	Type Node
}

// IdentifierType is a list of type specifier tokens, e.g. {"unsigned", "int"}.
type IdentifierType struct {
	Pos
	Names []string
}

// PtrDecl is one level of pointer indirection.
type PtrDecl struct {
	Pos
	Type Node
}

// ArrayDecl is one array dimension. Dim is nil for unsized arrays.
type ArrayDecl struct {
	Pos
	Type Node
	Dim  Node
}

// FuncDecl is a function declarator.
type FuncDecl struct {
	Pos
	Params []*Decl
	Type   Node
}

// Struct is a struct or union specifier. Members is nil for a forward
// reference such as "struct tag x;".
type Struct struct {
	Pos
	Name    string
	Union   bool
	Members []*Decl
}

// Enum is an enum specifier. Values is nil for a forward reference.
type Enum struct {
	Pos
	Name   string
	Values []*Enumerator
}

// Enumerator is one enum constant with an optional explicit value.
type Enumerator struct {
	Pos
	Name  string
	Value Node
}

// Constant is a literal as written in the source, e.g. "10UL" or "'a'".
type Constant struct {
	Pos
	Value string
}

// BinaryOp is an infix expression.
type BinaryOp struct {
	Pos
	Op    string
	Left  Node
	Right Node
}

// UnaryOp is a prefix expression, including sizeof.
type UnaryOp struct {
	Pos
	Op   string
	Expr Node
}

// Typename is an abstract type used as an operand, e.g. sizeof(int*).
type Typename struct {
	Pos
	Type Node
}

// ID is an identifier used in an expression.
type ID struct {
	Pos
	Name string
}

// Opaque is an expression form the parser does not model, such as a
// conditional or a call. Form names the grammar node; Text is its source.
type Opaque struct {
	Pos
	Form string
	Text string
}

func (*File) Kind() Kind           { return KindFile }
func (*FuncDef) Kind() Kind        { return KindFuncDef }
func (*Decl) Kind() Kind           { return KindDecl }
func (*Typedef) Kind() Kind        { return KindTypedef }
func (*TypeDecl) Kind() Kind       { return KindTypeDecl }
func (*IdentifierType) Kind() Kind { return KindIdentifierType }
func (*PtrDecl) Kind() Kind        { return KindPtrDecl }
func (*ArrayDecl) Kind() Kind      { return KindArrayDecl }
func (*FuncDecl) Kind() Kind       { return KindFuncDecl }
func (*Struct) Kind() Kind         { return KindStruct }
func (*Enum) Kind() Kind           { return KindEnum }
func (*Enumerator) Kind() Kind     { return KindEnumerator }
func (*Constant) Kind() Kind       { return KindConstant }
func (*BinaryOp) Kind() Kind       { return KindBinaryOp }
func (*UnaryOp) Kind() Kind        { return KindUnaryOp }
func (*Typename) Kind() Kind       { return KindTypename }
func (*ID) Kind() Kind             { return KindID }
func (*Opaque) Kind() Kind         { return KindOpaque }

func (n *File) Children() []Node { return n.Decls }

func (n *FuncDef) Children() []Node {
	out := make([]Node, 0, len(n.Body)+1)
	if n.Decl != nil {
		out = append(out, n.Decl)
	}
	return append(out, n.Body...)
}

func (n *Decl) Children() []Node { return nonNil(n.Type, n.Init) }

func (n *Typedef) Children() []Node  { return nonNil(n.Type) }
func (n *TypeDecl) Children() []Node { return nonNil(n.Type) }

func (*IdentifierType) Children() []Node { return nil }

func (n *PtrDecl) Children() []Node   { return nonNil(n.Type) }
func (n *ArrayDecl) Children() []Node { return nonNil(n.Type, n.Dim) }

func (n *FuncDecl) Children() []Node {
	out := make([]Node, 0, len(n.Params)+1)
	for _, p := range n.Params {
		out = append(out, p)
	}
	return append(out, nonNil(n.Type)...)
}

func (n *Struct) Children() []Node {
	out := make([]Node, 0, len(n.Members))
	for _, m := range n.Members {
		out = append(out, m)
	}
	return out
}

func (n *Enum) Children() []Node {
	out := make([]Node, 0, len(n.Values))
	for _, v := range n.Values {
		out = append(out, v)
	}
	return out
}

func (n *Enumerator) Children() []Node { return nonNil(n.Value) }
func (*Constant) Children() []Node     { return nil }
func (n *BinaryOp) Children() []Node   { return nonNil(n.Left, n.Right) }
func (n *UnaryOp) Children() []Node    { return nonNil(n.Expr) }
func (n *Typename) Children() []Node   { return nonNil(n.Type) }
func (*ID) Children() []Node           { return nil }
func (*Opaque) Children() []Node       { return nil }

func nonNil(nodes ...Node) []Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n != nil && !isNilNode(n) {
			out = append(out, n)
		}
	}
	return out
}

// isNilNode catches typed nil pointers stored in a Node.
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *Decl:
		return v == nil
	case *TypeDecl:
		return v == nil
	case *Struct:
		return v == nil
	case *Enum:
		return v == nil
	}
	return false
}

// Inspect walks the tree depth-first, calling fn for each node. If fn returns
// false the node's children are skipped.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Inspect(c, fn)
	}
}
