// Package cparse lowers tree-sitter C syntax trees into package ast.
//
// Only declarations are lowered: variables, typedefs, struct, union and
// enum specifiers, function definitions and the declarations nested in
// their bodies. Statements are scanned for declarations and otherwise
// dropped. Input is expected to be free of comments, preprocessor
// directives and __attribute__ clauses.
package cparse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/skdltmxn/cscrape-go/ast"
)

// ErrSyntax is wrapped by every SyntaxError.
var ErrSyntax = errors.New("cparse: syntax error")

// SyntaxError reports the first line tree-sitter could not parse.
type SyntaxError struct {
	Line int
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("cparse: syntax error at line %d near %q", e.Line, e.Text)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Parser parses C translation units. The zero value is ready to use.
type Parser struct{}

// New returns a Parser.
func New() *Parser { return &Parser{} }

// Parse parses src and lowers it.
func (p *Parser) Parse(ctx context.Context, src []byte) (*ast.File, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("cparse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(root, src)
	}

	l := &lowerer{src: src}
	f := &ast.File{Pos: pos(root)}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		nodes, err := l.external(root.NamedChild(i))
		if err != nil {
			return nil, err
		}
		f.Decls = append(f.Decls, nodes...)
	}
	return f, nil
}

func firstError(n *sitter.Node, src []byte) error {
	if n.Type() == "ERROR" || n.IsMissing() {
		text := n.Content(src)
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[:i]
		}
		return &SyntaxError{Line: line(n), Text: text}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if ch.HasError() || ch.IsMissing() {
			return firstError(ch, src)
		}
	}
	return &SyntaxError{Line: line(n)}
}

func line(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }

func pos(n *sitter.Node) ast.Pos { return ast.Pos{LineNo: line(n)} }

type lowerer struct {
	src []byte
}

func (l *lowerer) text(n *sitter.Node) string { return n.Content(l.src) }

// unsupported is returned for constructs with no ast counterpart.
func (l *lowerer) unsupported(n *sitter.Node, what string) error {
	return fmt.Errorf("cparse: line %d: unsupported %s %q", line(n), what, n.Type())
}

// external lowers a top-level or block-level item.
func (l *lowerer) external(n *sitter.Node) ([]ast.Node, error) {
	switch n.Type() {
	case "declaration":
		decls, err := l.declaration(n)
		if err != nil {
			return nil, err
		}
		out := make([]ast.Node, len(decls))
		for i, d := range decls {
			out[i] = d
		}
		return out, nil
	case "type_definition":
		return l.typedef(n)
	case "function_definition":
		fd, err := l.funcDef(n)
		if err != nil {
			return nil, err
		}
		return []ast.Node{fd}, nil
	case "struct_specifier", "union_specifier", "enum_specifier":
		// a specifier followed by ';' without a declaration wrapper
		spec, err := l.typeSpec(n)
		if err != nil {
			return nil, err
		}
		return []ast.Node{&ast.Decl{Pos: pos(n), Type: spec}}, nil
	case "expression_statement", "return_statement", "comment", ";":
		return nil, nil
	}

	// statements: look for nested blocks and declarations
	var out []ast.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		nodes, err := l.external(n.NamedChild(i))
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// modifiers collects storage classes and qualifiers of a declaration.
func (l *lowerer) modifiers(n *sitter.Node) (storage, quals []string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "storage_class_specifier":
			storage = append(storage, l.text(ch))
		case "type_qualifier":
			quals = append(quals, l.text(ch))
		}
	}
	return storage, quals
}

// declarators returns the children stored under the "declarator" field.
func declarators(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == "declarator" {
			out = append(out, n.Child(i))
		}
	}
	return out
}

func (l *lowerer) declaration(n *sitter.Node) ([]*ast.Decl, error) {
	storage, quals := l.modifiers(n)
	spec, err := l.typeSpec(n.ChildByFieldName("type"))
	if err != nil {
		return nil, err
	}

	ds := declarators(n)
	if len(ds) == 0 {
		return []*ast.Decl{{Pos: pos(n), Storage: storage, Quals: quals, Type: spec}}, nil
	}

	out := make([]*ast.Decl, 0, len(ds))
	for i, d := range ds {
		var init ast.Node
		if d.Type() == "init_declarator" {
			if v := d.ChildByFieldName("value"); v != nil && v.Type() != "initializer_list" {
				if init, err = l.expr(v); err != nil {
					// initializers are informational only
					init = nil
				}
			}
			d = d.ChildByFieldName("declarator")
		}
		base := spec
		if i > 0 {
			base = forwardRef(spec)
		}
		name, typ, err := l.declarator(d, base)
		if err != nil {
			return nil, err
		}
		out = append(out, &ast.Decl{Pos: pos(n), Name: name, Storage: storage, Quals: quals, Type: typ, Init: init})
	}
	return out, nil
}

func (l *lowerer) typedef(n *sitter.Node) ([]ast.Node, error) {
	spec, err := l.typeSpec(n.ChildByFieldName("type"))
	if err != nil {
		return nil, err
	}
	var out []ast.Node
	for i, d := range declarators(n) {
		base := spec
		if i > 0 {
			base = forwardRef(spec)
		}
		name, typ, err := l.declarator(d, base)
		if err != nil {
			return nil, err
		}
		out = append(out, &ast.Typedef{Pos: pos(n), Name: name, Type: typ})
	}
	return out, nil
}

// forwardRef strips an enum body so that "enum {A} x, y;" defines the
// enumerators once. Struct bodies are kept: laying one out twice is
// idempotent.
func forwardRef(spec ast.Node) ast.Node {
	if e, ok := spec.(*ast.Enum); ok && e.Values != nil {
		return &ast.Enum{Pos: e.Pos, Name: e.Name}
	}
	return spec
}

func (l *lowerer) funcDef(n *sitter.Node) (*ast.FuncDef, error) {
	storage, quals := l.modifiers(n)
	spec, err := l.typeSpec(n.ChildByFieldName("type"))
	if err != nil {
		return nil, err
	}
	name, typ, err := l.declarator(n.ChildByFieldName("declarator"), spec)
	if err != nil {
		return nil, err
	}

	fd := &ast.FuncDef{
		Pos:  pos(n),
		Decl: &ast.Decl{Pos: pos(n), Name: name, Storage: storage, Quals: quals, Type: typ},
	}
	if body := n.ChildByFieldName("body"); body != nil {
		if fd.Body, err = l.external(body); err != nil {
			return nil, err
		}
	}
	return fd, nil
}

// typeSpec lowers a type specifier.
func (l *lowerer) typeSpec(n *sitter.Node) (ast.Node, error) {
	if n == nil {
		// implicit int, e.g. "static x;"
		return &ast.IdentifierType{Names: []string{"int"}}, nil
	}
	switch n.Type() {
	case "primitive_type", "type_identifier":
		return &ast.IdentifierType{Pos: pos(n), Names: []string{l.text(n)}}, nil
	case "sized_type_specifier":
		return &ast.IdentifierType{Pos: pos(n), Names: strings.Fields(l.text(n))}, nil
	case "struct_specifier", "union_specifier":
		return l.structSpec(n)
	case "enum_specifier":
		return l.enumSpec(n)
	}
	return nil, l.unsupported(n, "type specifier")
}

func (l *lowerer) structSpec(n *sitter.Node) (*ast.Struct, error) {
	s := &ast.Struct{Pos: pos(n), Union: n.Type() == "union_specifier"}
	if name := n.ChildByFieldName("name"); name != nil {
		s.Name = l.text(name)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return s, nil
	}

	s.Members = make([]*ast.Decl, 0, body.NamedChildCount())
	for i := 0; i < int(body.NamedChildCount()); i++ {
		fd := body.NamedChild(i)
		if fd.Type() != "field_declaration" {
			continue
		}
		spec, err := l.typeSpec(fd.ChildByFieldName("type"))
		if err != nil {
			return nil, err
		}
		_, quals := l.modifiers(fd)

		ds := declarators(fd)
		if len(ds) == 0 {
			// anonymous struct or union member
			s.Members = append(s.Members, &ast.Decl{
				Pos:   pos(fd),
				Quals: quals,
				Type:  &ast.TypeDecl{Pos: pos(fd), Type: spec},
			})
			continue
		}
		for j, d := range ds {
			base := spec
			if j > 0 {
				base = forwardRef(spec)
			}
			name, typ, err := l.declarator(d, base)
			if err != nil {
				return nil, err
			}
			s.Members = append(s.Members, &ast.Decl{Pos: pos(fd), Name: name, Quals: quals, Type: typ})
		}
	}
	return s, nil
}

func (l *lowerer) enumSpec(n *sitter.Node) (*ast.Enum, error) {
	e := &ast.Enum{Pos: pos(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		e.Name = l.text(name)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return e, nil
	}

	e.Values = make([]*ast.Enumerator, 0, body.NamedChildCount())
	for i := 0; i < int(body.NamedChildCount()); i++ {
		en := body.NamedChild(i)
		if en.Type() != "enumerator" {
			continue
		}
		v := &ast.Enumerator{Pos: pos(en), Name: l.text(en.ChildByFieldName("name"))}
		if val := en.ChildByFieldName("value"); val != nil {
			x, err := l.expr(val)
			if err != nil {
				return nil, err
			}
			v.Value = x
		}
		e.Values = append(e.Values, v)
	}
	return e, nil
}

// declarator walks a tree-sitter declarator from the outside in, wrapping
// the type built so far at each step. "int *x[5]" becomes
// ArrayDecl(PtrDecl(TypeDecl)): an array of pointers. d may be nil for an
// abstract declarator with no name.
func (l *lowerer) declarator(d *sitter.Node, spec ast.Node) (string, ast.Node, error) {
	td := &ast.TypeDecl{Pos: pos2(d, spec), Type: spec}
	var typ ast.Node = td

	for d != nil {
		switch d.Type() {
		case "identifier", "field_identifier", "type_identifier", "primitive_type":
			td.Name = l.text(d)
			return td.Name, typ, nil

		case "pointer_declarator", "abstract_pointer_declarator":
			typ = &ast.PtrDecl{Pos: pos(d), Type: typ}

		case "array_declarator", "abstract_array_declarator":
			a := &ast.ArrayDecl{Pos: pos(d), Type: typ}
			if size := d.ChildByFieldName("size"); size != nil {
				dim, err := l.expr(size)
				if err != nil {
					return "", nil, err
				}
				a.Dim = dim
			}
			typ = a

		case "function_declarator", "abstract_function_declarator":
			fd := &ast.FuncDecl{Pos: pos(d), Type: typ}
			if params := d.ChildByFieldName("parameters"); params != nil {
				ps, err := l.params(params)
				if err != nil {
					return "", nil, err
				}
				fd.Params = ps
			}
			typ = fd

		case "parenthesized_declarator", "abstract_parenthesized_declarator":
			if d.NamedChildCount() == 0 {
				return "", typ, nil
			}
			d = d.NamedChild(0)
			continue

		case "init_declarator":
			// only reached through parenthesized forms
			d = d.ChildByFieldName("declarator")
			continue

		default:
			return "", nil, l.unsupported(d, "declarator")
		}
		d = d.ChildByFieldName("declarator")
	}
	return "", typ, nil
}

// pos2 positions a TypeDecl on its declarator, or on the specifier for
// abstract declarators.
func pos2(d *sitter.Node, spec ast.Node) ast.Pos {
	if d != nil {
		return pos(d)
	}
	if spec != nil {
		return ast.Pos{LineNo: spec.Line()}
	}
	return ast.Pos{}
}

func (l *lowerer) params(n *sitter.Node) ([]*ast.Decl, error) {
	var out []*ast.Decl
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		if p.Type() != "parameter_declaration" {
			// variadic_parameter
			continue
		}
		storage, quals := l.modifiers(p)
		spec, err := l.typeSpec(p.ChildByFieldName("type"))
		if err != nil {
			return nil, err
		}
		name, typ, err := l.declarator(p.ChildByFieldName("declarator"), spec)
		if err != nil {
			return nil, err
		}
		out = append(out, &ast.Decl{Pos: pos(p), Name: name, Storage: storage, Quals: quals, Type: typ})
	}
	return out, nil
}

// expr lowers the expression forms that can appear in constant
// expressions. Casts lower to their operand. Any other form becomes an
// ast.Opaque so only the declaration using it fails to evaluate.
func (l *lowerer) expr(n *sitter.Node) (ast.Node, error) {
	if n == nil {
		return nil, errors.New("cparse: missing expression")
	}
	switch n.Type() {
	case "number_literal", "char_literal":
		return &ast.Constant{Pos: pos(n), Value: strings.TrimSpace(l.text(n))}, nil

	case "identifier":
		return &ast.ID{Pos: pos(n), Name: l.text(n)}, nil

	case "parenthesized_expression":
		if n.NamedChildCount() == 0 {
			return l.opaque(n), nil
		}
		return l.expr(n.NamedChild(0))

	case "binary_expression":
		left, err := l.expr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		right, err := l.expr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Pos: pos(n), Op: l.text(n.ChildByFieldName("operator")), Left: left, Right: right}, nil

	case "unary_expression":
		arg, err := l.expr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		op := l.text(n.ChildByFieldName("operator"))
		if op == "+" {
			return arg, nil
		}
		return &ast.UnaryOp{Pos: pos(n), Op: op, Expr: arg}, nil

	case "sizeof_expression":
		if t := n.ChildByFieldName("type"); t != nil {
			tn, err := l.typeDescriptor(t)
			if err != nil {
				return l.opaque(n), nil
			}
			return &ast.UnaryOp{Pos: pos(n), Op: "sizeof", Expr: tn}, nil
		}
		v, err := l.expr(n.ChildByFieldName("value"))
		if err != nil {
			return nil, err
		}
		if id, ok := v.(*ast.ID); ok {
			// "sizeof(name)" where name is a typedef parses as an expression
			v = &ast.Typename{Pos: id.Pos, Type: &ast.TypeDecl{
				Pos:  id.Pos,
				Type: &ast.IdentifierType{Pos: id.Pos, Names: []string{id.Name}},
			}}
		}
		return &ast.UnaryOp{Pos: pos(n), Op: "sizeof", Expr: v}, nil

	case "cast_expression":
		return l.expr(n.ChildByFieldName("value"))
	}
	return l.opaque(n), nil
}

func (l *lowerer) opaque(n *sitter.Node) *ast.Opaque {
	return &ast.Opaque{Pos: pos(n), Form: n.Type(), Text: strings.TrimSpace(l.text(n))}
}

func (l *lowerer) typeDescriptor(n *sitter.Node) (*ast.Typename, error) {
	spec, err := l.typeSpec(n.ChildByFieldName("type"))
	if err != nil {
		return nil, err
	}
	_, typ, err := l.declarator(n.ChildByFieldName("declarator"), spec)
	if err != nil {
		return nil, err
	}
	return &ast.Typename{Pos: pos(n), Type: typ}, nil
}
