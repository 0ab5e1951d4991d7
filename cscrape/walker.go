package cscrape

import (
	"log/slog"
	"strings"

	"github.com/skdltmxn/cscrape-go/ast"
)

// unit is the translation unit being walked.
type unit struct {
	file  string
	lines []string
}

// walkCtx is the traversal state handed down the tree. It is copied into
// each recursive call, so entering a function body never leaks into
// siblings.
type walkCtx struct {
	unit     *unit
	function string
}

func (c *walkCtx) file() string {
	if c == nil || c.unit == nil {
		return ""
	}
	return c.unit.file
}

// source returns the trimmed text of a 1-based line.
func (c *walkCtx) source(line int) string {
	if c == nil || c.unit == nil || line < 1 || line > len(c.unit.lines) {
		return ""
	}
	return strings.TrimSpace(c.unit.lines[line-1])
}

// walk visits n depth-first. Handlers that fully consume a subtree (a
// recorded declaration, a struct body, a typedef) stop the descent so the
// same enum or member is never recorded twice. Only duplicate typedefs
// abort the walk.
func (e *Engine) walk(n ast.Node, c walkCtx) error {
	descend := true
	switch n := n.(type) {
	case *ast.FuncDef:
		e.defineFunction(n, &c)
		body := c
		if n.Decl != nil {
			body.function = n.Decl.Name
		}
		for _, s := range n.Body {
			if err := e.walk(s, body); err != nil {
				return err
			}
		}
		return nil

	case *ast.Decl:
		consumed, err := e.declare(n, &c)
		if err != nil {
			return err
		}
		descend = !consumed

	case *ast.Typedef:
		consumed, err := e.defineTypedef(n, &c)
		if err != nil {
			return err
		}
		descend = !consumed

	case *ast.Struct:
		if n.Members != nil {
			if _, err := e.defineTag(n, &c); err != nil {
				return err
			}
		}
		descend = false

	case *ast.Enum:
		e.resolveEnum(n, &c)
		descend = false

	case *ast.FuncDecl:
		// parameters of prototypes are not variables
		descend = false
	}

	if !descend {
		return nil
	}
	for _, child := range n.Children() {
		if err := e.walk(child, c); err != nil {
			return err
		}
	}
	return nil
}

// declare records a variable. Inside a function only static variables are
// recorded. It reports whether the declaration's subtree was consumed.
func (e *Engine) declare(n *ast.Decl, c *walkCtx) (bool, error) {
	switch t := n.Type.(type) {
	case *ast.Struct:
		// tag-only declaration
		if t.Members != nil {
			_, err := e.defineTag(t, c)
			return true, err
		}
		return true, nil
	case *ast.Enum:
		return false, nil
	}

	if c.function != "" && !n.HasStorage("static") {
		return false, nil
	}
	d := classify(n.Type)
	if d.shape == shapeOther {
		return false, nil
	}
	if d.shape == shapeEnum {
		e.resolveEnum(d.enum, c)
	}

	v := &Variable{
		Name:     n.Name,
		File:     c.file(),
		Line:     n.Line(),
		Source:   c.source(n.Line()),
		Function: c.function,
	}
	r, err := e.resolve(d, c)
	if isFatal(err) {
		return true, err
	}
	v.Type, v.EnumName, v.Ptr, v.Array, v.Size = r.typ, r.enumName, r.ptr, r.dims, r.size
	v.Err = err
	e.variables = append(e.variables, v)

	if err != nil {
		e.log.Warn("variable not resolved", slog.String("name", v.Name), slog.String("site", v.Site().String()), slog.Any("err", err))
	} else {
		e.log.Debug("variable", slog.String("name", v.Name), slog.String("type", v.Type), slog.Int64("size", v.Size))
	}
	return true, nil
}

// defineFunction records a function definition with its return type and
// named parameters.
func (e *Engine) defineFunction(n *ast.FuncDef, c *walkCtx) {
	if n.Decl == nil {
		return
	}
	fd, ok := n.Decl.Type.(*ast.FuncDecl)
	if !ok {
		return
	}

	f := &Function{
		Name:   n.Decl.Name,
		File:   c.file(),
		Line:   n.Line(),
		Source: c.source(n.Line()),
		Params: make([]Param, 0, len(fd.Params)),
	}
	ret := classify(fd.Type)
	f.Type, f.Ptr = e.typeName(ret), ret.ptr

	for _, p := range fd.Params {
		if p.Name == "" {
			continue
		}
		d := classify(p.Type)
		param := Param{Name: p.Name, Type: e.typeName(d), Ptr: d.ptr}
		for _, dim := range d.dims {
			if dim == nil {
				// "int a[]" decays to a pointer
				param.Array = append(param.Array, 0)
				continue
			}
			v, err := e.Eval(dim)
			if err != nil && f.Err == nil {
				f.Err = err
			}
			param.Array = append(param.Array, v.Int())
		}
		f.Params = append(f.Params, param)
	}

	e.functions = append(e.functions, f)
	e.log.Debug("function", slog.String("name", f.Name), slog.Int("params", len(f.Params)))
}
