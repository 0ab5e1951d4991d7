package cscrape

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skdltmxn/cscrape-go/ast"
)

// shape classifies what a declarator chain bottoms out in.
type shape uint8

const (
	shapeOther   shape = iota // functions and anything else that has no storage size
	shapeScalar               // fundamental or typedef name
	shapeEnum                 // inline or referenced enum
	shapeStruct               // inline or referenced struct/union
	shapeFuncPtr              // pointer to function
)

// declarator is a flattened declarator chain: the pointer depth, the array
// dimensions outermost first, and the base specifier.
type declarator struct {
	shape shape
	ptr   int
	dims  []ast.Node
	names []string
	enum  *ast.Enum
	strct *ast.Struct
}

// classify flattens a declarator chain such as Array(Ptr(TypeDecl)).
func classify(n ast.Node) declarator {
	var d declarator
	for {
		switch t := n.(type) {
		case *ast.ArrayDecl:
			d.dims = append(d.dims, t.Dim)
			n = t.Type
		case *ast.PtrDecl:
			d.ptr++
			n = t.Type
		case *ast.FuncDecl:
			if d.ptr == 0 {
				return declarator{}
			}
			d.shape = shapeFuncPtr
			return d
		case *ast.TypeDecl:
			switch b := t.Type.(type) {
			case *ast.IdentifierType:
				d.shape = shapeScalar
				d.names = b.Names
			case *ast.Enum:
				d.shape = shapeEnum
				d.enum = b
			case *ast.Struct:
				d.shape = shapeStruct
				d.strct = b
			default:
				return declarator{}
			}
			return d
		default:
			return declarator{}
		}
	}
}

// resolved is the layout of one declarator. Sizes are in bits.
type resolved struct {
	typ      string
	enumName string
	ptr      int
	dims     []int64
	size     int64
	align    int64
}

// typeName returns the type key for the base of d.
func (e *Engine) typeName(d declarator) string {
	switch d.shape {
	case shapeScalar:
		return e.reg.Canonical(d.names)
	case shapeEnum:
		return "enum"
	case shapeStruct:
		return tagName(d.strct)
	case shapeFuncPtr:
		return "function"
	}
	return ""
}

// tagName returns "struct tag", "union tag", or the bare keyword for an
// anonymous aggregate.
func tagName(s *ast.Struct) string {
	kw := "struct"
	if s.Union {
		kw = "union"
	}
	if s.Name == "" {
		return kw
	}
	return kw + " " + s.Name
}

// resolve computes the type, pointer depth, array dimensions and size of a
// classified declarator. A pointer at any depth makes the size the pointer
// width, whatever the dimensions or base type. On error the fields resolved
// so far are returned alongside it. c is nil outside a translation unit
// (sizeof operands); inline struct definitions are then laid out but not
// registered.
func (e *Engine) resolve(d declarator, c *walkCtx) (resolved, error) {
	r := resolved{typ: e.typeName(d), ptr: d.ptr}
	if d.shape == shapeEnum {
		r.enumName = d.enum.Name
	}

	var (
		inline      bool
		inlineSize  int64
		inlineAlign int64
	)
	if d.shape == shapeStruct && d.strct.Members != nil {
		td, err := e.defineTag(d.strct, c)
		if err != nil {
			return r, err
		}
		if td.Err != nil && d.ptr == 0 {
			return r, fmt.Errorf("%s: %w", r.typ, td.Err)
		}
		inline, inlineSize, inlineAlign = true, td.Size, td.Align
	}

	r.dims = make([]int64, 0, len(d.dims))
	for _, dim := range d.dims {
		if dim == nil {
			return r, fmt.Errorf("%w: unsized array", ErrNotDeclaration)
		}
		v, err := e.Eval(dim)
		if err != nil {
			return r, fmt.Errorf("array dimension: %w", err)
		}
		if v.Int() < 0 {
			return r, fmt.Errorf("%w: negative array dimension %s", ErrBadConstant, v)
		}
		r.dims = append(r.dims, v.Int())
	}

	if d.ptr > 0 {
		ps := int64(e.reg.Profile().PointerSize)
		r.size, r.align = ps, ps
		return r, nil
	}

	var err error
	if inline {
		r.size, r.align = inlineSize, inlineAlign
	} else if r.size, r.align, err = e.typeLayout(r.typ); err != nil {
		return r, err
	}
	for _, n := range r.dims {
		r.size *= n
	}
	return r, nil
}

// typeLayout returns the bit size and alignment of a named type.
func (e *Engine) typeLayout(name string) (int64, int64, error) {
	p := e.reg.Profile()
	key := name
	switch {
	case strings.HasSuffix(name, "*") || name == "function":
		return int64(p.PointerSize), int64(p.PointerSize), nil
	case name == "enum" || strings.HasPrefix(name, "enum "):
		key = p.EnumType
	case strings.HasPrefix(name, "struct ") || strings.HasPrefix(name, "union "):
	default:
		key = e.reg.CanonicalString(name)
	}

	if ft, ok := e.reg.Lookup(key); ok {
		return int64(ft.Bits), int64(ft.Align), nil
	}
	if td, ok := e.typedefs[key]; ok {
		if td.Err != nil {
			return 0, 0, fmt.Errorf("typedef '%s': %w", key, td.Err)
		}
		return td.Size, td.Align, nil
	}
	return 0, 0, fmt.Errorf("%w: '%s'", ErrUnknownType, key)
}

// layoutStruct places each member at the next offset aligned to the member's
// own alignment and pads the total to the profile's struct alignment. Union
// members all sit at offset zero. Inline enums in members are recorded in
// the member's scope.
func (e *Engine) layoutStruct(s *ast.Struct, c *walkCtx) (*Typedef, error) {
	td := &Typedef{Kind: TypedefStruct, Elements: make([]TypeElement, 0, len(s.Members))}
	if s.Union {
		td.Kind = TypedefUnion
	}

	var offset, size int64
	align := int64(1)
	for _, m := range s.Members {
		d := classify(m.Type)
		if d.shape == shapeOther {
			td.Err = fmt.Errorf("member '%s': %w", m.Name, ErrNotDeclaration)
			break
		}
		if d.shape == shapeEnum && c != nil {
			e.resolveEnum(d.enum, c)
		}

		r, err := e.resolve(d, c)
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			td.Err = fmt.Errorf("member '%s': %w", m.Name, err)
			break
		}

		if !s.Union {
			offset = roundUp(offset, r.align)
		}
		td.Elements = append(td.Elements, TypeElement{
			Type:     r.typ,
			EnumName: r.enumName,
			Name:     m.Name,
			Ptr:      r.ptr,
			Array:    r.dims,
			Offset:   offset,
			Size:     r.size,
			Align:    r.align,
			Line:     m.Line(),
			Source:   c.source(m.Line()),
		})
		align = max(align, r.align)
		if s.Union {
			size = max(size, r.size)
		} else {
			offset += r.size
			size = offset
		}
	}

	sa := int64(e.reg.Profile().StructAlignment)
	td.Size = roundUp(size, sa)
	td.Align = max(align, sa)
	return td, nil
}

// defineTag lays out a struct or union body and, when it has a tag,
// registers the layout under "struct tag".
func (e *Engine) defineTag(s *ast.Struct, c *walkCtx) (*Typedef, error) {
	td, err := e.layoutStruct(s, c)
	if err != nil {
		return nil, err
	}
	if s.Name == "" || c == nil {
		return td, nil
	}
	td.Name = tagName(s)
	td.File = c.file()
	td.Line = s.Line()
	td.Source = c.source(s.Line())
	if err := e.registerTypedef(td); err != nil {
		return nil, err
	}
	return td, nil
}

func roundUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	if rem := n % align; rem != 0 {
		n += align - rem
	}
	return n
}

// isFatal reports whether err must abort the walk rather than be recorded
// against a declaration.
func isFatal(err error) bool {
	var te *TypedefError
	return errors.As(err, &te)
}
