package cscrape

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/skdltmxn/cscrape-go/ast"
)

// defineTypedef records a typedef. Struct and union bodies become struct
// layouts; everything else becomes a simple typedef with a single element.
// "typedef enum {...} name;" additionally arms the enum alias slot, and the
// subtree is left for the walker so the enum body is recorded under both
// names. Pointer and array typedefs record the enum body only once.
func (e *Engine) defineTypedef(n *ast.Typedef, c *walkCtx) (bool, error) {
	d := classify(n.Type)

	if d.shape == shapeStruct && d.ptr == 0 && len(d.dims) == 0 && d.strct.Members != nil {
		td, err := e.defineTag(d.strct, c)
		if err != nil {
			return true, err
		}
		rec := *td
		rec.Name = n.Name
		rec.File = c.file()
		rec.Line = n.Line()
		rec.Source = c.source(n.Line())
		return true, e.registerTypedef(&rec)
	}

	rec := &Typedef{
		Name:   n.Name,
		Kind:   TypedefSimple,
		File:   c.file(),
		Line:   n.Line(),
		Source: c.source(n.Line()),
	}
	if d.shape == shapeOther {
		rec.Err = fmt.Errorf("typedef '%s': %w", n.Name, ErrNotDeclaration)
		return true, e.registerTypedef(rec)
	}

	r, err := e.resolve(d, c)
	if isFatal(err) {
		return true, err
	}
	rec.Size, rec.Align, rec.Err = r.size, r.align, err
	rec.Elements = []TypeElement{{
		Type:     r.typ,
		EnumName: r.enumName,
		Ptr:      r.ptr,
		Array:    r.dims,
		Size:     r.size,
		Align:    r.align,
		Line:     n.Line(),
		Source:   rec.Source,
	}}
	if err := e.registerTypedef(rec); err != nil {
		return true, err
	}

	if d.shape == shapeEnum && d.enum.Values != nil {
		if d.ptr == 0 && len(d.dims) == 0 {
			e.setEnumAlias(n.Name)
			return false, nil
		}
		// "typedef enum {...} *name;" aliases the pointer, not the enum
		e.resolveEnum(d.enum, c)
	}
	return true, nil
}

// registerTypedef adds td to the registry. Redefining a name is accepted
// only when the layout is identical apart from where it was written.
func (e *Engine) registerTypedef(td *Typedef) error {
	if old, ok := e.typedefs[td.Name]; ok {
		if sameLayout(old, td) {
			return nil
		}
		return &TypedefError{Name: td.Name, New: td.Site(), Old: old.Site()}
	}
	e.typedefs[td.Name] = td
	e.typedefOrder = append(e.typedefOrder, td.Name)

	if td.Err != nil {
		e.log.Warn("typedef not resolved", slog.String("name", td.Name), slog.String("site", td.Site().String()), slog.Any("err", td.Err))
	} else {
		e.log.Debug("typedef", slog.String("name", td.Name), slog.String("kind", string(td.Kind)), slog.Int64("size", td.Size))
	}
	return nil
}

// sameLayout compares two typedefs ignoring file, line and source text.
// Member names are significant.
func sameLayout(a, b *Typedef) bool {
	if a.Name != b.Name || a.Kind != b.Kind || a.Size != b.Size || a.Align != b.Align {
		return false
	}
	if errString(a.Err) != errString(b.Err) {
		return false
	}
	return slices.EqualFunc(a.Elements, b.Elements, func(x, y TypeElement) bool {
		return x.Type == y.Type &&
			x.EnumName == y.EnumName &&
			x.Name == y.Name &&
			x.Ptr == y.Ptr &&
			slices.Equal(x.Array, y.Array) &&
			x.Offset == y.Offset &&
			x.Size == y.Size &&
			x.Align == y.Align
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
