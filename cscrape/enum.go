package cscrape

import (
	"fmt"
	"log/slog"

	"github.com/skdltmxn/cscrape-go/ast"
)

// resolveEnum records an enum with a body. Enumerators without an explicit
// value take the previous value plus one, starting at zero. If a typedef
// left an alias pending, a second record carrying the alias name is added.
// Forward references are ignored.
func (e *Engine) resolveEnum(n *ast.Enum, c *walkCtx) {
	if n.Values == nil {
		return
	}

	rec := &Enum{
		Name:     n.Name,
		File:     c.file(),
		Line:     n.Line(),
		Function: c.function,
		Values:   make(map[string]EnumValue, len(n.Values)),
	}
	var next int64
	for _, en := range n.Values {
		val := next
		if en.Value != nil {
			v, err := e.Eval(en.Value)
			if err != nil {
				rec.Err = fmt.Errorf("enumerator '%s': %w", en.Name, err)
				break
			}
			val = v.Int()
		}
		rec.Values[en.Name] = EnumValue{Value: val, Line: en.Line(), Source: c.source(en.Line())}
		next = val + 1
	}
	e.enums = append(e.enums, rec)

	if rec.Err != nil {
		e.log.Warn("enum not resolved", slog.String("name", rec.Name), slog.String("site", rec.Site().String()), slog.Any("err", rec.Err))
	} else {
		e.log.Debug("enum", slog.String("name", rec.Name), slog.Int("values", len(rec.Values)))
	}

	if alias := e.pendingAlias; alias != "" {
		e.pendingAlias = ""
		e.enums = append(e.enums, rec.alias(alias))
	}
}

// setEnumAlias arms the alias slot consumed by the next enum body. The slot
// holds one name; arming it twice means an enum body was never reached.
func (e *Engine) setEnumAlias(name string) {
	if e.pendingAlias != "" {
		panic(fmt.Sprintf("cscrape: enum alias '%s' still pending while defining '%s'", e.pendingAlias, name))
	}
	e.pendingAlias = name
}
