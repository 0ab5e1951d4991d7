package cscrape

import (
	"maps"
	"path/filepath"
	"strings"
)

// Any matches every value of a query field. An empty field is the same.
const Any = "*"

// Where narrows a query. File matches the base name of the defining file,
// Function the enclosing function and Type the variable type or enum name.
// Empty fields match anything.
type Where struct {
	File     string
	Function string
	Type     string
}

func field(s string) string {
	if s == "" {
		return Any
	}
	return s
}

func (w Where) key(kind string) string {
	return kind + ":" + field(w.File) + ":" + field(w.Function) + ":" + field(w.Type)
}

func (w Where) matchFile(file string) bool {
	f := field(w.File)
	return f == Any || f == filepath.Base(file) || f == file
}

func (w Where) matchFunction(fn string) bool {
	f := field(w.Function)
	return f == Any || f == fn
}

// VarInfo is a variable joined with its symbol address. Addr is nil when
// no symbol dump covers it.
type VarInfo struct {
	Variable
	Addr *uint64 `json:"addr"`
}

// FuncInfo is a function joined with its symbol address and size.
type FuncInfo struct {
	Function
	Addr     *uint64 `json:"addr"`
	ByteSize int64   `json:"byte_size"`
}

// Var returns the single variable named name matching w, with its address.
// name may be Any. Results are memoized per query; errors are not.
func (e *Engine) Var(name string, w Where) (*VarInfo, error) {
	key := w.key("var") + ":" + name
	if v, ok := e.memo[key].(*VarInfo); ok {
		return v, nil
	}

	var matches []*Variable
	for _, v := range e.variables {
		if name != Any && v.Name != name {
			continue
		}
		if !w.matchFile(v.File) || !w.matchFunction(v.Function) || !e.matchType(w.Type, v.Type, v.EnumName) {
			continue
		}
		matches = append(matches, v)
	}
	if err := single("variable", key, matches); err != nil {
		return nil, err
	}

	info := &VarInfo{Variable: *matches[0]}
	sym, err := e.lookupSymbol(SymbolObject, info.Name, info.File, key)
	if err != nil {
		return nil, err
	}
	if sym != nil {
		addr := sym.Addr
		info.Addr = &addr
	}
	e.memo[key] = info
	return info, nil
}

// Enum returns the value of enumerator name. w.Type matches the enum tag or
// typedef name, so an enum defined as "typedef enum tag {...} alias;" must be
// narrowed to one of the two names.
func (e *Engine) Enum(name string, w Where) (int64, error) {
	key := w.key("enum") + ":" + name
	if v, ok := e.memo[key].(int64); ok {
		return v, nil
	}

	matches := e.matchEnums(w, func(en *Enum) bool {
		_, ok := en.Values[name]
		return ok
	})
	if err := single("enum", key, matches); err != nil {
		return 0, err
	}

	v := matches[0].Values[name].Value
	e.memo[key] = v
	return v, nil
}

// EnumType returns every enumerator of the single enum matching w.
func (e *Engine) EnumType(w Where) (map[string]EnumValue, error) {
	key := w.key("enum_type")
	if v, ok := e.memo[key].(map[string]EnumValue); ok {
		return maps.Clone(v), nil
	}

	matches := e.matchEnums(w, func(*Enum) bool { return true })
	if err := single("enum", key, matches); err != nil {
		return nil, err
	}

	v := matches[0].Values
	e.memo[key] = v
	return maps.Clone(v), nil
}

// Func returns the single function definition named name matching w, with
// the address and size of its symbol.
func (e *Engine) Func(name string, w Where) (*FuncInfo, error) {
	key := w.key("func") + ":" + name
	if v, ok := e.memo[key].(*FuncInfo); ok {
		return v, nil
	}

	var matches []*Function
	for _, f := range e.functions {
		if f.Name != name || !w.matchFile(f.File) || !e.matchType(w.Type, f.Type, "") {
			continue
		}
		matches = append(matches, f)
	}
	if err := single("function", key, matches); err != nil {
		return nil, err
	}

	info := &FuncInfo{Function: *matches[0]}
	sym, err := e.lookupSymbol(SymbolFunc, info.Name, info.File, key)
	if err != nil {
		return nil, err
	}
	if sym != nil {
		addr := sym.Addr
		info.Addr, info.ByteSize = &addr, sym.Size
	}
	e.memo[key] = info
	return info, nil
}

func (e *Engine) matchEnums(w Where, keep func(*Enum) bool) []*Enum {
	var matches []*Enum
	for _, en := range e.enums {
		if !w.matchFile(en.File) || !w.matchFunction(en.Function) {
			continue
		}
		if t := field(w.Type); t != Any && t != en.Name {
			continue
		}
		if keep(en) {
			matches = append(matches, en)
		}
	}
	return matches
}

// matchType compares a type filter against a recorded type. The filter is
// canonicalized, so "int" matches "signed int"; "enum tag" matches an enum
// of that tag.
func (e *Engine) matchType(filter, typ, enumName string) bool {
	f := field(filter)
	if f == Any || f == typ {
		return true
	}
	if enumName != "" && f == "enum "+enumName {
		return true
	}
	if strings.HasPrefix(f, "struct ") || strings.HasPrefix(f, "union ") {
		return false
	}
	return e.reg.CanonicalString(f) == typ
}

type sited interface{ Site() Site }

// single returns a QueryError unless exactly one record matched.
func single[T sited](what, key string, matches []T) error {
	switch len(matches) {
	case 0:
		return &QueryError{What: what, Query: key, Err: ErrMissing}
	case 1:
		return nil
	}
	qe := &QueryError{What: what, Query: key, Err: ErrAmbiguous}
	for _, m := range matches {
		qe.Sites = append(qe.Sites, m.Site())
	}
	return qe
}
