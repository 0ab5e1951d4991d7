package cscrape

import (
	"maps"
	"slices"
)

// Variable is a declared variable. Sizes are in bits. Function is empty for
// module scope. Err is set when the declaration could not be fully
// resolved; the other fields then hold whatever was resolved.
type Variable struct {
	Name     string  `json:"name"`
	File     string  `json:"filename"`
	Line     int     `json:"line_number"`
	Source   string  `json:"line"`
	Type     string  `json:"type"`
	EnumName string  `json:"enum_name,omitempty"`
	Ptr      int     `json:"ptr"`
	Array    []int64 `json:"array"`
	Size     int64   `json:"size"`
	Function string  `json:"function,omitempty"`
	Err      error   `json:"-"`
}

// Site returns the declaration location.
func (v *Variable) Site() Site { return Site{File: v.File, Line: v.Line} }

// EnumValue is one enumerator.
type EnumValue struct {
	Value  int64  `json:"value"`
	Line   int    `json:"line_number"`
	Source string `json:"line"`
}

// Enum is a resolved enum. Name is the tag, or the typedef alias for the
// second record produced by "typedef enum tag {...} alias;". Name is empty
// for an anonymous enum.
type Enum struct {
	Name     string               `json:"name"`
	File     string               `json:"filename"`
	Line     int                  `json:"line_number"`
	Function string               `json:"function,omitempty"`
	Values   map[string]EnumValue `json:"values"`
	Err      error                `json:"-"`
}

// Site returns the definition location.
func (e *Enum) Site() Site { return Site{File: e.File, Line: e.Line} }

// alias returns a copy of the enum carrying a different name. The copy owns
// its value map.
func (e *Enum) alias(name string) *Enum {
	cp := *e
	cp.Name = name
	cp.Values = maps.Clone(e.Values)
	return &cp
}

// TypeElement is one member of a struct typedef, or the aliased type of a
// simple typedef (Name empty). Offset, Size and Align are in bits.
type TypeElement struct {
	Type     string  `json:"type_name"`
	EnumName string  `json:"enum_name,omitempty"`
	Name     string  `json:"var_name,omitempty"`
	Ptr      int     `json:"ptr"`
	Array    []int64 `json:"array"`
	Offset   int64   `json:"offset"`
	Size     int64   `json:"size"`
	Align    int64   `json:"alignment"`
	Line     int     `json:"line_number"`
	Source   string  `json:"line"`
}

// TypedefKind distinguishes simple aliases from struct and union layouts.
type TypedefKind string

const (
	TypedefSimple TypedefKind = "simple"
	TypedefStruct TypedefKind = "struct"
	TypedefUnion  TypedefKind = "union"
)

// Typedef is a named type: a typedef, or a struct/union tag registered as
// "struct tag". Size and Align are in bits.
type Typedef struct {
	Name     string        `json:"name"`
	Kind     TypedefKind   `json:"typedef_type"`
	File     string        `json:"filename"`
	Line     int           `json:"line_number"`
	Source   string        `json:"line"`
	Size     int64         `json:"size"`
	Align    int64         `json:"alignment"`
	Elements []TypeElement `json:"types"`
	Err      error         `json:"-"`
}

// Site returns the definition location.
func (t *Typedef) Site() Site { return Site{File: t.File, Line: t.Line} }

// Member returns the struct member with the given name.
func (t *Typedef) Member(name string) (TypeElement, bool) {
	i := slices.IndexFunc(t.Elements, func(el TypeElement) bool { return el.Name == name })
	if i < 0 {
		return TypeElement{}, false
	}
	return t.Elements[i], true
}

// Param is one function parameter.
type Param struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Ptr   int     `json:"ptr"`
	Array []int64 `json:"array"`
}

// Function is a function definition.
type Function struct {
	Name   string  `json:"name"`
	File   string  `json:"filename"`
	Line   int     `json:"line_number"`
	Source string  `json:"line"`
	Type   string  `json:"type"`
	Ptr    int     `json:"ptr"`
	Params []Param `json:"params"`
	Err    error   `json:"-"`
}

// Site returns the definition location.
func (f *Function) Site() Site { return Site{File: f.File, Line: f.Line} }
