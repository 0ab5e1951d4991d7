package cscrape

import (
	"testing"

	"github.com/skdltmxn/cscrape-go/ast"
	"github.com/skdltmxn/cscrape-go/internal/testers/assert"
	"github.com/skdltmxn/cscrape-go/internal/testers/require"
)

func td(names ...string) *ast.TypeDecl {
	return &ast.TypeDecl{Type: &ast.IdentifierType{Names: names}}
}

func TestClassify(t *testing.T) {
	type entry struct {
		name  string
		give  ast.Node
		shape shape
		ptr   int
		dims  int
	}
	table := []entry{
		{"scalar", td("int"), shapeScalar, 0, 0},
		{"pointer array", &ast.ArrayDecl{Type: &ast.PtrDecl{Type: td("int")}, Dim: &ast.Constant{Value: "5"}}, shapeScalar, 1, 1},
		{"double pointer", &ast.PtrDecl{Type: &ast.PtrDecl{Type: td("char")}}, shapeScalar, 2, 0},
		{"enum", &ast.TypeDecl{Type: &ast.Enum{Name: "e"}}, shapeEnum, 0, 0},
		{"struct", &ast.TypeDecl{Type: &ast.Struct{Name: "s"}}, shapeStruct, 0, 0},
		{"function", &ast.FuncDecl{Type: td("int")}, shapeOther, 0, 0},
		{"function pointer", &ast.PtrDecl{Type: &ast.FuncDecl{Type: td("void")}}, shapeFuncPtr, 1, 0},
		{"bare struct", &ast.Struct{Name: "s"}, shapeOther, 0, 0},
	}
	for _, cur := range table {
		t.Run(cur.name, func(t *testing.T) {
			d := classify(cur.give)
			assert.Equal(t, cur.shape, d.shape)
			assert.Equal(t, cur.ptr, d.ptr)
			assert.Equal(t, cur.dims, len(d.dims))
		})
	}
}

func TestEnumAliasSlot(t *testing.T) {
	e, err := New()
	require.Nil(t, err)

	e.setEnumAlias("Life_t")
	defer func() {
		assert.NotNil(t, recover())
	}()
	e.setEnumAlias("Other_t")
}

// A function-local scope must not leak to the declarations that follow the
// function.
func TestScopeDoesNotLeak(t *testing.T) {
	e, err := New()
	require.Nil(t, err)

	f := &ast.File{Decls: []ast.Node{
		&ast.FuncDef{
			Pos:  ast.Pos{LineNo: 1},
			Decl: &ast.Decl{Name: "f", Type: &ast.FuncDecl{Type: td("void")}},
			Body: []ast.Node{
				&ast.Decl{Pos: ast.Pos{LineNo: 2}, Name: "s", Storage: []string{"static"}, Type: td("int")},
				&ast.Decl{Pos: ast.Pos{LineNo: 3}, Name: "auto_var", Type: td("int")},
			},
		},
		&ast.Decl{Pos: ast.Pos{LineNo: 5}, Name: "g", Type: td("short")},
	}}
	require.Nil(t, e.ParseAST(f, "void f(void) {\nstatic int s;\nint auto_var;\n}\nshort g;\n", "scope.c"))

	require.Equal(t, 2, len(e.variables))
	assert.Equal(t, "f", e.variables[0].Function)
	assert.Equal(t, "", e.variables[1].Function)
	assert.Equal(t, "short g;", e.variables[1].Source)
	assert.Equal(t, int64(16), e.variables[1].Size)
	assert.Equal(t, 1, len(e.functions))
}

func TestTypedefEnumAlias(t *testing.T) {
	e, err := New()
	require.Nil(t, err)

	enum := &ast.Enum{Name: "Life_e", Values: []*ast.Enumerator{{Name: "DEAD"}, {Name: "ALIVE"}}}
	f := &ast.File{Decls: []ast.Node{
		&ast.Typedef{Name: "Life_t", Type: &ast.TypeDecl{Name: "Life_t", Type: enum}},
	}}
	require.Nil(t, e.ParseAST(f, "", "life.h"))

	require.Equal(t, 2, len(e.enums))
	assert.Equal(t, "Life_e", e.enums[0].Name)
	assert.Equal(t, "Life_t", e.enums[1].Name)
	assert.Equal(t, e.enums[0].Values, e.enums[1].Values)
	assert.Equal(t, "", e.pendingAlias)

	life, ok := e.typedefs["Life_t"]
	require.True(t, ok)
	assert.Equal(t, int64(32), life.Size)
	assert.Equal(t, "enum", life.Elements[0].Type)
	assert.Equal(t, "Life_e", life.Elements[0].EnumName)
}
