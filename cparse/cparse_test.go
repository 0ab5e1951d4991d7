package cparse_test

import (
	"context"
	"errors"
	"testing"

	"github.com/skdltmxn/cscrape-go/ast"
	"github.com/skdltmxn/cscrape-go/cparse"
	"github.com/skdltmxn/cscrape-go/internal/testers/assert"
	"github.com/skdltmxn/cscrape-go/internal/testers/require"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := cparse.New().Parse(context.Background(), []byte(src))
	require.Nil(t, err)
	return f
}

func TestDeclarators(t *testing.T) {
	f := parse(t, "int *x[5];\nint y[2][3];\nint (*p)[4];\nunsigned long z = 3;\n")
	require.Equal(t, 4, len(f.Decls))

	// array of pointers
	x := f.Decls[0].(*ast.Decl)
	assert.Equal(t, "x", x.Name)
	arr, ok := x.Type.(*ast.ArrayDecl)
	require.True(t, ok)
	assert.Equal(t, "5", arr.Dim.(*ast.Constant).Value)
	ptr, ok := arr.Type.(*ast.PtrDecl)
	require.True(t, ok)
	td, ok := ptr.Type.(*ast.TypeDecl)
	require.True(t, ok)
	assert.Equal(t, "x", td.Name)
	assert.Equal(t, []string{"int"}, td.Type.(*ast.IdentifierType).Names)

	// dimensions outermost first
	y := f.Decls[1].(*ast.Decl)
	outer := y.Type.(*ast.ArrayDecl)
	inner := outer.Type.(*ast.ArrayDecl)
	assert.Equal(t, "2", outer.Dim.(*ast.Constant).Value)
	assert.Equal(t, "3", inner.Dim.(*ast.Constant).Value)
	assert.Equal(t, 2, y.Line())

	// pointer to array
	p := f.Decls[2].(*ast.Decl)
	_, ok = p.Type.(*ast.PtrDecl)
	assert.True(t, ok)

	z := f.Decls[3].(*ast.Decl)
	assert.Equal(t, []string{"unsigned", "long"}, z.Type.(*ast.TypeDecl).Type.(*ast.IdentifierType).Names)
	assert.Equal(t, "3", z.Init.(*ast.Constant).Value)
}

func TestStorageAndFunctions(t *testing.T) {
	src := `static const int a;
int *get(int n, char buf[8]);
void f1(void)
{
    static int count;
    int local;
    if (local) {
        static char nested;
    }
}
`
	f := parse(t, src)
	require.Equal(t, 3, len(f.Decls))

	a := f.Decls[0].(*ast.Decl)
	assert.True(t, a.HasStorage("static"))
	assert.Equal(t, []string{"const"}, a.Quals)

	proto := f.Decls[1].(*ast.Decl)
	fd, ok := proto.Type.(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, 2, len(fd.Params))
	assert.Equal(t, "buf", fd.Params[1].Name)
	_, ok = fd.Type.(*ast.PtrDecl)
	assert.True(t, ok)

	def := f.Decls[2].(*ast.FuncDef)
	assert.Equal(t, "f1", def.Decl.Name)
	assert.Equal(t, 3, def.Line())
	require.Equal(t, 3, len(def.Body))
	assert.Equal(t, "count", def.Body[0].(*ast.Decl).Name)
	assert.Equal(t, "nested", def.Body[2].(*ast.Decl).Name)
	assert.Equal(t, 8, def.Body[2].Line())
}

func TestSpecifiers(t *testing.T) {
	src := `typedef struct tag {
    char a;
    int b[2], *c;
} my_t;
enum color { RED, GREEN = 4 };
typedef enum { A = 1 << 2 } flags_t;
union u { int i; float f; } uv;
`
	f := parse(t, src)
	require.Equal(t, 4, len(f.Decls))

	td := f.Decls[0].(*ast.Typedef)
	assert.Equal(t, "my_t", td.Name)
	s := td.Type.(*ast.TypeDecl).Type.(*ast.Struct)
	assert.Equal(t, "tag", s.Name)
	require.Equal(t, 3, len(s.Members))
	assert.Equal(t, "c", s.Members[2].Name)
	assert.Equal(t, 3, s.Members[2].Line())

	tagOnly := f.Decls[1].(*ast.Decl)
	en, ok := tagOnly.Type.(*ast.Enum)
	require.True(t, ok)
	assert.Equal(t, "color", en.Name)
	require.Equal(t, 2, len(en.Values))
	assert.Nil(t, en.Values[0].Value)
	assert.Equal(t, "4", en.Values[1].Value.(*ast.Constant).Value)

	fl := f.Decls[2].(*ast.Typedef)
	e2 := fl.Type.(*ast.TypeDecl).Type.(*ast.Enum)
	op := e2.Values[0].Value.(*ast.BinaryOp)
	assert.Equal(t, "<<", op.Op)

	uv := f.Decls[3].(*ast.Decl)
	assert.True(t, uv.Type.(*ast.TypeDecl).Type.(*ast.Struct).Union)
}

func TestExpressions(t *testing.T) {
	f := parse(t, "char buf[2 * sizeof(int)];\nint q[(2 + -(1))];\nint m[~0 & 'a'];\n")

	mul := f.Decls[0].(*ast.Decl).Type.(*ast.ArrayDecl).Dim.(*ast.BinaryOp)
	assert.Equal(t, "*", mul.Op)
	sz := mul.Right.(*ast.UnaryOp)
	assert.Equal(t, "sizeof", sz.Op)
	_, ok := sz.Expr.(*ast.Typename)
	assert.True(t, ok)

	add := f.Decls[1].(*ast.Decl).Type.(*ast.ArrayDecl).Dim.(*ast.BinaryOp)
	assert.Equal(t, "+", add.Op)
	neg := add.Right.(*ast.UnaryOp)
	assert.Equal(t, "-", neg.Op)

	and := f.Decls[2].(*ast.Decl).Type.(*ast.ArrayDecl).Dim.(*ast.BinaryOp)
	assert.Equal(t, "&", and.Op)
	assert.Equal(t, "'a'", and.Right.(*ast.Constant).Value)
}

func TestUnmodelledExpressions(t *testing.T) {
	f := parse(t, "int good;\nint bad[1 ? 2 : 3];\nenum { A = f(2), B };\nint after;\n")
	require.Equal(t, 4, len(f.Decls))

	dim := f.Decls[1].(*ast.Decl).Type.(*ast.ArrayDecl).Dim.(*ast.Opaque)
	assert.Equal(t, "conditional_expression", dim.Form)
	assert.Equal(t, "1 ? 2 : 3", dim.Text)
	assert.Equal(t, 2, dim.Line())

	en := f.Decls[2].(*ast.Decl).Type.(*ast.Enum)
	call := en.Values[0].Value.(*ast.Opaque)
	assert.Equal(t, "call_expression", call.Form)
	assert.Nil(t, en.Values[1].Value)

	assert.Equal(t, "after", f.Decls[3].(*ast.Decl).Name)
}

func TestSyntaxError(t *testing.T) {
	_, err := cparse.New().Parse(context.Background(), []byte("int a;\nint = = 3;\n"))
	var se *cparse.SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Line)
	assert.ErrorIs(t, err, cparse.ErrSyntax)
}
