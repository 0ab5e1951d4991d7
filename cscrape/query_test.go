package cscrape_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/skdltmxn/cscrape-go/cscrape"
	"github.com/skdltmxn/cscrape-go/internal/testers/assert"
	"github.com/skdltmxn/cscrape-go/internal/testers/require"
)

func TestEnumQueries(t *testing.T) {
	e := load(t, "enums.c")

	type entry struct {
		name  string
		where cscrape.Where
		want  int64
	}
	table := []entry{
		{"MY_ENUM", cscrape.Where{}, 0},
		{"MY_ENUM2_A", cscrape.Where{}, 0},
		{"MY_ENUM2_B", cscrape.Where{}, -5},
		{"MY_ENUM2_B", cscrape.Where{Type: "my_enum2_t"}, -5},
		{"TWO", cscrape.Where{Type: "MyList_e"}, 2},
		{"ELEVEN", cscrape.Where{}, 11},
		{"DEAD", cscrape.Where{Type: "Life_e"}, 0},
		{"ALIVE", cscrape.Where{Type: "Life_t"}, 1},
		{"BIT3", cscrape.Where{}, 8},
		{"MASK", cscrape.Where{}, 15},
		{"NEG", cscrape.Where{}, -6},
		{"CH", cscrape.Where{}, 65},
		{"FUNC_ENUM", cscrape.Where{Function: "f1"}, 10},
		{"FUNC_ENUM", cscrape.Where{Function: "f2"}, 20},
		{"MY_ENUM_T", cscrape.Where{Type: "type1", File: "enums.c"}, 77},
	}
	for _, cur := range table {
		t.Run(cur.name+"/"+cur.where.Type+cur.where.Function, func(t *testing.T) {
			got, err := e.Enum(cur.name, cur.where)
			require.Nil(t, err)
			assert.Equal(t, cur.want, got)
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, err := e.Enum("UNKNOWN", cscrape.Where{})
		assert.ErrorIs(t, err, cscrape.ErrMissing)
		assert.Equal(t, "cscrape: missing enum 'enum:*:*:*:UNKNOWN'", err.Error())

		_, err = e.Enum("MY_ENUM2_B", cscrape.Where{Type: "my_enum_tX"})
		assert.ErrorIs(t, err, cscrape.ErrMissing)
	})

	t.Run("ambiguous", func(t *testing.T) {
		_, err := e.Enum("FUNC_ENUM", cscrape.Where{})
		assert.ErrorIs(t, err, cscrape.ErrAmbiguous)
		assert.True(t, strings.HasPrefix(err.Error(), "cscrape: duplicate enum 'enum:*:*:*:FUNC_ENUM'"))

		// a typedef'd enum is recorded under both names
		_, err = e.Enum("DEAD", cscrape.Where{})
		assert.ErrorIs(t, err, cscrape.ErrAmbiguous)
	})
}

func TestEnumType(t *testing.T) {
	e := load(t, "enums.c")

	values, err := e.EnumType(cscrape.Where{Type: "MyList_e"})
	require.Nil(t, err)
	assert.Equal(t, 5, len(values))
	assert.Equal(t, int64(3), values["THREE"].Value)
	assert.Equal(t, int64(10), values["TEN"].Value)
	assert.Equal(t, 8, values["THREE"].Line)
	assert.True(t, strings.Contains(values["THREE"].Source, "// Comment with THREE"))

	// callers get their own copy
	delete(values, "ONE")
	again, err := e.EnumType(cscrape.Where{Type: "MyList_e"})
	require.Nil(t, err)
	assert.Equal(t, 5, len(again))

	_, err = e.EnumType(cscrape.Where{})
	assert.ErrorIs(t, err, cscrape.ErrAmbiguous)
}

func TestEnumMemoized(t *testing.T) {
	e := newEngine(t)
	parseString(t, e, "enum numbers {ONE=1, TWO=2};\n", "numbers.h")

	first, err := e.Enum("TWO", cscrape.Where{Type: "numbers"})
	require.Nil(t, err)
	assert.Equal(t, int64(2), first)

	// a later conflicting definition does not disturb the cached answer
	parseString(t, e, "enum numbers {TWO=5};\n", "other.h")
	second, err := e.Enum("TWO", cscrape.Where{Type: "numbers"})
	require.Nil(t, err)
	assert.Equal(t, first, second)

	// "*" and "" spell the same query
	third, err := e.Enum("TWO", cscrape.Where{Type: "numbers", File: "*"})
	require.Nil(t, err)
	assert.Equal(t, first, third)

	// an uncached query sees both definitions
	_, err = e.EnumType(cscrape.Where{Type: "numbers"})
	assert.ErrorIs(t, err, cscrape.ErrAmbiguous)
	v, err := e.Enum("TWO", cscrape.Where{Type: "numbers", File: "other.h"})
	require.Nil(t, err)
	assert.Equal(t, int64(5), v)
}

func loadWithSymbols(t *testing.T) *cscrape.Engine {
	t.Helper()
	e := load(t, "vars.c")
	require.Nil(t, e.ParseSymbolsFile("testdata/symbols.txt"))
	return e
}

func TestVarQueries(t *testing.T) {
	e := loadWithSymbols(t)

	t.Run("local symbol", func(t *testing.T) {
		v, err := e.Var("my_static_int", cscrape.Where{})
		require.Nil(t, err)
		require.NotNil(t, v.Addr)
		assert.Equal(t, uint64(0x20000), *v.Addr)
		assert.Equal(t, int64(32), v.Size)
	})

	t.Run("global symbol", func(t *testing.T) {
		v, err := e.Var("my_char_var", cscrape.Where{File: "vars.c"})
		require.Nil(t, err)
		require.NotNil(t, v.Addr)
		assert.Equal(t, uint64(0x20200), *v.Addr)
	})

	t.Run("no symbol", func(t *testing.T) {
		v, err := e.Var("name", cscrape.Where{})
		require.Nil(t, err)
		assert.Nil(t, v.Addr)
	})

	t.Run("function static", func(t *testing.T) {
		v, err := e.Var("my_static_function_var", cscrape.Where{Function: "helper"})
		require.Nil(t, err)
		require.NotNil(t, v.Addr)
		assert.Equal(t, uint64(0x2000c), *v.Addr)
	})

	t.Run("type filter", func(t *testing.T) {
		v, err := e.Var(cscrape.Any, cscrape.Where{Type: "unsigned short int"})
		require.Nil(t, err)
		assert.Equal(t, "table", v.Name)

		v, err = e.Var(cscrape.Any, cscrape.Where{Type: "enum mode"})
		require.Nil(t, err)
		assert.Equal(t, "current_mode", v.Name)
	})

	t.Run("memoized", func(t *testing.T) {
		a, err := e.Var("my_static_int", cscrape.Where{File: "vars.c"})
		require.Nil(t, err)
		b, err := e.Var("my_static_int", cscrape.Where{File: "vars.c"})
		require.Nil(t, err)
		assert.True(t, a == b)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := e.Var("nothing", cscrape.Where{})
		assert.ErrorIs(t, err, cscrape.ErrMissing)
		assert.Equal(t, "cscrape: missing variable 'var:*:*:*:nothing'", err.Error())
	})
}

func TestVarAmbiguous(t *testing.T) {
	e := loadWithSymbols(t)

	_, err := e.Var("counter", cscrape.Where{})
	var qe *cscrape.QueryError
	require.True(t, errors.As(err, &qe))
	assert.ErrorIs(t, err, cscrape.ErrAmbiguous)
	assert.Equal(t, "variable", qe.What)
	require.Equal(t, 2, len(qe.Sites))
	assert.Equal(t, 22, qe.Sites[0].Line)
	assert.Equal(t, 28, qe.Sites[1].Line)

	// the declaration is unique, but two LOCAL counters live in vars.c
	_, err = e.Var("counter", cscrape.Where{Function: "foo"})
	require.True(t, errors.As(err, &qe))
	assert.ErrorIs(t, err, cscrape.ErrAmbiguous)
	assert.Equal(t, "symbol", qe.What)
}

func TestErrorsNotMemoized(t *testing.T) {
	e := newEngine(t)
	_, err := e.Var("late", cscrape.Where{})
	assert.ErrorIs(t, err, cscrape.ErrMissing)

	require.Nil(t, e.ParseString(context.Background(), "int late;\n", "late.c"))
	v, err := e.Var("late", cscrape.Where{})
	require.Nil(t, err)
	assert.Equal(t, "late", v.Name)
}

func TestGlobalJoinAmbiguous(t *testing.T) {
	e := newEngine(t)
	parseString(t, e, "int shared;\n", "a.c")
	require.Nil(t, e.ParseSymbols(`Symbol table '.symtab' contains 2 entries:
   Num:    Value  Size Type    Bind   Vis      Ndx Name
     1: 00001000     4 OBJECT  GLOBAL DEFAULT    3 shared
     2: 00002000     4 OBJECT  GLOBAL DEFAULT    3 shared
`))
	_, err := e.Var("shared", cscrape.Where{})
	assert.ErrorIs(t, err, cscrape.ErrAmbiguous)
}

func TestFuncQueries(t *testing.T) {
	e := loadWithSymbols(t)

	f, err := e.Func("helper", cscrape.Where{File: "vars.c"})
	require.Nil(t, err)
	require.NotNil(t, f.Addr)
	assert.Equal(t, uint64(0x10100), *f.Addr)
	assert.Equal(t, int64(40), f.ByteSize)
	assert.Equal(t, 2, len(f.Params))

	f, err = e.Func("foo", cscrape.Where{})
	require.Nil(t, err)
	assert.Equal(t, uint64(0x10000), *f.Addr)

	_, err = e.Func("main", cscrape.Where{})
	assert.ErrorIs(t, err, cscrape.ErrMissing)
}

func TestParseSymbolsErrors(t *testing.T) {
	e := newEngine(t)
	assert.ErrorIs(t, e.ParseSymbols("not a dump\n"), cscrape.ErrNoSymbolTable)

	err := e.ParseSymbolsFile("testdata/does-not-exist.txt")
	assert.NotNil(t, err)
}
