package cscrape_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/skdltmxn/cscrape-go/cscrape"
	"github.com/skdltmxn/cscrape-go/internal/testers/assert"
	"github.com/skdltmxn/cscrape-go/internal/testers/require"
)

// errText flattens captured errors so records can be compared after a
// round trip, which keeps only the message.
func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := loadWithSymbols(t)
	require.Nil(t, src.ParseFile(t.Context(), "testdata/enums.c"))
	require.Nil(t, src.ParseFile(t.Context(), "testdata/structs.c"))

	var buf bytes.Buffer
	require.Nil(t, src.Export(&buf))

	dst := newEngine(t)
	require.Nil(t, dst.Import(&buf))

	sv, dv := src.Variables(), dst.Variables()
	require.Equal(t, len(sv), len(dv))
	for i := range sv {
		a, b := *sv[i], *dv[i]
		assert.Equal(t, errText(a.Err), errText(b.Err))
		a.Err, b.Err = nil, nil
		assert.Equal(t, a, b)
	}

	se, de := src.Enums(), dst.Enums()
	require.Equal(t, len(se), len(de))
	for i := range se {
		assert.Equal(t, se[i].Name, de[i].Name)
		assert.Equal(t, se[i].Function, de[i].Function)
		assert.Equal(t, se[i].Values, de[i].Values)
	}

	st, dt := src.Typedefs(), dst.Typedefs()
	require.Equal(t, len(st), len(dt))
	for i := range st {
		assert.Equal(t, st[i].Name, dt[i].Name)
		assert.Equal(t, st[i].Size, dt[i].Size)
		assert.Equal(t, st[i].Elements, dt[i].Elements)
	}

	assert.Equal(t, src.Symbols(), dst.Symbols())
	assert.Equal(t, src.Types(), dst.Types())
	assert.Equal(t, len(src.Functions()), len(dst.Functions()))

	// queries work without the sources
	v, err := dst.Var("my_static_int", cscrape.Where{})
	require.Nil(t, err)
	assert.Equal(t, uint64(0x20000), *v.Addr)

	size, err := dst.TypeSize("my_type6")
	require.Nil(t, err)
	assert.Equal(t, int64(1728), size)

	broken, err := dst.Var("broken", cscrape.Where{})
	require.Nil(t, err)
	require.NotNil(t, broken.Err)
	assert.True(t, strings.Contains(broken.Err.Error(), "unknown_t"))
}

func TestImportClearsCache(t *testing.T) {
	e := newEngine(t)
	parseString(t, e, "enum numbers {TWO=2};\n", "a.h")
	v, err := e.Enum("TWO", cscrape.Where{})
	require.Nil(t, err)
	assert.Equal(t, int64(2), v)

	other := newEngine(t)
	parseString(t, other, "enum numbers {TWO=22};\n", "b.h")
	var buf bytes.Buffer
	require.Nil(t, other.Export(&buf))

	require.Nil(t, e.Import(&buf))
	v, err = e.Enum("TWO", cscrape.Where{})
	require.Nil(t, err)
	assert.Equal(t, int64(22), v)
}

func TestImportErrors(t *testing.T) {
	e := newEngine(t)
	assert.NotNil(t, e.Import(strings.NewReader("{not json")))
	assert.NotNil(t, e.Import(strings.NewReader(`{"version": 99}`)))
}
