package readelf_test

import (
	"errors"
	"testing"

	"github.com/skdltmxn/cscrape-go/internal/readelf"
	"github.com/skdltmxn/cscrape-go/internal/testers/assert"
	"github.com/skdltmxn/cscrape-go/internal/testers/require"
)

const dump = `ELF Header:
  Magic:   7f 45 4c 46 01 01 01 00 00 00 00 00 00 00 00 00

Symbol table '.symtab' contains 47 entries:
   Num:    Value  Size Type    Bind   Vis      Ndx Name
     0: 00000000     0 NOTYPE  LOCAL  DEFAULT  UND
     1: 00010000     0 SECTION LOCAL  DEFAULT    1
    25: 00010130     0 NOTYPE  LOCAL  DEFAULT    2 $a
    28: 00000000     0 FILE    LOCAL  DEFAULT  ABS test.c
    34: 00010438     4 OBJECT  LOCAL  DEFAULT    6 my_static_function_var.4270
    35: 0001043c     4 OBJECT  LOCAL  DEFAULT    6 my_static_function_var.4266
    36: 00010170     4 FUNC    GLOBAL DEFAULT    2 main2
    37: 00010044    76 FUNC    LOCAL  DEFAULT    2 print_str
    38: 00010434     1 OBJECT  GLOBAL DEFAULT    6 my_char_var
    40: 00011448     0 NOTYPE  GLOBAL DEFAULT    6 stack_top

No version information found in this file.
`

func TestParse(t *testing.T) {
	syms, err := readelf.Parse(dump)
	require.Nil(t, err)
	require.Equal(t, 5, len(syms))

	assert.Equal(t, readelf.Symbol{
		Kind: readelf.KindObject,
		Name: "my_static_function_var",
		Addr: 0x10438,
		Size: 4,
		File: "test.c",
	}, syms[0])
	assert.Equal(t, uint64(0x1043c), syms[1].Addr)

	assert.Equal(t, readelf.KindFunc, syms[2].Kind)
	assert.Equal(t, "main2", syms[2].Name)
	assert.Equal(t, "", syms[2].File)

	assert.Equal(t, "test.c", syms[3].File)
	assert.Equal(t, int64(76), syms[3].Size)

	assert.Equal(t, "my_char_var", syms[4].Name)
	assert.Equal(t, "", syms[4].File)
}

func TestParseMultipleTables(t *testing.T) {
	text := `Symbol table '.dynsym' contains 2 entries:
   Num:    Value  Size Type    Bind   Vis      Ndx Name
     1: 00001000    10 FUNC    GLOBAL DEFAULT   12 exported

Symbol table '.symtab' contains 3 entries:
   Num:    Value  Size Type    Bind   Vis      Ndx Name
     1: 00000000     0 FILE    LOCAL  DEFAULT  ABS a.c
     2: 00002000     8 OBJECT  LOCAL  DEFAULT   20 counter.0
     3: 00000000     0 FILE    LOCAL  DEFAULT  ABS b.c
     4: 00002008     8 OBJECT  LOCAL  DEFAULT   20 counter.1
`
	syms, err := readelf.Parse(text)
	require.Nil(t, err)
	require.Equal(t, 3, len(syms))
	assert.Equal(t, "exported", syms[0].Name)
	assert.Equal(t, "a.c", syms[1].File)
	assert.Equal(t, "b.c", syms[2].File)
	assert.Equal(t, "counter", syms[2].Name)
}

func TestParseErrors(t *testing.T) {
	_, err := readelf.Parse("nothing to see here\n")
	assert.ErrorIs(t, err, readelf.ErrNoSymbolTable)

	_, err = readelf.Parse(`Symbol table '.symtab' contains 1 entries:
   Num:    Value  Size Type    Bind   Vis      Ndx Name
     1: zzzzzzzz     4 OBJECT  GLOBAL DEFAULT    6 bad
`)
	var perr *readelf.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Line)
}
