// Package readelf parses the symbol-table section of GNU readelf output
// (readelf --syms or --all).
//
// The expected shape is:
//
//	Symbol table '.symtab' contains 47 entries:
//	   Num:    Value  Size Type    Bind   Vis      Ndx Name
//	    28: 00000000     0 FILE    LOCAL  DEFAULT  ABS test.c
//	    34: 00010438     4 OBJECT  LOCAL  DEFAULT    6 my_var.4270
//	    36: 00010170     4 FUNC    GLOBAL DEFAULT    2 main
//
// Each table ends at the first blank line. Several tables in one dump are
// concatenated.
package readelf

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoSymbolTable indicates the input has no "Symbol table" header.
var ErrNoSymbolTable = errors.New("readelf: no symbol table found")

// ParseError reports a malformed data row.
type ParseError struct {
	Line    int    // 1-based line in the dump
	Text    string // offending row
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("readelf: line %d: %s: %v: %q", e.Line, e.Message, e.Err, e.Text)
	}
	return fmt.Sprintf("readelf: line %d: %s: %q", e.Line, e.Message, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Kind identifies the kind of a symbol row.
type Kind uint8

const (
	KindOther Kind = iota
	KindFile
	KindFunc
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "FILE"
	case KindFunc:
		return "FUNC"
	case KindObject:
		return "OBJECT"
	default:
		return "OTHER"
	}
}

// Symbol is one FUNC or OBJECT row. File is empty for GLOBAL symbols,
// which cannot be attributed to a translation unit.
type Symbol struct {
	Kind Kind
	Name string
	Addr uint64
	Size int64
	File string
}

var headerRe = regexp.MustCompile(`^Symbol table '.*' contains [0-9]+ entries:\s*$`)

// Field positions within a data row.
const (
	fieldNum = iota
	fieldValue
	fieldSize
	fieldType
	fieldBind
	fieldVis
	fieldNdx
	fieldName
	numFields
)

// Parse extracts every FUNC and OBJECT row from all symbol tables in text.
func Parse(text string) ([]Symbol, error) {
	var (
		syms     []Symbol
		found    bool
		inTable  bool
		skipHead bool
		file     string
	)

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")

		if !inTable {
			if headerRe.MatchString(line) {
				found, inTable, skipHead = true, true, true
			}
			continue
		}
		if skipHead {
			// column titles
			skipHead = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			inTable = false
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < numFields {
			// unnamed rows (sections, the null symbol)
			continue
		}

		kind := parseKind(fields[fieldType])
		if kind == KindOther {
			continue
		}
		if kind == KindFile {
			file = fields[fieldName]
			continue
		}

		addr, err := strconv.ParseUint(fields[fieldValue], 16, 64)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Message: "bad address", Err: err}
		}
		size, err := parseSize(fields[fieldSize])
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Message: "bad size", Err: err}
		}

		sym := Symbol{
			Kind: kind,
			Name: stripSuffix(fields[fieldName]),
			Addr: addr,
			Size: size,
		}
		if fields[fieldBind] == "LOCAL" {
			sym.File = file
		}
		syms = append(syms, sym)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("readelf: failed to read dump: %w", err)
	}
	if !found {
		return nil, ErrNoSymbolTable
	}

	return syms, nil
}

func parseKind(s string) Kind {
	switch s {
	case "FILE":
		return KindFile
	case "FUNC":
		return KindFunc
	case "OBJECT":
		return KindObject
	default:
		return KindOther
	}
}

// parseSize accepts decimal sizes and the 0x-prefixed form readelf prints
// for very large symbols.
func parseSize(s string) (int64, error) {
	if strings.HasPrefix(s, "0x") {
		return strconv.ParseInt(s[2:], 16, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

// stripSuffix removes the ".1234" numbering compilers append to function
// static variables and cloned functions.
func stripSuffix(name string) string {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}
