// Package cscrape extracts layout and symbol metadata from C source files:
// the bit size, alignment and offset of every declared variable, struct
// member and typedef, enum values, and the load address of each object as
// reported by a readelf symbol dump.
package cscrape

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions.
var (
	// ErrMissing indicates a query matched nothing.
	ErrMissing = errors.New("cscrape: no match")

	// ErrAmbiguous indicates a query or symbol join matched more than one record.
	ErrAmbiguous = errors.New("cscrape: ambiguous match")

	// ErrDuplicateTypedef indicates two different definitions share a typedef name.
	ErrDuplicateTypedef = errors.New("cscrape: duplicate typedef")

	// ErrUnknownType indicates a type name is neither fundamental nor a typedef.
	ErrUnknownType = errors.New("cscrape: unknown type")

	// ErrBadConstant indicates a literal or arithmetic result could not be evaluated.
	ErrBadConstant = errors.New("cscrape: bad constant")

	// ErrUnsupportedExpr indicates an operator or node kind the evaluator does not handle.
	ErrUnsupportedExpr = errors.New("cscrape: unsupported expression")

	// ErrNoSymbolTable indicates a symbol dump without a symbol table header.
	ErrNoSymbolTable = errors.New("cscrape: no symbol table found")

	// ErrUnknownProfile indicates an ABI profile name with no preset.
	ErrUnknownProfile = errors.New("cscrape: unknown configuration")

	// ErrNotDeclaration indicates a declarator the layout engine cannot size,
	// e.g. an unsized array.
	ErrNotDeclaration = errors.New("cscrape: unsupported declarator")
)

// Site is a definition location used in error reports.
type Site struct {
	File string
	Line int
}

func (s Site) String() string {
	file := s.File
	if file == "" {
		file = "<unknown>"
	}
	return fmt.Sprintf("%s:%d", file, s.Line)
}

// QueryError reports a query that matched nothing or more than one record.
type QueryError struct {
	What  string // "variable", "enum", "function", "symbol"
	Query string // memo key of the query, e.g. "var:*:foo:*:counter"
	Sites []Site // matched definitions, for ambiguous queries
	Err   error  // ErrMissing or ErrAmbiguous
}

func (e *QueryError) Error() string {
	if errors.Is(e.Err, ErrMissing) {
		return fmt.Sprintf("cscrape: missing %s '%s'", e.What, e.Query)
	}
	sites := make([]string, len(e.Sites))
	for i, s := range e.Sites {
		sites[i] = s.String()
	}
	return fmt.Sprintf("cscrape: duplicate %s '%s' %s", e.What, e.Query, strings.Join(sites, " and "))
}

func (e *QueryError) Unwrap() error { return e.Err }

// TypedefError reports a typedef name redefined with a different layout.
type TypedefError struct {
	Name     string
	New, Old Site
}

func (e *TypedefError) Error() string {
	return fmt.Sprintf("cscrape: duplicate typedef name '%s' in %s and %s", e.Name, e.New, e.Old)
}

func (e *TypedefError) Unwrap() error { return ErrDuplicateTypedef }
