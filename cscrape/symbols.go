package cscrape

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/skdltmxn/cscrape-go/internal/readelf"
)

// SymbolKind distinguishes function symbols from data objects.
type SymbolKind uint8

const (
	SymbolFunc SymbolKind = iota + 1
	SymbolObject
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunc:
		return "FUNC"
	case SymbolObject:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

func (k SymbolKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SymbolKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "FUNC":
		*k = SymbolFunc
	case "OBJECT":
		*k = SymbolObject
	default:
		return fmt.Errorf("cscrape: unknown symbol kind %q", b)
	}
	return nil
}

// Symbol is a FUNC or OBJECT row from a symbol dump. File is set for LOCAL
// symbols only. Size is in bytes.
type Symbol struct {
	Kind SymbolKind `json:"kind"`
	Name string     `json:"name"`
	Addr uint64     `json:"addr"`
	Size int64      `json:"size"`
	File string     `json:"file,omitempty"`
}

// ParseSymbols loads the symbol tables from readelf output.
func (e *Engine) ParseSymbols(text string) error {
	syms, err := readelf.Parse(text)
	if err != nil {
		if errors.Is(err, readelf.ErrNoSymbolTable) {
			return ErrNoSymbolTable
		}
		return fmt.Errorf("cscrape: %w", err)
	}

	for _, s := range syms {
		kind := SymbolObject
		if s.Kind == readelf.KindFunc {
			kind = SymbolFunc
		}
		e.symbols = append(e.symbols, Symbol{Kind: kind, Name: s.Name, Addr: s.Addr, Size: s.Size, File: s.File})
	}
	e.log.Info("loaded symbols", slog.Int("count", len(syms)))
	return nil
}

// ParseSymbolsFile reads readelf output from path.
func (e *Engine) ParseSymbolsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cscrape: failed to read symbols: %w", err)
	}
	return e.ParseSymbols(string(data))
}

// lookupSymbol finds the symbol backing a definition. A symbol matches when
// its name and kind agree and it is either global or local to a file with
// the same base name. No match returns nil; several return ErrAmbiguous.
func (e *Engine) lookupSymbol(kind SymbolKind, name, file, query string) (*Symbol, error) {
	var matches []*Symbol
	base := filepath.Base(file)
	for i := range e.symbols {
		s := &e.symbols[i]
		if s.Kind != kind || s.Name != name {
			continue
		}
		if s.File != "" && filepath.Base(s.File) != base {
			continue
		}
		matches = append(matches, s)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}
	qe := &QueryError{What: "symbol", Query: query, Err: ErrAmbiguous}
	for _, s := range matches {
		qe.Sites = append(qe.Sites, Site{File: s.File})
	}
	return nil, qe
}
