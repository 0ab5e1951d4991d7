package cscrape

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/skdltmxn/cscrape-go/ast"
	"github.com/skdltmxn/cscrape-go/cparse"
	"github.com/skdltmxn/cscrape-go/internal/abi"
	"github.com/skdltmxn/cscrape-go/internal/sanitize"
)

// Parser turns sanitized C source into a syntax tree.
type Parser interface {
	Parse(ctx context.Context, src []byte) (*ast.File, error)
}

// Engine accumulates declarations from any number of source files and
// symbol dumps and answers queries over them. An Engine is not safe for
// concurrent use.
type Engine struct {
	log    *slog.Logger
	reg    *abi.Registry
	parser Parser

	variables    []*Variable
	enums        []*Enum
	functions    []*Function
	typedefs     map[string]*Typedef
	typedefOrder []string
	symbols      []Symbol

	memo         map[string]any
	pendingAlias string
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) error {
		if l != nil {
			e.log = l
		}
		return nil
	}
}

// WithParser replaces the tree-sitter C parser.
func WithParser(p Parser) Option {
	return func(e *Engine) error {
		e.parser = p
		return nil
	}
}

// WithProfile selects a shipped ABI profile by name.
func WithProfile(name string) Option {
	return func(e *Engine) error { return e.Config(name) }
}

// WithProfileFile loads an ABI profile document from disk.
func WithProfileFile(path string) Option {
	return func(e *Engine) error { return e.ConfigFile(path) }
}

// New returns an empty engine using the default ABI profile.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		log:      slog.New(slog.DiscardHandler),
		reg:      abi.NewRegistry(),
		parser:   cparse.New(),
		typedefs: make(map[string]*Typedef),
		memo:     make(map[string]any),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Profiles lists the names accepted by Config.
func Profiles() []string { return abi.Profiles() }

// Config switches to the named ABI profile, replacing the fundamental types
// it defines and its layout knobs.
func (e *Engine) Config(name string) error {
	p, err := abi.LoadProfile(name)
	if err != nil {
		if errors.Is(err, abi.ErrUnknownProfile) {
			return fmt.Errorf("%w '%s'", ErrUnknownProfile, name)
		}
		return fmt.Errorf("cscrape: %w", err)
	}
	return e.apply(p)
}

// ConfigFile switches to the ABI profile stored at path.
func (e *Engine) ConfigFile(path string) error {
	p, err := abi.ReadProfileFile(path)
	if err != nil {
		return fmt.Errorf("cscrape: %w", err)
	}
	return e.apply(p)
}

func (e *Engine) apply(p *abi.Profile) error {
	if err := e.reg.Apply(p); err != nil {
		return fmt.Errorf("cscrape: %w", err)
	}
	e.log.Info("profile applied", slog.String("name", p.Name))
	return nil
}

// ProfileName returns the name of the active ABI profile.
func (e *Engine) ProfileName() string { return e.reg.Profile().Name }

// PointerSize returns the pointer width in bits.
func (e *Engine) PointerSize() int64 { return int64(e.reg.Profile().PointerSize) }

// ByteOrder returns the byte order of the active profile.
func (e *Engine) ByteOrder() binary.ByteOrder { return e.reg.Profile().ByteOrder() }

// ParseFile reads and walks one C source file.
func (e *Engine) ParseFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cscrape: failed to read source: %w", err)
	}
	return e.ParseString(ctx, string(data), path)
}

// ParseString sanitizes, parses and walks C source text. filename is
// recorded on every definition found.
func (e *Engine) ParseString(ctx context.Context, src, filename string) error {
	clean := sanitize.Source(src)
	f, err := e.parser.Parse(ctx, []byte(clean))
	if err != nil {
		return fmt.Errorf("cscrape: failed to parse %s: %w", filename, err)
	}
	return e.ParseAST(f, src, filename)
}

// ParseAST walks a tree produced by another parser. src is the original
// text, used for the source line recorded with each definition.
func (e *Engine) ParseAST(f *ast.File, src, filename string) error {
	u := &unit{file: filename, lines: strings.Split(src, "\n")}
	nv, ne, nt, nf := len(e.variables), len(e.enums), len(e.typedefs), len(e.functions)

	if err := e.walk(f, walkCtx{unit: u}); err != nil {
		return err
	}

	e.log.Info("parsed source",
		slog.String("file", filename),
		slog.Int("variables", len(e.variables)-nv),
		slog.Int("enums", len(e.enums)-ne),
		slog.Int("typedefs", len(e.typedefs)-nt),
		slog.Int("functions", len(e.functions)-nf))
	return nil
}

// TypeSize returns the bit size of a fundamental type or typedef. A name
// ending in "*" is a pointer.
func (e *Engine) TypeSize(name string) (int64, error) {
	size, _, err := e.typeLayout(name)
	return size, err
}

// TypeAlignment returns the bit alignment of a fundamental type or typedef.
func (e *Engine) TypeAlignment(name string) (int64, error) {
	_, align, err := e.typeLayout(name)
	return align, err
}

// Variables returns every recorded variable in discovery order.
func (e *Engine) Variables() []*Variable { return slices.Clone(e.variables) }

// Enums returns every recorded enum in discovery order.
func (e *Engine) Enums() []*Enum { return slices.Clone(e.enums) }

// Functions returns every recorded function definition in discovery order.
func (e *Engine) Functions() []*Function { return slices.Clone(e.functions) }

// Symbols returns every FUNC and OBJECT symbol loaded from symbol dumps.
func (e *Engine) Symbols() []Symbol { return slices.Clone(e.symbols) }

// Typedef returns the typedef with the given name. Struct and union tags
// are named "struct tag" and "union tag".
func (e *Engine) Typedef(name string) (*Typedef, bool) {
	td, ok := e.typedefs[name]
	return td, ok
}

// Typedefs returns every typedef in definition order.
func (e *Engine) Typedefs() []*Typedef {
	out := make([]*Typedef, 0, len(e.typedefOrder))
	for _, name := range e.typedefOrder {
		out = append(out, e.typedefs[name])
	}
	return out
}

// TypeInfo is a fundamental type entry. Sizes are in bits.
type TypeInfo struct {
	Bits   int64 `json:"bit_size"`
	Align  int64 `json:"alignment"`
	Signed bool  `json:"signed"`
}

// Types returns the fundamental type table keyed by canonical name.
func (e *Engine) Types() map[string]TypeInfo {
	all := e.reg.All()
	out := make(map[string]TypeInfo, len(all))
	for name, t := range all {
		out[name] = TypeInfo{Bits: int64(t.Bits), Align: int64(t.Align), Signed: t.Signed}
	}
	return out
}

// Reset drops everything parsed or imported. The profile is kept.
func (e *Engine) Reset() {
	e.variables = nil
	e.enums = nil
	e.functions = nil
	e.typedefs = make(map[string]*Typedef)
	e.typedefOrder = nil
	e.symbols = nil
	e.memo = make(map[string]any)
	e.pendingAlias = ""
}
