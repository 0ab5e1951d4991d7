package cscrape

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/skdltmxn/cscrape-go/internal/abi"
)

// snapshotVersion is bumped whenever the document layout changes.
const snapshotVersion = 1

type snapshot struct {
	Version   int                 `json:"version"`
	Profile   *abi.Profile        `json:"profile"`
	Types     map[string]TypeInfo `json:"types"`
	Typedefs  []typedefJSON       `json:"typedefs"`
	Variables []variableJSON      `json:"variables"`
	Enums     []enumJSON          `json:"enums"`
	Functions []functionJSON      `json:"functions"`
	Symbols   []Symbol            `json:"symbols"`
}

// Captured errors travel as their message.
type (
	typedefJSON struct {
		Typedef
		Exception string `json:"exception,omitempty"`
	}
	variableJSON struct {
		Variable
		Exception string `json:"exception,omitempty"`
	}
	enumJSON struct {
		Enum
		Exception string `json:"exception,omitempty"`
	}
	functionJSON struct {
		Function
		Exception string `json:"exception,omitempty"`
	}
)

func restoreErr(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}

// Export writes every record, the fundamental type table and the active
// profile as one JSON document.
func (e *Engine) Export(w io.Writer) error {
	s := snapshot{
		Version:   snapshotVersion,
		Profile:   e.reg.Profile(),
		Types:     e.Types(),
		Typedefs:  make([]typedefJSON, 0, len(e.typedefOrder)),
		Variables: make([]variableJSON, 0, len(e.variables)),
		Enums:     make([]enumJSON, 0, len(e.enums)),
		Functions: make([]functionJSON, 0, len(e.functions)),
		Symbols:   e.Symbols(),
	}
	for _, td := range e.Typedefs() {
		s.Typedefs = append(s.Typedefs, typedefJSON{Typedef: *td, Exception: errString(td.Err)})
	}
	for _, v := range e.variables {
		s.Variables = append(s.Variables, variableJSON{Variable: *v, Exception: errString(v.Err)})
	}
	for _, en := range e.enums {
		s.Enums = append(s.Enums, enumJSON{Enum: *en, Exception: errString(en.Err)})
	}
	for _, f := range e.functions {
		s.Functions = append(s.Functions, functionJSON{Function: *f, Exception: errString(f.Err)})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&s); err != nil {
		return fmt.Errorf("cscrape: failed to write snapshot: %w", err)
	}
	return nil
}

// Import replaces the engine state with a document written by Export and
// clears the query cache. Captured errors come back as plain errors
// carrying the original message.
func (e *Engine) Import(r io.Reader) error {
	var s snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("cscrape: failed to read snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return fmt.Errorf("cscrape: unsupported snapshot version %d", s.Version)
	}

	if s.Profile != nil {
		if err := s.Profile.Validate(); err != nil {
			return fmt.Errorf("cscrape: snapshot profile: %w", err)
		}
	}

	e.Reset()
	if s.Types != nil {
		types := make(map[string]abi.FundamentalType, len(s.Types))
		for name, t := range s.Types {
			types[name] = abi.FundamentalType{Bits: int(t.Bits), Align: int(t.Align), Signed: t.Signed}
		}
		e.reg.Replace(types)
	}
	if s.Profile != nil {
		if err := e.reg.Apply(s.Profile); err != nil {
			return fmt.Errorf("cscrape: snapshot profile: %w", err)
		}
	}

	for _, td := range s.Typedefs {
		rec := td.Typedef
		rec.Err = restoreErr(td.Exception)
		e.typedefs[rec.Name] = &rec
		e.typedefOrder = append(e.typedefOrder, rec.Name)
	}
	for _, v := range s.Variables {
		rec := v.Variable
		rec.Err = restoreErr(v.Exception)
		e.variables = append(e.variables, &rec)
	}
	for _, en := range s.Enums {
		rec := en.Enum
		rec.Err = restoreErr(en.Exception)
		e.enums = append(e.enums, &rec)
	}
	for _, f := range s.Functions {
		rec := f.Function
		rec.Err = restoreErr(f.Exception)
		e.functions = append(e.functions, &rec)
	}
	e.symbols = s.Symbols

	e.log.Info("imported snapshot",
		slog.Int("variables", len(e.variables)),
		slog.Int("enums", len(e.enums)),
		slog.Int("typedefs", len(e.typedefs)),
		slog.Int("symbols", len(e.symbols)))
	return nil
}
