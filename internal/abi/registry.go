package abi

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// FundamentalType describes a built-in C type. Sizes are in bits.
type FundamentalType struct {
	Bits   int  `json:"bit_size"`
	Align  int  `json:"alignment"`
	Signed bool `json:"signed"`
}

// baseTypes are present under every profile.
var baseTypes = map[string]FundamentalType{
	"int8_t":   {Bits: 8, Align: 8, Signed: true},
	"uint8_t":  {Bits: 8, Align: 8, Signed: false},
	"int16_t":  {Bits: 16, Align: 16, Signed: true},
	"uint16_t": {Bits: 16, Align: 16, Signed: false},
	"int32_t":  {Bits: 32, Align: 32, Signed: true},
	"uint32_t": {Bits: 32, Align: 32, Signed: false},
	"int64_t":  {Bits: 64, Align: 64, Signed: true},
	"uint64_t": {Bits: 64, Align: 64, Signed: false},
}

// Registry is the table of fundamental types plus the active profile's knobs.
// It is owned by a single engine and is not safe for concurrent mutation.
type Registry struct {
	types   map[string]*FundamentalType
	profile *Profile
}

// NewRegistry returns a registry seeded with the base types and the
// DefaultProfile.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]*FundamentalType)}
	for name, t := range baseTypes {
		r.types[name] = &t
	}
	p, err := LoadProfile(DefaultProfile)
	if err != nil {
		panic(fmt.Sprintf("abi: embedded default profile: %v", err))
	}
	if err := r.Apply(p); err != nil {
		panic(fmt.Sprintf("abi: embedded default profile: %v", err))
	}
	return r
}

// Apply overwrites the types named by p and adopts its knobs. Aliases share
// the target's record. Types the profile does not mention are kept.
func (r *Registry) Apply(p *Profile) error {
	for _, name := range slices.Sorted(maps.Keys(p.Types)) {
		spec := p.Types[name]
		r.types[name] = &FundamentalType{Bits: spec.Bits, Align: spec.Align, Signed: spec.Signed}
	}
	for _, alias := range slices.Sorted(maps.Keys(p.Aliases)) {
		target, ok := r.types[p.Aliases[alias]]
		if !ok {
			return fmt.Errorf("%w: %s: alias %q refers to unknown type %q",
				ErrInvalidProfile, p.Name, alias, p.Aliases[alias])
		}
		r.types[alias] = target
	}
	r.profile = p
	return nil
}

// Profile returns the active profile.
func (r *Registry) Profile() *Profile { return r.profile }

// Lookup returns the fundamental type with the canonical name.
func (r *Registry) Lookup(name string) (*FundamentalType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Set stores t under name, replacing any existing entry.
func (r *Registry) Set(name string, t FundamentalType) {
	r.types[name] = &t
}

// All returns a copy of the table keyed by name.
func (r *Registry) All() map[string]FundamentalType {
	out := make(map[string]FundamentalType, len(r.types))
	for name, t := range r.types {
		out[name] = *t
	}
	return out
}

// Replace discards the table and loads types instead. The knobs of the
// active profile are kept.
func (r *Registry) Replace(types map[string]FundamentalType) {
	r.types = make(map[string]*FundamentalType, len(types))
	for name, t := range types {
		r.Set(name, t)
	}
}

// rewrites maps a sorted, space-joined specifier list to its canonical name.
// Bare "char" is handled separately because its sign is a profile knob.
var rewrites = map[string]string{
	"int":          "signed int",
	"int unsigned": "unsigned int",
	"int signed":   "signed int",
	"signed":       "signed int",
	"unsigned":     "unsigned int",

	"short":              "signed short",
	"short unsigned":     "unsigned short",
	"short signed":       "signed short",
	"int short":          "signed short",
	"int short unsigned": "unsigned short",
	"int short signed":   "signed short",

	"char unsigned": "unsigned char",
	"char signed":   "signed char",

	"long":              "signed long",
	"long unsigned":     "unsigned long",
	"long signed":       "signed long",
	"int long":          "signed long",
	"int long unsigned": "unsigned long",
	"int long signed":   "signed long",

	"long long":              "signed long long",
	"long long unsigned":     "unsigned long long",
	"long long signed":       "signed long long",
	"int long long":          "signed long long",
	"int long long unsigned": "unsigned long long",
	"int long long signed":   "signed long long",
}

// Canonical normalizes a list of type specifier tokens into the join key used
// by the fundamental and typedef tables, e.g. {"short", "unsigned", "int"}
// becomes "unsigned short". Unknown combinations are returned sorted and
// joined but otherwise unchanged.
func (r *Registry) Canonical(names []string) string {
	words := make([]string, 0, len(names))
	for _, n := range names {
		words = append(words, strings.Fields(n)...)
	}
	slices.Sort(words)
	key := strings.Join(words, " ")

	if key == "char" {
		return r.profile.CharSign() + " char"
	}
	if v, ok := rewrites[key]; ok {
		return v
	}
	return key
}

// CanonicalString is Canonical for a space-separated type name.
func (r *Registry) CanonicalString(name string) string {
	return r.Canonical(strings.Fields(name))
}
