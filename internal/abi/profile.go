// Package abi holds the fundamental C type table and the ABI profiles that
// seed it.
package abi

import (
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is the profile applied by NewRegistry.
const DefaultProfile = "arm32"

//go:embed profiles/*.yaml
var profileFS embed.FS

var (
	// ErrUnknownProfile indicates no preset exists with the requested name.
	ErrUnknownProfile = errors.New("abi: unknown profile")

	// ErrInvalidProfile indicates a profile document failed validation.
	ErrInvalidProfile = errors.New("abi: invalid profile")
)

// TypeSpec is a fundamental type entry as written in a profile document.
type TypeSpec struct {
	Bits   int  `yaml:"bits" json:"bits"`
	Align  int  `yaml:"align" json:"align"`
	Signed bool `yaml:"signed" json:"signed"`
}

// Profile is a named ABI preset: type sizes plus the scalar knobs the layout
// engine needs.
type Profile struct {
	Name             string              `yaml:"name" json:"name"`
	CharSigned       bool                `yaml:"char_signed" json:"char_signed"`
	Endian           string              `yaml:"endian" json:"endian"`
	EnumType         string              `yaml:"enum_type" json:"enum_type"`
	PointerSize      int                 `yaml:"pointer_size" json:"pointer_size"`
	DefaultAlignment int                 `yaml:"default_alignment" json:"default_alignment"`
	StructAlignment  int                 `yaml:"struct_alignment" json:"struct_alignment"`
	Types            map[string]TypeSpec `yaml:"types" json:"types,omitempty"`
	Aliases          map[string]string   `yaml:"aliases" json:"aliases,omitempty"`
}

// ByteOrder returns the profile's byte order. Layout math does not use it;
// it is exposed for decoding memory images.
func (p *Profile) ByteOrder() binary.ByteOrder {
	if p.Endian == "big" {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// CharSign returns "signed" or "unsigned", the signedness of a bare char.
func (p *Profile) CharSign() string {
	if p.CharSigned {
		return "signed"
	}
	return "unsigned"
}

func (p *Profile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidProfile)
	}
	if p.Endian != "little" && p.Endian != "big" {
		return fmt.Errorf("%w: %s: endian must be little or big, got %q", ErrInvalidProfile, p.Name, p.Endian)
	}
	for _, v := range []struct {
		field string
		bits  int
	}{
		{"pointer_size", p.PointerSize},
		{"default_alignment", p.DefaultAlignment},
		{"struct_alignment", p.StructAlignment},
	} {
		if v.bits <= 0 || v.bits%8 != 0 {
			return fmt.Errorf("%w: %s: %s must be a positive multiple of 8, got %d",
				ErrInvalidProfile, p.Name, v.field, v.bits)
		}
	}
	for name, t := range p.Types {
		if t.Bits <= 0 || t.Align <= 0 {
			return fmt.Errorf("%w: %s: type %q needs positive bits and align", ErrInvalidProfile, p.Name, name)
		}
	}
	if p.EnumType == "" {
		p.EnumType = "signed int"
	}
	return nil
}

// Validate checks the knobs and fills defaults.
func (p *Profile) Validate() error { return p.validate() }

// ParseProfile decodes a YAML profile document.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProfile returns the shipped preset with the given name.
func LoadProfile(name string) (*Profile, error) {
	data, err := profileFS.ReadFile("profiles/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return ParseProfile(data)
}

// ReadProfileFile loads a profile document from disk.
func ReadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("abi: failed to read profile: %w", err)
	}
	return ParseProfile(data)
}

// Profiles lists the names of the shipped presets.
func Profiles() []string {
	entries, err := profileFS.ReadDir("profiles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		names = append(names, n[:len(n)-len(".yaml")])
	}
	return names
}
