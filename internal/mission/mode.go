// Package mission assembles flight-test missions.
//
// A mission holds one aircraft group per (variant, profile) pair. Each
// variant flies in its own lane, offset along x, and a logger script
// started at mission load watches exactly the groups that were placed.
package mission

import (
	"fmt"

	"github.com/vovakirdan/fmlab/internal/config"
)

// Mode is either Single or Multi.
type Mode interface {
	descriptors() []Descriptor
	String() string
}

// Single tests one aircraft type under the bare profile names.
type Single struct {
	TypeName string
}

// Multi tests every variant of a configuration side by side.
type Multi struct {
	Config *config.VariantConfig
}

// Descriptor is the part of a variant the assembler needs.
type Descriptor struct {
	ShortName  string // empty in Single mode
	TypeName   string
	ModDirName string
}

func (s Single) descriptors() []Descriptor {
	return []Descriptor{{TypeName: s.TypeName}}
}

func (s Single) String() string { return "single" }

func (m Multi) descriptors() []Descriptor {
	if m.Config == nil {
		return nil
	}
	out := make([]Descriptor, len(m.Config.Variants))
	for i, v := range m.Config.Variants {
		out[i] = Descriptor{ShortName: v.ShortName, TypeName: v.TypeName, ModDirName: v.ModDirName}
	}
	return out
}

func (m Multi) String() string { return "multi" }

// TypeSource yields the aircraft type for single-aircraft mode. It is only
// called when no variant config exists.
type TypeSource func() (string, error)

// FixedType returns a TypeSource for a known type name.
func FixedType(name string) TypeSource {
	return func() (string, error) { return name, nil }
}

// SelectMode returns Multi when a variant configuration exists at
// variantConfigPath, otherwise Single with the type from typeName. A config
// that exists but cannot be loaded is an error.
func SelectMode(variantConfigPath string, typeName TypeSource) (Mode, error) {
	if variantConfigPath != "" {
		cfg, found, err := config.DiscoverVariants(variantConfigPath)
		if err != nil {
			return nil, err
		}
		if found {
			return Multi{Config: cfg}, nil
		}
	}
	name := ""
	if typeName != nil {
		var err error
		if name, err = typeName(); err != nil {
			return nil, fmt.Errorf("mission: no variant config at %q: %w", variantConfigPath, err)
		}
	}
	if name == "" {
		return nil, fmt.Errorf("mission: no variant config at %q and no type name given", variantConfigPath)
	}
	return Single{TypeName: name}, nil
}
