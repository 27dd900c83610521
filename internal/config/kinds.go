package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// EdgeKind is the boundary condition on the left and right edges of the grid.
type EdgeKind uint8

const (
	EdgeReflexive EdgeKind = iota // outermost demes point to themselves
	EdgeWrapping                  // outermost demes point to the opposite extreme
	EdgeExtending                 // outermost demes point forward; the grid grows there
	EdgeInfinite                  // outermost demes have no edge
)

var edgeNames = map[EdgeKind]string{
	EdgeReflexive: "reflexive",
	EdgeWrapping:  "wrapping",
	EdgeExtending: "extending",
	EdgeInfinite:  "infinite",
}

// ParseEdgeKind parses a left-right boundary name.
func ParseEdgeKind(s string) (EdgeKind, error) {
	for k, name := range edgeNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: left-right edges %q (valid: reflexive, wrapping, extending, infinite)", ErrInvalid, s)
}

func (k EdgeKind) String() string {
	if name, ok := edgeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EdgeKind(%d)", uint8(k))
}

// Set implements pflag.Value.
func (k *EdgeKind) Set(s string) error {
	v, err := ParseEdgeKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Type implements pflag.Value.
func (k *EdgeKind) Type() string { return "edges" }

func (k EdgeKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *EdgeKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return k.Set(s)
}

// VerticalKind is the boundary condition on the top and bottom of each column.
type VerticalKind uint8

const (
	VerticalReflexive VerticalKind = iota
	VerticalWrapping
)

// ParseVerticalKind parses an up-down boundary name.
func ParseVerticalKind(s string) (VerticalKind, error) {
	switch strings.ToLower(s) {
	case "reflexive":
		return VerticalReflexive, nil
	case "wrapping":
		return VerticalWrapping, nil
	}
	return 0, fmt.Errorf("%w: up-down edges %q (valid: reflexive, wrapping)", ErrInvalid, s)
}

func (k VerticalKind) String() string {
	switch k {
	case VerticalReflexive:
		return "reflexive"
	case VerticalWrapping:
		return "wrapping"
	}
	return fmt.Sprintf("VerticalKind(%d)", uint8(k))
}

// Set implements pflag.Value.
func (k *VerticalKind) Set(s string) error {
	v, err := ParseVerticalKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Type implements pflag.Value.
func (k *VerticalKind) Type() string { return "edges" }

func (k VerticalKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *VerticalKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return k.Set(s)
}

// OutputKind selects what a snapshot writes.
type OutputKind uint8

const (
	OutputSummary OutputKind = iota
	OutputBlocks
	OutputHybridIndices
	OutputHybridIndicesJunctions
	OutputComplete
	OutputBacktrace
	OutputRaspberryPi
	OutputSQLite
)

var outputNames = []string{
	OutputSummary:                "summary",
	OutputBlocks:                 "blocks",
	OutputHybridIndices:          "hybridIndices",
	OutputHybridIndicesJunctions: "hybridIndicesJunctions",
	OutputComplete:               "complete",
	OutputBacktrace:              "backtrace",
	OutputRaspberryPi:            "raspberrypi",
	OutputSQLite:                 "sqlite",
}

// ParseOutputKind parses an output type name (case-insensitive).
func ParseOutputKind(s string) (OutputKind, error) {
	for i, name := range outputNames {
		if strings.EqualFold(s, name) {
			return OutputKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: output type %q (valid: %s)", ErrInvalid, s, strings.Join(outputNames, ", "))
}

func (k OutputKind) String() string {
	if int(k) < len(outputNames) {
		return outputNames[k]
	}
	return fmt.Sprintf("OutputKind(%d)", uint8(k))
}

// Set implements pflag.Value.
func (k *OutputKind) Set(s string) error {
	v, err := ParseOutputKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Type implements pflag.Value.
func (k *OutputKind) Type() string { return "kind" }

func (k OutputKind) MarshalYAML() (any, error) { return k.String(), nil }

func (k *OutputKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return k.Set(s)
}

// WritesFile reports whether the output kind produces a numbered file.
func (k OutputKind) WritesFile() bool {
	return k != OutputRaspberryPi && k != OutputSQLite
}
