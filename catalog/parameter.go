package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hugr-lab/sdmx-go/client"
)

// Kind is the declared type of a Parameter.
type Kind int

const (
	// KindCodes selects one or more codes; values are []string.
	KindCodes Kind = iota
	// KindCode selects exactly one code; values are string.
	KindCode
	// KindString is free text.
	KindString
	// KindBool is a flag.
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindCodes:
		return "list[str]"
	case KindCode, KindString:
		return "str"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Parameter is a user-facing selection parameter of a dataset.
// Parameters are immutable once created.
type Parameter struct {
	Name        string
	Description string
	Kind        Kind

	// Default is the value used when the parameter is not bound.
	Default any

	selector *CodeSelector
}

// NewCodesParameter creates a multi-code parameter. The Sentinel is added
// to the allowed codes and is the default.
func NewCodesParameter(name, description string, codes []client.Code) *Parameter {
	return &Parameter{
		Name:        name,
		Description: description,
		Kind:        KindCodes,
		Default:     []string{Sentinel},
		selector:    NewCodeSelector(name, codes),
	}
}

// NewCodeParameter creates a single-code parameter. def must be one of codes.
func NewCodeParameter(name, description string, codes []client.Code, def string) *Parameter {
	return &Parameter{
		Name:        name,
		Description: description,
		Kind:        KindCode,
		Default:     def,
		selector:    newSelector(name, codes, false),
	}
}

// NewStringParameter creates a free text parameter.
func NewStringParameter(name, description, def string) *Parameter {
	return &Parameter{Name: name, Description: description, Kind: KindString, Default: def}
}

// NewBoolParameter creates a flag parameter.
func NewBoolParameter(name, description string, def bool) *Parameter {
	return &Parameter{Name: name, Description: description, Kind: KindBool, Default: def}
}

// Allowed returns the allowed codes of a coded parameter, nil otherwise.
func (p *Parameter) Allowed() []client.Code {
	if p.selector == nil {
		return nil
	}
	return p.selector.Codes()
}

// Coded reports whether the parameter selects from an allowed code set.
func (p *Parameter) Coded() bool {
	return p.Kind == KindCodes || p.Kind == KindCode
}

// Validate checks value and returns its canonical form.
func (p *Parameter) Validate(value any) (any, error) {
	switch p.Kind {
	case KindCodes:
		return p.selector.Validate(value)
	case KindCode:
		return p.selector.ValidateSingle(value)
	case KindString:
		switch v := value.(type) {
		case nil:
			return "", nil
		case string:
			return strings.TrimSpace(v), nil
		}
		return nil, fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidCode, p.Name, value)
	case KindBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: %s expects a bool, got %T", ErrInvalidCode, p.Name, value)
	}
	return nil, fmt.Errorf("%w: %s has unsupported kind %s", ErrInvalidCode, p.Name, p.Kind)
}

// defaultValue returns a copy of the default safe to store in a binding.
func (p *Parameter) defaultValue() any {
	if codes, ok := p.Default.([]string); ok {
		return slices.Clone(codes)
	}
	return p.Default
}
