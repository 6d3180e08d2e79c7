package catalog

import (
	"fmt"
	"strings"

	"github.com/hugr-lab/sdmx-go/client"
)

// ShortFormSeparator separates codes in the short form of a multi-code
// selection, e.g. "DE+FR".
const ShortFormSeparator = "+"

// CodeSelector validates selections against an allowed code set.
// Tokens may be given as code ids or as their labels; labels resolve to
// the code id.
type CodeSelector struct {
	name   string
	codes  []client.Code
	ids    map[string]struct{}
	labels map[string]string
}

// NewCodeSelector creates a selector for parameter name accepting codes
// plus the Sentinel.
func NewCodeSelector(name string, codes []client.Code) *CodeSelector {
	return newSelector(name, codes, true)
}

func newSelector(name string, codes []client.Code, wildcard bool) *CodeSelector {
	s := &CodeSelector{
		name:   name,
		ids:    make(map[string]struct{}, len(codes)+1),
		labels: make(map[string]string, len(codes)),
	}
	if wildcard {
		s.add(client.Code{ID: Sentinel})
	}
	for _, c := range codes {
		s.add(c)
	}
	return s
}

func (s *CodeSelector) add(c client.Code) {
	if _, ok := s.ids[c.ID]; ok {
		return
	}
	s.ids[c.ID] = struct{}{}
	s.codes = append(s.codes, c)
	if c.Label != "" && c.Label != c.ID {
		if _, ok := s.labels[c.Label]; !ok {
			s.labels[c.Label] = c.ID
		}
	}
}

// Codes returns the allowed codes, the Sentinel first when present.
func (s *CodeSelector) Codes() []client.Code {
	out := make([]client.Code, len(s.codes))
	copy(out, s.codes)
	return out
}

// resolve maps a code id or label to the code id.
func (s *CodeSelector) resolve(token string) (string, bool) {
	if _, ok := s.ids[token]; ok {
		return token, true
	}
	id, ok := s.labels[token]
	return id, ok
}

// Validate checks a multi-code selection and returns the selected code ids
// in input order. value is a string, []string or []any of strings.
// A string containing "+" is split into codes. An empty selection is the
// Sentinel. The Sentinel is only valid on its own.
func (s *CodeSelector) Validate(value any) ([]string, error) {
	tokens, err := s.tokens(value)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return []string{Sentinel}, nil
	}

	selected := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	invalid := &InvalidCodeError{Parameter: s.name}
	for _, tok := range tokens {
		id, ok := s.resolve(tok)
		if !ok {
			invalid.Invalid = append(invalid.Invalid, tok)
			continue
		}
		if _, dup := seen[id]; dup {
			invalid.Duplicates = append(invalid.Duplicates, tok)
			continue
		}
		seen[id] = struct{}{}
		selected = append(selected, id)
	}

	if _, wildcard := seen[Sentinel]; wildcard && len(selected) > 1 {
		invalid.Invalid = append(invalid.Invalid, Sentinel)
	}
	if len(invalid.Invalid) > 0 || len(invalid.Duplicates) > 0 {
		return nil, invalid
	}
	return selected, nil
}

// ValidateSingle checks a single-code selection and returns the code id.
func (s *CodeSelector) ValidateSingle(value any) (string, error) {
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s expects a single code, got %T", ErrInvalidCode, s.name, value)
	}
	id, ok := s.resolve(strings.TrimSpace(str))
	if !ok {
		return "", &InvalidCodeError{Parameter: s.name, Invalid: []string{str}}
	}
	return id, nil
}

func (s *CodeSelector) tokens(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, nil
		}
		parts := strings.Split(v, ShortFormSeparator)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects codes, got %T at position %d", ErrInvalidCode, s.name, item, i)
			}
			out[i] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s expects a code or a list of codes, got %T", ErrInvalidCode, s.name, value)
	}
}
