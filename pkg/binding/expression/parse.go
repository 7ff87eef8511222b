package expression

import (
	"fmt"
	"strings"
)

const (
	openDelim  = "#{"
	closeDelim = "}"
)

// Parse turns definition text into an expression.
//
//	"#{order.total}"       -> Path
//	"#{items[?qty > `1`]}" -> Query
//	"#{true}"              -> Static
//	"Hello #{user.name}"   -> Template
//	"plain"                -> Static string
func Parse(s string) (Expression, error) {
	if !strings.Contains(s, openDelim) {
		return Static{Value: s}, nil
	}
	parts, err := split(s)
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return &Template{raw: s, parts: parts}, nil
}

// MustParse is Parse that panics on error.
func MustParse(s string) Expression {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// ParseInner parses the body of a #{...} block.
func ParseInner(body string) (Expression, error) {
	body = strings.TrimSpace(body)
	switch body {
	case "":
		return nil, fmt.Errorf("empty expression")
	case "true":
		return Static{Value: true}, nil
	case "false":
		return Static{Value: false}, nil
	case "null":
		return Static{Value: nil}, nil
	}
	if IsPath(body) {
		return NewPath(body)
	}
	return NewQuery(body)
}

func split(s string) ([]Expression, error) {
	var parts []Expression
	rest := s
	for rest != "" {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			parts = append(parts, Static{Value: rest})
			break
		}
		if start > 0 {
			parts = append(parts, Static{Value: rest[:start]})
		}
		end := strings.Index(rest[start:], closeDelim)
		if end < 0 {
			return nil, fmt.Errorf("unterminated expression in %q", s)
		}
		inner, err := ParseInner(rest[start+len(openDelim) : start+end])
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		parts = append(parts, inner)
		rest = rest[start+end+len(closeDelim):]
	}
	return parts, nil
}

// Template concatenates literal text and embedded expressions into a string.
type Template struct {
	raw   string
	parts []Expression
}

func (t *Template) GetValue(ctx any) (any, error) {
	var b strings.Builder
	for _, p := range t.parts {
		s, err := String(p, ctx)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func (t *Template) SetValue(any, any) error {
	return &EvaluationError{Expression: t.raw, Op: "set", Err: ErrReadOnly}
}

func (t *Template) String() string { return t.raw }
