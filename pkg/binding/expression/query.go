package expression

import (
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// Query is a read-only JMESPath expression evaluated over the context's data view.
type Query struct {
	raw string
	jp  *jmespath.JMESPath
}

// NewQuery compiles a JMESPath expression.
func NewQuery(raw string) (*Query, error) {
	jp, err := jmespath.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile query %q: %w", raw, err)
	}
	return &Query{raw: raw, jp: jp}, nil
}

func (q *Query) GetValue(ctx any) (any, error) {
	data := ctx
	if m, ok := ctx.(Mapper); ok {
		data = m.AsMap()
	}
	v, err := q.jp.Search(data)
	if err != nil {
		return nil, &EvaluationError{Expression: q.raw, Op: "get", Err: err}
	}
	return v, nil
}

func (q *Query) SetValue(any, any) error {
	return &EvaluationError{Expression: q.raw, Op: "set", Err: ErrReadOnly}
}

func (q *Query) String() string { return q.raw }
