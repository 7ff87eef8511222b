package mapping

import (
	"fmt"
	"strings"
)

// Code classifies a mapping outcome.
type Code string

const (
	Success             Code = "success"
	RequiredError       Code = "required"
	TypeConversionError Code = "typeMismatch"
	SourceAccessError   Code = "sourceAccessError"
	TargetAccessError   Code = "targetAccessError"
)

// Result is the outcome of one mapping.
type Result struct {
	Mapping       *Mapping
	Code          Code
	OriginalValue any
	MappedValue   any
	Err           error
}

// IsError reports whether the mapping failed.
func (r Result) IsError() bool { return r.Code != Success }

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s [%s: %v]", r.Mapping, r.Code, r.Err)
	}
	return fmt.Sprintf("%s [%s]", r.Mapping, r.Code)
}

// Results collects the outcome of one Map call, in mapping order.
type Results struct {
	Source any
	Target any
	items  []Result
}

func (r *Results) add(res Result) {
	r.items = append(r.items, res)
}

// All returns every result in order.
func (r *Results) All() []Result {
	if r == nil {
		return nil
	}
	return append([]Result(nil), r.items...)
}

func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// HasErrors reports whether any mapping failed.
func (r *Results) HasErrors() bool {
	return len(r.Errors()) > 0
}

// Errors returns the failed results.
func (r *Results) Errors() []Result {
	return r.Select(Result.IsError)
}

// Select returns the results accepted by fn.
func (r *Results) Select(fn func(Result) bool) []Result {
	var out []Result
	for _, res := range r.All() {
		if fn(res) {
			out = append(out, res)
		}
	}
	return out
}

// ForTarget returns the first result whose target expression renders as target.
func (r *Results) ForTarget(target string) (Result, bool) {
	for _, res := range r.All() {
		if res.Mapping.Target.String() == target {
			return res, true
		}
	}
	return Result{}, false
}

func (r *Results) String() string {
	parts := make([]string, 0, r.Len())
	for _, res := range r.All() {
		parts = append(parts, res.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
