package enums

import (
	"fmt"
	"slices"
)

// values lists the labels of one Postgres enum.
type values[T ~string] []T

func (v values[T]) has(x T) bool {
	return slices.Contains(v, x)
}

// parse matches raw exactly. Postgres enum labels are case sensitive.
func (v values[T]) parse(kind, raw string) (T, error) {
	if x := T(raw); v.has(x) {
		return x, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
