package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set is the closed list of values for a string enum.
type set[T ~string] []T

func (s set[T]) has(v T) bool { return slices.Contains(s, v) }

// parse matches raw exactly, or upper-cased when fold is set.
func (s set[T]) parse(raw, what string, fold bool) (T, error) {
	v := strings.TrimSpace(raw)
	if fold {
		v = strings.ToUpper(v)
	}
	if s.has(T(v)) {
		return T(v), nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", what, raw)
}
