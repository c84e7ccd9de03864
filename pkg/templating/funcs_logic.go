package templating

import (
	"math/rand/v2"
	"reflect"
)

// repeat returns the integers 0 through count-1, for ranging a fixed number
// of times.
func repeat(count int) []int {
	if count < 0 {
		return []int{}
	}
	s := make([]int, count)
	for i := range s {
		s[i] = i
	}
	return s
}

// list returns its arguments as a slice.
func list(args ...any) []any {
	return args
}

// randomChoice returns a random element of a slice, or nil for anything that
// is not a non-empty slice.
func randomChoice(slice any) any {
	if slice == nil {
		return nil
	}
	val := reflect.ValueOf(slice)
	if val.Kind() != reflect.Slice || val.Len() == 0 {
		return nil
	}
	return val.Index(rand.IntN(val.Len())).Interface()
}
