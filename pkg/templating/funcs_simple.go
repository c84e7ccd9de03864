package templating

import "reflect"

func add(a, b int) int {
	return a + b
}

func sub(a, b int) int {
	return a - b
}

// div is integer division that returns 0 when b is 0.
func div(a, b int) int {
	if b == 0 {
		return 0
	}
	return a / b
}

func mult(a, b int) int {
	return a * b
}

func maxInt(a, b int) int {
	return max(a, b)
}

func minInt(a, b int) int {
	return min(a, b)
}

// mod returns a % b, or 0 when b is 0.
func mod(a, b int) int {
	if b == 0 {
		return 0
	}
	return a % b
}

func inc(i int) int {
	return i + 1
}

func dec(i int) int {
	return i - 1
}

// isSet reports whether val is not its type's zero value.
func isSet(val any) bool {
	v := reflect.ValueOf(val)
	if !v.IsValid() {
		return false
	}
	return !v.IsZero()
}
