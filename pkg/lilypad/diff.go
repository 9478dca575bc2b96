package lilypad

import (
	"bytes"
	"encoding/json"
)

// Diff returns every top-level key of output that is absent from input or
// whose JSON encoding differs from the input's. Deleted keys are not
// reported.
//
// Equality is structural on the serialized form, so values that encode
// identically (an int 3 and a float64 3) compare equal.
func Diff(input, output Ctx) Ctx {
	diffs := Ctx{}
	for k, newVal := range output {
		oldVal, existed := input[k]
		if !existed || !sameJSON(oldVal, newVal) {
			diffs[k] = newVal
		}
	}
	return diffs
}

// sameJSON compares two values by their JSON encoding. Values that fail to
// encode are treated as different.
func sameJSON(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
