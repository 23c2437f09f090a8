package embedder

import (
	"github.com/tidwall/gjson"
)

// FindNumericArray walks a JSON payload depth-first and returns the first
// non-empty array whose elements are all numbers. Object members are visited
// in document order and arrays element by element, so the vector is found
// whether the provider returns {"embedding":{"value":[...]}},
// {"data":[{"embedding":[...]}]} or {"embeddings":[[...]]}.
// It reports false when the payload is not valid JSON or holds no such array.
func FindNumericArray(payload []byte) ([]float64, bool) {
	if !gjson.ValidBytes(payload) {
		return nil, false
	}
	return findNumeric(gjson.ParseBytes(payload))
}

// findNumeric is the recursive step of FindNumericArray. gjson.Result acts as
// the tagged union: Number, String, True, False, Null, or JSON (array/object).
func findNumeric(node gjson.Result) ([]float64, bool) {
	switch {
	case node.IsArray():
		elems := node.Array()
		if vec, ok := numbers(elems); ok {
			return vec, true
		}
		for _, el := range elems {
			if vec, ok := findNumeric(el); ok {
				return vec, true
			}
		}

	case node.IsObject():
		var (
			found []float64
			ok    bool
		)
		node.ForEach(func(_, value gjson.Result) bool {
			found, ok = findNumeric(value)
			return !ok
		})
		return found, ok
	}

	return nil, false
}

// numbers converts elems to float64 when every element is a JSON number.
func numbers(elems []gjson.Result) ([]float64, bool) {
	if len(elems) == 0 {
		return nil, false
	}
	vec := make([]float64, len(elems))
	for i, el := range elems {
		if el.Type != gjson.Number {
			return nil, false
		}
		vec[i] = el.Float()
	}
	return vec, true
}
