package core

import "gaugecode-go/errcode"

// As asserts a payload to the concrete value type T. Pointers to T are
// dereferenced. A nil payload is treated as the zero value of T.
func As[T any](v any) (T, errcode.Code) {
	var zero T
	if v == nil {
		return zero, ""
	}
	if t, ok := v.(T); ok {
		return t, ""
	}
	if p, ok := v.(*T); ok && p != nil {
		return *p, ""
	}
	return zero, errcode.InvalidPayload
}
