// Package assert provides minimal test assertions in place of a full
// matcher library, for the package-local unit tests that don't need
// testify's richer diffing.
package assert

import (
	"reflect"
	"testing"
)

func Equal(t *testing.T, want, got any, msg string) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Errorf("%s: want %#v, got %#v", msg, want, got)
	}
}

func NotEqual(t *testing.T, want, got any, msg string) {
	t.Helper()
	if reflect.DeepEqual(want, got) {
		t.Errorf("%s: want different from %#v, got same", msg, want)
	}
}

func Nil(t *testing.T, v any, msg string) {
	t.Helper()
	if !isNil(v) {
		t.Errorf("%s: want nil, got %#v", msg, v)
	}
}

func NotNil(t *testing.T, v any, msg string) {
	t.Helper()
	if isNil(v) {
		t.Errorf("%s: want non-nil, got nil", msg)
	}
}

func True(t *testing.T, v bool, msg string) {
	t.Helper()
	if !v {
		t.Errorf("%s: want true", msg)
	}
}

func False(t *testing.T, v bool, msg string) {
	t.Helper()
	if v {
		t.Errorf("%s: want false", msg)
	}
}

func Greater(t *testing.T, v int, than int, msg string) {
	t.Helper()
	if !(v > than) {
		t.Errorf("%s: want %d > %d", msg, v, than)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
