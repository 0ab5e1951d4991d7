// Package testers holds helpers shared by the assert and require packages.
package testers

import (
	"path"
	"reflect"
	"runtime"
	"testing"
)

// DumpCaller reports the file and line of the assertion that failed.
func DumpCaller(t *testing.T) {
	t.Helper()
	_, fn, line, _ := runtime.Caller(2)
	t.Errorf("[ %s:%d ]", path.Base(fn), line)
}

// IsNil reports whether v is nil or a nil pointer, map, slice or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
