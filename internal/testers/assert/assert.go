// Package assert reports test failures and lets the test continue.
package assert

import (
	"errors"
	"reflect"
	"testing"

	"github.com/skdltmxn/cscrape-go/internal/testers"
)

func Equal(t *testing.T, expect, got any) {
	t.Helper()
	if !reflect.DeepEqual(expect, got) {
		testers.DumpCaller(t)
		t.Errorf("wanted equal, but got different")
		t.Errorf("expected: %v [%T]", expect, expect)
		t.Errorf("got:      %v [%T]", got, got)
	}
}

func Equalf(t *testing.T, expect, got any, fmt string, va ...any) {
	t.Helper()
	if !reflect.DeepEqual(expect, got) {
		testers.DumpCaller(t)
		t.Errorf(fmt, va...)
		t.Errorf("expected: %v [%T]", expect, expect)
		t.Errorf("got:      %v [%T]", got, got)
	}
}

func True(t *testing.T, exp bool) {
	t.Helper()
	if !exp {
		testers.DumpCaller(t)
		t.Error("expected true, got false")
	}
}

func False(t *testing.T, exp bool) {
	t.Helper()
	if exp {
		testers.DumpCaller(t)
		t.Error("expected false, got true")
	}
}

func Nil(t *testing.T, exp any) {
	t.Helper()
	if !testers.IsNil(exp) {
		testers.DumpCaller(t)
		t.Errorf("wanted nil, got %v of type %T", exp, exp)
	}
}

func NotNil(t *testing.T, exp any) {
	t.Helper()
	if testers.IsNil(exp) {
		testers.DumpCaller(t)
		t.Error("wanted not nil, got nil")
	}
}

func ErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		testers.DumpCaller(t)
		t.Errorf("wanted error matching %q, got %v", target, err)
	}
}
