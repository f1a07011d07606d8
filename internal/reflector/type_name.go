// Package reflector derives stable, human-readable names for cached value
// types. Names label per-type metrics and log records.
package reflector

import (
	"reflect"
	"sync"
)

var names sync.Map // reflect.Type -> string

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type { return reflect.TypeFor[T]() }

// NameOf returns a name for T such as "string", "*pkg/path.User" or
// "[]int". Results are cached.
func NameOf[T any]() string { return Name(reflect.TypeFor[T]()) }

// Name returns the cached name of t.
func Name(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if v, ok := names.Load(t); ok {
		return v.(string)
	}
	n := build(t)
	v, _ := names.LoadOrStore(t, n)
	return v.(string)
}

func build(t reflect.Type) string {
	if t.Name() == "" {
		// composite or anonymous: String() is already descriptive
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
