// Package reflectx holds the reflection helpers used to turn Go functions into tools.
package reflectx

import (
	"reflect"
	"runtime"
	"strings"
)

func IsFunction(fn any) bool {
	return fn != nil && reflect.TypeOf(fn).Kind() == reflect.Func
}

// FunctionName returns the unqualified name of fn. Method values lose their
// -fm suffix, closures come out as func1, func2 and so on.
// Named function types report their type name instead.
func FunctionName(fn any) string {
	if !IsFunction(fn) {
		return ""
	}

	val := reflect.ValueOf(fn)
	if typ := val.Type(); typ.Name() != "" {
		return typ.Name()
	}

	rf := runtime.FuncForPC(val.Pointer())
	if rf == nil {
		return val.Type().String()
	}
	name := rf.Name()
	if lastDot := strings.LastIndex(name, "."); lastDot >= 0 {
		name = name[lastDot+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
