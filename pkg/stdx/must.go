// Package stdx has small helpers missing from the standard library.
package stdx

// Must0 panics when err is not nil.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v, or panics when err is not nil. It is meant for
// package level declarations that cannot fail at runtime.
func Must1[T any](v T, err error) T {
	Must0(err)
	return v
}
