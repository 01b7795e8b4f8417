//go:build !debug

// Package debug provides build-tag gated assertions: a no-op build (this
// file) for production binaries, and a panicking build (debug_on.go,
// tag "debug") for development and tests.
package debug

func ON() bool { return false }

func Assert(_ bool, _ ...any)            {}
func Assertf(_ bool, _ string, _ ...any) {}
func AssertNoErr(_ error)                {}
func AssertFunc(_ func() bool, _ ...any) {}
