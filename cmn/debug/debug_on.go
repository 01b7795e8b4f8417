//go:build debug

package debug

import "fmt"

func ON() bool { return true }

func Assert(cond bool, a ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprint(a...))
	}
}

func Assertf(cond bool, f string, a ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(f, a...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic("assertion failed: " + err.Error())
	}
}

func AssertFunc(fn func() bool, a ...any) {
	Assert(fn(), a...)
}
