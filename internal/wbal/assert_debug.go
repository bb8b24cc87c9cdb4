//go:build wbaldebug

// ABOUTME: Debug-build invariant check for the estimator.
// ABOUTME: Panics if W_exp ever goes negative.

package wbal

import "fmt"

func assertNonNegative(w float64, i int) {
	if w < 0 {
		panic(fmt.Sprintf("wbal: W_exp went negative at sample %d: %v", i, w))
	}
}
