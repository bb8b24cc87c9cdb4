//go:build !wbaldebug

// ABOUTME: Release-build invariant check for the estimator.
// ABOUTME: Compiles to a no-op.

package wbal

func assertNonNegative(float64, int) {}
