package testutil

import "testing"

// Given, When, and Then name subtests after the behavior under test. They
// keep wiring-level tests readable without a full BDD framework; the
// feature-file scenarios live in e2e instead.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
