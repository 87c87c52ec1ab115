package xapi

import "testing"

// SetBeforeActivate задаёт хук Dial перед переходом в Active на время теста.
func SetBeforeActivate(t testing.TB, fn func(*Session)) {
	beforeActivate = fn

	t.Cleanup(func() {
		beforeActivate = nil
	})
}
