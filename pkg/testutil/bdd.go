package testutil

import "testing"

// Step is one named stage of a Scenario.
type Step struct {
	name string
	fn   func(t *testing.T)
}

func Given(desc string, fn func(t *testing.T)) Step { return Step{name: "Given " + desc, fn: fn} }
func When(desc string, fn func(t *testing.T)) Step  { return Step{name: "When " + desc, fn: fn} }
func Then(desc string, fn func(t *testing.T)) Step  { return Step{name: "Then " + desc, fn: fn} }

// Scenario runs steps in order as subtests of name. A failed step skips the
// ones after it since they depend on its state.
func Scenario(t *testing.T, name string, steps ...Step) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		for _, s := range steps {
			if !t.Run(s.name, s.fn) {
				t.Fatalf("step %q failed", s.name)
			}
		}
	})
}
