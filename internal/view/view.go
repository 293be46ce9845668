// Package view selects which top-level screen a client sees and which in-app
// tab is active.
package view

// View is the top-level screen.
type View string

const (
	Login         View = "login"
	Register      View = "register"
	ResetPassword View = "reset-password"
	Onboarding    View = "onboarding"
	App           View = "app"
)

// Inputs are the session facts the view depends on.
type Inputs struct {
	Loading    bool
	HasSession bool
	HasProfile bool
	Onboarded  bool
}

// Next returns the view to show after the inputs changed. Register and
// reset-password are sticky while signed out; they are left only through an
// explicit transition or a new session.
func Next(current View, in Inputs) View {
	switch {
	case in.Loading:
		return current
	case !in.HasSession:
		if current == Register || current == ResetPassword {
			return current
		}
		return Login
	case in.HasProfile && !in.Onboarded:
		return Onboarding
	default:
		return App
	}
}
