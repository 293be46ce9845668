package view

import (
	"errors"
	"testing"
)

func TestNext(t *testing.T) {
	cases := []struct {
		name    string
		current View
		in      Inputs
		want    View
	}{
		{"loading stays", Register, Inputs{Loading: true, HasSession: true}, Register},
		{"no session goes to login", App, Inputs{}, Login},
		{"register is sticky", Register, Inputs{}, Register},
		{"reset is sticky", ResetPassword, Inputs{}, ResetPassword},
		{"not onboarded", Login, Inputs{HasSession: true, HasProfile: true}, Onboarding},
		{"onboarded", Onboarding, Inputs{HasSession: true, HasProfile: true, Onboarded: true}, App},
		{"session without profile", Login, Inputs{HasSession: true}, App},
		{"session leaves register", Register, Inputs{HasSession: true, HasProfile: true, Onboarded: true}, App},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Next(tc.current, tc.in); got != tc.want {
				t.Fatalf("Next(%s, %+v) = %s, want %s", tc.current, tc.in, got, tc.want)
			}
		})
	}
}

func TestInviteCodeStartsInRegister(t *testing.T) {
	r := NewRouter("XYZ")
	st := r.State()
	if st.View != Register || st.PendingInvite != "XYZ" {
		t.Fatalf("unexpected state %+v", st)
	}
	// auth finishing without a session keeps register
	if v := r.Update(Inputs{}); v != Register {
		t.Fatalf("view = %s", v)
	}
	if v := r.GoLogin(); v != Login || r.State().PendingInvite != "" {
		t.Fatalf("GoLogin: %s %+v", v, r.State())
	}

	if NewRouter("").State().View != Login {
		t.Fatalf("router without invite must start in login")
	}
}

func TestExplicitTransitionsIgnoredWithSession(t *testing.T) {
	r := NewRouter("")
	r.Update(Inputs{HasSession: true, HasProfile: true, Onboarded: true})
	if v := r.GoRegister(); v != App {
		t.Fatalf("signed-in router moved to %s", v)
	}
	r.Update(Inputs{})
	if v := r.GoResetPassword(); v != ResetPassword {
		t.Fatalf("view = %s", v)
	}
	if v := r.ResetComplete(); v != Login {
		t.Fatalf("view = %s", v)
	}
}

func TestTabsAndAssistant(t *testing.T) {
	r := NewRouter("")
	if r.State().Tab != TabDashboard {
		t.Fatalf("default tab = %s", r.State().Tab)
	}
	r.AskAI("What is a context window?")
	st := r.State()
	if st.Tab != TabAssistant || st.AssistantMessage != "What is a context window?" {
		t.Fatalf("AskAI: %+v", st)
	}
	r.AssistantHandled()
	if r.State().AssistantMessage != "" {
		t.Fatalf("seed not cleared")
	}

	if _, err := ParseTab("settings"); !errors.Is(err, ErrUnknownTab) {
		t.Fatalf("expected ErrUnknownTab, got %v", err)
	}
	tab, err := ParseTab("admin-content")
	if err != nil || tab != TabAdminContent {
		t.Fatalf("ParseTab: %s %v", tab, err)
	}
}

func TestPage(t *testing.T) {
	cases := []struct {
		tab     Tab
		mode    Mode
		hasUser bool
		want    Tab
	}{
		{TabProfile, ModeStudent, false, TabDashboard},
		{TabProfile, ModeStudent, true, TabProfile},
		{TabLessons, ModeAdmin, true, TabLessons},
		{Tab("calendar"), ModeAdmin, true, TabAdminStudents},
		{Tab("calendar"), ModeStudent, true, TabDashboard},
	}
	for _, tc := range cases {
		if got := Page(tc.tab, tc.mode, tc.hasUser); got != tc.want {
			t.Fatalf("Page(%s, %s, %v) = %s, want %s", tc.tab, tc.mode, tc.hasUser, got, tc.want)
		}
	}
}
