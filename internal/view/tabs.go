package view

import (
	"errors"
	"fmt"
)

// Tab is the in-app page selector.
type Tab string

const (
	TabDashboard              Tab = "dashboard"
	TabLessons                Tab = "lessons"
	TabRoadmaps               Tab = "roadmaps"
	TabStyles                 Tab = "styles"
	TabPrompts                Tab = "prompts"
	TabGlossary               Tab = "glossary"
	TabAssistant              Tab = "assistant"
	TabProfile                Tab = "profile"
	TabAdminStudents          Tab = "admin-students"
	TabAdminContent           Tab = "admin-content"
	TabAdminDashboardTasks    Tab = "admin-dashboard-tasks"
	TabAdminCalls             Tab = "admin-calls"
	TabAdminAssistant         Tab = "admin-assistant"
	TabAdminDashboardSettings Tab = "admin-dashboard-settings"
	TabAdminSettings          Tab = "admin-settings"
)

var tabs = map[Tab]bool{
	TabDashboard: true, TabLessons: true, TabRoadmaps: true, TabStyles: true,
	TabPrompts: true, TabGlossary: true, TabAssistant: true, TabProfile: true,
	TabAdminStudents: true, TabAdminContent: true, TabAdminDashboardTasks: true,
	TabAdminCalls: true, TabAdminAssistant: true, TabAdminDashboardSettings: true,
	TabAdminSettings: true,
}

var (
	// ErrUnknownTab is returned for tab ids outside the fixed set.
	ErrUnknownTab = errors.New("view: unknown tab")
	// ErrUnknownMode is returned for modes other than student and admin.
	ErrUnknownMode = errors.New("view: unknown mode")
)

// ParseTab validates a tab id.
func ParseTab(s string) (Tab, error) {
	t := Tab(s)
	if !tabs[t] {
		return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
	}
	return t, nil
}

// Mode is the sidebar mode. Only admins may use ModeAdmin.
type Mode string

const (
	ModeStudent Mode = "student"
	ModeAdmin   Mode = "admin"
)

// Page returns the page rendered for tab. The profile page needs a current
// user; anything unrecognised falls back to the mode's home page.
func Page(tab Tab, mode Mode, hasUser bool) Tab {
	switch {
	case tab == TabProfile && !hasUser:
		return TabDashboard
	case tabs[tab]:
		return tab
	case mode == ModeAdmin:
		return TabAdminStudents
	default:
		return TabDashboard
	}
}
