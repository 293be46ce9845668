package view

import (
	"strings"
	"sync"
)

// State is a snapshot of the router.
type State struct {
	View View `json:"view"`
	Tab  Tab  `json:"activeTab"`
	Mode Mode `json:"mode"`
	// PendingInvite is the invite code read from the first request.
	PendingInvite string `json:"pendingInvite,omitempty"`
	// AssistantMessage seeds the assistant page once.
	AssistantMessage string `json:"assistantMessage,omitempty"`
}

// Router holds the view state machine and the independent tab selector.
type Router struct {
	mu    sync.Mutex
	state State
	last  Inputs
}

// NewRouter starts on login, or on register when an invite code was supplied.
func NewRouter(inviteCode string) *Router {
	st := State{View: Login, Tab: TabDashboard, Mode: ModeStudent}
	if code := strings.TrimSpace(inviteCode); code != "" {
		st.View = Register
		st.PendingInvite = code
	}
	return &Router{state: st, last: Inputs{Loading: true}}
}

func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Update applies Next with the latest inputs and returns the new view.
func (r *Router) Update(in Inputs) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = in
	r.state.View = Next(r.state.View, in)
	return r.state.View
}

// explicit moves to v if no session is active. A session always wins: the next
// Update would move away again.
func (r *Router) explicit(v View) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.last.HasSession {
		r.state.View = v
	}
	return r.state.View
}

func (r *Router) GoRegister() View { return r.explicit(Register) }

func (r *Router) GoResetPassword() View { return r.explicit(ResetPassword) }

// GoLogin leaves register or reset-password and forgets the pending invite.
func (r *Router) GoLogin() View {
	r.mu.Lock()
	r.state.PendingInvite = ""
	r.mu.Unlock()
	return r.explicit(Login)
}

// ResetComplete returns from the reset-password screen to login.
func (r *Router) ResetComplete() View { return r.explicit(Login) }

// SetTab switches the active tab.
func (r *Router) SetTab(t Tab) {
	r.mu.Lock()
	r.state.Tab = t
	r.mu.Unlock()
}

// AskAI seeds the assistant with prompt and opens it.
func (r *Router) AskAI(prompt string) {
	r.mu.Lock()
	r.state.AssistantMessage = prompt
	r.state.Tab = TabAssistant
	r.mu.Unlock()
}

// AssistantHandled clears the seed once the assistant consumed it.
func (r *Router) AssistantHandled() {
	r.mu.Lock()
	r.state.AssistantMessage = ""
	r.mu.Unlock()
}

// SetMode switches the sidebar mode.
func (r *Router) SetMode(m Mode) {
	r.mu.Lock()
	r.state.Mode = m
	r.mu.Unlock()
}
