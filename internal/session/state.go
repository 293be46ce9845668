package session

import (
	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/models"
)

// State is a snapshot of the session manager.
type State struct {
	Session *gateway.Session `json:"session"`
	Profile *models.Profile  `json:"profile"`
	Loading bool             `json:"loading"`
	// Notice is a blocking message for the user, set by the ban veto.
	Notice string `json:"notice,omitempty"`
}

// IsAdmin is derived from the profile.
func (s State) IsAdmin() bool {
	return s.Profile != nil && s.Profile.IsAdmin
}

type actionKind int

const (
	actSession actionKind = iota
	actProfile
	actLoaded
	actBanned
	actSignedOut
	actDismissNotice
)

type action struct {
	kind    actionKind
	session *gateway.Session
	profile *models.Profile
}

// reduce is the only place State changes.
func reduce(s State, a action) State {
	switch a.kind {
	case actSession:
		s.Session = a.session
		if a.session == nil {
			s.Profile = nil
		} else if s.Profile != nil && s.Profile.ID != a.session.UserID {
			s.Profile = nil
		}
	case actProfile:
		// A missing row keeps whatever profile the session already had.
		if a.profile != nil {
			s.Profile = a.profile
		}
		s.Loading = false
	case actLoaded:
		s.Loading = false
	case actBanned:
		s.Session = nil
		s.Profile = nil
		s.Loading = false
		s.Notice = BannedNotice
	case actSignedOut:
		s.Session = nil
		s.Profile = nil
		s.Loading = false
	case actDismissNotice:
		s.Notice = ""
	}
	return s
}
