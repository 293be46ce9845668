package models

import (
	"math"
	"net/url"
	"time"
)

// TotalLessons is the lesson count progress percentages are computed against.
const TotalLessons = 20

// DefaultStudentName is shown when a profile has no display name.
const DefaultStudentName = "Student"

// Student is the admin roster / profile page view model. It is derived, never
// persisted.
type Student struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Avatar        string    `json:"avatar"`
	Status        string    `json:"status"`
	Progress      int       `json:"progress"`
	CurrentModule string    `json:"currentModule"`
	LastActive    string    `json:"lastActive"`
	JoinedDate    time.Time `json:"joinedDate"`
	IsAdmin       bool      `json:"isAdmin"`
	IsBanned      bool      `json:"isBanned"`
}

// ProgressPercent converts a completed-lesson count into a rounded percentage.
func ProgressPercent(completed int) int {
	return int(math.Round(float64(completed) / TotalLessons * 100))
}

// AvatarFallback builds the generated initials avatar for name.
func AvatarFallback(name string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", "8b5cf6")
	q.Set("color", "fff")
	return "https://ui-avatars.com/api/?" + q.Encode()
}

// NewStudent derives the view model from a profile and its completed lessons.
func NewStudent(p Profile, completedLessons int) Student {
	name := p.FullName
	if name == "" {
		name = DefaultStudentName
	}
	avatar := p.AvatarURL
	if avatar == "" {
		avatar = AvatarFallback(p.FullName)
	}
	status := "active"
	if p.IsBanned {
		status = "banned"
	}
	return Student{
		ID:            p.ID,
		Name:          name,
		Email:         p.Email,
		Avatar:        avatar,
		Status:        status,
		Progress:      ProgressPercent(completedLessons),
		CurrentModule: "Module 1",
		LastActive:    "just now",
		JoinedDate:    p.CreatedAt,
		IsAdmin:       p.IsAdmin,
		IsBanned:      p.IsBanned,
	}
}
