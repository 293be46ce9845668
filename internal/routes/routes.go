package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/vibes-platform/internal/handlers"
	"github.com/AnshRaj112/vibes-platform/internal/metrics"
)

func SetupRoutes(r *chi.Mux) {
	r.Get("/health", handlers.Health)
	r.Method("GET", "/metrics", metrics.Handler())

	// Workspace state
	r.Get("/api/state", handlers.GetState)
	r.Post("/api/notice/dismiss", handlers.DismissNotice)

	// Auth
	r.Post("/api/auth/login", handlers.Login)
	r.Post("/api/auth/register", handlers.Register)
	r.Post("/api/auth/logout", handlers.Logout)
	r.Post("/api/onboarding/complete", handlers.CompleteOnboarding)
	r.Get("/api/invites/validate", handlers.ValidateInvite)

	// Auth screens (ignored while signed in)
	r.Post("/api/view/register", handlers.GoRegister)
	r.Post("/api/view/login", handlers.GoLogin)
	r.Post("/api/view/reset-password", handlers.GoResetPassword)
	r.Post("/api/view/reset-complete", handlers.ResetComplete)

	// Navigation and preferences
	r.Post("/api/nav/tab", handlers.SetTab)
	r.Post("/api/nav/mode", handlers.SetMode)
	r.Post("/api/assistant/ask", handlers.AskAssistant)
	r.Post("/api/assistant/handled", handlers.AssistantHandled)
	r.Post("/api/theme/toggle", handlers.ToggleTheme)

	// Course content
	r.Get("/api/content", handlers.GetContent)
	r.Post("/api/content/refresh", handlers.RefreshContent)
	r.Get("/api/content/{name}", handlers.GetCollection)
	r.Put("/api/content/{name}", handlers.PublishCollection)
	r.Patch("/api/content/{name}", handlers.EditCollection)
	r.Post("/api/lessons/{id}/toggle", handlers.ToggleLesson)

	// File upload routes
	r.Post("/api/upload", handlers.UploadFile)

	// Admin routes (403 unless the session is an admin)
	r.Get("/api/admin/students", handlers.GetStudents)
	r.Put("/api/admin/students/{id}/ban", handlers.SetStudentBan)
	r.Get("/api/admin/invites", handlers.GetInvites)
	r.Post("/api/admin/invites", handlers.CreateInvites)
	r.Delete("/api/admin/invites/{id}", handlers.DeleteInvite)
	r.Post("/api/admin/refresh", handlers.RefreshAdmin)

	// WebSocket stream of workspace snapshots
	r.Get("/ws/state", handlers.StateWebSocket)
}
