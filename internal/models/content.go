package models

// Course content records. Collections of these are swapped wholesale between the
// bundled defaults and the backend copy.

type Lesson struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	VideoURL    string   `json:"videoUrl,omitempty"`
	Materials   []string `json:"materials,omitempty"`
}

type CourseModule struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	Lessons     []Lesson `json:"lessons" validate:"dive"`
}

type PromptItem struct {
	ID       string   `json:"id" validate:"required"`
	Title    string   `json:"title" validate:"required"`
	Category string   `json:"category"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
}

type PromptCategory struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label" validate:"required"`
}

type RoadmapStep struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
}

type Roadmap struct {
	ID          string        `json:"id" validate:"required"`
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category,omitempty"`
	Steps       []RoadmapStep `json:"steps" validate:"dive"`
}

type StyleCard struct {
	ID       string   `json:"id" validate:"required"`
	Title    string   `json:"title" validate:"required"`
	ImageURL string   `json:"image,omitempty"`
	Prompt   string   `json:"prompt,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type GlossaryTerm struct {
	ID         string `json:"id" validate:"required"`
	Term       string `json:"term" validate:"required"`
	Definition string `json:"definition" validate:"required"`
	Category   string `json:"category,omitempty"`
}

type DashboardStage struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Tasks       []string `json:"tasks,omitempty"`
}
