package model

import "time"

// Task statuses.
const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Field length bounds.
const (
	TitleMaxLength       = 30
	DescriptionMaxLength = 300
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task represents a task in the database. User is the joined owner row
// and is nil when the owning user has been deleted.
type Task struct {
	ID              int64
	Title           string
	Description     string
	Status          string
	CreatedDate     time.Time
	LastUpdatedDate *time.Time
	UserID          *int64
	User            *User
}

// CreateTaskRequest represents a task creation request. An empty status
// defaults to "new".
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// UpdateTaskRequest represents a partial task update. Pointer fields
// distinguish absent fields from explicit values.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// TaskFilter holds the optional listing filters. CreatedDate matches
// tasks created on the same calendar day.
type TaskFilter struct {
	Status      string
	CreatedDate *time.Time
	UserID      *int64
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Status          string        `json:"status"`
	CreatedDate     time.Time     `json:"created_date"`
	LastUpdatedDate *time.Time    `json:"last_updated_date"`
	User            *UserResponse `json:"user"`
}

// ToResponse converts a task to its API representation.
func (t *Task) ToResponse() TaskResponse {
	resp := TaskResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		CreatedDate:     t.CreatedDate,
		LastUpdatedDate: t.LastUpdatedDate,
	}
	if t.User != nil {
		resp.User = &UserResponse{
			ID:        t.User.ID,
			FirstName: t.User.FirstName,
			Email:     t.User.Email,
		}
	}
	return resp
}
