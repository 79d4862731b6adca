package domain

import "time"

// TaskStatus is the workflow state of an annotation task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

// Task is a unit of annotation work on one image.
type Task struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	ImageID   string     `json:"imageId"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	Assignee  string     `json:"assignee,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TaskInput carries the writable fields of a task.
type TaskInput struct {
	ProjectID string     `json:"projectId"`
	ImageID   string     `json:"imageId"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status,omitempty"`
	Assignee  string     `json:"assignee,omitempty"`
}
