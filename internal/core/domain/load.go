package domain

// Data domains loaded by the coordinator.
const (
	DomainProjects = "projects"
	DomainImages   = "images"
	DomainTasks    = "tasks"
)

// LoadResult reports the outcome of one coordinated load.
type LoadResult struct {
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
	Operations []string `json:"operations"`
}
