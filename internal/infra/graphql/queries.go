package graphql

import (
	"context"

	"github.com/vietddude/annotator/internal/core/domain"
)

const (
	projectFields = `id name description createdAt updatedAt`
	imageFields   = `id projectId filename url width height annotationCount createdAt`
	taskFields    = `id projectId imageId title status assignee createdAt updatedAt`
)

const (
	pingQuery = `query Ping { __typename }`

	listProjectsQuery  = `query Projects { projects { ` + projectFields + ` } }`
	createProjectQuery = `mutation CreateProject($input: ProjectInput!) { createProject(input: $input) { ` + projectFields + ` } }`
	updateProjectQuery = `mutation UpdateProject($id: ID!, $input: ProjectInput!) { updateProject(id: $id, input: $input) { ` + projectFields + ` } }`
	deleteProjectQuery = `mutation DeleteProject($id: ID!) { deleteProject(id: $id) }`

	listImagesQuery  = `query Images { images { ` + imageFields + ` } }`
	deleteImageQuery = `mutation DeleteImage($id: ID!) { deleteImage(id: $id) }`

	listTasksQuery        = `query Tasks { tasks { ` + taskFields + ` } }`
	createTaskQuery       = `mutation CreateTask($input: TaskInput!) { createTask(input: $input) { ` + taskFields + ` } }`
	updateTaskStatusQuery = `mutation UpdateTaskStatus($id: ID!, $status: TaskStatus!) { updateTaskStatus(id: $id, status: $status) { ` + taskFields + ` } }`
	deleteTaskQuery       = `mutation DeleteTask($id: ID!) { deleteTask(id: $id) }`
)

// Ping runs the cheapest possible query to prove the endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.Do(ctx, "ping", pingQuery, nil, nil)
}

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out struct {
		Projects []domain.Project `json:"projects"`
	}
	if err := c.Do(ctx, "projects", listProjectsQuery, nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (c *Client) CreateProject(ctx context.Context, input domain.ProjectInput) (*domain.Project, error) {
	var out struct {
		CreateProject *domain.Project `json:"createProject"`
	}
	vars := map[string]any{"input": input}
	if err := c.Do(ctx, "createProject", createProjectQuery, vars, &out); err != nil {
		return nil, err
	}
	return out.CreateProject, nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, input domain.ProjectInput) (*domain.Project, error) {
	var out struct {
		UpdateProject *domain.Project `json:"updateProject"`
	}
	vars := map[string]any{"id": id, "input": input}
	if err := c.Do(ctx, "updateProject", updateProjectQuery, vars, &out); err != nil {
		return nil, err
	}
	return out.UpdateProject, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.Do(ctx, "deleteProject", deleteProjectQuery, map[string]any{"id": id}, nil)
}

func (c *Client) ListImages(ctx context.Context) ([]domain.Image, error) {
	var out struct {
		Images []domain.Image `json:"images"`
	}
	if err := c.Do(ctx, "images", listImagesQuery, nil, &out); err != nil {
		return nil, err
	}
	return out.Images, nil
}

func (c *Client) DeleteImage(ctx context.Context, id string) error {
	return c.Do(ctx, "deleteImage", deleteImageQuery, map[string]any{"id": id}, nil)
}

func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var out struct {
		Tasks []domain.Task `json:"tasks"`
	}
	if err := c.Do(ctx, "tasks", listTasksQuery, nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, input domain.TaskInput) (*domain.Task, error) {
	var out struct {
		CreateTask *domain.Task `json:"createTask"`
	}
	vars := map[string]any{"input": input}
	if err := c.Do(ctx, "createTask", createTaskQuery, vars, &out); err != nil {
		return nil, err
	}
	return out.CreateTask, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	var out struct {
		UpdateTaskStatus *domain.Task `json:"updateTaskStatus"`
	}
	vars := map[string]any{"id": id, "status": status}
	if err := c.Do(ctx, "updateTaskStatus", updateTaskStatusQuery, vars, &out); err != nil {
		return nil, err
	}
	return out.UpdateTaskStatus, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.Do(ctx, "deleteTask", deleteTaskQuery, map[string]any{"id": id}, nil)
}
