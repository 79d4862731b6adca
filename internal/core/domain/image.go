package domain

import "time"

// Image is an uploaded image belonging to a project.
type Image struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"projectId"`
	Filename        string    `json:"filename"`
	URL             string    `json:"url"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	AnnotationCount int       `json:"annotationCount"`
	CreatedAt       time.Time `json:"createdAt"`
}
