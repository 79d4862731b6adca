package domain

import "time"

// SystemError is one entry of the global error log.
type SystemError struct {
	ID        string    `json:"id"         db:"id"`
	Message   string    `json:"message"    db:"message"`
	Source    string    `json:"source"     db:"source"`
	Critical  bool      `json:"critical"   db:"critical"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
