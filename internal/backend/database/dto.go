package database

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account allowed to submit feedback.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FeedbackRecord is one user's verdict on a prediction. Records are only ever
// appended.
type FeedbackRecord struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Label         string    `json:"label"`
	FeedbackText  string    `json:"feedback_text"`
	FileReference string    `json:"file_reference,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
