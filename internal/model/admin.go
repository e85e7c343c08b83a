package model

import "time"

// Admin is an account allowed to create teams and manage members. Admins are
// immutable after registration except for the update timestamp.
type Admin struct {
	ID          int64     `json:"id"`
	PlatformID  string    `json:"platform_id"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
