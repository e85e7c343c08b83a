package model

import "time"

// Member belongs to exactly one team for its lifetime.
type Member struct {
	ID          int64     `json:"member_id"`
	TeamID      int64     `json:"team_id"`
	PlatformID  string    `json:"platform_id"`
	DisplayName string    `json:"display_name"`
	Position    string    `json:"position"`
	JoinDate    time.Time `json:"join_date"`
}
