package model

import "time"

type Team struct {
	ID        int64     `json:"team_id"`
	Name      string    `json:"team_name"`
	AdminID   int64     `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
}
