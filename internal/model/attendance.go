package model

import "time"

// Session is a single attendance record. A session with a nil CheckOutTime is
// open; at most one open session may exist per member at any time.
type Session struct {
	ID           int64      `json:"session_id"`
	TeamID       int64      `json:"team_id"`
	MemberID     int64      `json:"member_id"`
	Date         time.Time  `json:"date"`
	CheckInTime  time.Time  `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	Status       string     `json:"status"`
}

// AttendanceRow is one line of a team attendance report. Optional fields that
// are absent render as "N/A" rather than failing the report.
type AttendanceRow struct {
	Username     string `json:"username"`
	CheckInTime  string `json:"check_in_time"`
	CheckOutTime string `json:"check_out_time"`
	Status       string `json:"status"`
}
