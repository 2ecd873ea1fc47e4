package entity

import "time"

type CaptureStatus struct {
	CityID        string
	CurrentStatus string // "pending", "capturing", "completed", "failed", "not_found"
	CapturedAt    *time.Time
	ResponseCount int
	FailureReason string
}
