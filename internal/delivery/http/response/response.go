package response

// QueueResult reports the outcome of one city in a capture submission.
type QueueResult struct {
	CityID    string `json:"city_id"`
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status"` // "queued", "skipped", "error"
}

type SubmitCaptureResponse struct {
	Status  string        `json:"status"`
	Results []QueueResult `json:"results"`
}

// CaptureStatusResponse is a DTO for capture status, mirroring entity.CaptureStatus.
type CaptureStatusResponse struct {
	CityID        string `json:"city_id"`
	CurrentStatus string `json:"current_status"` // "pending", "completed", "not_found"
	ResponseCount int    `json:"response_count,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}
